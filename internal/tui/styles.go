package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Default dimensions before the first WindowSizeMsg arrives.
const (
	defaultWidth  = 80
	defaultHeight = 24

	// chromeHeight is the number of lines around the tree: title, blank
	// line, status line and help line.
	chromeHeight = 4

	indentWidth = 2
)

// Color palette.
//
//nolint:gochecknoglobals // Read-only palette.
var (
	ColorHeader    = lipgloss.Color("39")
	ColorSelected  = lipgloss.Color("229")
	ColorSelectBg  = lipgloss.Color("57")
	ColorMuted     = lipgloss.Color("240")
	ColorEndpoint  = lipgloss.Color("245")
	ColorCritical  = lipgloss.Color("196")
	ColorHighlight = lipgloss.Color("214")
)

// Shared styles.
//
//nolint:gochecknoglobals // Read-only styles.
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	SelectedStyle = lipgloss.NewStyle().Foreground(ColorSelected).Background(ColorSelectBg)
	EndpointStyle = lipgloss.NewStyle().Foreground(ColorEndpoint)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	BusyStyle     = lipgloss.NewStyle().Foreground(ColorHighlight).Italic(true)
	CriticalStyle = lipgloss.NewStyle().Foreground(ColorCritical).Bold(true)
)
