package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SkLight/dyntree/internal/dyntree"
	"github.com/SkLight/dyntree/internal/i18n"
	"github.com/SkLight/dyntree/internal/logging"
	"github.com/SkLight/dyntree/internal/render"
	listview "github.com/SkLight/dyntree/internal/tui/list"
)

// ViewState is the browser screen.
type ViewState int

const (
	// ViewStateLoading waits for the root listing.
	ViewStateLoading ViewState = iota
	// ViewStateTree shows the tree.
	ViewStateTree
	// ViewStateError shows a root failure and offers a retry.
	ViewStateError
	// ViewStateQuitting is entered on quit.
	ViewStateQuitting
)

// Widget is what the browser needs from a dyntree widget.
type Widget interface {
	Init(ctx context.Context) error
	Expand(ctx context.Context, h dyntree.Handle) error
	Collapse(h dyntree.Handle)
	Toggle(ctx context.Context, h dyntree.Handle) error
	Stats() dyntree.Stats
}

// surfaceChangedMsg is sent when the surface signals a change.
type surfaceChangedMsg struct{}

// initDoneMsg is sent when the root expansion finishes.
type initDoneMsg struct{ err error }

// gestureDoneMsg is sent when an expand, collapse or toggle finishes.
type gestureDoneMsg struct {
	handle dyntree.Handle
	err    error
}

// BrowserOptions configures NewBrowserModel.
type BrowserOptions struct {
	// Title is shown above the tree.
	Title string
	// Printer localises messages; nil means English.
	Printer *i18n.Printer
	// ShowCodes appends node codes to labels.
	ShowCodes bool
}

// BrowserModel is the Bubble Tea model of the interactive tree browser.
//
// Widget calls run inside commands, never in Update: a fetch may take as
// long as the source does, and the widget calls back into the surface while
// holding its own lock. Update only reads surface snapshots.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type BrowserModel struct {
	ctx     context.Context
	widget  Widget
	surface *Surface
	opts    BrowserOptions
	printer *i18n.Printer

	state   ViewState
	list    *listview.VirtualListModel[render.Row]
	keys    KeyMap
	help    help.Model
	loading *LoadingState

	width  int
	height int
	status string
	err    error
}

// NewBrowserModel creates a browser over widget, which must render through
// surface.
func NewBrowserModel(ctx context.Context, widget Widget, surface *Surface, opts BrowserOptions) BrowserModel {
	printer := opts.Printer
	if printer == nil {
		printer = i18n.New("")
	}
	m := BrowserModel{
		ctx:     ctx,
		widget:  widget,
		surface: surface,
		opts:    opts,
		printer: printer,
		state:   ViewStateLoading,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		loading: NewLoadingState(printer.Loading()),
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.list = listview.NewVirtualListModel(nil, m.treeHeight(), m.width, m.renderRow).
		WithSame(sameRow)
	return m
}

// Init starts the spinner, the root expansion and the change listener.
func (m BrowserModel) Init() tea.Cmd {
	return tea.Batch(m.loading.Init(), m.initCmd(), m.waitForChange())
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.list.SetSize(m.width, m.treeHeight())
		return m, nil

	case surfaceChangedMsg:
		m.refresh()
		return m, m.waitForChange()

	case initDoneMsg:
		if msg.err != nil {
			m.state = ViewStateError
			m.err = msg.err
			return m, nil
		}
		m.state = ViewStateTree
		m.err = nil
		m.refresh()
		return m, nil

	case gestureDoneMsg:
		m.status = ""
		if msg.err != nil && !errors.Is(msg.err, dyntree.ErrEndpoint) && !errors.Is(msg.err, context.Canceled) {
			m.status = m.printer.Sprintf(i18n.KeyLoadFailed, msg.err)
			logging.FromContext(m.ctx).Debug().
				Err(msg.err).
				Int64("node_id", msg.handle.ID()).
				Msg("gesture failed")
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		return m, m.loading.Update(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m BrowserModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.state = ViewStateQuitting
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.list.SetSize(m.width, m.treeHeight())
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		if m.state == ViewStateError {
			m.state = ViewStateLoading
			return m, m.initCmd()
		}
		return m, nil
	}

	if m.state != ViewStateTree {
		return m, nil
	}
	if listview.HandlesKey(msg) {
		m.list.Update(msg)
		return m, nil
	}

	row := m.list.GetSelectedItem()
	if row == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		if row.Kind != render.RowEntry || row.Entry.Endpoint {
			return m, nil
		}
		return m, m.gesture(row.Entry.Handle(), m.widget.Toggle)
	case key.Matches(msg, m.keys.Expand):
		if row.Kind != render.RowEntry || row.Entry.Endpoint || row.Unfolded {
			return m, nil
		}
		return m, m.gesture(row.Entry.Handle(), m.widget.Expand)
	case key.Matches(msg, m.keys.Collapse):
		return m.collapse(*row)
	}
	return m, nil
}

// collapse folds the selected item, or moves to its parent when it is
// already folded.
func (m BrowserModel) collapse(row render.Row) (tea.Model, tea.Cmd) {
	if row.Kind == render.RowEntry && row.Unfolded {
		h := row.Entry.Handle()
		return m, m.gesture(h, func(_ context.Context, h dyntree.Handle) error {
			m.widget.Collapse(h)
			return nil
		})
	}
	if !row.Parent.IsRoot() {
		m.selectHandle(row.Parent)
	}
	return m, nil
}

func (m BrowserModel) gesture(h dyntree.Handle, fn func(context.Context, dyntree.Handle) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return gestureDoneMsg{handle: h, err: fn(ctx, h)}
	}
}

func (m BrowserModel) initCmd() tea.Cmd {
	ctx, w := m.ctx, m.widget
	return func() tea.Msg {
		return initDoneMsg{err: w.Init(ctx)}
	}
}

// waitForChange blocks until the surface changes or the browser context ends.
func (m BrowserModel) waitForChange() tea.Cmd {
	ctx, changes := m.ctx, m.surface.Changes()
	return func() tea.Msg {
		select {
		case <-changes:
			return surfaceChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// refresh reloads rows from the surface.
func (m BrowserModel) refresh() {
	m.list.SetItems(m.surface.Rows())
}

func (m BrowserModel) selectHandle(h dyntree.Handle) {
	for i, r := range m.list.Items() {
		if r.Kind == render.RowEntry && r.Entry.Handle() == h {
			m.list.SetSelected(i)
			return
		}
	}
}

func (m BrowserModel) treeHeight() int {
	h := m.height - chromeHeight
	if m.help.ShowAll {
		h -= len(m.keys.FullHelp()[0])
	}
	return max(h, 1)
}

// View renders the browser (Bubble Tea interface).
func (m BrowserModel) View() string {
	if m.state == ViewStateQuitting {
		return ""
	}

	title := m.opts.Title
	if title == "" {
		title = "dyntree"
	}

	var body string
	switch m.state {
	case ViewStateLoading:
		body = RenderLoading(m.loading)
	case ViewStateError:
		body = CriticalStyle.Render(m.printer.Sprintf(i18n.KeyRootFailure, m.err))
	default:
		if m.list.ItemCount() == 0 {
			body = MutedStyle.Render(m.printer.Sprintf(i18n.KeyNoChildren))
		} else {
			body = m.list.View()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(title),
		"",
		body,
		m.statusLine(),
		m.help.View(m.keys),
	)
}

func (m BrowserModel) statusLine() string {
	if m.status != "" {
		return CriticalStyle.Render(m.status)
	}
	st := m.widget.Stats()
	parts := []string{
		m.printer.Sprintf(i18n.KeyListings, st.Cached),
		m.printer.Sprintf(i18n.KeyRequests, st.Fetches),
	}
	if st.Failures > 0 {
		parts = append(parts, m.printer.Sprintf(i18n.KeyFailures, st.Failures))
	}
	return MutedStyle.Render(strings.Join(parts, " · "))
}

func (m BrowserModel) renderRow(row render.Row, selected bool) string {
	indent := strings.Repeat(" ", indentWidth*row.Depth)
	if row.Kind == render.RowBusy {
		return indent + RenderLoading(m.loading)
	}

	label := render.Label(row.Entry, row.Unfolded, render.TreeOptions{ShowCodes: m.opts.ShowCodes})
	switch {
	case selected:
		label = SelectedStyle.Render(label)
	case row.Entry.Endpoint:
		label = EndpointStyle.Render(label)
	}
	return indent + label
}

func sameRow(a, b render.Row) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == render.RowBusy {
		return a.Parent == b.Parent
	}
	return a.Entry.Handle() == b.Entry.Handle()
}

// Run shows the browser until the user quits or ctx is cancelled.
func Run(ctx context.Context, widget Widget, surface *Surface, opts BrowserOptions) error {
	m := NewBrowserModel(ctx, widget, surface, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
