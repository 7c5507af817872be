// Package tui renders dyntree widgets in the terminal: an interactive Bubble
// Tea browser and the styles shared with plain output.
package tui

import (
	"os"

	"golang.org/x/term"
)

// OutputMode is how much terminal capability the output may use.
type OutputMode int

const (
	// OutputModePlain writes unstyled text.
	OutputModePlain OutputMode = iota
	// OutputModeStyled writes styled, non-interactive text.
	OutputModeStyled
	// OutputModeInteractive runs the Bubble Tea program.
	OutputModeInteractive
)

// String implements fmt.Stringer.
func (m OutputMode) String() string {
	switch m {
	case OutputModeInteractive:
		return "interactive"
	case OutputModeStyled:
		return "styled"
	default:
		return "plain"
	}
}

// DetectOutputMode picks the richest mode the environment supports.
// forceColor keeps styles on a non-terminal; noColor and plain force plain
// output. NO_COLOR in the environment behaves like noColor.
func DetectOutputMode(forceColor, noColor, plain bool) OutputMode {
	return detectOutputMode(forceColor, noColor, plain, isTerminal(os.Stdout), isTerminal(os.Stdin), os.Getenv)
}

func detectOutputMode(
	forceColor, noColor, plain, stdoutTTY, stdinTTY bool,
	getenv func(string) string,
) OutputMode {
	if plain || noColor || getenv("NO_COLOR") != "" {
		return OutputModePlain
	}
	if getenv("TERM") == "dumb" {
		return OutputModePlain
	}
	if stdoutTTY && stdinTTY {
		return OutputModeInteractive
	}
	if stdoutTTY || forceColor {
		return OutputModeStyled
	}
	return OutputModePlain
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalSize returns the size of stdout, or the defaults when stdout is
// not a terminal.
func TerminalSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return defaultWidth, defaultHeight
	}
	return w, h
}
