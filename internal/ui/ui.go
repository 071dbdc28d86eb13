// Package ui styles terminal output for the pharmad CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // gray
	colorWarn   = 214 // amber
)

// Styler renders text in color when Color is set and passes it through
// unchanged otherwise.
type Styler struct {
	Color bool
}

// For returns a Styler that colors output to w when ShouldUseColor(w).
func For(w io.Writer) Styler {
	return Styler{Color: ShouldUseColor(w)}
}

func (s Styler) Accent(text string) string { return s.paint(colorAccent, text) }

func (s Styler) Muted(text string) string { return s.paint(colorMuted, text) }

// Warn is for events that need attention, such as low stock.
func (s Styler) Warn(text string) string { return s.paint(colorWarn, text) }

func (s Styler) paint(color int, text string) string {
	if !s.Color {
		return text
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, text)
}

// ShouldUseColor reports whether ANSI colors should be written to w.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColor(w io.Writer) bool {
	// https://no-color.org
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
