package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func init() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR and CLICOLOR conventions, falling
// back to whether stdout is a terminal.
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether decorative glyphs should be printed.
func ShouldUseEmoji() bool {
	if os.Getenv("TM_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// IsAgentMode reports whether output is consumed by an agent rather than a
// person. Agents get plain text: no markdown rendering, no pager.
func IsAgentMode() bool {
	switch os.Getenv("TM_AGENT_MODE") {
	case "1", "true", "yes":
		return true
	}
	return false
}

// HasDarkBackground reports the terminal background, defaulting to dark
// when it cannot be queried.
func HasDarkBackground() bool {
	if !IsTerminal() {
		return true
	}
	return termenv.HasDarkBackground()
}

// TerminalWidth returns the width of stdout, or fallback when unknown.
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
