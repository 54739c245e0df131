// Package ui provides terminal styling for tm CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tmkit/taskmaster/internal/types"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
	ColorProgress = lipgloss.AdaptiveColor{
		Light: "#a37acc",
		Dark:  "#d2a6ff",
	}
)

var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	ProgressStyle = lipgloss.NewStyle().Foreground(ColorProgress)
	BoldStyle     = lipgloss.NewStyle().Bold(true)
)

// CategoryStyle for section headers - bold with accent color
var CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

// Status icons
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconSkip = "-"
	IconInfo = "ℹ"
)

// Tree characters for subtask display
const (
	TreeChild  = "├─ "
	TreeLast   = "└─ "
	TreeIndent = "  "
)

// SeparatorLight is the rule drawn between sections.
const SeparatorLight = "──────────────────────────────────────────"

func RenderPass(s string) string     { return PassStyle.Render(s) }
func RenderWarn(s string) string     { return WarnStyle.Render(s) }
func RenderFail(s string) string     { return FailStyle.Render(s) }
func RenderMuted(s string) string    { return MutedStyle.Render(s) }
func RenderAccent(s string) string   { return AccentStyle.Render(s) }
func RenderBold(s string) string     { return BoldStyle.Render(s) }
func RenderSeparator() string        { return MutedStyle.Render(SeparatorLight) }
func RenderCategory(s string) string { return CategoryStyle.Render(strings.ToUpper(s)) }

func RenderPassIcon() string { return PassStyle.Render(IconPass) }
func RenderWarnIcon() string { return WarnStyle.Render(IconWarn) }
func RenderFailIcon() string { return FailStyle.Render(IconFail) }
func RenderInfoIcon() string { return AccentStyle.Render(IconInfo) }

// StatusIcon returns the glyph shown next to a task in listings.
func StatusIcon(s types.Status) string {
	switch types.Status(strings.ToLower(string(s))) {
	case types.StatusDone, types.StatusCompleted:
		return IconPass
	case types.StatusInProgress, types.StatusReview:
		return "►"
	case types.StatusBlocked:
		return IconFail
	case types.StatusDeferred, types.StatusCancelled:
		return IconSkip
	default:
		return "○"
	}
}

// RenderStatus colors a status by how close to finished it is.
func RenderStatus(s types.Status) string {
	text := string(s)
	if text == "" {
		text = string(types.StatusPending)
	}
	switch types.Status(strings.ToLower(text)) {
	case types.StatusDone, types.StatusCompleted:
		return PassStyle.Render(text)
	case types.StatusInProgress, types.StatusReview:
		return ProgressStyle.Render(text)
	case types.StatusBlocked:
		return FailStyle.Render(text)
	case types.StatusDeferred, types.StatusCancelled:
		return MutedStyle.Render(text)
	default:
		return WarnStyle.Render(text)
	}
}

// RenderPriority colors a priority; an empty one shows as medium.
func RenderPriority(p types.Priority) string {
	switch p {
	case types.PriorityHigh:
		return FailStyle.Render(string(p))
	case types.PriorityLow:
		return MutedStyle.Render(string(p))
	case "":
		return WarnStyle.Render(string(types.PriorityMedium))
	default:
		return WarnStyle.Render(string(p))
	}
}
