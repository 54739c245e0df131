package ui

import (
	"charm.land/glamour/v2"
	"charm.land/glamour/v2/styles"
)

// maxReadableWidth caps word wrap on wide terminals.
const maxReadableWidth = 100

// RenderMarkdown renders task details for the terminal. It returns the text
// unchanged in agent mode, without color, or when rendering fails.
func RenderMarkdown(markdown string) string {
	if markdown == "" || IsAgentMode() || !ShouldUseColor() {
		return markdown
	}

	width := TerminalWidth(80)
	if width > maxReadableWidth {
		width = maxReadableWidth
	}
	style := styles.DarkStyle
	if !HasDarkBackground() {
		style = styles.LightStyle
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
