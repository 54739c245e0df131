package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Truncation defaults for long details in `tm show`.
const (
	DefaultMaxLines     = 15
	DefaultContextLines = 5
)

// Truncate cuts text to maxLen runes, ending in "..." when it had to cut.
func Truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(text)
	return string(runes[:maxLen-3]) + "..."
}

// TruncateLines keeps contextLines from each end of text when it runs past
// maxLines, with a muted marker counting the hidden lines in between.
func TruncateLines(text string, maxLines, contextLines int) string {
	lines := strings.Split(text, "\n")
	total := len(lines)
	if text == "" || total <= maxLines {
		return text
	}
	if contextLines < 1 {
		contextLines = DefaultContextLines
	}
	if maxLines < contextLines*2+1 {
		return strings.Join(lines[:maxLines], "\n") + "\n..."
	}

	hidden := total - 2*contextLines
	var b strings.Builder
	b.WriteString(strings.Join(lines[:contextLines], "\n"))
	b.WriteString("\n")
	b.WriteString(RenderMuted(fmt.Sprintf("... (%d lines hidden, use --full to see all) ...", hidden)))
	b.WriteString("\n")
	b.WriteString(strings.Join(lines[total-contextLines:], "\n"))
	return b.String()
}

// WrapText wraps text at word boundaries to fit within maxWidth.
// Existing line breaks are kept.
func WrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 80
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wrapLine(line, maxWidth)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, maxWidth int) string {
	if utf8.RuneCountInString(line) <= maxWidth {
		return line
	}
	var b strings.Builder
	width := 0
	for _, word := range strings.Fields(line) {
		n := utf8.RuneCountInString(word)
		switch {
		case width == 0:
		case width+1+n <= maxWidth:
			b.WriteString(" ")
			width++
		default:
			b.WriteString("\n")
			width = 0
		}
		b.WriteString(word)
		width += n
	}
	return b.String()
}

// Indent prefixes every non-empty line of text.
func Indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
