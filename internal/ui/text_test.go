package ui

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short text unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"truncate with ellipsis", "hello world", 8, "hello..."},
		{"very short maxLen", "hello world", 3, "..."},
		{"empty string", "", 10, ""},
		{"unicode chars", "héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateLines(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "line")
	}
	text := strings.Join(lines, "\n")

	if got := TruncateLines("a\nb", 15, 5); got != "a\nb" {
		t.Errorf("short text changed: %q", got)
	}

	got := TruncateLines(text, 15, 5)
	if !strings.Contains(got, "20 lines hidden") {
		t.Errorf("missing hidden count in %q", got)
	}
	if n := strings.Count(got, "\n") + 1; n != 11 {
		t.Errorf("got %d lines, want 11", n)
	}

	got = TruncateLines(text, 4, 5)
	if !strings.HasSuffix(got, "\n...") || strings.Count(got, "line") != 4 {
		t.Errorf("small maxLines: %q", got)
	}
}

func TestWrapText(t *testing.T) {
	got := WrapText("the quick brown fox jumps", 10)
	want := "the quick\nbrown fox\njumps"
	if got != want {
		t.Errorf("WrapText = %q, want %q", got, want)
	}

	got = WrapText("keep\nbreaks", 80)
	if got != "keep\nbreaks" {
		t.Errorf("WrapText changed short lines: %q", got)
	}

	got = WrapText("supercalifragilistic word", 5)
	if got != "supercalifragilistic\nword" {
		t.Errorf("long word: %q", got)
	}
}

func TestIndent(t *testing.T) {
	if got := Indent("a\n\nb", "  "); got != "  a\n\n  b" {
		t.Errorf("Indent = %q", got)
	}
}
