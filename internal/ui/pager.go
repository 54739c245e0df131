package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls pager behavior
type PagerOptions struct {
	// NoPager disables the pager (--no-pager).
	NoPager bool
	// Out receives the content when no pager runs. Defaults to stdout.
	Out io.Writer
}

// shouldUsePager is false with --no-pager, TM_NO_PAGER, in agent mode, or
// when stdout is not a terminal.
func shouldUsePager(opts PagerOptions) bool {
	if opts.NoPager || os.Getenv("TM_NO_PAGER") != "" || IsAgentMode() {
		return false
	}
	if opts.Out != nil && opts.Out != os.Stdout {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// getPagerCommand checks TM_PAGER, then PAGER, and defaults to less.
func getPagerCommand() string {
	if pager := os.Getenv("TM_PAGER"); pager != "" {
		return pager
	}
	if pager := os.Getenv("PAGER"); pager != "" {
		return pager
	}
	return "less"
}

func contentHeight(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// ToPager pipes content to a pager when stdout is a terminal and the
// content does not fit on screen. Otherwise it prints directly.
func ToPager(content string, opts PagerOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if !shouldUsePager(opts) {
		_, err := fmt.Fprint(out, content)
		return err
	}

	if _, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil && contentHeight(content) <= height-1 {
		_, err := fmt.Fprint(out, content)
		return err
	}

	parts := strings.Fields(getPagerCommand())
	if len(parts) == 0 {
		_, err := fmt.Fprint(out, content)
		return err
	}

	cmd := exec.Command(parts[0], parts[1:]...) // #nosec G204 - TM_PAGER/PAGER
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// -R: ANSI colors, -F: quit if one screen, -X: keep screen on exit
	if os.Getenv("LESS") == "" {
		cmd.Env = append(os.Environ(), "LESS=-RFX")
	} else {
		cmd.Env = os.Environ()
	}
	return cmd.Run()
}
