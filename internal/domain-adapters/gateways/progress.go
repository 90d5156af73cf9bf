package gateways

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

// defaultTermWidth is used when the terminal size cannot be read
const defaultTermWidth = 80

// ProgressBar draws a proportional hash-mark bar on a terminal.
// All drawing happens from the goroutine calling Add and Tick; the resize
// handler only flags the cached layout as stale.
type ProgressBar struct {
	out   io.Writer
	fd    uintptr
	label string

	total   int64
	current int64

	// cached layout
	width int
	half  int
	bar   int
	msg   string

	resized    atomic.Bool
	stopResize func()
}

// IsTerminal reports whether f is attached to an interactive terminal
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewProgressBar creates a bar for the named transfer and starts watching
// for terminal resizes. Close must be called when the transfer ends.
func NewProgressBar(f *os.File, label string) *ProgressBar {
	p := &ProgressBar{
		out:   f,
		fd:    f.Fd(),
		label: label,
	}
	p.resized.Store(true)
	p.stopResize = watchResize(&p.resized)
	return p
}

// Grow adds n bytes to the expected total
func (p *ProgressBar) Grow(n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.total += n
}

// Add records n transferred bytes
func (p *ProgressBar) Add(n int64) {
	if p == nil {
		return
	}
	p.current += n
}

// Tick redraws the bar, recomputing the layout first if the terminal was
// resized since the last tick
func (p *ProgressBar) Tick() {
	if p == nil {
		return
	}

	if p.resized.Swap(false) {
		p.layout(terminalWidth(p.fd))
	}

	_, _ = fmt.Fprint(p.out, "\r"+p.render())
}

// Close draws the final state and stops watching for resizes
func (p *ProgressBar) Close() {
	if p == nil {
		return
	}
	p.Tick()
	_, _ = fmt.Fprintln(p.out)
	if p.stopResize != nil {
		p.stopResize()
	}
}

// layout splits the line into a message half and a bar half
func (p *ProgressBar) layout(width int) {
	if width <= 0 {
		width = defaultTermWidth
	}

	p.width = width
	p.half = width / 2
	p.bar = max(p.half-2, 1)
	p.msg = shorten("=> "+p.label+" ", p.bar-5)
}

// render returns the current line without the leading carriage return
func (p *ProgressBar) render() string {
	marks := 0
	if p.total > 0 {
		marks = int(int64(p.bar) * min(p.current, p.total) / p.total)
	}

	return fmt.Sprintf("%-*s[%s%s]", p.half, p.msg,
		strings.Repeat("#", marks), strings.Repeat(" ", p.bar-marks))
}

// shorten truncates s to n bytes, marking the cut with an ellipsis
func shorten(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
