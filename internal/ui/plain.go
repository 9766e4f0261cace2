package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/buckleypaul/jig/internal/logbus"
)

const (
	fallbackWidth  = 80
	fallbackHeight = 24
)

// Plain redraws the whole history on every event without a TUI runtime,
// like a dumb status screen.
type Plain struct {
	out  *termenv.Output
	size func() (int, int)
}

// NewPlain returns a Plain renderer writing to w. When w is a terminal its
// size is queried on every draw.
func NewPlain(w io.Writer) *Plain {
	p := &Plain{
		out:  termenv.NewOutput(w),
		size: func() (int, int) { return fallbackWidth, fallbackHeight },
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		p.size = func() (int, int) {
			w, h, err := term.GetSize(fd)
			if err != nil || w <= 0 || h <= 0 {
				return fallbackWidth, fallbackHeight
			}
			return w, h
		}
	}
	return p
}

// Render implements logbus.Renderer.
func (p *Plain) Render(events []logbus.Event) {
	width, height := p.size()
	p.out.ClearScreen()
	p.out.MoveCursor(1, 1)

	lines := Lines(events)
	fmt.Fprintln(p.out, strings.Join(lines, "\n"))

	if c, ok := logbus.FillColor(events); ok {
		if rows := height - len(lines) - 1; rows > 0 {
			fmt.Fprintln(p.out, Wash(c, width, rows))
		}
	}
}
