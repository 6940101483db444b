package main

import (
	"fmt"
	"io"

	"wargabantuin/internal/domain"
	"wargabantuin/internal/session"
)

// printer renders session changes as a terminal transcript. Typed replies are
// written as they grow, one rune batch per update.
type printer struct {
	out     io.Writer
	shown   int
	current int
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, current: -1}
}

func (p *printer) onChange(c session.Change) {
	switch c.Kind {
	case session.MessageAppended:
		if c.Message.Role != domain.RoleBot {
			return
		}
		p.current, p.shown = c.Index, 0
		fmt.Fprint(p.out, "bot> ")
		p.reveal(c.Message.Text)
	case session.MessageUpdated:
		if c.Index == p.current {
			p.reveal(c.Message.Text)
		}
	case session.MessageFinalized:
		if c.Index == p.current {
			p.reveal(c.Message.Text)
			fmt.Fprintln(p.out)
			p.current = -1
		}
	case session.MessageReplaced:
		if c.Index == p.current {
			p.current = -1
		} else {
			fmt.Fprint(p.out, "bot> ")
		}
		fmt.Fprintln(p.out, c.Message.Text)
	case session.LogCleared:
		if p.current >= 0 {
			fmt.Fprintln(p.out)
		}
		p.current = -1
		fmt.Fprintln(p.out, "-- chat dibersihkan --")
	case session.FocusChanged:
		if c.Focus != nil && c.Focus.Coordinates != nil {
			fmt.Fprintf(p.out, "-- fokus peta: %.6f, %.6f (%s) --\n", c.Focus.Coordinates.Lat, c.Focus.Coordinates.Lon, c.Focus.Source)
		}
	}
}

func (p *printer) reveal(text string) {
	runes := []rune(text)
	if len(runes) <= p.shown {
		return
	}
	fmt.Fprint(p.out, string(runes[p.shown:]))
	p.shown = len(runes)
}
