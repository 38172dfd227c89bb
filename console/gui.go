package console

import (
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
)

// Gui sends monitor messages into a gocui view.
type Gui struct {
	consoleOut  chan string // string channel the monitor lines are sent to
	g           *gocui.Gui  // main gocui GUI object
	v           *gocui.View // gocui view receiving the lines
	currentLine int         // counter to keep the position of the cursor
}

// NewGui returns a console writing into the named view and starts the
// goroutine feeding it.
func NewGui(g *gocui.Gui, view string) *Gui {
	c := new(Gui)
	c.consoleOut = make(chan string)
	c.g = g
	c.v, _ = g.View(view)
	c.initGui()
	return c
}

// initGui starts the forwarding goroutine. gocui only allows touching a
// view from inside Update, hence the indirection.
func (c *Gui) initGui() {
	go func() {
		for s := range c.consoleOut {
			s := s
			c.g.Update(func(g *gocui.Gui) error {
				fmt.Fprintf(c.v, "%s", s)
				return nil
			})
		}
	}()
}

// WriteConsole displays a string on the console
func (c *Gui) WriteConsole(msg string) error {
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			c.consoleOut <- line + "\n"
			c.v.MoveCursor(0, 1, true)
			c.currentLine++
		}
	}
	return nil
}
