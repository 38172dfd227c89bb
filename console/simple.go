package console

import (
	"io"
	"os"
	"strings"
)

// Simple dumps monitor messages to a writer, stdout by default. Used by
// the -nogui mode and handy in tests.
type Simple struct {
	consoleOut  chan string   // string channel the monitor lines are sent to
	done        chan struct{} // closed once the forwarding goroutine drained
	w           io.Writer
	currentLine int // counter to keep the position of the cursor
}

// NewSimple returns a stdout console and starts the goroutine feeding it.
func NewSimple() *Simple {
	c := new(Simple)
	c.consoleOut = make(chan string)
	c.done = make(chan struct{})
	c.w = os.Stdout
	c.initSimple()
	return c
}

func (c *Simple) initSimple() {
	go func() {
		for s := range c.consoleOut {
			io.WriteString(c.w, s)
		}
		close(c.done)
	}()
}

// WriteConsole displays a string on the console
func (c *Simple) WriteConsole(msg string) error {
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			c.consoleOut <- line + "\n"
			c.currentLine++
		}
	}
	return nil
}

// Close drains the pending lines and stops the forwarding goroutine.
// WriteConsole must not be called afterwards.
func (c *Simple) Close() {
	close(c.consoleOut)
	<-c.done
}
