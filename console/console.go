package console

/*
Monitor output abstraction.

The monitor and the system layer log bus traffic as plain text lines; where
those lines end up depends on the frontend. The gocui Gui feeds them into a
view, Simple dumps them to stdout. Both take lines over a string channel so
any goroutine can write without caring about the frontend's threading rules.
*/

// Console is the output sink for monitor messages.
type Console interface {
	WriteConsole(msg string) error
}
