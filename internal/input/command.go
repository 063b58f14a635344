// Package input turns keystrokes and HTTP requests into tracking loop
// commands. Commands are queued and the loop polls them once per frame.
package input

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Command is one user action.
type Command int

const (
	None Command = iota
	WidthDown
	WidthUp
	ToleranceDown
	ToleranceUp
	Reset
	Save
	Quit
)

var commandNames = map[Command]string{
	None:          "none",
	WidthDown:     "width-down",
	WidthUp:       "width-up",
	ToleranceDown: "tolerance-down",
	ToleranceUp:   "tolerance-up",
	Reset:         "reset",
	Save:          "save",
	Quit:          "quit",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Parse maps a command name, as used by the HTTP command endpoint, back to
// a Command.
func Parse(name string) (Command, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range commandNames {
		if c != None && n == name {
			return c, nil
		}
	}
	return None, fmt.Errorf("unknown command %q", name)
}

// FromKey maps a keystroke to a command.
func FromKey(b byte) (Command, bool) {
	switch b {
	case 'w':
		return WidthDown, true
	case 'W':
		return WidthUp, true
	case '-', '_':
		return ToleranceDown, true
	case '+', '=':
		return ToleranceUp, true
	case 'r':
		return Reset, true
	case 's':
		return Save, true
	case 'q', 3: // 3 is ^C in raw mode
		return Quit, true
	}
	return None, false
}

// Queue is a bounded command buffer. Push never blocks; when full the
// newest command is dropped.
type Queue struct {
	ch      chan Command
	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{ch: make(chan Command, size)}
}

// Push enqueues c and reports whether it was accepted.
func (q *Queue) Push(c Command) bool {
	select {
	case q.ch <- c:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Poll returns the oldest queued command without blocking.
func (q *Queue) Poll() (Command, bool) {
	select {
	case c := <-q.ch:
		return c, true
	default:
		return None, false
	}
}

func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
