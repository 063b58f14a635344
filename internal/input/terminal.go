package input

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/banshee-data/colortrack/internal/monitoring"
)

// Terminal reads single keystrokes from a terminal and pushes the mapped
// commands onto a Queue.
type Terminal struct {
	in    io.Reader
	fd    int
	queue *Queue
}

// NewTerminal reads from stdin. It returns nil when stdin is not a
// terminal, in which case keyboard control is unavailable.
func NewTerminal(q *Queue) *Terminal {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return &Terminal{in: os.Stdin, fd: fd, queue: q}
}

// newReaderTerminal reads from r without touching terminal modes.
func newReaderTerminal(r io.Reader, q *Queue) *Terminal {
	return &Terminal{in: r, fd: -1, queue: q}
}

// Run switches the terminal to raw mode and reads keys until ctx is done or
// the input ends. The terminal mode and log output are restored before Run
// returns, so callers must wait for it before exiting. A read blocked on
// stdin is abandoned rather than interrupted, so Run may return before the
// reading goroutine does.
func (t *Terminal) Run(ctx context.Context) error {
	if t.fd >= 0 {
		state, err := term.MakeRaw(t.fd)
		if err != nil {
			return err
		}
		defer term.Restore(t.fd, state)
		defer crlfLogOutput()()
	}

	keys := make(chan byte)
	errc := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := t.in.Read(buf)
			if n == 1 {
				select {
				case keys <- buf[0]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case b := <-keys:
			cmd, ok := FromKey(b)
			if !ok {
				continue
			}
			monitoring.Debugf("[Input] key %q -> %s", b, cmd)
			t.queue.Push(cmd)
		}
	}
}

// crlfWriter expands \n to \r\n. Raw mode disables output post-processing,
// so bare newlines would not return the cursor.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// crlfLogOutput routes the standard logger through a crlfWriter and returns
// a func that restores the previous output.
func crlfLogOutput() func() {
	prev := log.Writer()
	log.SetOutput(crlfWriter{w: prev})
	return func() { log.SetOutput(prev) }
}
