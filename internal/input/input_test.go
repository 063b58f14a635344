package input

import (
	"bytes"
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromKey(t *testing.T) {
	tests := []struct {
		key  byte
		want Command
		ok   bool
	}{
		{'w', WidthDown, true},
		{'W', WidthUp, true},
		{'-', ToleranceDown, true},
		{'_', ToleranceDown, true},
		{'+', ToleranceUp, true},
		{'=', ToleranceUp, true},
		{'r', Reset, true},
		{'s', Save, true},
		{'q', Quit, true},
		{'x', None, false},
		{'R', None, false},
	}
	for _, tt := range tests {
		got, ok := FromKey(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FromKey(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParse(t *testing.T) {
	for c, name := range commandNames {
		if c == None {
			continue
		}
		got, err := Parse(strings.ToUpper(name))
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.Equal(t, name, c.String())
	}
	_, err := Parse("none")
	assert.Error(t, err)
	_, err = Parse("jump")
	assert.Error(t, err)
	assert.Equal(t, "Command(42)", Command(42).String())
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	_, ok := q.Poll()
	assert.False(t, ok)

	assert.True(t, q.Push(WidthUp))
	assert.True(t, q.Push(Reset))
	assert.False(t, q.Push(Quit))
	assert.Equal(t, uint64(1), q.Dropped())

	c, ok := q.Poll()
	assert.True(t, ok)
	assert.Equal(t, WidthUp, c)
	c, _ = q.Poll()
	assert.Equal(t, Reset, c)
	_, ok = q.Poll()
	assert.False(t, ok)
}

func TestTerminal_ReadsKeys(t *testing.T) {
	q := NewQueue(8)
	term := newReaderTerminal(strings.NewReader("wx+rq"), q)
	require.NoError(t, term.Run(context.Background()))

	var got []Command
	for {
		c, ok := q.Poll()
		if !ok {
			break
		}
		got = append(got, c)
	}
	assert.Equal(t, []Command{WidthDown, ToleranceUp, Reset, Quit}, got)
}

func TestTerminal_StopsOnContext(t *testing.T) {
	q := NewQueue(1)
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newReaderTerminal(r, q).Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}

func TestCRLFWriter(t *testing.T) {
	var buf bytes.Buffer
	n, err := crlfWriter{w: &buf}.Write([]byte("one\ntwo\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, "one\r\ntwo\r\n", buf.String())
}

func TestCRLFLogOutputRestores(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}()

	restore := crlfLogOutput()
	log.Print("raw")
	restore()
	log.Print("cooked")

	assert.Equal(t, "raw\r\ncooked\n", buf.String())
	assert.Same(t, &buf, log.Writer())
}
