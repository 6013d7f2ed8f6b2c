package cli

import (
	"io"
	"sync"
	"sync/atomic"
)

// DefaultLineLength is the default line buffer size. A line holds at most
// one byte less.
const DefaultLineLength = 128

const (
	backspace = 0x08
	del       = 0x7f
)

var erase = []byte("\b \b")

// Editor turns raw keystrokes into command lines.
type Editor struct {
	mu    sync.Mutex
	table *Table
	out   io.Writer
	buf   []byte
	max   int

	echo atomic.Bool
}

// NewEditor creates an editor feeding table. Echo starts enabled. A
// non-positive maxLen selects DefaultLineLength.
func NewEditor(table *Table, maxLen int) *Editor {
	if maxLen <= 0 {
		maxLen = DefaultLineLength
	}
	e := &Editor{
		table: table,
		out:   table.Output(),
		max:   maxLen,
		buf:   make([]byte, 0, maxLen),
	}
	e.echo.Store(true)
	return e
}

// SetEcho enables or disables keystroke echo. Safe to call from a command
// handler.
func (e *Editor) SetEcho(on bool) {
	e.echo.Store(on)
}

// Echo reports whether echo is enabled.
func (e *Editor) Echo() bool {
	return e.echo.Load()
}

// Begin clears the line and prints the prompt.
func (e *Editor) Begin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf = e.buf[:0]
	e.table.PrintPrompt()
}

// Line returns the current partial line.
func (e *Editor) Line() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.buf)
}

// Feed processes input bytes. Bytes after an exit command are dropped.
// Command handlers must not call Feed or Begin.
func (e *Editor) Feed(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range data {
		switch {
		case c == '\r':
		case c == '\n':
			line := string(e.buf)
			e.buf = e.buf[:0]
			e.out.Write([]byte{'\n'})
			if e.table.Execute(line) {
				return
			}
		case c == backspace || c == del:
			if len(e.buf) == 0 {
				continue
			}
			e.buf = e.buf[:len(e.buf)-1]
			if e.echo.Load() {
				e.out.Write(erase)
			}
		case c >= 0x20 && c < 0x7f:
			if len(e.buf) >= e.max-1 {
				continue
			}
			e.buf = append(e.buf, c)
			if e.echo.Load() {
				e.out.Write([]byte{c})
			}
		}
	}
}

// Write feeds p and reports it consumed, so an Editor can stand in for
// any io.Writer.
func (e *Editor) Write(p []byte) (int, error) {
	e.Feed(p)
	return len(p), nil
}
