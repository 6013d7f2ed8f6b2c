package transport

import (
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// StdioPort uses the process's stdin and stdout as a port. When stdin is a
// terminal it is switched to raw mode so keystrokes arrive unbuffered and
// unechoed, as they would from a UART.
type StdioPort struct {
	in  *os.File
	out io.Writer

	restore   *term.State
	closeOnce sync.Once
}

// OpenStdio opens stdin/stdout as a port.
func OpenStdio() (*StdioPort, error) {
	return openFiles(os.Stdin, os.Stdout)
}

// StdioOpener returns an Opener for stdin/stdout. The baud rate is
// meaningless for a terminal and ignored.
func StdioOpener() Opener {
	return func(int) (Port, error) {
		return OpenStdio()
	}
}

func openFiles(in *os.File, out io.Writer) (*StdioPort, error) {
	p := &StdioPort{in: in, out: out}

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, err
		}
		p.restore = state
	}
	return p, nil
}

// Raw reports whether the terminal was switched to raw mode.
func (p *StdioPort) Raw() bool {
	return p.restore != nil
}

func (p *StdioPort) Read(b []byte) (int, error) {
	return p.in.Read(b)
}

func (p *StdioPort) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

// Close restores the terminal. Stdin and stdout stay open.
func (p *StdioPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.restore != nil {
			err = term.Restore(int(p.in.Fd()), p.restore)
		}
	})
	return err
}

// SetBaudRate is a no-op for a terminal.
func (p *StdioPort) SetBaudRate(int) error {
	return nil
}
