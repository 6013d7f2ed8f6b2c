package main

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// escapeChar starts a terminal command.
const escapeChar = "~"

// lineReader is the part of readline.Instance a session uses.
type lineReader interface {
	Readline() (string, error)
}

// session pumps lines to the bridge and bridge output to the terminal.
type session struct {
	conn net.Conn
	out  io.Writer

	closeOnce sync.Once
}

func newSession(conn net.Conn, out io.Writer) *session {
	return &session{conn: conn, out: out}
}

// Run copies bridge output to the terminal in the background and sends
// typed lines until the user disconnects, the bridge closes the
// connection or ctx is done.
func (s *session) Run(ctx context.Context, in lineReader) error {
	defer s.close()

	stop := context.AfterFunc(ctx, s.close)
	defer stop()

	remoteDone := make(chan struct{})
	go func() {
		defer close(remoteDone)
		_, _ = io.Copy(s.out, s.conn)
		io.WriteString(s.out, "\nConnection closed.\n")
		s.close()
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := in.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-remoteDone:
				return
			}
		}
	}()

	for {
		select {
		case <-remoteDone:
			return nil
		case <-readErr:
			return nil
		case line := <-lines:
			payload, quit := translate(line)
			if quit {
				return nil
			}
			if _, err := s.conn.Write(payload); err != nil {
				return err
			}
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() { s.conn.Close() })
}

// translate maps a typed line to the bytes sent to the bridge. It reports
// quit for the disconnect command.
func translate(line string) (payload []byte, quit bool) {
	switch {
	case line == escapeChar+".":
		return nil, true
	case strings.HasPrefix(line, escapeChar+escapeChar):
		line = line[len(escapeChar):]
	}
	return []byte(line + "\n"), false
}
