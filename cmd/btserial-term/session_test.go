package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btserial/btserial-go/pkg/discovery"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		line string
		want string
		quit bool
	}{
		{"get status", "get status\n", false},
		{"", "\n", false},
		{"~.", "", true},
		{"~~.", "~.\n", false},
		{"~x", "~x\n", false},
	}
	for _, tt := range tests {
		payload, quit := translate(tt.line)
		if quit != tt.quit || string(payload) != tt.want {
			t.Errorf("translate(%q) = %q, %v; want %q, %v", tt.line, payload, quit, tt.want, tt.quit)
		}
	}
}

// scriptedReader returns lines, then blocks until closed.
type scriptedReader struct {
	lines []string
	done  chan struct{}
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		<-r.done
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSessionSendsLinesUntilQuit(t *testing.T) {
	client, bridge := net.Pipe()
	defer bridge.Close()

	received := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(bridge)
		received <- string(data)
	}()

	reader := &scriptedReader{lines: []string{"menu", "get status", "~."}, done: make(chan struct{})}
	defer close(reader.done)

	var out lockedBuffer
	if err := newSession(client, &out).Run(context.Background(), reader); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case got := <-received:
		if got != "menu\nget status\n" {
			t.Errorf("bridge received %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not closed")
	}
}

func TestSessionEndsWhenBridgeCloses(t *testing.T) {
	client, bridge := net.Pipe()

	reader := &scriptedReader{done: make(chan struct{})}
	defer close(reader.done)

	var out lockedBuffer
	done := make(chan error, 1)
	go func() { done <- newSession(client, &out).Run(context.Background(), reader) }()

	if _, err := bridge.Write([]byte("> ")); err != nil {
		t.Fatal(err)
	}
	bridge.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if !strings.HasPrefix(out.String(), "> ") || !strings.Contains(out.String(), "Connection closed.") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestDescribe(t *testing.T) {
	svc := &discovery.Service{DeviceName: "bench", Addresses: []string{"10.0.0.2"}, Port: 7070, Level: 80, HasLevel: true}
	got := describe(svc)
	if !strings.Contains(got, "bench") || !strings.Contains(got, "10.0.0.2:7070") || !strings.Contains(got, "level 80%") {
		t.Errorf("describe = %q", got)
	}
}
