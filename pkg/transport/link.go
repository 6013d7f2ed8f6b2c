package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultReadSize is the read buffer size for a link.
const DefaultReadSize = 256

// LinkConfig configures a Link.
type LinkConfig struct {
	// Name identifies the link in logs, e.g. "local" or "remote".
	Name string

	// Open opens the underlying port. Required.
	Open Opener

	// Baud is the initial line speed.
	Baud int

	// ReadSize is the read buffer size (default: 256).
	ReadSize int

	// Backoff controls the reopen delay after failures.
	Backoff BackoffConfig

	// OnData receives every chunk read from the port. The slice is reused
	// after OnData returns.
	OnData func(data []byte)

	// Logger for operational messages (optional).
	Logger *slog.Logger
}

// Link keeps a port open and pumps its input to OnData.
type Link struct {
	config  LinkConfig
	backoff *Backoff

	mu   sync.RWMutex
	port Port
	baud int

	writeMu sync.Mutex
	running atomic.Bool
}

// NewLink creates a link. The port is opened by Run.
func NewLink(config LinkConfig) (*Link, error) {
	if config.Open == nil {
		return nil, errors.New("link opener is required")
	}
	if config.ReadSize <= 0 {
		config.ReadSize = DefaultReadSize
	}
	return &Link{
		config:  config,
		backoff: NewBackoffWithConfig(config.Backoff),
		baud:    config.Baud,
	}, nil
}

// Name returns the link name.
func (l *Link) Name() string {
	return l.config.Name
}

// Baud returns the configured line speed.
func (l *Link) Baud() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.baud
}

// Connected reports whether the port is open.
func (l *Link) Connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.port != nil
}

// SetBaudRate changes the line speed. An open port that supports it is
// reconfigured immediately; otherwise the speed applies on the next open.
func (l *Link) SetBaudRate(baud int) error {
	if baud <= 0 {
		return ErrInvalidBaud
	}

	l.mu.Lock()
	l.baud = baud
	port := l.port
	l.mu.Unlock()

	if setter, ok := port.(BaudSetter); ok {
		return setter.SetBaudRate(baud)
	}
	return nil
}

// Write sends p to the port. It fails with ErrNotConnected while the port
// is down.
func (l *Link) Write(p []byte) (int, error) {
	l.mu.RLock()
	port := l.port
	l.mu.RUnlock()
	if port == nil {
		return 0, ErrNotConnected
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return port.Write(p)
}

// Run opens the port and pumps it until ctx is done, reopening with
// backoff after every failure. It returns nil on cancellation.
func (l *Link) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	for {
		port, err := l.config.Open(l.Baud())
		if err != nil {
			delay := l.backoff.Next()
			l.warn("open failed", "error", err, "retry", delay)
			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}

		l.backoff.Reset()
		l.setPort(port)
		l.info("link up", "baud", l.Baud())

		err = l.pump(ctx, port)

		l.setPort(nil)
		port.Close()
		if ctx.Err() != nil {
			return nil
		}

		delay := l.backoff.Next()
		l.warn("link lost", "error", err, "retry", delay)
		if !sleep(ctx, delay) {
			return nil
		}
	}
}

// pump reads port until it fails or ctx is done. Closing a port does not
// always unblock a pending Read (stdin), so the reader may outlive pump;
// once pump returns it never calls OnData again.
func (l *Link) pump(ctx context.Context, port Port) error {
	errCh := make(chan error, 1)

	var deliverMu sync.Mutex
	stopped := false

	go func() {
		buf := make([]byte, l.config.ReadSize)
		for {
			n, err := port.Read(buf)
			if n > 0 && l.config.OnData != nil {
				deliverMu.Lock()
				if !stopped {
					l.config.OnData(buf[:n])
				}
				deliverMu.Unlock()
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		port.Close()
		deliverMu.Lock()
		stopped = true
		deliverMu.Unlock()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (l *Link) setPort(p Port) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.port = p
}

func (l *Link) info(msg string, args ...any) {
	if l.config.Logger != nil {
		l.config.Logger.Info(msg, append([]any{"link", l.config.Name}, args...)...)
	}
}

func (l *Link) warn(msg string, args ...any) {
	if l.config.Logger != nil {
		l.config.Logger.Warn(msg, append([]any{"link", l.config.Name}, args...)...)
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
