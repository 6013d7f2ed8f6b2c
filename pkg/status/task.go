package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/btserial/btserial-go/pkg/discovery"
)

// Task defaults.
const (
	DefaultInterval         = 5 * time.Second
	DefaultReadvertiseDelay = time.Second
)

// Console messages for wireless client transitions.
const (
	ClientConnectedMessage    = "Wireless client connected.\n"
	ClientDisconnectedMessage = "Wireless client disconnected.\n"
)

// ErrNoSource is returned when a task has no level source.
var ErrNoSource = errors.New("level source required")

// TaskConfig configures a status task.
type TaskConfig struct {
	// Source provides the level. Required.
	Source LevelSource

	// Advertiser receives level updates and re-advertisements. Optional.
	Advertiser discovery.Advertiser

	// Service returns the info to advertise after a client disconnects.
	// Called on every re-advertisement so name changes are picked up.
	Service func() *discovery.ServiceInfo

	// Connected reports whether a wireless client is attached. Optional.
	Connected func() bool

	// Console receives the connect and disconnect messages. Optional.
	Console io.Writer

	// Interval between polls (default: 5s).
	Interval time.Duration

	// ReadvertiseDelay is the pause between a disconnect and the new
	// advertisement (default: 1s).
	ReadvertiseDelay time.Duration

	// Logger for operational messages (optional).
	Logger *slog.Logger
}

// Snapshot is the last observed status.
type Snapshot struct {
	Level     uint8
	HasLevel  bool
	Connected bool
	UpdatedAt time.Time
	Err       error
}

// String formats the snapshot for the console.
func (s Snapshot) String() string {
	level := "unknown"
	if s.HasLevel {
		level = fmt.Sprintf("%d%%", s.Level)
	}
	client := "none"
	if s.Connected {
		client = "connected"
	}
	return fmt.Sprintf("level %s, wireless client %s", level, client)
}

// Task polls the level source and tracks the wireless client.
type Task struct {
	config TaskConfig

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewTask creates a status task.
func NewTask(config TaskConfig) (*Task, error) {
	if config.Source == nil {
		return nil, ErrNoSource
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.ReadvertiseDelay <= 0 {
		config.ReadvertiseDelay = DefaultReadvertiseDelay
	}
	return &Task{config: config}, nil
}

// Snapshot returns the status observed by the last poll.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Run polls until ctx is done. The first poll happens immediately.
func (t *Task) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		if err := t.Poll(ctx); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one iteration: it handles a client transition, then reads
// and publishes the level. It only returns an error when ctx ends during
// the re-advertisement delay.
func (t *Task) Poll(ctx context.Context) error {
	connected := t.connected()

	t.mu.RLock()
	was := t.snapshot.Connected
	t.mu.RUnlock()

	switch {
	case connected && !was:
		t.info("wireless client connected")
		t.console(ClientConnectedMessage)
	case !connected && was:
		t.info("wireless client disconnected")
		t.console(ClientDisconnectedMessage)
		if err := t.readvertise(ctx); err != nil {
			return err
		}
	}

	level, err := t.config.Source.Level()
	now := time.Now()

	t.mu.Lock()
	t.snapshot.Connected = connected
	t.snapshot.UpdatedAt = now
	t.snapshot.Err = err
	if err == nil {
		t.snapshot.Level = level
		t.snapshot.HasLevel = true
	}
	t.mu.Unlock()

	if err != nil {
		t.debug("level read failed", "error", err)
		return nil
	}
	if t.config.Advertiser != nil {
		if err := t.config.Advertiser.UpdateLevel(level); err != nil && !errors.Is(err, discovery.ErrNotAdvertising) {
			t.warn("level update failed", "level", level, "error", err)
		}
	}
	return nil
}

func (t *Task) readvertise(ctx context.Context) error {
	if t.config.Advertiser == nil || t.config.Service == nil {
		return nil
	}

	timer := time.NewTimer(t.config.ReadvertiseDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	info := t.config.Service()
	if info == nil {
		return nil
	}
	if snap := t.Snapshot(); snap.HasLevel {
		info.Level = snap.Level
		info.HasLevel = true
	}
	if err := t.config.Advertiser.Advertise(ctx, info); err != nil {
		t.warn("re-advertise failed", "error", err)
	}
	return nil
}

func (t *Task) connected() bool {
	if t.config.Connected == nil {
		return false
	}
	return t.config.Connected()
}

func (t *Task) console(msg string) {
	if t.config.Console != nil {
		_, _ = io.WriteString(t.config.Console, msg)
	}
}

func (t *Task) info(msg string, args ...any) {
	if t.config.Logger != nil {
		t.config.Logger.Info(msg, args...)
	}
}

func (t *Task) warn(msg string, args ...any) {
	if t.config.Logger != nil {
		t.config.Logger.Warn(msg, args...)
	}
}

func (t *Task) debug(msg string, args ...any) {
	if t.config.Logger != nil {
		t.config.Logger.Debug(msg, args...)
	}
}
