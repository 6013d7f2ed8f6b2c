package bridge

import (
	"context"
	"time"
)

// DefaultPollInterval is how often the monitor checks the owner timeout.
const DefaultPollInterval = 100 * time.Millisecond

// Monitor periodically releases ownership of a silent owner.
type Monitor struct {
	arbiter  *Arbiter
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewMonitor creates a monitor for a. Zero durations select the defaults.
func NewMonitor(a *Arbiter, timeout, interval time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = DefaultOwnerTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		arbiter:  a,
		timeout:  timeout,
		interval: interval,
		now:      a.now,
	}
}

// Timeout returns the owner timeout.
func (m *Monitor) Timeout() time.Duration {
	return m.timeout
}

// Check runs a single timeout check.
func (m *Monitor) Check() bool {
	return m.arbiter.CheckTimeout(m.now(), m.timeout)
}

// Run checks the timeout every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check()
		}
	}
}
