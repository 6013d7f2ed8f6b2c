package transport_test

import (
	"testing"
	"time"

	"github.com/btserial/btserial-go/pkg/transport"
)

func TestBackoffSequence(t *testing.T) {
	b := transport.NewBackoffWithConfig(transport.BackoffConfig{})

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("attempt %d: got %v, want %v", i, got, w)
		}
	}
	if b.Attempts() != len(want) {
		t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(want))
	}

	b.Reset()
	if b.Current() != transport.InitialBackoff {
		t.Errorf("Current() after reset = %v, want %v", b.Current(), transport.InitialBackoff)
	}
	if b.Attempts() != 0 {
		t.Errorf("Attempts() after reset = %d, want 0", b.Attempts())
	}
}

func TestBackoffJitter(t *testing.T) {
	b := transport.NewBackoff()

	for i := 0; i < 20; i++ {
		base := b.Current()
		d := b.Next()
		max := base + time.Duration(float64(base)*transport.JitterFactor)
		if d < base || d > max {
			t.Fatalf("delay %v outside [%v, %v]", d, base, max)
		}
	}
}

func TestBackoffConfig(t *testing.T) {
	b := transport.NewBackoffWithConfig(transport.BackoffConfig{
		Initial:    10 * time.Millisecond,
		Max:        25 * time.Millisecond,
		Multiplier: 3,
	})

	want := []time.Duration{10 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("attempt %d: got %v, want %v", i, got, w)
		}
	}
}
