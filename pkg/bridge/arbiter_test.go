package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestArbiter(t *testing.T, clock *fakeClock) *Arbiter {
	t.Helper()
	a, err := NewArbiter(Config{Now: clock.Now})
	require.NoError(t, err)
	return a
}

func TestNewArbiter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a, err := NewArbiter(Config{})
		require.NoError(t, err)
		assert.Equal(t, DefaultMagicWord, a.MagicWord())
		assert.Equal(t, Status{State: StateIdle}, a.Status())
		assert.True(t, a.IsContender(ChannelLocal))
		assert.True(t, a.IsContender(ChannelWireless))
		assert.False(t, a.IsContender(ChannelRemote))
	})

	t.Run("magic word with line break", func(t *testing.T) {
		_, err := NewArbiter(Config{MagicWord: "me\nnu"})
		assert.ErrorIs(t, err, ErrMagicWordLineBreak)
	})

	t.Run("no contenders", func(t *testing.T) {
		_, err := NewArbiter(Config{Contenders: []Channel{}})
		assert.ErrorIs(t, err, ErrNoContenders)
	})

	t.Run("invalid contender", func(t *testing.T) {
		_, err := NewArbiter(Config{Contenders: []Channel{Channel(9)}})
		assert.ErrorIs(t, err, ErrInvalidChannel)
	})
}

func TestArbiterIdle(t *testing.T) {
	t.Run("partial magic word buffers", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())

		act := a.Observe(ChannelLocal, []byte("me"))
		assert.Equal(t, ActionBuffering, act.Kind)
		assert.Empty(t, act.Forward)
		assert.Equal(t, StateIdle, a.Status().State)
	})

	t.Run("magic word enters menu", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())

		act := a.Observe(ChannelLocal, []byte("menu"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
		assert.Empty(t, act.Forward)
		assert.Empty(t, act.Targets)
		assert.Empty(t, act.Input)
		assert.Equal(t, StateMenu, a.Status().State)
	})

	t.Run("magic word split across chunks", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())

		assert.Equal(t, ActionBuffering, a.Observe(ChannelWireless, []byte("m")).Kind)
		assert.Equal(t, ActionBuffering, a.Observe(ChannelWireless, []byte("en")).Kind)
		act := a.Observe(ChannelWireless, []byte("u"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
		assert.Equal(t, StateMenu, a.Status().State)
	})

	t.Run("bytes after magic word go to the menu", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())

		act := a.Observe(ChannelLocal, []byte("menuhelp\n"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
		assert.Equal(t, []byte("help\n"), act.Input)
	})

	t.Run("mismatch forwards whole chunk", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())

		act := a.Observe(ChannelLocal, []byte("mex"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.Equal(t, []byte("mex"), act.Forward)
		assert.ElementsMatch(t, []Channel{ChannelRemote, ChannelWireless}, act.Targets)
		assert.Equal(t, Status{State: StateForwarding, Owner: ChannelLocal}, a.Status())
	})

	t.Run("buffered prefix is not replayed", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())

		a.Observe(ChannelLocal, []byte("me"))
		act := a.Observe(ChannelLocal, []byte("x"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.Equal(t, []byte("x"), act.Forward)
	})
}

func TestArbiterForwarding(t *testing.T) {
	t.Run("owner mirrors to the others only", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelWireless, []byte("AT\r\n"))

		act := a.Observe(ChannelWireless, []byte("more"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.NotContains(t, act.Targets, ChannelWireless)
		assert.ElementsMatch(t, []Channel{ChannelLocal, ChannelRemote}, act.Targets)
	})

	t.Run("other contender gets a conflict", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelLocal, []byte("x"))

		act := a.Observe(ChannelWireless, []byte("hello"))
		assert.Equal(t, ActionConflict, act.Kind)
		assert.Equal(t, ChannelLocal, act.Owner)
		assert.Empty(t, act.Forward)
		assert.Equal(t, Status{State: StateForwarding, Owner: ChannelLocal}, a.Status())
	})

	t.Run("magic word from other contender does not steal", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelLocal, []byte("x"))

		act := a.Observe(ChannelWireless, []byte("menu"))
		assert.Equal(t, ActionConflict, act.Kind)
		assert.Equal(t, StateForwarding, a.Status().State)
	})

	t.Run("owner escapes with the trigger on its own line", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelLocal, []byte("x"))

		act := a.Observe(ChannelLocal, []byte("abc\nmenu\r\nget status\n"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
		assert.Equal(t, []byte("abc\nmenu"), act.Forward)
		assert.Equal(t, []byte("get status\n"), act.Input)
		assert.ElementsMatch(t, []Channel{ChannelRemote, ChannelWireless}, act.Targets)
		assert.Equal(t, StateMenu, a.Status().State)
	})

	t.Run("owner escapes with the trigger as a whole chunk", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelLocal, []byte("x\n"))

		act := a.Observe(ChannelLocal, []byte("menu"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
		assert.Empty(t, act.Input)
		assert.Equal(t, StateMenu, a.Status().State)
	})

	t.Run("trigger as a word prefix is forwarded", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelLocal, []byte("x\n"))

		act := a.Observe(ChannelLocal, []byte("menuconfig\n"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.Equal(t, []byte("menuconfig\n"), act.Forward)
		assert.Empty(t, act.Input)
		assert.Equal(t, Status{State: StateForwarding, Owner: ChannelLocal}, a.Status())

		act = a.Observe(ChannelLocal, []byte("menu\n"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
	})

	t.Run("owner escape split across chunks", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelLocal, []byte("x\r\n"))

		act := a.Observe(ChannelLocal, []byte("me"))
		assert.Equal(t, ActionForward, act.Kind)
		act = a.Observe(ChannelLocal, []byte("nu"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.Equal(t, StateForwarding, a.Status().State)

		act = a.Observe(ChannelLocal, []byte("\r\nhelp\n"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
		assert.Empty(t, act.Forward)
		assert.Equal(t, []byte("help\n"), act.Input)
	})

	t.Run("split trigger followed by more text is forwarded", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelLocal, []byte("x\n"))

		a.Observe(ChannelLocal, []byte("me"))
		a.Observe(ChannelLocal, []byte("nu"))
		act := a.Observe(ChannelLocal, []byte("config\n"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.Equal(t, StateForwarding, a.Status().State)
	})

	t.Run("magic word mid-line is forwarded", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())
		a.Observe(ChannelLocal, []byte("x"))

		act := a.Observe(ChannelLocal, []byte("show menu\n"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.Equal(t, StateForwarding, a.Status().State)
	})
}

func TestArbiterMenu(t *testing.T) {
	a := newTestArbiter(t, newFakeClock())
	a.Observe(ChannelLocal, []byte("menu"))

	for _, ch := range []Channel{ChannelLocal, ChannelWireless} {
		act := a.Observe(ch, []byte("help\n"))
		assert.Equal(t, ActionMenu, act.Kind)
		assert.Equal(t, []byte("help\n"), act.Input)
	}

	a.ExitMenu()
	assert.Equal(t, Status{State: StateIdle}, a.Status())
}

func TestArbiterPeer(t *testing.T) {
	clock := newFakeClock()
	a := newTestArbiter(t, clock)

	for _, setup := range []string{"", "x", "menu"} {
		if setup != "" {
			a.Observe(ChannelLocal, []byte(setup))
		}
		act := a.Observe(ChannelRemote, []byte("$GNRMC"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.ElementsMatch(t, []Channel{ChannelLocal, ChannelWireless}, act.Targets)
		assert.Equal(t, []byte("$GNRMC"), act.Forward)
	}

	// Peer input never refreshes the owner's activity.
	a.ExitMenu()
	a.Observe(ChannelLocal, []byte("x"))
	stamped := a.LastActivity()
	clock.Advance(time.Second)
	a.Observe(ChannelRemote, []byte("$GNGGA"))
	assert.Equal(t, stamped, a.LastActivity())
}

func TestArbiterTimeout(t *testing.T) {
	clock := newFakeClock()
	a := newTestArbiter(t, clock)

	assert.False(t, a.CheckTimeout(clock.Now().Add(time.Hour), DefaultOwnerTimeout), "idle never times out")

	a.Observe(ChannelLocal, []byte("x"))
	clock.Advance(DefaultOwnerTimeout)
	assert.False(t, a.CheckTimeout(clock.Now(), DefaultOwnerTimeout))
	assert.Equal(t, StateForwarding, a.Status().State)

	clock.Advance(time.Millisecond)
	assert.True(t, a.CheckTimeout(clock.Now(), DefaultOwnerTimeout))
	assert.Equal(t, Status{State: StateIdle}, a.Status())

	act := a.Observe(ChannelWireless, []byte("y"))
	assert.Equal(t, ActionForward, act.Kind)
	assert.Equal(t, Status{State: StateForwarding, Owner: ChannelWireless}, a.Status())
}

func TestArbiterActivityFromConflict(t *testing.T) {
	clock := newFakeClock()
	a := newTestArbiter(t, clock)

	a.Observe(ChannelLocal, []byte("x"))
	clock.Advance(1500 * time.Millisecond)
	a.Observe(ChannelWireless, []byte("y"))
	clock.Advance(1500 * time.Millisecond)

	// The activity clock is global.
	assert.False(t, a.CheckTimeout(clock.Now(), DefaultOwnerTimeout))
}

func TestArbiterMenuDoesNotTimeOut(t *testing.T) {
	clock := newFakeClock()
	a := newTestArbiter(t, clock)

	a.Observe(ChannelLocal, []byte("menu"))
	clock.Advance(time.Minute)
	assert.False(t, a.CheckTimeout(clock.Now(), DefaultOwnerTimeout))
	assert.Equal(t, StateMenu, a.Status().State)
}

func TestArbiterCursors(t *testing.T) {
	t.Run("per channel", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())

		assert.Equal(t, ActionBuffering, a.Observe(ChannelLocal, []byte("me")).Kind)
		assert.Equal(t, ActionBuffering, a.Observe(ChannelWireless, []byte("me")).Kind)

		act := a.Observe(ChannelLocal, []byte("nu"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
		assert.Equal(t, ChannelLocal, act.Source)
	})

	t.Run("per channel does not cross-complete", func(t *testing.T) {
		a := newTestArbiter(t, newFakeClock())

		a.Observe(ChannelLocal, []byte("me"))
		act := a.Observe(ChannelWireless, []byte("nu"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.Equal(t, Status{State: StateForwarding, Owner: ChannelWireless}, a.Status())
	})

	t.Run("shared cursor", func(t *testing.T) {
		a, err := NewArbiter(Config{SharedCursor: true})
		require.NoError(t, err)

		a.Observe(ChannelLocal, []byte("me"))
		act := a.Observe(ChannelWireless, []byte("nu"))
		assert.Equal(t, ActionEnterMenu, act.Kind)
		assert.Equal(t, ChannelWireless, act.Source)
	})

	t.Run("reset on transition", func(t *testing.T) {
		clock := newFakeClock()
		a := newTestArbiter(t, clock)

		a.Observe(ChannelLocal, []byte("me"))
		a.Observe(ChannelWireless, []byte("x"))
		clock.Advance(3 * time.Second)
		require.True(t, a.CheckTimeout(clock.Now(), DefaultOwnerTimeout))

		act := a.Observe(ChannelLocal, []byte("nu"))
		assert.Equal(t, ActionForward, act.Kind)
		assert.Equal(t, ChannelLocal, a.Status().Owner)
	})
}

func TestArbiterCustomContenders(t *testing.T) {
	a, err := NewArbiter(Config{
		MagicWord:  "+++",
		Contenders: []Channel{ChannelLocal, ChannelRemote, ChannelWireless},
	})
	require.NoError(t, err)

	act := a.Observe(ChannelRemote, []byte("+++"))
	assert.Equal(t, ActionEnterMenu, act.Kind)
}

func TestArbiterInvalidChannel(t *testing.T) {
	a := newTestArbiter(t, newFakeClock())
	act := a.Observe(Channel(7), []byte("x"))
	assert.Equal(t, ActionIgnore, act.Kind)
	assert.Equal(t, StateIdle, a.Status().State)
}

func TestArbiterOnStateChange(t *testing.T) {
	clock := newFakeClock()
	a := newTestArbiter(t, clock)

	var got []Transition
	a.OnStateChange(func(tr Transition) {
		// The lock is released before callbacks run.
		_ = a.Status()
		got = append(got, tr)
	})

	a.Observe(ChannelLocal, []byte("x"))
	a.Observe(ChannelLocal, []byte("\nmenu\n"))
	a.ExitMenu()
	a.ExitMenu()

	require.Len(t, got, 3)
	assert.Equal(t, Status{State: StateIdle}, got[0].From)
	assert.Equal(t, Status{State: StateForwarding, Owner: ChannelLocal}, got[0].To)
	assert.Equal(t, ReasonInput, got[0].Reason)
	assert.Equal(t, ReasonEscape, got[1].Reason)
	assert.Equal(t, StateMenu, got[1].To.State)
	assert.Equal(t, ReasonMenuExit, got[2].Reason)
	assert.Equal(t, clock.Now(), got[2].At)
}

func TestArbiterConcurrentObserve(t *testing.T) {
	a, err := NewArbiter(Config{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, ch := range Channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				a.Observe(ch, []byte("data\n"))
				a.CheckTimeout(time.Now(), time.Millisecond)
			}
		}(ch)
	}
	wg.Wait()

	st := a.Status()
	assert.NotEqual(t, StateMenu, st.State)
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{State: StateIdle}, "IDLE"},
		{Status{State: StateMenu}, "MENU"},
		{Status{State: StateForwarding, Owner: ChannelWireless}, "FORWARDING(WIRELESS)"},
		{Status{State: State(9)}, "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}
