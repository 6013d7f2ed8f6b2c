package bridge

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btserial/btserial-go/pkg/log"
)

type recordingMenu struct {
	begins int
	input  bytes.Buffer
}

func (m *recordingMenu) Begin() {
	m.begins++
	m.input.Reset()
}

func (m *recordingMenu) Feed(data []byte) {
	m.input.Write(data)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("link down")
}

type captureTrace struct {
	events []log.Event
}

func (c *captureTrace) Log(e log.Event) {
	c.events = append(c.events, e)
}

type routerFixture struct {
	router *Router
	menu   *recordingMenu
	sinks  map[Channel]*bytes.Buffer
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	a, err := NewArbiter(Config{})
	require.NoError(t, err)

	f := &routerFixture{
		menu:  &recordingMenu{},
		sinks: make(map[Channel]*bytes.Buffer),
	}
	f.router = NewRouter(a, f.menu)
	for _, ch := range Channels {
		f.sinks[ch] = &bytes.Buffer{}
		f.router.Attach(ch, f.sinks[ch])
	}
	return f
}

func TestRouterForward(t *testing.T) {
	f := newRouterFixture(t)

	f.router.OnChannelBytes(ChannelLocal, []byte("AT+VER\r\n"))

	assert.Empty(t, f.sinks[ChannelLocal].String(), "source never receives its own data")
	assert.Equal(t, "AT+VER\r\n", f.sinks[ChannelRemote].String())
	assert.Equal(t, "AT+VER\r\n", f.sinks[ChannelWireless].String())
}

func TestRouterPeerMirrored(t *testing.T) {
	f := newRouterFixture(t)

	f.router.OnChannelBytes(ChannelRemote, []byte("$GNRMC,1\r\n"))

	assert.Equal(t, "$GNRMC,1\r\n", f.sinks[ChannelLocal].String())
	assert.Equal(t, "$GNRMC,1\r\n", f.sinks[ChannelWireless].String())
	assert.Empty(t, f.sinks[ChannelRemote].String())
}

func TestRouterBuffering(t *testing.T) {
	f := newRouterFixture(t)

	act := f.router.OnChannelBytes(ChannelWireless, []byte("men"))
	assert.Equal(t, ActionBuffering, act.Kind)
	for ch, sink := range f.sinks {
		assert.Empty(t, sink.String(), ch.String())
	}
}

func TestRouterConflict(t *testing.T) {
	f := newRouterFixture(t)
	f.router.OnChannelBytes(ChannelLocal, []byte("x"))
	for _, sink := range f.sinks {
		sink.Reset()
	}

	act := f.router.OnChannelBytes(ChannelWireless, []byte("hello"))
	assert.Equal(t, ActionConflict, act.Kind)

	assert.Equal(t, "ERROR: WIRELESS does not own the bridge (owner: LOCAL).\n", f.sinks[ChannelWireless].String())
	assert.Empty(t, f.sinks[ChannelLocal].String())
	assert.Empty(t, f.sinks[ChannelRemote].String())
}

func TestRouterEnterMenu(t *testing.T) {
	f := newRouterFixture(t)

	f.router.OnChannelBytes(ChannelLocal, []byte("menuhelp\n"))

	assert.Equal(t, MenuBanner, f.sinks[ChannelLocal].String())
	assert.Empty(t, f.sinks[ChannelRemote].String(), "magic word is not forwarded")
	assert.Empty(t, f.sinks[ChannelWireless].String())
	assert.Equal(t, 1, f.menu.begins)
	assert.Equal(t, "help\n", f.menu.input.String())

	f.router.OnChannelBytes(ChannelWireless, []byte("exit\n"))
	assert.Equal(t, "help\nexit\n", f.menu.input.String())
}

func TestRouterEscapeFromForwarding(t *testing.T) {
	f := newRouterFixture(t)
	f.router.OnChannelBytes(ChannelLocal, []byte("x\n"))

	f.router.OnChannelBytes(ChannelLocal, []byte("menu"))

	assert.Equal(t, "x\nmenu", f.sinks[ChannelRemote].String())
	assert.Equal(t, MenuBanner, f.sinks[ChannelLocal].String())
	assert.Equal(t, 1, f.menu.begins)
}

func TestRouterMenuInputOvertakesEntry(t *testing.T) {
	f := newRouterFixture(t)
	enter := f.router.Arbiter().Observe(ChannelLocal, []byte("menu"))
	require.Equal(t, ActionEnterMenu, enter.Kind)

	// Wireless input observed after the transition is applied first.
	f.router.OnChannelBytes(ChannelWireless, []byte("he"))
	f.router.apply(enter, len("menu"))
	f.router.OnChannelBytes(ChannelWireless, []byte("lp\n"))

	assert.Equal(t, 1, f.menu.begins)
	assert.Equal(t, "help\n", f.menu.input.String())
	assert.Equal(t, MenuBanner, f.sinks[ChannelLocal].String())
	assert.Empty(t, f.sinks[ChannelWireless].String())
}

func TestRouterMenuSessions(t *testing.T) {
	f := newRouterFixture(t)
	stale := f.router.Arbiter().Observe(ChannelLocal, []byte("menu"))
	f.router.apply(stale, len("menu"))
	f.router.Arbiter().ExitMenu()

	f.router.OnChannelBytes(ChannelWireless, []byte("menu"))
	assert.Equal(t, 2, f.menu.begins)
	assert.Equal(t, MenuBanner, f.sinks[ChannelWireless].String())

	// Input left over from the first session is dropped.
	stale.Kind = ActionMenu
	stale.Input = []byte("exit\n")
	f.router.apply(stale, len("exit\n"))
	assert.Empty(t, f.menu.input.String())
}

func TestRouterSinkFailure(t *testing.T) {
	f := newRouterFixture(t)
	f.router.Attach(ChannelRemote, failingWriter{})

	f.router.OnChannelBytes(ChannelLocal, []byte("data"))
	assert.Equal(t, "data", f.sinks[ChannelWireless].String())
}

func TestRouterDetach(t *testing.T) {
	f := newRouterFixture(t)
	f.router.Detach(ChannelWireless)

	f.router.OnChannelBytes(ChannelLocal, []byte("data"))
	assert.Empty(t, f.sinks[ChannelWireless].String())
	assert.Equal(t, "data", f.sinks[ChannelRemote].String())
}

func TestRouterTrace(t *testing.T) {
	f := newRouterFixture(t)
	trace := &captureTrace{}
	f.router.SetProtocolLogger(trace, "session-1")

	f.router.OnChannelBytes(ChannelLocal, []byte("x"))
	f.router.OnChannelBytes(ChannelWireless, []byte("yz"))

	var cats []log.Category
	for _, e := range trace.events {
		assert.Equal(t, "session-1", e.SessionID)
		cats = append(cats, e.Category)
	}
	assert.Equal(t, []log.Category{
		log.CategoryData,
		log.CategoryState,
		log.CategoryData,
		log.CategoryConflict,
	}, cats)

	state := trace.events[1].StateChange
	require.NotNil(t, state)
	assert.Equal(t, "IDLE", state.OldState)
	assert.Equal(t, "FORWARDING(LOCAL)", state.NewState)

	conflict := trace.events[3].Conflict
	require.NotNil(t, conflict)
	assert.Equal(t, "LOCAL", conflict.Owner)
	assert.Equal(t, 2, conflict.Size)
}

func TestRouterLogsTransitions(t *testing.T) {
	f := newRouterFixture(t)
	var buf bytes.Buffer
	f.router.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	f.router.OnChannelBytes(ChannelWireless, []byte("menu"))
	f.router.Arbiter().ExitMenu()

	out := buf.String()
	assert.True(t, strings.Contains(out, "to=MENU"), out)
	assert.True(t, strings.Contains(out, "reason=\"menu exit\""), out)
}
