package bridge

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/btserial/btserial-go/pkg/log"
)

// MenuBanner is written to the channel that enters the menu.
const MenuBanner = "\n[Menu mode entered]\n"

// Menu receives input while the bridge is in menu state.
type Menu interface {
	// Begin resets the menu for a new session and prints the prompt.
	Begin()

	// Feed hands raw input bytes to the menu.
	Feed(data []byte)
}

// Router applies the arbiter's decisions: it mirrors data between channel
// sinks, reports conflicts and drives the menu.
type Router struct {
	arbiter *Arbiter
	menu    Menu

	mu    sync.RWMutex
	sinks [numChannels]io.Writer

	// menuMu serializes menu input from concurrent channels.
	menuMu      sync.Mutex
	menuSession uint64

	logger         *slog.Logger
	protocolLogger log.Logger
	sessionID      string
}

// NewRouter creates a router for a and installs its transition callback.
func NewRouter(a *Arbiter, menu Menu) *Router {
	r := &Router{
		arbiter: a,
		menu:    menu,
	}
	a.OnStateChange(r.handleTransition)
	return r
}

// SetLogger sets the operational logger.
func (r *Router) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// SetProtocolLogger sets the trace logger and the session ID stamped on
// every event.
func (r *Router) SetProtocolLogger(logger log.Logger, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protocolLogger = logger
	r.sessionID = sessionID
}

// Arbiter returns the router's arbiter.
func (r *Router) Arbiter() *Arbiter {
	return r.arbiter
}

// Attach sets the sink that receives data destined for ch.
func (r *Router) Attach(ch Channel, w io.Writer) {
	if !ch.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[ch] = w
}

// Detach removes the sink for ch. Data destined for ch is dropped.
func (r *Router) Detach(ch Channel) {
	if !ch.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[ch] = nil
}

// OnChannelBytes handles one inbound chunk from ch. It is safe to call
// from one goroutine per channel.
func (r *Router) OnChannelBytes(ch Channel, data []byte) Action {
	r.traceFrame(ch, data)

	act := r.arbiter.Observe(ch, data)
	r.apply(act, len(data))
	return act
}

func (r *Router) apply(act Action, size int) {
	switch act.Kind {
	case ActionForward:
		r.forward(act.Targets, act.Forward)

	case ActionConflict:
		r.writeTo(act.Source, []byte(conflictMessage(act.Source, act.Owner)))
		r.traceConflict(act.Source, act.Owner, size)

	case ActionEnterMenu:
		r.forward(act.Targets, act.Forward)
		r.feedMenu(act)

	case ActionMenu:
		r.feedMenu(act)
	}
}

// feedMenu starts the action's menu session if it has not been started yet,
// then feeds the input. Another channel's menu input can overtake the
// entering chunk between Observe and here, so either may start the session.
// Input from an earlier session is dropped.
func (r *Router) feedMenu(act Action) {
	r.menuMu.Lock()
	defer r.menuMu.Unlock()

	if act.MenuSession < r.menuSession {
		return
	}
	if act.MenuSession > r.menuSession {
		r.menuSession = act.MenuSession
		r.writeTo(act.Owner, []byte(MenuBanner))
		if r.menu != nil {
			r.menu.Begin()
		}
	}
	if r.menu != nil && len(act.Input) > 0 {
		r.menu.Feed(act.Input)
	}
}

func conflictMessage(ch, owner Channel) string {
	return fmt.Sprintf("ERROR: %s does not own the bridge (owner: %s).\n", ch, owner)
}

// forward writes data to each target independently. Write errors are
// ignored so one broken sink cannot stall the others.
func (r *Router) forward(targets []Channel, data []byte) {
	if len(data) == 0 {
		return
	}
	for _, t := range targets {
		r.writeTo(t, data)
	}
}

func (r *Router) writeTo(ch Channel, data []byte) {
	r.mu.RLock()
	w := r.sinks[ch]
	r.mu.RUnlock()
	if w == nil {
		return
	}
	_, _ = w.Write(data)
}

func (r *Router) loggers() (*slog.Logger, log.Logger, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger, r.protocolLogger, r.sessionID
}

func (r *Router) handleTransition(t Transition) {
	logger, trace, session := r.loggers()
	if logger != nil {
		logger.Info("bridge state changed",
			"from", t.From.String(),
			"to", t.To.String(),
			"reason", t.Reason,
			"channel", t.Channel.String())
	}
	if trace != nil {
		trace.Log(log.Event{
			Timestamp: t.At,
			SessionID: session,
			Channel:   t.Channel.String(),
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				OldState: t.From.String(),
				NewState: t.To.String(),
				Reason:   t.Reason,
			},
		})
	}
}

func (r *Router) traceFrame(ch Channel, data []byte) {
	_, trace, session := r.loggers()
	if trace == nil {
		return
	}
	trace.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: session,
		Channel:   ch.String(),
		Direction: log.DirectionIn,
		Category:  log.CategoryData,
		Frame:     log.NewFrameEvent(data),
	})
}

func (r *Router) traceConflict(ch, owner Channel, size int) {
	logger, trace, session := r.loggers()
	if logger != nil {
		logger.Debug("input rejected", "channel", ch.String(), "owner", owner.String(), "size", size)
	}
	if trace == nil {
		return
	}
	trace.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: session,
		Channel:   ch.String(),
		Direction: log.DirectionIn,
		Category:  log.CategoryConflict,
		Conflict:  &log.ConflictEvent{Owner: owner.String(), Size: size},
	})
}
