package bridge

import (
	"errors"
	"sync"
	"time"
)

// Arbiter defaults.
const (
	// DefaultMagicWord is the trigger that enters the menu.
	DefaultMagicWord = "menu"

	// DefaultOwnerTimeout is how long an owner may stay silent.
	DefaultOwnerTimeout = 2 * time.Second
)

// Arbiter errors.
var (
	ErrInvalidChannel     = errors.New("invalid channel")
	ErrNoContenders       = errors.New("at least one contending channel required")
	ErrMagicWordLineBreak = errors.New("magic word must not contain line breaks")
)

// Config holds arbiter configuration.
type Config struct {
	// MagicWord enters the menu. Defaults to DefaultMagicWord.
	MagicWord string

	// Contenders are the channels that may own the bridge. Channels not
	// listed are peers: their input is always mirrored to every other
	// channel. Defaults to Local and Wireless.
	Contenders []Channel

	// SharedCursor makes all channels share one magic-word cursor.
	SharedCursor bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Arbiter owns the bridge state machine. All methods are safe for
// concurrent use; the lock is never held while callbacks run.
type Arbiter struct {
	mu sync.Mutex

	status       Status
	lastActivity time.Time

	word      []byte
	contender [numChannels]bool
	shared    bool
	cursors   [numChannels]int
	escape    int
	lineStart bool
	now       func() time.Time
	pending   []Transition

	menuSession uint64
	menuBy      Channel

	onStateChange func(Transition)
}

// NewArbiter creates an idle arbiter.
func NewArbiter(cfg Config) (*Arbiter, error) {
	word := cfg.MagicWord
	if word == "" {
		word = DefaultMagicWord
	}
	for i := 0; i < len(word); i++ {
		if word[i] == '\n' || word[i] == '\r' {
			return nil, ErrMagicWordLineBreak
		}
	}

	contenders := cfg.Contenders
	if contenders == nil {
		contenders = []Channel{ChannelLocal, ChannelWireless}
	}
	if len(contenders) == 0 {
		return nil, ErrNoContenders
	}

	a := &Arbiter{
		status:    Status{State: StateIdle},
		word:      []byte(word),
		shared:    cfg.SharedCursor,
		lineStart: true,
		now:       cfg.Now,
	}
	for _, ch := range contenders {
		if !ch.Valid() {
			return nil, ErrInvalidChannel
		}
		a.contender[ch] = true
	}
	if a.now == nil {
		a.now = time.Now
	}

	return a, nil
}

// OnStateChange sets the callback invoked after every transition.
func (a *Arbiter) OnStateChange(fn func(Transition)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStateChange = fn
}

// MagicWord returns the configured trigger.
func (a *Arbiter) MagicWord() string {
	return string(a.word)
}

// Status returns the current state and owner.
func (a *Arbiter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// LastActivity returns the time of the last contender input.
func (a *Arbiter) LastActivity() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastActivity
}

// IsContender reports whether ch may own the bridge.
func (a *Arbiter) IsContender(ch Channel) bool {
	return ch.Valid() && a.contender[ch]
}

// Observe classifies one inbound chunk from ch and applies any resulting
// transition. It must be called for every chunk before anything is
// forwarded. Byte slices in the returned Action alias data.
func (a *Arbiter) Observe(ch Channel, data []byte) Action {
	if !ch.Valid() {
		return Action{Kind: ActionIgnore, Source: ch}
	}
	if !a.contender[ch] {
		// Peers are mirrored in every state and never touch the clock.
		return Action{Kind: ActionForward, Source: ch, Targets: others(ch), Forward: data}
	}

	a.mu.Lock()
	defer a.unlockAndNotify()

	a.lastActivity = a.now()

	switch a.status.State {
	case StateMenu:
		return a.menuActionLocked(Action{Kind: ActionMenu, Source: ch, Input: data})

	case StateForwarding:
		if a.status.Owner != ch {
			return Action{Kind: ActionConflict, Source: ch, Owner: a.status.Owner}
		}
		return a.forwardLocked(ch, data)

	default:
		return a.scanIdleLocked(ch, data)
	}
}

// scanIdleLocked advances ch's magic-word cursor over data.
func (a *Arbiter) scanIdleLocked(ch Channel, data []byte) Action {
	cur := a.cursorLocked(ch)
	for i, b := range data {
		if b != a.word[*cur] {
			a.transitionLocked(Status{State: StateForwarding, Owner: ch}, ReasonInput, ch)
			// The whole chunk belongs to the new owner.
			return a.forwardLocked(ch, data)
		}
		*cur++
		if *cur == len(a.word) {
			a.transitionLocked(Status{State: StateMenu}, ReasonMagicWord, ch)
			return a.menuActionLocked(Action{Kind: ActionEnterMenu, Source: ch, Input: data[i+1:]})
		}
	}
	return Action{Kind: ActionBuffering, Source: ch}
}

// forwardLocked mirrors the owner's chunk and watches for the magic word
// typed as a line of its own. The trigger escapes to the menu when it is
// followed by a line terminator or arrives as a whole chunk; anything else
// after it, such as "menuconfig", keeps the line forwarded.
func (a *Arbiter) forwardLocked(ch Channel, data []byte) Action {
	for i := 0; i < len(data); i++ {
		b := data[i]
		if a.escape == len(a.word) {
			if isLineEnd(b) {
				a.transitionLocked(Status{State: StateMenu}, ReasonEscape, ch)
				return a.menuActionLocked(Action{
					Kind:    ActionEnterMenu,
					Source:  ch,
					Targets: others(ch),
					Forward: data[:i],
					Input:   data[skipLineEnd(data, i):],
				})
			}
			a.escape = 0
			a.lineStart = false
			continue
		}
		if isLineEnd(b) {
			a.escape = 0
			a.lineStart = true
			continue
		}
		if !a.lineStart {
			continue
		}
		if b != a.word[a.escape] {
			a.escape = 0
			a.lineStart = false
			continue
		}
		a.escape++
		if a.escape == len(a.word) && i == len(a.word)-1 && len(data) == len(a.word) {
			a.transitionLocked(Status{State: StateMenu}, ReasonEscape, ch)
			return a.menuActionLocked(Action{Kind: ActionEnterMenu, Source: ch, Targets: others(ch), Forward: data})
		}
	}
	return Action{Kind: ActionForward, Source: ch, Targets: others(ch), Forward: data}
}

// menuActionLocked stamps act with the current menu session.
func (a *Arbiter) menuActionLocked(act Action) Action {
	act.Owner = a.menuBy
	act.MenuSession = a.menuSession
	return act
}

func isLineEnd(b byte) bool {
	return b == '\n' || b == '\r'
}

// skipLineEnd returns the index after the terminator at i, treating CRLF as
// one terminator.
func skipLineEnd(data []byte, i int) int {
	j := i + 1
	if data[i] == '\r' && j < len(data) && data[j] == '\n' {
		j++
	}
	return j
}

// CheckTimeout releases ownership if the owner has been silent for longer
// than timeout. It reports whether a transition happened.
func (a *Arbiter) CheckTimeout(now time.Time, timeout time.Duration) bool {
	a.mu.Lock()
	defer a.unlockAndNotify()

	if a.status.State != StateForwarding || now.Sub(a.lastActivity) <= timeout {
		return false
	}
	a.transitionLocked(Status{State: StateIdle}, ReasonTimeout, a.status.Owner)
	return true
}

// ExitMenu forces the bridge back to Idle.
func (a *Arbiter) ExitMenu() {
	a.mu.Lock()
	defer a.unlockAndNotify()

	if a.status.State == StateIdle {
		return
	}
	a.transitionLocked(Status{State: StateIdle}, ReasonMenuExit, a.status.Owner)
}

func (a *Arbiter) cursorLocked(ch Channel) *int {
	if a.shared {
		return &a.cursors[0]
	}
	return &a.cursors[ch]
}

// transitionLocked moves to next and resets every cursor.
func (a *Arbiter) transitionLocked(next Status, reason string, ch Channel) {
	t := Transition{
		From:    a.status,
		To:      next,
		Reason:  reason,
		Channel: ch,
		At:      a.now(),
	}
	a.status = next
	if next.State == StateMenu {
		a.menuSession++
		a.menuBy = ch
	}
	a.cursors = [numChannels]int{}
	a.escape = 0
	a.lineStart = true
	a.pending = append(a.pending, t)
}

// unlockAndNotify releases the lock, then runs the callback for every
// transition recorded while it was held.
func (a *Arbiter) unlockAndNotify() {
	pending := a.pending
	a.pending = nil
	fn := a.onStateChange
	a.mu.Unlock()

	if fn == nil {
		return
	}
	for _, t := range pending {
		fn(t)
	}
}
