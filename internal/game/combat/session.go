package combat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/udisondev/qimud/internal/model"
)

// State is the scheduler state of a session.
type State int32

const (
	StateAwaitingTick State = iota
	StateCasting
	StateResolving
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateAwaitingTick:
		return "awaiting_tick"
	case StateCasting:
		return "casting"
	case StateResolving:
		return "resolving"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// EndReason tells why a session ended.
type EndReason string

const (
	ReasonDefeat   EndReason = "defeat"
	ReasonDraw     EndReason = "draw"
	ReasonTimeout  EndReason = "timeout"
	ReasonStopped  EndReason = "stopped"
	ReasonFled     EndReason = "fled"
	ReasonShutdown EndReason = "shutdown"
)

// Session is one active fight between two combatants.
//
// turn is the session's turn lock: whoever mutates the combatants' ephemeral
// fields (scheduler, resolver, player-invoked skills, End) holds it.
type Session struct {
	id  string
	key string
	a   *model.Combatant
	b   *model.Combatant

	turn sync.Mutex

	// Guarded by turn.
	actor int // 0 = a, 1 = b
	round int32

	state    atomic.Int32
	terminal atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span
	done   chan struct{}

	startedAt time.Time
}

// PairKey identifies a session by the unordered pair of combatant ids.
func PairKey(aID, bID string) string {
	if bID < aID {
		aID, bID = bID, aID
	}
	return aID + "|" + bID
}

// ID returns the unique session id.
func (s *Session) ID() string { return s.id }

// Key returns the pair key of the two participants.
func (s *Session) Key() string { return s.key }

// Participants returns both combatants in start order.
func (s *Session) Participants() (*model.Combatant, *model.Combatant) {
	return s.a, s.b
}

// Opponent returns the other participant, or nil if c is not in the session.
func (s *Session) Opponent(c *model.Combatant) *model.Combatant {
	switch c {
	case s.a:
		return s.b
	case s.b:
		return s.a
	default:
		return nil
	}
}

// Round returns the number of completed ticks.
func (s *Session) Round() int32 {
	s.turn.Lock()
	defer s.turn.Unlock()
	return s.round
}

// State returns the current scheduler state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Terminal reports whether End has run for this session.
func (s *Session) Terminal() bool {
	return s.terminal.Load()
}

// Done is closed when the session's scheduler goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) setState(st State) {
	if s.terminal.Load() {
		return
	}
	s.state.Store(int32(st))
}

// current returns actor and defender for this tick. Caller holds turn.
func (s *Session) current() (*model.Combatant, *model.Combatant) {
	if s.actor == 0 {
		return s.a, s.b
	}
	return s.b, s.a
}

// sleep waits d or until the session is cancelled.
func (s *Session) sleep(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}
