// Package combat owns combat sessions: the registry that guarantees one
// session per combatant, and the per-session turn scheduler.
package combat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/udisondev/qimud/internal/config"
	"github.com/udisondev/qimud/internal/game/buff"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/game/effect"
	"github.com/udisondev/qimud/internal/game/skill"
	"github.com/udisondev/qimud/internal/message"
	"github.com/udisondev/qimud/internal/model"
)

const tracerName = "github.com/udisondev/qimud/internal/game/combat"

// hookTimeout bounds reward, quest and result hooks called from End.
const hookTimeout = 5 * time.Second

// ErrNotInCombat is returned by UseSkill when no target is given and the
// actor has no session.
var ErrNotInCombat = errors.New("not in combat")

// Deps are the collaborators of an Engine. Only Catalog is required.
type Deps struct {
	Catalog skill.Catalog
	Sink    message.Sink
	Rand    dice.Rand
	Tracer  trace.Tracer

	Rewards RewardGranter
	Quests  QuestNotifier
	Results ResultRecorder
}

// Engine is the combat session registry. It creates sessions, runs one
// scheduler goroutine per session and tears sessions down exactly once.
//
// Thread-safe.
type Engine struct {
	cfg config.Combat

	sink     message.Sink
	rng      dice.Rand
	tracer   trace.Tracer
	buffs    *buff.Manager
	effects  *effect.Registry
	resolver *skill.Resolver

	rewards RewardGranter
	quests  QuestNotifier
	results ResultRecorder

	mu          sync.Mutex
	sessions    map[string]*Session // by session id
	byCombatant map[string]*Session // combatant id → session

	wg sync.WaitGroup
}

// New creates an Engine and wires the buff manager, effect registry and
// skill resolver it runs on.
func New(cfg config.Combat, deps Deps) *Engine {
	if deps.Sink == nil {
		deps.Sink = message.Discard
	}
	if deps.Rand == nil {
		deps.Rand = dice.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}

	buffs := buff.NewManager(deps.Sink)
	effects := effect.NewRegistry(effect.Deps{
		Buffs:          buffs,
		Rand:           deps.Rand,
		DamageVariance: cfg.DamageVariance,
	})
	buffs.SetApplier(effects)

	resolver := skill.NewResolver(cfg, skill.Deps{
		Catalog: deps.Catalog,
		Effects: effects,
		Flags:   buffs,
		Sink:    deps.Sink,
		Rand:    deps.Rand,
		Tracer:  deps.Tracer,
	})

	e := &Engine{
		cfg:         cfg,
		sink:        deps.Sink,
		rng:         deps.Rand,
		tracer:      deps.Tracer,
		buffs:       buffs,
		effects:     effects,
		resolver:    resolver,
		rewards:     deps.Rewards,
		quests:      deps.Quests,
		results:     deps.Results,
		sessions:    make(map[string]*Session),
		byCombatant: make(map[string]*Session),
	}
	buffs.SetSourceLookup(e.sessionPeer)
	return e
}

// sessionPeer resolves a buff source among the participants of the holder's
// session. Anyone outside it is not guarded by that session's turn lock.
func (e *Engine) sessionPeer(holder *model.Combatant, id string) *model.Combatant {
	s := e.SessionOf(holder)
	if s == nil {
		return nil
	}
	for _, c := range []*model.Combatant{s.a, s.b} {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

// Buffs returns the buff manager used by every session.
func (e *Engine) Buffs() *buff.Manager { return e.buffs }

// Effects returns the effect registry; custom effect kinds are registered here.
func (e *Engine) Effects() *effect.Registry { return e.effects }

// Start creates a session between a and b and schedules its first tick.
// Returns false if either combatant already fights or a == b.
func (e *Engine) Start(a, b *model.Combatant) bool {
	if a == nil || b == nil || a.ID() == b.ID() {
		return false
	}

	e.mu.Lock()
	if e.byCombatant[a.ID()] != nil || e.byCombatant[b.ID()] != nil {
		e.mu.Unlock()
		return false
	}
	if !a.TryEnterCombat() {
		e.mu.Unlock()
		return false
	}
	if !b.TryEnterCombat() {
		a.LeaveCombat()
		e.mu.Unlock()
		return false
	}

	a.ResetCooldowns()
	b.ResetCooldowns()

	s := e.newSession(a, b)
	e.sessions[s.id] = s
	e.byCombatant[a.ID()] = s
	e.byCombatant[b.ID()] = s
	e.wg.Add(1)
	e.mu.Unlock()

	slog.Info("combat started", "session", s.id, "a", a.ID(), "b", b.ID())
	message.ToBoth(e.sink, a.ID(), b.ID(), fmt.Sprintf("%s engages %s in combat!", a.Name(), b.Name()))

	go e.run(s)
	return true
}

func (e *Engine) newSession(a, b *model.Combatant) *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	ctx, span := e.tracer.Start(ctx, "combat.session", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("a.id", a.ID()),
		attribute.String("b.id", b.ID()),
	))
	return &Session{
		id:        id,
		key:       PairKey(a.ID(), b.ID()),
		a:         a,
		b:         b,
		ctx:       ctx,
		cancel:    cancel,
		span:      span,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
}

// Stop aborts the session c belongs to with no winner.
// Returns false if c is not in combat.
func (e *Engine) Stop(c *model.Combatant) bool {
	s := e.SessionOf(c)
	if s == nil {
		return false
	}
	return e.end(s, nil, ReasonStopped)
}

// End terminates s. A nil winner ends the fight with nobody winning.
// Calling End on a terminal session is a no-op.
func (e *Engine) End(s *Session, winner *model.Combatant) {
	reason := ReasonStopped
	if winner != nil && s.Opponent(winner) != nil {
		reason = ReasonDefeat
	}
	e.end(s, winner, reason)
}

// Flee lets c try to escape its fight. On success the session ends with
// no winner.
func (e *Engine) Flee(c *model.Combatant) bool {
	s := e.SessionOf(c)
	if s == nil {
		e.sink.Send(c.ID(), "You are not in combat.")
		return false
	}
	if !dice.Chance(e.rng, e.cfg.FleeChance) {
		e.sink.Send(c.ID(), "You fail to escape!")
		if opp := s.Opponent(c); opp != nil {
			e.sink.Send(opp.ID(), fmt.Sprintf("%s tries to flee but fails.", c.Name()))
		}
		return false
	}
	if !e.end(s, nil, ReasonFled) {
		return false
	}
	e.sink.Send(c.ID(), "You escape from the fight!")
	if opp := s.Opponent(c); opp != nil {
		e.sink.Send(opp.ID(), fmt.Sprintf("%s flees from the fight!", c.Name()))
	}
	return true
}

// UseSkill runs a player-invoked skill outside the automatic turn order.
// A nil target means the actor's current opponent. Inside a session the
// use takes the session's turn lock like the scheduler does and may only
// target the actor or its opponent. Outside a session the target must not
// be fighting either.
func (e *Engine) UseSkill(ctx context.Context, actor, target *model.Combatant, skillID string) (*skill.Outcome, error) {
	if actor == nil {
		return nil, skill.ErrNoTarget
	}

	req := skill.Request{Actor: actor, Target: target, SkillID: skillID}
	if s := e.SessionOf(actor); s != nil {
		opp := s.Opponent(actor)
		if req.Target == nil {
			req.Target = opp
		}
		if req.Target.ID() != opp.ID() && req.Target.ID() != actor.ID() {
			e.sink.Send(actor.ID(), fmt.Sprintf("You are fighting %s, not %s.", opp.Name(), req.Target.Name()))
			return nil, skill.ErrNoTarget
		}
		req.Turn = &s.turn
		ctx, cancel := mergeCancel(ctx, s.ctx)
		defer cancel()
		return e.resolver.UseSkill(ctx, req)
	}

	if req.Target == nil {
		e.sink.Send(actor.ID(), "You are not fighting anyone.")
		return nil, ErrNotInCombat
	}

	// Both sides carry the combat flag until the use resolves, so Start
	// cannot pull either of them into a session mid-cast.
	release, ok := reserve(actor, req.Target)
	if !ok {
		e.sink.Send(actor.ID(), fmt.Sprintf("%s is already fighting someone else.", req.Target.Name()))
		return nil, skill.ErrNoTarget
	}
	defer release()
	return e.resolver.UseSkill(ctx, req)
}

// reserve sets the combat flag on every combatant or on none of them.
func reserve(cs ...*model.Combatant) (func(), bool) {
	var held []*model.Combatant
	release := func() {
		for _, c := range held {
			c.LeaveCombat()
		}
	}
	for _, c := range cs {
		if slices.Contains(held, c) {
			continue
		}
		if !c.TryEnterCombat() {
			release()
			return nil, false
		}
		held = append(held, c)
	}
	return release, true
}

// SessionOf returns the active session of c, or nil.
func (e *Engine) SessionOf(c *model.Combatant) *Session {
	if c == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byCombatant[c.ID()]
}

// Session returns the active session with id, or nil.
func (e *Engine) Session(id string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[id]
}

// Count returns the number of active sessions.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Close ends every active session with no winner and waits for all
// scheduler goroutines to exit or ctx to expire.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	active := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		active = append(active, s)
	}
	e.mu.Unlock()

	for _, s := range active {
		e.end(s, nil, ReasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for combat sessions: %w", ctx.Err())
	}
}

// end is the single teardown path. Returns false if s was already terminal.
func (e *Engine) end(s *Session, winner *model.Combatant, reason EndReason) bool {
	if !s.terminal.CompareAndSwap(false, true) {
		return false
	}
	s.state.Store(int32(StateTerminal))
	s.cancel()

	// Waits for an in-flight synchronous phase to finish.
	s.turn.Lock()
	rounds := s.round
	for _, c := range []*model.Combatant{s.a, s.b} {
		c.ResetCooldowns()
		if e.cfg.ClearBuffsOnEnd {
			e.buffs.ClearAll(c)
		}
	}
	s.turn.Unlock()

	e.mu.Lock()
	delete(e.sessions, s.id)
	for _, c := range []*model.Combatant{s.a, s.b} {
		if e.byCombatant[c.ID()] == s {
			delete(e.byCombatant, c.ID())
		}
		c.LeaveCombat()
	}
	e.mu.Unlock()

	rec := Record{
		SessionID:  s.id,
		AttackerID: s.a.ID(),
		DefenderID: s.b.ID(),
		Reason:     reason,
		Rounds:     rounds,
		StartedAt:  s.startedAt,
		EndedAt:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(trace.ContextWithSpan(context.Background(), s.span), hookTimeout)
	defer cancel()

	switch reason {
	case ReasonDefeat:
		loser := s.Opponent(winner)
		rec.WinnerID = winner.ID()
		rec.LoserID = loser.ID()
		message.ToBoth(e.sink, s.a.ID(), s.b.ID(), fmt.Sprintf("%s has defeated %s!", winner.Name(), loser.Name()))
		rec.Reward = e.reward(ctx, winner, loser)
		if e.quests != nil {
			e.quests.OnKill(ctx, winner, loser.ID())
		}
	case ReasonDraw:
		message.ToBoth(e.sink, s.a.ID(), s.b.ID(), "Both fighters fall. Nobody wins.")
	case ReasonTimeout:
		message.ToBoth(e.sink, s.a.ID(), s.b.ID(), "The fight drags on too long and both sides withdraw.")
	case ReasonStopped, ReasonShutdown:
		message.ToBoth(e.sink, s.a.ID(), s.b.ID(), fmt.Sprintf("The fight between %s and %s is over.", s.a.Name(), s.b.Name()))
	}

	if e.results != nil {
		if err := e.results.RecordResult(ctx, rec); err != nil {
			slog.Error("record combat result", "session", s.id, "error", err)
		}
	}

	s.span.SetAttributes(
		attribute.String("end.reason", string(reason)),
		attribute.Int("rounds", int(rounds)),
		attribute.String("winner.id", rec.WinnerID),
	)
	s.span.End()

	slog.Info("combat ended",
		"session", s.id,
		"reason", reason,
		"winner", rec.WinnerID,
		"rounds", rounds,
		"duration", rec.EndedAt.Sub(rec.StartedAt))
	return true
}

func (e *Engine) reward(ctx context.Context, winner, loser *model.Combatant) Reward {
	r := CalculateReward(e.cfg.Rewards, e.rng, loser.Level())
	if r.IsZero() {
		return r
	}
	if e.rewards != nil {
		if err := e.rewards.GrantReward(ctx, winner, loser.ID(), r); err != nil {
			slog.Error("grant reward", "winner", winner.ID(), "error", err)
			return Reward{}
		}
	}
	e.sink.Send(winner.ID(), fmt.Sprintf("You gain %d experience and %d gold.", r.Exp, r.Gold))
	return r
}

// mergeCancel returns a context that is done when either parent is.
func mergeCancel(ctx, other context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// statusLine renders both participants' HP and Qi.
func statusLine(round int32, a, b *model.Combatant) string {
	return fmt.Sprintf("[Round %d] %s HP %d/%d Qi %d/%d | %s HP %d/%d Qi %d/%d",
		round,
		a.Name(), a.CurrentHP(), a.MaxHP(), a.CurrentQi(), a.MaxQi(),
		b.Name(), b.CurrentHP(), b.MaxHP(), b.CurrentQi(), b.MaxQi())
}

func survivor(a, b *model.Combatant) *model.Combatant {
	switch {
	case a.IsDead() && !b.IsDead():
		return b
	case b.IsDead() && !a.IsDead():
		return a
	default:
		return nil
	}
}
