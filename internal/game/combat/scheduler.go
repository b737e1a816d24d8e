package combat

import (
	"fmt"
	"log/slog"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/skill"
	"github.com/udisondev/qimud/internal/message"
	"github.com/udisondev/qimud/internal/model"
)

// run is the scheduler goroutine of one session.
// AwaitingTick → Casting → Resolving → AwaitingTick, or → Terminal.
func (e *Engine) run(s *Session) {
	defer e.wg.Done()
	defer close(s.done)

	if !s.sleep(e.cfg.InitialDelay) {
		return
	}

	for !s.Terminal() {
		if !e.tick(s) {
			return
		}
		if !s.sleep(e.cfg.TurnInterval) {
			return
		}
	}
}

// tick runs one actor's turn. Returns false once the session is over.
func (e *Engine) tick(s *Session) bool {
	s.turn.Lock()
	if s.Terminal() {
		s.turn.Unlock()
		return false
	}

	actor, defender := s.current()
	if actor.IsDead() || defender.IsDead() {
		s.turn.Unlock()
		e.finish(s)
		return false
	}

	s.setState(StateCasting)
	actor.TickCooldowns()
	e.buffs.Tick(actor, data.TriggerTurnStart)

	stunned := e.buffs.HasFlag(actor, data.ExtraStunned)
	var skillID string
	if !stunned && !actor.IsDead() {
		skillID = e.resolver.Selector().Choose(actor)
	}
	s.turn.Unlock()

	switch {
	case stunned:
		message.ToBoth(e.sink, actor.ID(), defender.ID(), fmt.Sprintf("%s is stunned and cannot act!", actor.Name()))
	case skillID != "":
		if !e.act(s, actor, defender, skillID) {
			return false
		}
	}

	s.turn.Lock()
	if s.Terminal() {
		s.turn.Unlock()
		return false
	}
	s.setState(StateResolving)
	e.buffs.Tick(actor, data.TriggerTurnEnd)
	e.buffs.ReduceDurations(actor)

	s.actor ^= 1
	s.round++
	round := s.round
	s.a.SetRound(round)
	s.b.SetRound(round)
	s.setState(StateAwaitingTick)
	s.turn.Unlock()

	message.ToBoth(e.sink, s.a.ID(), s.b.ID(), statusLine(round, s.a, s.b))

	if s.a.IsDead() || s.b.IsDead() {
		e.finish(s)
		return false
	}
	if round >= e.cfg.MaxRounds {
		e.end(s, nil, ReasonTimeout)
		return false
	}
	return true
}

// act resolves the chosen skill. A usage failure falls back to the basic
// attack once. Returns false if the session was cancelled meanwhile.
func (e *Engine) act(s *Session, actor, defender *model.Combatant, skillID string) bool {
	req := skill.Request{
		Actor:   actor,
		Target:  defender,
		SkillID: skillID,
		Turn:    &s.turn,
	}

	_, err := e.resolver.UseSkill(s.ctx, req)
	if err != nil && skill.IsUsageError(err) && skillID != data.BasicAttackID {
		slog.Debug("chosen skill unusable, falling back to basic attack",
			"session", s.id, "actor", actor.ID(), "skill", skillID, "error", err)
		req.SkillID = data.BasicAttackID
		_, err = e.resolver.UseSkill(s.ctx, req)
	}

	switch {
	case err == nil:
		return true
	case s.ctx.Err() != nil:
		return false
	case skill.IsUsageError(err):
		slog.Debug("turn skipped", "session", s.id, "actor", actor.ID(), "error", err)
		return true
	default:
		slog.Warn("skill resolution failed", "session", s.id, "actor", actor.ID(), "skill", req.SkillID, "error", err)
		return true
	}
}

// finish ends the session after a death.
func (e *Engine) finish(s *Session) {
	if w := survivor(s.a, s.b); w != nil {
		e.end(s, w, ReasonDefeat)
		return
	}
	e.end(s, nil, ReasonDraw)
}
