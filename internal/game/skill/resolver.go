// Package skill resolves skill uses: usability checks, cost and cooldown
// accounting, counter/hit/crit rolls, effect application and the timed
// narrative that accompanies each use.
package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/udisondev/qimud/internal/config"
	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/game/effect"
	"github.com/udisondev/qimud/internal/message"
	"github.com/udisondev/qimud/internal/model"
)

const tracerName = "github.com/udisondev/qimud/internal/game/skill"

// Effects applies a skill's effect list. Implemented by effect.Registry.
type Effects interface {
	ApplyAll(specs []data.EffectSpec, attacker, target *model.Combatant, cc *effect.Context) []effect.Result
}

// Request describes one skill use.
type Request struct {
	Actor   *model.Combatant
	Target  *model.Combatant
	SkillID string
	// Level 0 uses the level the actor knows the skill at.
	Level int32
	// CounterFollowUp marks the retaliation of a counter-attack:
	// it always hits and can never be countered itself.
	CounterFollowUp bool
	// Turn, when set, is held during every synchronous phase and released
	// while the cast and the narrative are in flight.
	Turn sync.Locker
}

// Outcome is the result of a completed skill use.
type Outcome struct {
	SkillID         string
	SkillName       string
	Level           int32
	CounterFollowUp bool

	Hit       bool
	Crit      bool
	Countered bool
	// Interrupted is set when the actor died before the cast finished.
	Interrupted bool

	Damage   int32
	Absorbed int32
	Heal     int32
	Results  []effect.Result

	// Counter is the defender's follow-up when Countered is set.
	Counter *Outcome
}

// Deps are the collaborators of a Resolver.
type Deps struct {
	Catalog Catalog
	Effects Effects
	Flags   Flags
	Sink    message.Sink
	Rand    dice.Rand
	Tracer  trace.Tracer
}

// Resolver runs skill uses end to end.
type Resolver struct {
	cfg      config.Combat
	catalog  Catalog
	effects  Effects
	flags    Flags
	sink     message.Sink
	rng      dice.Rand
	tracer   trace.Tracer
	selector *Selector
}

// NewResolver creates a Resolver.
func NewResolver(cfg config.Combat, deps Deps) *Resolver {
	if deps.Sink == nil {
		deps.Sink = message.Discard
	}
	if deps.Rand == nil {
		deps.Rand = dice.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}
	return &Resolver{
		cfg:      cfg,
		catalog:  deps.Catalog,
		effects:  deps.Effects,
		flags:    deps.Flags,
		sink:     deps.Sink,
		rng:      deps.Rand,
		tracer:   deps.Tracer,
		selector: NewSelector(deps.Catalog, deps.Flags, deps.Rand),
	}
}

// Selector returns the skill selector sharing this resolver's catalog.
func (r *Resolver) Selector() *Selector {
	return r.selector
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// UseSkill performs one skill use and blocks until its cast, its effects
// and all of its narrative (plus a counter follow-up, if any) are done.
// Usage errors are returned before anything is spent or any time passes.
// Cancelling ctx abandons the use at the next wait.
func (r *Resolver) UseSkill(ctx context.Context, req Request) (*Outcome, error) {
	turn := req.Turn
	if turn == nil {
		turn = noLock{}
	}

	turn.Lock()
	inst, err := r.begin(req)
	turn.Unlock()
	if err != nil {
		if IsUsageError(err) && req.Actor != nil {
			r.sink.Send(req.Actor.ID(), fmt.Sprintf("You cannot use that: %v.", err))
		}
		return nil, err
	}

	tl := newTimeline(ctx)

	for _, line := range sortedLines(inst.Text.Cast) {
		if err := tl.waitUntil(lineOffset(inst.CastTime, line.DelayPercent)); err != nil {
			return nil, err
		}
		r.say(req, render(line.Text, req.Actor, req.Target, inst.Name, nil))
	}
	if err := tl.waitUntil(inst.CastTime); err != nil {
		return nil, err
	}

	turn.Lock()
	out, cc := r.resolve(ctx, req, inst)
	turn.Unlock()

	if out.Interrupted {
		return out, nil
	}

	last := inst.CastTime
	for _, line := range sortedLines(resultLines(inst, out)) {
		at := inst.CastTime + lineOffset(inst.CastTime, line.DelayPercent)
		if err := tl.waitUntil(at); err != nil {
			return out, err
		}
		r.say(req, render(line.Text, req.Actor, req.Target, inst.Name, cc))
		last = max(last, at)
	}
	if err := tl.waitUntil(last + r.cfg.TextTailDelay); err != nil {
		return out, err
	}

	if out.Countered {
		counter, err := r.counterFollowUp(ctx, req)
		if err != nil && !IsUsageError(err) {
			return out, err
		}
		out.Counter = counter
	}

	return out, nil
}

// UseSkillAsync runs UseSkill in its own goroutine and reports to
// onComplete when everything has finished.
func (r *Resolver) UseSkillAsync(ctx context.Context, req Request, onComplete func(*Outcome, error)) {
	go func() {
		out, err := r.UseSkill(ctx, req)
		if onComplete != nil {
			onComplete(out, err)
		}
	}()
}

// begin resolves the instance, checks usability in order and pays the costs.
func (r *Resolver) begin(req Request) (*data.SkillInstance, error) {
	actor, target := req.Actor, req.Target
	if actor == nil || target == nil {
		return nil, ErrNoTarget
	}
	if actor.IsDead() {
		return nil, fmt.Errorf("%w: %s is dead", ErrNoTarget, actor.Name())
	}
	if target.IsDead() {
		return nil, fmt.Errorf("%w: %s is dead", ErrNoTarget, target.Name())
	}

	level := req.Level
	if level <= 0 {
		level = actor.SkillLevel(req.SkillID)
	}
	if level <= 0 {
		if req.SkillID != data.BasicAttackID {
			return nil, fmt.Errorf("%w: %s not learned", ErrUnknownSkill, req.SkillID)
		}
		level = 1
	}

	inst, err := r.catalog.Skill(req.SkillID, level)
	if err != nil {
		if errors.Is(err, data.ErrSkillNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, req.SkillID)
		}
		return nil, fmt.Errorf("resolving skill %s: %w", req.SkillID, err)
	}
	if inst.Passive {
		return nil, fmt.Errorf("%w: %s", ErrPassiveSkill, inst.Name)
	}

	if r.hasFlag(actor, data.ExtraStunned) {
		return nil, ErrStunned
	}
	if inst.ID != data.BasicAttackID && r.hasFlag(actor, data.ExtraSilenced) {
		return nil, ErrSilenced
	}

	if cd := actor.Cooldown(inst.ID); cd > 0 {
		return nil, fmt.Errorf("%w (%d rounds left)", ErrOnCooldown, cd)
	}
	if inst.CostQi > 0 && actor.CurrentQi() < inst.CostQi {
		return nil, fmt.Errorf("%w (need %d, have %d)", ErrInsufficientQi, inst.CostQi, actor.CurrentQi())
	}
	if inst.CostHP > 0 && actor.CurrentHP() <= inst.CostHP {
		return nil, fmt.Errorf("%w (need more than %d)", ErrInsufficientHP, inst.CostHP)
	}

	actor.ReduceQi(inst.CostQi)
	actor.ReduceCurrentHP(inst.CostHP)
	if inst.Cooldown > 0 {
		actor.SetCooldown(inst.ID, inst.Cooldown)
	}

	slog.Debug("skill cast",
		"actor", actor.ID(),
		"skill", inst.ID,
		"level", inst.Level,
		"target", target.ID(),
		"castTime", inst.CastTime,
		"counterFollowUp", req.CounterFollowUp)

	return inst, nil
}

// resolve runs counter, hit and crit rolls and applies the effects.
func (r *Resolver) resolve(ctx context.Context, req Request, inst *data.SkillInstance) (*Outcome, *effect.Context) {
	_, span := r.tracer.Start(ctx, "skill.resolve", trace.WithAttributes(
		attribute.String("skill.id", inst.ID),
		attribute.Int("skill.level", int(inst.Level)),
		attribute.String("actor.id", req.Actor.ID()),
		attribute.String("target.id", req.Target.ID()),
		attribute.Bool("counter_follow_up", req.CounterFollowUp),
	))
	defer span.End()

	actor, target := req.Actor, req.Target
	out := &Outcome{
		SkillID:         inst.ID,
		SkillName:       inst.Name,
		Level:           inst.Level,
		CounterFollowUp: req.CounterFollowUp,
	}
	cc := &effect.Context{
		Attacker:       actor,
		Target:         target,
		Skill:          inst,
		CritMultiplier: r.cfg.CritMultiplier,
	}

	if actor.IsDead() {
		out.Interrupted = true
		span.SetAttributes(attribute.Bool("interrupted", true))
		return out, cc
	}

	self := selfTargeted(inst)

	if !self && !req.CounterFollowUp && r.rollCounter(actor, target, inst) {
		out.Countered = true
		cc.Countered = true
		span.SetAttributes(attribute.Bool("countered", true))
		return out, cc
	}

	switch {
	case self, req.CounterFollowUp:
		out.Hit = true
	default:
		out.Hit = dice.Chance(r.rng, r.hitChance(actor, target, inst))
	}
	cc.Hit = out.Hit

	if out.Hit {
		out.Crit = dice.Chance(r.rng, r.cfg.CritChance+inst.CritBonus+actor.Stat(data.StatCritRate))
		cc.Crit = out.Crit
		out.Results = r.effects.ApplyAll(inst.Effects, actor, target, cc)
	}

	out.Damage = cc.TotalDamage
	out.Absorbed = cc.TotalAbsorbed
	out.Heal = cc.TotalHeal

	span.SetAttributes(
		attribute.Bool("hit", out.Hit),
		attribute.Bool("crit", out.Crit),
		attribute.Int("damage", int(out.Damage)),
	)
	slog.Debug("skill resolved",
		"actor", actor.ID(),
		"skill", inst.ID,
		"hit", out.Hit,
		"crit", out.Crit,
		"damage", out.Damage,
		"heal", out.Heal)

	return out, cc
}

// counterFollowUp lets the defender retaliate once against the actor.
func (r *Resolver) counterFollowUp(ctx context.Context, req Request) (*Outcome, error) {
	defender, actor := req.Target, req.Actor
	if defender.IsDead() || actor.IsDead() {
		return nil, nil
	}

	skillID := r.selector.ChooseCounter(defender)
	name := skillID
	if inst, err := r.catalog.Skill(skillID, max(defender.SkillLevel(skillID), 1)); err == nil {
		name = inst.Name
	}

	trigger := r.selector.counterTrigger(defender)
	if len(trigger) == 0 {
		trigger = defaultTrigger
	}
	for _, line := range trigger {
		message.ToBoth(r.sink, defender.ID(), actor.ID(), render(line.Text, defender, actor, name, nil))
	}

	out, err := r.UseSkill(ctx, Request{
		Actor:           defender,
		Target:          actor,
		SkillID:         skillID,
		CounterFollowUp: true,
		Turn:            req.Turn,
	})
	if err != nil {
		slog.Debug("counter follow-up failed", "defender", defender.ID(), "skill", skillID, "error", err)
	}
	return out, err
}

// rollCounter evaluates the pre-hit counter check.
// A stunned defender never counters.
func (r *Resolver) rollCounter(actor, target *model.Combatant, inst *data.SkillInstance) bool {
	if r.hasFlag(target, data.ExtraStunned) {
		return false
	}
	return dice.Chance(r.rng, r.counterChance(actor, target, inst))
}

func (r *Resolver) counterChance(actor, target *model.Combatant, inst *data.SkillInstance) float64 {
	c := r.cfg.Counter
	p := c.BaseRate +
		inst.CounterChance +
		target.Stat(data.StatCounterRate) +
		float64(target.Level()-actor.Level())*c.LevelDiffBonus +
		target.Stat(data.StatAgility)*c.AgilityBonus
	return min(max(p, 0), c.MaxRate)
}

func (r *Resolver) hitChance(actor, target *model.Combatant, inst *data.SkillInstance) float64 {
	p := inst.Accuracy
	for st, ratio := range inst.AccuracyScale {
		p += actor.Stat(st) * ratio
	}
	p -= target.Stat(data.StatDodgeRate)
	return max(p, r.cfg.MinHitChance)
}

func (r *Resolver) hasFlag(c *model.Combatant, flag string) bool {
	return r.flags != nil && r.flags.HasFlag(c, flag)
}

func (r *Resolver) say(req Request, text string) {
	message.ToBoth(r.sink, req.Actor.ID(), req.Target.ID(), text)
}

// selfTargeted reports whether every effect lands on the caster;
// such skills cannot be dodged or countered.
func selfTargeted(inst *data.SkillInstance) bool {
	if len(inst.Effects) == 0 {
		return false
	}
	for _, e := range inst.Effects {
		if e.AppliesToSelf() || e.Kind == data.EffectRestoreResource {
			continue
		}
		return false
	}
	return true
}

// timeline waits for offsets measured from its creation.
type timeline struct {
	ctx   context.Context
	start time.Time
}

func newTimeline(ctx context.Context) *timeline {
	return &timeline{ctx: ctx, start: time.Now()}
}

func (t *timeline) waitUntil(offset time.Duration) error {
	d := offset - time.Since(t.start)
	if d <= 0 {
		return t.ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}
