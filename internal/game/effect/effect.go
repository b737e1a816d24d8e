// Package effect maps effect kinds to handlers that mutate combatants.
package effect

import (
	"errors"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/model"
)

// ErrUnknownEffect is returned for an effect kind without a registered handler.
var ErrUnknownEffect = errors.New("unknown effect kind")

// Context is the scratch record shared by all effects of one skill use
// (or one buff tick). Later effects read totals written by earlier ones.
type Context struct {
	Attacker *model.Combatant
	Target   *model.Combatant
	Skill    *data.SkillInstance // nil for buff ticks

	Hit       bool
	Crit      bool
	Countered bool

	// CritMultiplier scales damage when Crit is set.
	CritMultiplier float64

	LastDamage    int32
	TotalDamage   int32
	TotalAbsorbed int32
	TotalHeal     int32

	// BuffTick is set when effects come from a periodic buff tick.
	BuffTick bool
	Buff     *model.Buff
}

// Result describes what a single effect did.
type Result struct {
	Kind     data.EffectKind
	TargetID string
	Amount   int32 // HP/Qi actually changed, shield pool, or stat delta (rounded)
	Absorbed int32
	BuffID   string
	Element  string
}

// Handler applies one effect. attacker is the caster, or for ticks the buff's
// source (the holder when the source is unknown). target is already resolved
// for self-targeted specs.
type Handler func(spec data.EffectSpec, attacker, target *model.Combatant, cc *Context) (Result, error)

// Buffs is the part of the buff manager used by handlers.
type Buffs interface {
	AddBuff(target *model.Combatant, spec data.BuffSpec, sourceID string, duration int32) string
	AbsorbShield(target *model.Combatant, damage int32) int32
}
