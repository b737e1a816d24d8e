package effect

import (
	"math"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/model"
)

// magnitude is Value plus the attacker's scaling attribute.
func magnitude(spec data.EffectSpec, attacker *model.Combatant) float64 {
	v := spec.Value
	if spec.ScaleRatio != 0 {
		v += attacker.Stat(spec.ScaleWith) * spec.ScaleRatio
	}
	return v
}

func floorAmount(v float64) int32 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(math.Floor(v))
}

// damage: (value + attr*ratio) * variance * crit, floored.
// Shields absorb first; HP never drops below zero.
func (r *Registry) damage(spec data.EffectSpec, attacker, target *model.Combatant, cc *Context) (Result, error) {
	amount := magnitude(spec, attacker)

	// Ticks deal their listed value; variance only applies to skill hits.
	if !cc.BuffTick && r.deps.DamageVariance > 0 {
		v := r.deps.DamageVariance
		amount *= dice.Uniform(r.deps.Rand, 1-v, 1+v)
	}
	if cc.Crit && cc.CritMultiplier > 0 {
		amount *= cc.CritMultiplier
	}

	dmg := floorAmount(amount)

	var absorbed int32
	if dmg > 0 && r.deps.Buffs != nil {
		absorbed = r.deps.Buffs.AbsorbShield(target, dmg)
	}
	lost := target.ReduceCurrentHP(dmg - absorbed)

	cc.LastDamage = lost
	cc.TotalDamage += lost
	cc.TotalAbsorbed += absorbed

	return Result{
		TargetID: target.ID(),
		Amount:   lost,
		Absorbed: absorbed,
		Element:  spec.Element,
	}, nil
}
