package effect

import (
	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/model"
)

func (r *Registry) heal(spec data.EffectSpec, attacker, target *model.Combatant, cc *Context) (Result, error) {
	healed := target.RestoreHP(floorAmount(magnitude(spec, attacker)))
	cc.TotalHeal += healed
	return Result{TargetID: target.ID(), Amount: healed}, nil
}

// restoreResource refills the caster's Qi (the holder's for ticks).
func (r *Registry) restoreResource(spec data.EffectSpec, attacker, target *model.Combatant, cc *Context) (Result, error) {
	to := attacker
	if cc.BuffTick {
		to = target
	}
	restored := to.RestoreQi(floorAmount(magnitude(spec, attacker)))
	return Result{TargetID: to.ID(), Amount: restored}, nil
}

// lifesteal heals the caster for a fraction of the last damage dealt.
func (r *Registry) lifesteal(spec data.EffectSpec, attacker, _ *model.Combatant, cc *Context) (Result, error) {
	ratio := spec.Ratio
	if ratio <= 0 {
		ratio = spec.Value
	}
	healed := attacker.RestoreHP(floorAmount(float64(cc.LastDamage) * ratio))
	cc.TotalHeal += healed
	return Result{TargetID: attacker.ID(), Amount: healed}, nil
}

func (r *Registry) drainResource(spec data.EffectSpec, attacker, target *model.Combatant, _ *Context) (Result, error) {
	drained := target.ReduceQi(floorAmount(magnitude(spec, attacker)))
	return Result{TargetID: target.ID(), Amount: drained}, nil
}
