package effect

import (
	"errors"
	"math"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/model"
)

var (
	errNoBuffManager = errors.New("no buff manager configured")
	errMissingBuff   = errors.New("apply-buff without buff template")
)

func (r *Registry) applyBuff(spec data.EffectSpec, attacker, target *model.Combatant, _ *Context) (Result, error) {
	if r.deps.Buffs == nil {
		return Result{}, errNoBuffManager
	}
	if spec.Buff == nil {
		return Result{}, errMissingBuff
	}

	id := r.deps.Buffs.AddBuff(target, *spec.Buff, attacker.ID(), spec.Duration)
	return Result{TargetID: target.ID(), BuffID: id}, nil
}

// statModifier outside a buff is wrapped into one so it is always reversed.
func (r *Registry) statModifier(spec data.EffectSpec, attacker, target *model.Combatant, _ *Context) (Result, error) {
	if r.deps.Buffs == nil {
		return Result{}, errNoBuffManager
	}

	name := spec.Name
	if name == "" {
		name = spec.Stat.String() + " modifier"
	}
	kind := data.KindBuff
	if spec.Value < 0 {
		kind = data.KindDebuff
	}

	id := r.deps.Buffs.AddBuff(target, data.BuffSpec{
		Name:      name,
		Kind:      kind,
		Duration:  spec.Duration,
		StackMode: data.StackRefresh,
		Effects: []data.EffectSpec{{
			Kind:  data.EffectStatModifier,
			Stat:  spec.Stat,
			Value: spec.Value,
		}},
	}, attacker.ID(), spec.Duration)

	return Result{
		TargetID: target.ID(),
		Amount:   int32(math.Round(spec.Value)),
		BuffID:   id,
	}, nil
}

// shield adds (or refreshes and tops up) an absorb pool buff.
func (r *Registry) shield(spec data.EffectSpec, attacker, target *model.Combatant, _ *Context) (Result, error) {
	if r.deps.Buffs == nil {
		return Result{}, errNoBuffManager
	}

	pool := magnitude(spec, attacker)
	name := spec.Name
	if name == "" {
		name = "Qi Shield"
	}

	id := r.deps.Buffs.AddBuff(target, data.BuffSpec{
		Name:      name,
		Kind:      data.KindBuff,
		Duration:  spec.Duration,
		StackMode: data.StackRefresh,
		Extra:     map[string]any{data.ExtraShield: pool},
	}, attacker.ID(), spec.Duration)

	if b := target.BuffByID(id); b != nil && b.Number(data.ExtraShield) < pool {
		b.SetNumber(data.ExtraShield, pool)
	}

	return Result{TargetID: target.ID(), Amount: floorAmount(pool), BuffID: id}, nil
}

// control builds a handler for a flag-only control buff (silence, stun).
func (r *Registry) control(flag, defaultName string, defaultDuration int32) Handler {
	return func(spec data.EffectSpec, attacker, target *model.Combatant, _ *Context) (Result, error) {
		if r.deps.Buffs == nil {
			return Result{}, errNoBuffManager
		}

		name := spec.Name
		if name == "" {
			name = defaultName
		}
		duration := spec.Duration
		if duration <= 0 {
			duration = defaultDuration
		}

		id := r.deps.Buffs.AddBuff(target, data.BuffSpec{
			Name:      name,
			Kind:      data.KindControl,
			Duration:  duration,
			StackMode: data.StackRefresh,
			Extra:     map[string]any{flag: true},
		}, attacker.ID(), duration)

		return Result{TargetID: target.ID(), BuffID: id}, nil
	}
}
