package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/buff"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/game/effect"
	"github.com/udisondev/qimud/internal/message"
	"github.com/udisondev/qimud/internal/model"
)

func setup(t *testing.T, variance float64, r dice.Rand) (*effect.Registry, *buff.Manager) {
	t.Helper()
	m := buff.NewManager(message.Discard)
	reg := effect.NewRegistry(effect.Deps{Buffs: m, Rand: r, DamageVariance: variance})
	m.SetApplier(reg)
	return reg, m
}

func pair() (*model.Combatant, *model.Combatant) {
	return model.NewCombatant("a", "Attacker", 1, 100, 100),
		model.NewCombatant("t", "Target", 1, 80, 40)
}

func TestBuiltinKinds(t *testing.T) {
	reg, _ := setup(t, 0, dice.Fixed(0.5))

	for _, k := range []data.EffectKind{
		data.EffectDamage, data.EffectHeal, data.EffectRestoreResource,
		data.EffectStatModifier, data.EffectApplyBuff, data.EffectLifesteal,
		data.EffectShield, data.EffectSilence, data.EffectStun, data.EffectResourceDrain,
	} {
		assert.True(t, reg.Has(k), k)
	}
	assert.Len(t, reg.Kinds(), 10)
}

func TestUnknownKindIsSkipped(t *testing.T) {
	reg, _ := setup(t, 0, dice.Fixed(0.5))
	a, tg := pair()

	_, err := reg.Apply(data.EffectSpec{Kind: "teleport"}, a, tg, nil)
	assert.ErrorIs(t, err, effect.ErrUnknownEffect)

	cc := &effect.Context{}
	results := reg.ApplyAll([]data.EffectSpec{
		{Kind: "teleport"},
		{Kind: data.EffectDamage, Value: 20},
	}, a, tg, cc)

	require.Len(t, results, 1, "resolution continues after a misconfigured effect")
	assert.Equal(t, int32(60), tg.CurrentHP())
}

func TestRegister_Custom(t *testing.T) {
	reg, _ := setup(t, 0, dice.Fixed(0.5))
	a, tg := pair()

	reg.Register("execute", func(_ data.EffectSpec, _, target *model.Combatant, _ *effect.Context) (effect.Result, error) {
		lost := target.ReduceCurrentHP(target.CurrentHP())
		return effect.Result{TargetID: target.ID(), Amount: lost}, nil
	})

	res, err := reg.Apply(data.EffectSpec{Kind: "execute"}, a, tg, nil)
	require.NoError(t, err)
	assert.Equal(t, data.EffectKind("execute"), res.Kind)
	assert.True(t, tg.IsDead())
}

func TestDamage(t *testing.T) {
	tests := []struct {
		name     string
		spec     data.EffectSpec
		variance float64
		roll     float64
		crit     bool
		power    float64
		want     int32
	}{
		{name: "flat", spec: data.EffectSpec{Kind: data.EffectDamage, Value: 20}, want: 20},
		{name: "scaled", spec: data.EffectSpec{Kind: data.EffectDamage, Value: 10, ScaleWith: data.StatPower, ScaleRatio: 1.5}, power: 10, want: 25},
		{name: "variance low", spec: data.EffectSpec{Kind: data.EffectDamage, Value: 20}, variance: 0.1, roll: 0, want: 18},
		{name: "variance high", spec: data.EffectSpec{Kind: data.EffectDamage, Value: 20}, variance: 0.1, roll: 0.99, want: 21},
		{name: "critical", spec: data.EffectSpec{Kind: data.EffectDamage, Value: 20}, crit: true, want: 40},
		{name: "clamped at zero HP", spec: data.EffectSpec{Kind: data.EffectDamage, Value: 500}, want: 80},
		{name: "negative", spec: data.EffectSpec{Kind: data.EffectDamage, Value: -5}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := setup(t, tt.variance, dice.Fixed(tt.roll))
			a, tg := pair()
			a.SetStat(data.StatPower, tt.power)

			cc := &effect.Context{Crit: tt.crit, CritMultiplier: 2}
			res, err := reg.Apply(tt.spec, a, tg, cc)
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Amount)
			assert.Equal(t, 80-tt.want, tg.CurrentHP())
			assert.Equal(t, tt.want, cc.LastDamage)
			assert.Equal(t, int32(100), a.CurrentHP())
		})
	}
}

func TestDamage_BuffTickIgnoresVariance(t *testing.T) {
	reg, _ := setup(t, 0.5, dice.Fixed(0))
	a, tg := pair()

	res, err := reg.Apply(data.EffectSpec{Kind: data.EffectDamage, Value: 20}, a, tg, &effect.Context{BuffTick: true})
	require.NoError(t, err)
	assert.Equal(t, int32(20), res.Amount)
}

func TestLifestealReadsLastDamage(t *testing.T) {
	reg, _ := setup(t, 0, dice.Fixed(0.5))
	a, tg := pair()
	a.SetCurrentHP(50)

	cc := &effect.Context{}
	reg.ApplyAll([]data.EffectSpec{
		{Kind: data.EffectDamage, Value: 30},
		{Kind: data.EffectLifesteal, Ratio: 0.5},
	}, a, tg, cc)

	assert.Equal(t, int32(50), tg.CurrentHP())
	assert.Equal(t, int32(65), a.CurrentHP())
	assert.Equal(t, int32(15), cc.TotalHeal)
	assert.Equal(t, int32(30), cc.TotalDamage)
}

func TestHealAndResources(t *testing.T) {
	reg, _ := setup(t, 0, dice.Fixed(0.5))
	a, tg := pair()
	a.SetCurrentHP(90)
	a.SetCurrentQi(10)

	res, err := reg.Apply(data.EffectSpec{Kind: data.EffectHeal, Value: 50, Target: data.TargetSelf}, a, tg, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(10), res.Amount, "heal is capped at max HP")
	assert.Equal(t, "a", res.TargetID)

	res, err = reg.Apply(data.EffectSpec{Kind: data.EffectRestoreResource, Value: 25}, a, tg, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(25), res.Amount)
	assert.Equal(t, int32(35), a.CurrentQi())

	res, err = reg.Apply(data.EffectSpec{Kind: data.EffectResourceDrain, Value: 100}, a, tg, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(40), res.Amount)
	assert.Equal(t, int32(0), tg.CurrentQi())
}

func TestShieldAbsorbsDamage(t *testing.T) {
	reg, m := setup(t, 0, dice.Fixed(0.5))
	a, tg := pair()

	_, err := reg.Apply(data.EffectSpec{Kind: data.EffectShield, Value: 15, Name: "Golden Bell"}, tg, tg, nil)
	require.NoError(t, err)
	require.True(t, m.Has(tg, "Golden Bell"))

	cc := &effect.Context{}
	res, err := reg.Apply(data.EffectSpec{Kind: data.EffectDamage, Value: 20}, a, tg, cc)
	require.NoError(t, err)

	assert.Equal(t, int32(15), res.Absorbed)
	assert.Equal(t, int32(5), res.Amount)
	assert.Equal(t, int32(75), tg.CurrentHP())
	assert.False(t, m.Has(tg, "Golden Bell"))
}

func TestShieldRefreshTopsUpPool(t *testing.T) {
	reg, m := setup(t, 0, dice.Fixed(0.5))
	_, tg := pair()
	spec := data.EffectSpec{Kind: data.EffectShield, Value: 30, Name: "Bell"}

	_, err := reg.Apply(spec, tg, tg, nil)
	require.NoError(t, err)
	m.AbsorbShield(tg, 20)

	_, err = reg.Apply(spec, tg, tg, nil)
	require.NoError(t, err)
	assert.Len(t, tg.Buffs(), 1)
	assert.InDelta(t, 30, tg.BuffByName("Bell").Number(data.ExtraShield), 1e-9)
}

func TestControlEffects(t *testing.T) {
	reg, m := setup(t, 0, dice.Fixed(0.5))
	a, tg := pair()

	res, err := reg.Apply(data.EffectSpec{Kind: data.EffectStun}, a, tg, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.BuffID)
	assert.True(t, m.HasFlag(tg, data.ExtraStunned))
	assert.Equal(t, int32(1), tg.BuffByID(res.BuffID).Remaining)

	_, err = reg.Apply(data.EffectSpec{Kind: data.EffectSilence, Duration: 4, Name: "Sealed"}, a, tg, nil)
	require.NoError(t, err)
	assert.True(t, m.HasFlag(tg, data.ExtraSilenced))
	assert.Equal(t, int32(4), tg.BuffByName("Sealed").Remaining)
	assert.Equal(t, data.KindControl, tg.BuffByName("Sealed").Kind)
}

func TestStatModifierIsReversible(t *testing.T) {
	reg, m := setup(t, 0, dice.Fixed(0.5))
	a, tg := pair()

	res, err := reg.Apply(data.EffectSpec{Kind: data.EffectStatModifier, Stat: data.StatAgility, Value: -4, Duration: 2}, a, tg, nil)
	require.NoError(t, err)
	assert.InDelta(t, -4, tg.Stat(data.StatAgility), 1e-9)
	assert.Equal(t, data.KindDebuff, tg.BuffByID(res.BuffID).Kind)

	m.ReduceDurations(tg)
	m.ReduceDurations(tg)
	assert.InDelta(t, 0, tg.Stat(data.StatAgility), 1e-9)
}

func TestApplyBuff(t *testing.T) {
	reg, m := setup(t, 0, dice.Fixed(0.5))
	a, tg := pair()

	_, err := reg.Apply(data.EffectSpec{Kind: data.EffectApplyBuff}, a, tg, nil)
	assert.Error(t, err, "missing buff template")

	res, err := reg.Apply(data.EffectSpec{
		Kind:   data.EffectApplyBuff,
		Target: data.TargetSelf,
		Buff:   &data.BuffSpec{Name: "Focus", Duration: 2},
	}, a, tg, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", res.TargetID)
	assert.True(t, m.Has(a, "Focus"))
	assert.False(t, m.Has(tg, "Focus"))
}

func TestBuffHandlersWithoutManager(t *testing.T) {
	reg := effect.NewRegistry(effect.Deps{})
	a, tg := pair()

	_, err := reg.Apply(data.EffectSpec{Kind: data.EffectStun}, a, tg, nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, effect.ErrUnknownEffect)
}
