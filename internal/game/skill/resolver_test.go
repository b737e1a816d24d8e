package skill

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/model"
)

func TestUseSkill_BasicAttack(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.5))

	out, err := f.resolver.UseSkill(context.Background(), Request{
		Actor:   f.attacker,
		Target:  f.target,
		SkillID: data.BasicAttackID,
	})
	require.NoError(t, err)

	assert.True(t, out.Hit)
	assert.False(t, out.Countered)
	assert.Equal(t, int32(20), out.Damage)
	assert.Equal(t, int32(60), f.target.CurrentHP())
	assert.Equal(t, int32(100), f.attacker.CurrentHP())
	assert.Equal(t, int32(1), f.attacker.Cooldown(data.BasicAttackID))

	want := "Lin hits Bo for 20 damage."
	assert.Equal(t, []string{want}, f.rec.For("a"))
	assert.Equal(t, []string{want}, f.rec.For("t"))
}

func TestUseSkill_CounterNegatesAndRetaliates(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.5))
	f.attacker.SetSkills([]model.SkillSlot{{SkillID: "heavy_blow", Level: 1}})
	f.target.SetSkills([]model.SkillSlot{{SkillID: "iron_riposte", Level: 1}})
	f.target.SetStat(data.StatCounterRate, 1)
	// the follow-up must not be countered back even with a certain counter
	f.attacker.SetStat(data.StatCounterRate, 1)

	out, err := f.resolver.UseSkill(context.Background(), Request{
		Actor:   f.attacker,
		Target:  f.target,
		SkillID: "heavy_blow",
	})
	require.NoError(t, err)

	assert.True(t, out.Countered)
	assert.False(t, out.Hit)
	assert.Zero(t, out.Damage)
	assert.Equal(t, int32(80), f.target.CurrentHP(), "the original attack deals nothing")

	require.NotNil(t, out.Counter)
	assert.True(t, out.Counter.CounterFollowUp)
	assert.True(t, out.Counter.Hit)
	assert.False(t, out.Counter.Countered)
	assert.Nil(t, out.Counter.Counter)
	assert.Equal(t, data.BasicAttackID, out.Counter.SkillID)
	assert.Equal(t, int32(80), f.attacker.CurrentHP(), "attacker takes counter damage")

	// nothing refunded
	assert.Equal(t, int32(90), f.attacker.CurrentQi())
	assert.Equal(t, int32(3), f.attacker.Cooldown("heavy_blow"))

	assert.Contains(t, f.rec.For("a"), "Bo rings like iron and answers with Basic Attack!")
}

func TestUseSkill_CounterDepthNeverExceedsOne(t *testing.T) {
	for seed := range uint64(50) {
		f := newFixture(t, quietCombat(), dice.New(seed))
		f.attacker.SetStat(data.StatCounterRate, 0.6)
		f.target.SetStat(data.StatCounterRate, 0.6)
		f.attacker.SetMaxHP(10000)
		f.attacker.SetCurrentHP(10000)
		f.target.SetMaxHP(10000)
		f.target.SetCurrentHP(10000)

		out, err := f.resolver.UseSkill(context.Background(), Request{
			Actor:   f.attacker,
			Target:  f.target,
			SkillID: data.BasicAttackID,
		})
		require.NoError(t, err)
		if out.Counter != nil {
			assert.Nil(t, out.Counter.Counter, "seed %d", seed)
			assert.False(t, out.Counter.Countered, "seed %d", seed)
		}
	}
}

func TestUseSkill_StunnedDefenderCannotCounter(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.5))
	f.target.SetStat(data.StatCounterRate, 1)
	f.buffs.AddBuff(f.target, data.BuffSpec{Name: "Stun", Kind: data.KindControl, Extra: map[string]any{data.ExtraStunned: true}}, "a", 1)

	out, err := f.resolver.UseSkill(context.Background(), Request{
		Actor:   f.attacker,
		Target:  f.target,
		SkillID: data.BasicAttackID,
	})
	require.NoError(t, err)
	assert.False(t, out.Countered)
	assert.Equal(t, int32(60), f.target.CurrentHP())
}

func TestUseSkill_UsabilityOrder(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.5))
	f.attacker.SetSkills([]model.SkillSlot{{SkillID: "blood_rite", Level: 1}})
	req := Request{Actor: f.attacker, Target: f.target, SkillID: "blood_rite"}

	f.attacker.SetCooldown("blood_rite", 2)
	f.attacker.SetCurrentQi(10)
	f.attacker.SetCurrentHP(50)

	_, err := f.resolver.UseSkill(context.Background(), req)
	assert.ErrorIs(t, err, ErrOnCooldown)

	f.attacker.SetCooldown("blood_rite", 0)
	_, err = f.resolver.UseSkill(context.Background(), req)
	assert.ErrorIs(t, err, ErrInsufficientQi)

	f.attacker.SetCurrentQi(100)
	_, err = f.resolver.UseSkill(context.Background(), req)
	assert.ErrorIs(t, err, ErrInsufficientHP, "HP equal to the cost is not enough")
	assert.True(t, IsUsageError(err))

	// failures spend nothing
	assert.Equal(t, int32(100), f.attacker.CurrentQi())
	assert.Equal(t, int32(50), f.attacker.CurrentHP())
	assert.Zero(t, f.attacker.Cooldown("blood_rite"))
	assert.Equal(t, int32(80), f.target.CurrentHP())
	assert.Len(t, f.rec.For("a"), 3)
	assert.Empty(t, f.rec.For("t"), "usage errors go to the actor only")

	f.attacker.SetCurrentHP(51)
	_, err = f.resolver.UseSkill(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.attacker.CurrentHP())
	assert.Equal(t, int32(50), f.attacker.CurrentQi())
	assert.Equal(t, int32(2), f.attacker.Cooldown("blood_rite"))
}

func TestUseSkill_UsageErrors(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.5))
	f.attacker.SetSkills([]model.SkillSlot{
		{SkillID: "iron_riposte", Level: 1},
		{SkillID: "ghost", Level: 1},
		{SkillID: "heavy_blow", Level: 1},
	})
	ctx := context.Background()

	_, err := f.resolver.UseSkill(ctx, Request{Actor: f.attacker, Target: f.target, SkillID: "thunder"})
	assert.ErrorIs(t, err, ErrUnknownSkill, "not learned")

	_, err = f.resolver.UseSkill(ctx, Request{Actor: f.attacker, Target: f.target, SkillID: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownSkill, "no template")

	_, err = f.resolver.UseSkill(ctx, Request{Actor: f.attacker, Target: f.target, SkillID: "iron_riposte"})
	assert.ErrorIs(t, err, ErrPassiveSkill)

	_, err = f.resolver.UseSkill(ctx, Request{Actor: f.attacker, SkillID: data.BasicAttackID})
	assert.ErrorIs(t, err, ErrNoTarget)

	f.buffs.AddBuff(f.attacker, data.BuffSpec{Name: "Sealed", Extra: map[string]any{data.ExtraSilenced: true}}, "t", 2)
	_, err = f.resolver.UseSkill(ctx, Request{Actor: f.attacker, Target: f.target, SkillID: "heavy_blow"})
	assert.ErrorIs(t, err, ErrSilenced)
	_, err = f.resolver.UseSkill(ctx, Request{Actor: f.attacker, Target: f.target, SkillID: data.BasicAttackID})
	assert.NoError(t, err, "basic attack is allowed while silenced")

	f.buffs.AddBuff(f.attacker, data.BuffSpec{Name: "Stun", Extra: map[string]any{data.ExtraStunned: true}}, "t", 1)
	f.attacker.ResetCooldowns()
	_, err = f.resolver.UseSkill(ctx, Request{Actor: f.attacker, Target: f.target, SkillID: data.BasicAttackID})
	assert.ErrorIs(t, err, ErrStunned)

	f.target.SetCurrentHP(0)
	_, err = f.resolver.UseSkill(ctx, Request{Actor: f.attacker, Target: f.target, SkillID: data.BasicAttackID})
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestUseSkill_Dodge(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.9))
	f.target.SetStat(data.StatDodgeRate, 0.5)

	out, err := f.resolver.UseSkill(context.Background(), Request{
		Actor:   f.attacker,
		Target:  f.target,
		SkillID: data.BasicAttackID,
	})
	require.NoError(t, err)

	assert.False(t, out.Hit)
	assert.Equal(t, int32(80), f.target.CurrentHP())
	assert.Equal(t, int32(1), f.attacker.Cooldown(data.BasicAttackID), "a miss still costs the cooldown")
	assert.Equal(t, []string{"Bo dodges."}, f.rec.For("a"))
}

func TestUseSkill_MinimumHitChance(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.04))
	f.target.SetStat(data.StatDodgeRate, 5)

	out, err := f.resolver.UseSkill(context.Background(), Request{
		Actor:   f.attacker,
		Target:  f.target,
		SkillID: data.BasicAttackID,
	})
	require.NoError(t, err)
	assert.True(t, out.Hit, "the 5% floor beats a 0.04 roll")
}

func TestUseSkill_Critical(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.5))
	f.attacker.SetStat(data.StatCritRate, 1)

	out, err := f.resolver.UseSkill(context.Background(), Request{
		Actor:   f.attacker,
		Target:  f.target,
		SkillID: data.BasicAttackID,
	})
	require.NoError(t, err)

	assert.True(t, out.Crit)
	assert.Equal(t, int32(40), out.Damage)
	assert.Equal(t, []string{"Lin crushes Bo for 40 damage!"}, f.rec.For("t"))
}

func TestUseSkill_SelfTargetedSkipsRolls(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.99))
	f.attacker.SetSkills([]model.SkillSlot{{SkillID: "meditate", Level: 1}})
	f.attacker.SetCurrentQi(0)
	f.attacker.SetCurrentHP(50)
	f.target.SetStat(data.StatDodgeRate, 1)
	f.target.SetStat(data.StatCounterRate, 1)

	out, err := f.resolver.UseSkill(context.Background(), Request{
		Actor:   f.attacker,
		Target:  f.target,
		SkillID: "meditate",
	})
	require.NoError(t, err)

	assert.True(t, out.Hit)
	assert.False(t, out.Countered)
	assert.Equal(t, int32(30), f.attacker.CurrentQi())
	assert.Equal(t, int32(60), f.attacker.CurrentHP())
	assert.Equal(t, int32(10), out.Heal)
	assert.Equal(t, []string{"Lin uses Meditate."}, f.rec.For("t"))
}

func TestUseSkill_TextTiming(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := quietCombat()
		cfg.TextTailDelay = 500 * time.Millisecond
		f := newFixture(t, cfg, dice.Fixed(0.5))
		f.attacker.SetSkills([]model.SkillSlot{{SkillID: "thunder", Level: 1}})

		start := time.Now()
		out, err := f.resolver.UseSkill(context.Background(), Request{
			Actor:   f.attacker,
			Target:  f.target,
			SkillID: "thunder",
		})
		require.NoError(t, err)
		require.True(t, out.Hit)

		assert.Equal(t, 2500*time.Millisecond, time.Since(start), "cast time plus tail delay")

		msgs := f.rec.Messages()
		var got []string
		var at []time.Duration
		for _, m := range msgs {
			if m.To != "a" {
				continue
			}
			got = append(got, m.Text)
			at = append(at, m.At.Sub(start))
		}
		assert.Equal(t, []string{"Lin raises a hand", "clouds gather", "thunder strikes Bo for 10"}, got)
		assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second}, at)
	})
}

func TestUseSkill_CancelledDuringCast(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, quietCombat(), dice.Fixed(0.5))
		f.attacker.SetSkills([]model.SkillSlot{{SkillID: "thunder", Level: 1}})

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(time.Second, cancel)

		_, err := f.resolver.UseSkill(ctx, Request{
			Actor:   f.attacker,
			Target:  f.target,
			SkillID: "thunder",
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(80), f.target.CurrentHP(), "no effects after cancellation")
	})
}

func TestUseSkill_ReleasesTurnWhileWaiting(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, quietCombat(), dice.Fixed(0.5))
		f.attacker.SetSkills([]model.SkillSlot{{SkillID: "thunder", Level: 1}})

		var turn sync.Mutex
		done := make(chan struct{})
		f.resolver.UseSkillAsync(context.Background(), Request{
			Actor:   f.attacker,
			Target:  f.target,
			SkillID: "thunder",
			Turn:    &turn,
		}, func(out *Outcome, err error) {
			assert.NoError(t, err)
			close(done)
		})

		time.Sleep(time.Second)
		synctest.Wait()
		require.True(t, turn.TryLock(), "turn is free during the cast")
		turn.Unlock()

		<-done
		assert.Equal(t, int32(70), f.target.CurrentHP())
	})
}
