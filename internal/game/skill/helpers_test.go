package skill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/qimud/internal/config"
	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/buff"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/game/effect"
	"github.com/udisondev/qimud/internal/message"
	"github.com/udisondev/qimud/internal/model"
)

func acc(v float64) *float64 { return &v }

func testTemplates() []data.SkillTemplate {
	return []data.SkillTemplate{
		{
			ID:       data.BasicAttackID,
			Name:     "Basic Attack",
			Cooldown: 1,
			Accuracy: acc(1),
			Effects:  []data.EffectSpec{{Kind: data.EffectDamage, Value: 20}},
			Text: data.BattleText{
				Hit:      []data.TextLine{{Text: "{caster} hits {target} for {damage} damage."}},
				Critical: []data.TextLine{{Text: "{caster} crushes {target} for {damage} damage!"}},
				Dodge:    []data.TextLine{{Text: "{target} dodges."}},
			},
		},
		{
			ID:       "heavy_blow",
			Name:     "Heavy Blow",
			Cooldown: 3,
			CostQi:   10,
			Accuracy: acc(1),
			Effects:  []data.EffectSpec{{Kind: data.EffectDamage, Value: 30}},
		},
		{
			ID:       "blood_rite",
			Name:     "Blood Rite",
			Cooldown: 2,
			CostQi:   50,
			CostHP:   50,
			Accuracy: acc(1),
			Effects:  []data.EffectSpec{{Kind: data.EffectDamage, Value: 5}},
		},
		{
			ID:       "thunder",
			Name:     "Thunder",
			CastTime: 2 * time.Second,
			Accuracy: acc(1),
			Effects:  []data.EffectSpec{{Kind: data.EffectDamage, Value: 10}},
			Text: data.BattleText{
				Cast: []data.TextLine{
					{Text: "clouds gather", DelayPercent: 50},
					{Text: "{caster} raises a hand", DelayPercent: 0},
				},
				Hit: []data.TextLine{{Text: "thunder strikes {target} for {damage}"}},
			},
		},
		{
			ID:       "meditate",
			Name:     "Meditate",
			Accuracy: acc(0.01),
			Effects: []data.EffectSpec{
				{Kind: data.EffectRestoreResource, Value: 30},
				{Kind: data.EffectHeal, Value: 10, Target: data.TargetSelf},
			},
		},
		{
			ID:   "iron_riposte",
			Name: "Iron Riposte",
			Type: data.SkillPassive,
			Text: data.BattleText{
				Trigger: []data.TextLine{{Text: "{caster} rings like iron and answers with {skill}!"}},
			},
		},
	}
}

// quietCombat disables every random element and every delay.
func quietCombat() config.Combat {
	cfg := config.DefaultCombat()
	cfg.CritChance = 0
	cfg.DamageVariance = 0
	cfg.TextTailDelay = 0
	cfg.Counter = config.Counter{MaxRate: 1}
	return cfg
}

type fixture struct {
	resolver *Resolver
	buffs    *buff.Manager
	rec      *message.Recorder
	attacker *model.Combatant
	target   *model.Combatant
}

func newFixture(t *testing.T, cfg config.Combat, rng dice.Rand) *fixture {
	t.Helper()

	catalog, err := data.NewCatalog(testTemplates())
	require.NoError(t, err)

	rec := message.NewRecorder()
	buffs := buff.NewManager(rec)
	effects := effect.NewRegistry(effect.Deps{Buffs: buffs, Rand: rng, DamageVariance: cfg.DamageVariance})
	buffs.SetApplier(effects)

	r := NewResolver(cfg, Deps{
		Catalog: catalog,
		Effects: effects,
		Flags:   buffs,
		Sink:    rec,
		Rand:    rng,
	})

	attacker := model.NewCombatant("a", "Lin", 1, 100, 100)
	target := model.NewCombatant("t", "Bo", 1, 80, 80)

	return &fixture{resolver: r, buffs: buffs, rec: rec, attacker: attacker, target: target}
}
