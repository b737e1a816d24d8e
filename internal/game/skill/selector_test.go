package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/model"
)

func TestSelector_FallsBackToBasicAttack(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.5))
	s := f.resolver.Selector()
	c := f.attacker

	assert.Equal(t, data.BasicAttackID, s.Choose(c), "no skills known")

	c.SetSkills([]model.SkillSlot{
		{SkillID: "iron_riposte", Level: 1}, // passive
		{SkillID: "heavy_blow", Level: 1},   // on cooldown
		{SkillID: "blood_rite", Level: 1},   // too expensive
	})
	c.SetCooldown("heavy_blow", 2)
	c.SetCurrentQi(20)

	assert.Empty(t, s.Usable(c))
	assert.Equal(t, data.BasicAttackID, s.Choose(c))
	assert.Equal(t, data.BasicAttackID, s.ChooseCounter(c))
}

func TestSelector_WeightedPick(t *testing.T) {
	catalog, err := data.NewCatalog([]data.SkillTemplate{
		{ID: "light", Weight: 1, CounterWeight: 3},
		{ID: "heavy", Weight: 3, CounterWeight: 1},
	})
	assert.NoError(t, err)

	c := model.NewCombatant("c", "C", 1, 100, 100)
	c.SetSkills([]model.SkillSlot{{SkillID: "light", Level: 1}, {SkillID: "heavy", Level: 1}})

	// rolls are scaled by the total weight of 4
	s := NewSelector(catalog, nil, dice.Fixed(0.2))
	assert.Equal(t, "light", s.Choose(c))
	assert.Equal(t, "light", s.ChooseCounter(c))

	s = NewSelector(catalog, nil, dice.Fixed(0.5))
	assert.Equal(t, "heavy", s.Choose(c))
	assert.Equal(t, "light", s.ChooseCounter(c))
}

func TestSelector_SilencedUsesBasicAttack(t *testing.T) {
	f := newFixture(t, quietCombat(), dice.Fixed(0.5))
	c := f.attacker
	c.SetSkills([]model.SkillSlot{{SkillID: "heavy_blow", Level: 1}})

	assert.Equal(t, "heavy_blow", f.resolver.Selector().Choose(c))

	f.buffs.AddBuff(c, data.BuffSpec{Name: "Sealed", Extra: map[string]any{data.ExtraSilenced: true}}, "t", 2)
	assert.Equal(t, data.BasicAttackID, f.resolver.Selector().Choose(c))
}
