package skill

import (
	"log/slog"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/model"
)

// Catalog resolves a skill id and level into an instance.
// Implemented by data.Catalog.
type Catalog interface {
	Skill(id string, level int32) (*data.SkillInstance, error)
}

// Flags answers control-flag queries. Implemented by buff.Manager.
type Flags interface {
	HasFlag(c *model.Combatant, flag string) bool
}

// Selector picks skills for automatic turns and counter follow-ups.
type Selector struct {
	catalog Catalog
	flags   Flags
	rng     dice.Rand
}

// NewSelector creates a selector. flags may be nil.
func NewSelector(catalog Catalog, flags Flags, rng dice.Rand) *Selector {
	if rng == nil {
		rng = dice.Default()
	}
	return &Selector{catalog: catalog, flags: flags, rng: rng}
}

// Usable returns the known active skills of c that are off cooldown and
// affordable right now, in the order c lists them.
func (s *Selector) Usable(c *model.Combatant) []*data.SkillInstance {
	var out []*data.SkillInstance
	for _, slot := range c.Skills() {
		if slot.SkillID == data.BasicAttackID {
			continue
		}
		inst, err := s.catalog.Skill(slot.SkillID, slot.Level)
		if err != nil {
			slog.Warn("known skill has no template", "combatant", c.ID(), "skill", slot.SkillID)
			continue
		}
		if inst.Passive || c.Cooldown(inst.ID) > 0 {
			continue
		}
		if !affordable(c, inst) {
			continue
		}
		out = append(out, inst)
	}
	return out
}

// Choose picks the skill for c's turn: a weighted-random usable skill,
// or the basic attack when none is usable or c is silenced.
func (s *Selector) Choose(c *model.Combatant) string {
	return s.pick(c, func(inst *data.SkillInstance) float64 { return inst.Weight })
}

// ChooseCounter picks the follow-up skill of a counter-attack, weighted by
// each skill's counter weight.
func (s *Selector) ChooseCounter(c *model.Combatant) string {
	return s.pick(c, func(inst *data.SkillInstance) float64 { return inst.CounterWeight })
}

func (s *Selector) pick(c *model.Combatant, weight func(*data.SkillInstance) float64) string {
	if s.flags != nil && s.flags.HasFlag(c, data.ExtraSilenced) {
		return data.BasicAttackID
	}

	usable := s.Usable(c)
	if len(usable) == 0 {
		return data.BasicAttackID
	}

	weights := make([]float64, len(usable))
	for i, inst := range usable {
		weights[i] = weight(inst)
	}
	i := dice.Weighted(s.rng, weights)
	if i < 0 {
		return data.BasicAttackID
	}
	return usable[i].ID
}

// counterTrigger returns the trigger lines of the first passive skill of c
// that defines them.
func (s *Selector) counterTrigger(c *model.Combatant) []data.TextLine {
	for _, slot := range c.Skills() {
		inst, err := s.catalog.Skill(slot.SkillID, slot.Level)
		if err != nil || !inst.Passive {
			continue
		}
		if len(inst.Text.Trigger) > 0 {
			return inst.Text.Trigger
		}
	}
	return nil
}

func affordable(c *model.Combatant, inst *data.SkillInstance) bool {
	if inst.CostQi > 0 && c.CurrentQi() < inst.CostQi {
		return false
	}
	if inst.CostHP > 0 && c.CurrentHP() <= inst.CostHP {
		return false
	}
	return true
}
