package data

import (
	"math"
	"time"
)

// BasicAttackID is the universal fallback skill every combatant can use.
const BasicAttackID = "basic_attack"

// SkillType определяет тип активации скилла.
type SkillType string

const (
	SkillActive  SkillType = "active" // default
	SkillPassive SkillType = "passive"
)

// DefaultAccuracy is used when a template leaves accuracy unset.
const DefaultAccuracy = 0.9

// TextLine is one narrative line shown at DelayPercent of the cast time.
// Text may contain {caster}, {target}, {damage} and {heal} placeholders.
type TextLine struct {
	Text         string  `yaml:"text"`
	DelayPercent float64 `yaml:"delay_percent"`
}

// BattleText groups narrative lines by the moment they describe.
type BattleText struct {
	Cast      []TextLine `yaml:"cast"`
	Hit       []TextLine `yaml:"hit"`
	Critical  []TextLine `yaml:"critical"`
	Dodge     []TextLine `yaml:"dodge"`
	Countered []TextLine `yaml:"countered"`
	// Trigger is shown by the defender when it counters with this skill.
	Trigger []TextLine `yaml:"trigger"`
}

// Formula scales one numeric skill stat with the skill level.
//
//	grow > 0:  base * (1+grow)^level
//	otherwise: base + level*per_level
//
// The result is clamped to [Min, Max] when those are set.
type Formula struct {
	Base     float64  `yaml:"base"`
	PerLevel float64  `yaml:"per_level"`
	Grow     float64  `yaml:"grow"`
	Min      *float64 `yaml:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty"`
}

// Eval computes the formula for the given level.
func (f Formula) Eval(level int32) float64 {
	var v float64
	switch {
	case f.Grow > 0:
		v = f.Base * math.Pow(1+f.Grow, float64(level))
	case f.PerLevel != 0:
		v = f.Base + float64(level)*f.PerLevel
	default:
		v = f.Base
	}
	if f.Min != nil {
		v = math.Max(v, *f.Min)
	}
	if f.Max != nil {
		v = math.Min(v, *f.Max)
	}
	return v
}

// integerStats are floored after scaling.
var integerStats = map[string]bool{
	"cooldown":    true,
	"cost_qi":     true,
	"cost_hp":     true,
	"damage":      true,
	"tick_damage": true,
}

// SkillTemplate is an immutable skill template loaded from YAML.
// Shared by every combatant that knows the skill; never modified after loading.
type SkillTemplate struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Type     SkillType `yaml:"type"`
	MaxLevel int32     `yaml:"max_level"`

	// Weight biases the automatic turn selection. 0 means 1.
	Weight float64 `yaml:"weight"`
	// CounterWeight biases selection of this skill as a counter follow-up. 0 means 1.
	CounterWeight float64 `yaml:"counter_weight"`

	CastTime time.Duration `yaml:"cast_time"`
	Cooldown int32         `yaml:"cooldown"` // rounds
	CostQi   int32         `yaml:"cost_qi"`
	CostHP   int32         `yaml:"cost_hp"`

	Accuracy      *float64           `yaml:"accuracy,omitempty"`
	AccuracyScale map[string]float64 `yaml:"accuracy_scale,omitempty"`
	CritBonus     float64            `yaml:"crit_bonus"`
	CounterChance float64            `yaml:"counter_chance"`

	Effects      []EffectSpec       `yaml:"effects"`
	Text         BattleText         `yaml:"battle_text"`
	LevelFormula map[string]Formula `yaml:"level_formula,omitempty"`
}

// IsPassive returns true if this skill is never used actively.
func (s *SkillTemplate) IsPassive() bool {
	return s.Type == SkillPassive
}

// SkillInstance is the level-resolved view of a SkillTemplate.
// Each call to Catalog.Skill returns a fresh instance that the caller owns.
type SkillInstance struct {
	ID            string
	Name          string
	Level         int32
	Passive       bool
	Weight        float64
	CounterWeight float64

	CastTime time.Duration
	Cooldown int32
	CostQi   int32
	CostHP   int32

	Accuracy      float64
	AccuracyScale map[Stat]float64
	CritBonus     float64
	CounterChance float64

	Effects []EffectSpec
	Text    BattleText

	// Scaled holds every level-formula value, including ones only
	// referenced by effects.
	Scaled map[string]float64
}

// Instance resolves the template at the given level.
// Level is clamped to [1, MaxLevel].
func (s *SkillTemplate) Instance(level int32) *SkillInstance {
	level = max(level, 1)
	if s.MaxLevel > 0 {
		level = min(level, s.MaxLevel)
	}

	inst := &SkillInstance{
		ID:            s.ID,
		Name:          s.Name,
		Level:         level,
		Passive:       s.IsPassive(),
		Weight:        positiveOr(s.Weight, 1),
		CounterWeight: positiveOr(s.CounterWeight, 1),
		CastTime:      s.CastTime,
		Cooldown:      s.Cooldown,
		CostQi:        s.CostQi,
		CostHP:        s.CostHP,
		Accuracy:      DefaultAccuracy,
		AccuracyScale: make(map[Stat]float64, len(s.AccuracyScale)),
		CritBonus:     s.CritBonus,
		CounterChance: s.CounterChance,
		Text:          s.Text,
		Scaled:        make(map[string]float64, len(s.LevelFormula)),
	}
	if s.Accuracy != nil {
		inst.Accuracy = *s.Accuracy
	}
	for name, ratio := range s.AccuracyScale {
		if st, ok := ParseStat(name); ok {
			inst.AccuracyScale[st] = ratio
		}
	}

	for name, f := range s.LevelFormula {
		v := f.Eval(level)
		if integerStats[name] {
			v = math.Floor(v)
		}
		inst.Scaled[name] = v

		switch name {
		case "cooldown":
			inst.Cooldown = int32(v)
		case "cost_qi":
			inst.CostQi = int32(v)
		case "cost_hp":
			inst.CostHP = int32(v)
		case "cast_time":
			inst.CastTime = time.Duration(v * float64(time.Second))
		case "accuracy":
			inst.Accuracy = v
		case "crit_bonus":
			inst.CritBonus = v
		case "counter_chance":
			inst.CounterChance = v
		}
	}

	inst.Effects = resolveEffects(s.Effects, inst.Scaled)
	return inst
}

// resolveEffects deep-copies specs, substituting Scaled references.
func resolveEffects(specs []EffectSpec, scaled map[string]float64) []EffectSpec {
	if len(specs) == 0 {
		return nil
	}
	out := make([]EffectSpec, len(specs))
	for i, spec := range specs {
		if spec.Scaled != "" {
			if v, ok := scaled[spec.Scaled]; ok {
				spec.Value = v
			}
		}
		if spec.Buff != nil {
			b := *spec.Buff
			b.Effects = resolveEffects(b.Effects, scaled)
			spec.Buff = &b
		}
		out[i] = spec
	}
	return out
}

func positiveOr(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
