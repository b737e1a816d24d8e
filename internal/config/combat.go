package config

import (
	"errors"
	"time"
)

// Combat holds the timing and balance values of the combat engine.
// Every number here is tuning, not structure.
type Combat struct {
	InitialDelay  time.Duration `yaml:"initial_delay"`   // before the first tick (default: 1s)
	TurnInterval  time.Duration `yaml:"turn_interval"`   // between ticks (default: 2s)
	TextTailDelay time.Duration `yaml:"text_tail_delay"` // after the last narrative line (default: 500ms)
	MaxRounds     int32         `yaml:"max_rounds"`

	CritChance     float64 `yaml:"critical_chance"`
	CritMultiplier float64 `yaml:"critical_multiplier"`
	DamageVariance float64 `yaml:"damage_variance"`
	MinHitChance   float64 `yaml:"min_hit_chance"`

	// FleeChance is the probability that a flee attempt succeeds.
	FleeChance float64 `yaml:"flee_chance"`

	Counter Counter `yaml:"counter"`
	Rewards Rewards `yaml:"rewards"`

	// ClearBuffsOnEnd removes every buff from both combatants when a
	// session ends. Cooldowns and round counters are always cleared.
	ClearBuffsOnEnd bool `yaml:"clear_buffs_on_end"`
}

// Counter holds the pre-hit counter-attack coefficients:
//
//	base + skill chance + counter_rate + level_diff*LevelDiffBonus + agility*AgilityBonus
//
// clamped to [0, MaxRate].
type Counter struct {
	BaseRate       float64 `yaml:"base_rate"`
	LevelDiffBonus float64 `yaml:"level_diff_bonus"`
	AgilityBonus   float64 `yaml:"agility_bonus"`
	MaxRate        float64 `yaml:"max_rate"`
}

// Rewards holds the victory reward formula: per_level * loser level,
// multiplied by a uniform roll in [1-variance, 1+variance].
type Rewards struct {
	ExpPerLevel  float64 `yaml:"exp_per_level"`
	ExpVariance  float64 `yaml:"exp_variance"`
	GoldPerLevel float64 `yaml:"gold_per_level"`
	GoldVariance float64 `yaml:"gold_variance"`
}

// DefaultCombat returns the stock balance values.
func DefaultCombat() Combat {
	return Combat{
		InitialDelay:   1 * time.Second,
		TurnInterval:   2 * time.Second,
		TextTailDelay:  500 * time.Millisecond,
		MaxRounds:      100,
		CritChance:     0.05,
		CritMultiplier: 2.0,
		DamageVariance: 0.1,
		MinHitChance:   0.05,
		FleeChance:     0.5,
		Counter: Counter{
			BaseRate:       0,
			LevelDiffBonus: 0.01,
			AgilityBonus:   0.001,
			MaxRate:        0.5,
		},
		Rewards: Rewards{
			ExpPerLevel:  10,
			ExpVariance:  0.1,
			GoldPerLevel: 5,
			GoldVariance: 0.2,
		},
		ClearBuffsOnEnd: true,
	}
}

// Validate rejects values the engine cannot run with.
func (c Combat) Validate() error {
	var errs []error
	if c.InitialDelay < 0 || c.TurnInterval < 0 || c.TextTailDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if c.MaxRounds <= 0 {
		errs = append(errs, errors.New("max_rounds must be positive"))
	}
	if c.CritMultiplier < 1 {
		errs = append(errs, errors.New("critical_multiplier must be at least 1"))
	}
	if c.DamageVariance < 0 || c.DamageVariance >= 1 {
		errs = append(errs, errors.New("damage_variance must be in [0, 1)"))
	}
	if c.MinHitChance < 0 || c.MinHitChance > 1 {
		errs = append(errs, errors.New("min_hit_chance must be in [0, 1]"))
	}
	if c.FleeChance < 0 || c.FleeChance > 1 {
		errs = append(errs, errors.New("flee_chance must be in [0, 1]"))
	}
	if c.Counter.MaxRate < 0 || c.Counter.MaxRate > 1 {
		errs = append(errs, errors.New("counter.max_rate must be in [0, 1]"))
	}
	return errors.Join(errs...)
}
