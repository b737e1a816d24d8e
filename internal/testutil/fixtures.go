package testutil

import (
	"testing"

	"github.com/udisondev/qimud/internal/config"
	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/model"
)

// FighterOption tweaks a fixture combatant.
type FighterOption func(*model.Combatant)

// WithLevel sets the combatant level.
func WithLevel(level int32) FighterOption {
	return func(c *model.Combatant) { c.SetLevel(level) }
}

// Fighter returns a level 1 combatant with 100 HP and 100 Qi.
func Fighter(id, name string, opts ...FighterOption) *model.Combatant {
	c := model.NewCombatant(id, name, 1, 100, 100)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the embedded default skill catalog.
func Catalog(tb testing.TB) *data.Catalog {
	tb.Helper()
	c, err := data.DefaultCatalog()
	if err != nil {
		tb.Fatalf("loading default catalog: %v", err)
	}
	return c
}

// FastCombat returns combat settings without delays, critical hits,
// damage variance or counter-attacks.
func FastCombat() config.Combat {
	cfg := config.DefaultCombat()
	cfg.InitialDelay = 0
	cfg.TurnInterval = 0
	cfg.TextTailDelay = 0
	cfg.CritChance = 0
	cfg.DamageVariance = 0
	cfg.Counter = config.Counter{}
	return cfg
}
