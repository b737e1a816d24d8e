package model

import "github.com/udisondev/qimud/internal/data"

// Buff is a timed modifier attached to a combatant.
// Created from a data.BuffSpec by the buff manager.
type Buff struct {
	ID       string
	Name     string
	Kind     data.BuffKind
	SourceID string

	Remaining int32 // rounds
	Stacks    int32
	MaxStacks int32
	StackMode data.StackMode

	Effects      []data.EffectSpec
	Trigger      data.Trigger
	TickInterval int32
	// TickCountdown counts matching trigger moments left until the next tick.
	TickCountdown int32

	// Extra holds non-numeric flags (silenced, stunned) and pools (shield).
	Extra map[string]any
}

// Flag reports whether Extra[key] is a true boolean.
func (b *Buff) Flag(key string) bool {
	v, ok := b.Extra[key].(bool)
	return ok && v
}

// Number returns Extra[key] as float64 (0 if absent or non-numeric).
func (b *Buff) Number(key string) float64 {
	switch v := b.Extra[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// SetNumber stores a numeric value in Extra.
func (b *Buff) SetNumber(key string, v float64) {
	if b.Extra == nil {
		b.Extra = make(map[string]any, 1)
	}
	b.Extra[key] = v
}
