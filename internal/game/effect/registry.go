package effect

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/model"
)

// Deps are the collaborators of the built-in handlers.
type Deps struct {
	Buffs Buffs
	Rand  dice.Rand
	// DamageVariance is the ± band applied to skill damage (0.1 = ±10%).
	DamageVariance float64
}

// Registry хранит обработчики эффектов по kind. Новые kinds добавляются через Register.
// Safe for concurrent use; handlers may be registered at any time.
type Registry struct {
	mu       sync.RWMutex
	handlers map[data.EffectKind]Handler

	deps Deps
}

// NewRegistry creates a registry with all built-in kinds registered.
func NewRegistry(deps Deps) *Registry {
	if deps.Rand == nil {
		deps.Rand = dice.Default()
	}
	r := &Registry{
		handlers: make(map[data.EffectKind]Handler, 12),
		deps:     deps,
	}

	r.Register(data.EffectDamage, r.damage)
	r.Register(data.EffectHeal, r.heal)
	r.Register(data.EffectRestoreResource, r.restoreResource)
	r.Register(data.EffectLifesteal, r.lifesteal)
	r.Register(data.EffectResourceDrain, r.drainResource)
	r.Register(data.EffectStatModifier, r.statModifier)
	r.Register(data.EffectApplyBuff, r.applyBuff)
	r.Register(data.EffectShield, r.shield)
	r.Register(data.EffectSilence, r.control(data.ExtraSilenced, "Silence", 2))
	r.Register(data.EffectStun, r.control(data.ExtraStunned, "Stun", 1))

	return r
}

// Register adds or replaces the handler for kind.
func (r *Registry) Register(kind data.EffectKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Has reports whether kind has a handler.
func (r *Registry) Has(kind data.EffectKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []data.EffectKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}

// Apply runs the handler for spec.Kind. Self-targeted specs are redirected
// to the attacker. An unknown kind is logged and returns ErrUnknownEffect;
// the caller is expected to skip it and continue.
func (r *Registry) Apply(spec data.EffectSpec, attacker, target *model.Combatant, cc *Context) (Result, error) {
	r.mu.RLock()
	h, ok := r.handlers[spec.Kind]
	r.mu.RUnlock()

	if !ok {
		slog.Warn("skipping unknown effect kind",
			"kind", spec.Kind,
			"attacker", attacker.ID())
		return Result{}, fmt.Errorf("effect %q: %w", spec.Kind, ErrUnknownEffect)
	}

	if spec.AppliesToSelf() || target == nil {
		target = attacker
	}
	if cc == nil {
		cc = &Context{Attacker: attacker, Target: target}
	}

	res, err := h(spec, attacker, target, cc)
	if err != nil {
		return res, fmt.Errorf("effect %q: %w", spec.Kind, err)
	}
	if res.Kind == "" {
		res.Kind = spec.Kind
	}
	return res, nil
}

// ApplyAll runs specs in order, skipping failed ones.
func (r *Registry) ApplyAll(specs []data.EffectSpec, attacker, target *model.Combatant, cc *Context) []Result {
	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		res, err := r.Apply(spec, attacker, target, cc)
		if err != nil {
			if !errors.Is(err, ErrUnknownEffect) {
				slog.Warn("effect failed", "kind", spec.Kind, "attacker", attacker.ID(), "error", err)
			}
			continue
		}
		results = append(results, res)
	}
	return results
}
