// Package buff manages timed modifiers attached to combatants: stacking,
// periodic ticks, duration countdown and stat-modifier reversal.
package buff

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/effect"
	"github.com/udisondev/qimud/internal/message"
	"github.com/udisondev/qimud/internal/model"
)

// Applier executes the periodic effects of a buff.
// Implemented by effect.Registry.
type Applier interface {
	Apply(spec data.EffectSpec, attacker, target *model.Combatant, cc *effect.Context) (effect.Result, error)
}

// Manager owns the buff lists of combatants.
// It keeps no per-combatant state of its own; all records live on
// model.Combatant and are mutated only by whoever holds the turn.
type Manager struct {
	sink    message.Sink
	applier Applier
	sources SourceLookup
	newID   func() string
}

// SourceLookup finds the combatant that applied a buff to holder.
// It returns nil when the source is gone or out of reach.
type SourceLookup func(holder *model.Combatant, sourceID string) *model.Combatant

// NewManager creates a buff manager that notifies holders via sink.
// The effect applier is bound later with SetApplier because the effect
// registry itself depends on the manager.
func NewManager(sink message.Sink) *Manager {
	if sink == nil {
		sink = message.Discard
	}
	return &Manager{
		sink:  sink,
		newID: uuid.NewString,
	}
}

// SetApplier binds the effect registry used for ticks.
func (m *Manager) SetApplier(a Applier) {
	m.applier = a
}

// SetSourceLookup binds the lookup used to find who applied a ticking buff.
func (m *Manager) SetSourceLookup(l SourceLookup) {
	m.sources = l
}

// AddBuff attaches spec to target or combines it with an existing buff of
// the same name according to its stack mode. duration > 0 overrides the
// template duration. Returns the id of the resulting buff.
func (m *Manager) AddBuff(target *model.Combatant, spec data.BuffSpec, sourceID string, duration int32) string {
	spec = spec.Normalized()
	if duration <= 0 {
		duration = spec.Duration
	}

	if existing := target.BuffByName(spec.Name); existing != nil {
		switch existing.StackMode {
		case data.StackRefresh:
			existing.Remaining = duration
			existing.TickCountdown = existing.TickInterval
			m.notify(target, existing, fmt.Sprintf("%s is refreshed.", existing.Name))
			return existing.ID

		case data.StackAdd:
			existing.Remaining = duration
			if existing.Stacks < existing.MaxStacks {
				existing.Stacks++
				applyStatModifiers(target, existing, 1)
				m.notify(target, existing, fmt.Sprintf("%s stacks to %d.", existing.Name, existing.Stacks))
			} else {
				m.notify(target, existing, fmt.Sprintf("%s is already at maximum stacks.", existing.Name))
			}
			return existing.ID

		case data.StackReplace:
			m.RemoveBuff(target, existing.ID)
		}
	}

	b := &model.Buff{
		ID:            m.newID(),
		Name:          spec.Name,
		Kind:          spec.Kind,
		SourceID:      sourceID,
		Remaining:     duration,
		Stacks:        1,
		MaxStacks:     spec.MaxStacks,
		StackMode:     spec.StackMode,
		Effects:       slices.Clone(spec.Effects),
		Trigger:       spec.Trigger,
		TickInterval:  spec.TickInterval,
		TickCountdown: spec.TickInterval,
		Extra:         maps.Clone(spec.Extra),
	}

	target.AttachBuff(b)
	applyStatModifiers(target, b, 1)

	m.notify(target, b, fmt.Sprintf("%s takes effect for %d rounds.", b.Name, b.Remaining))
	slog.Debug("buff added",
		"target", target.ID(),
		"buff", b.Name,
		"id", b.ID,
		"source", sourceID)

	return b.ID
}

// RemoveBuff detaches the buff and reverses its stat modifiers.
// Returns false if the id is unknown.
func (m *Manager) RemoveBuff(target *model.Combatant, buffID string) bool {
	b := target.DetachBuff(buffID)
	if b == nil {
		return false
	}

	applyStatModifiers(target, b, -b.Stacks)
	m.notify(target, b, fmt.Sprintf("%s wears off.", b.Name))
	slog.Debug("buff removed", "target", target.ID(), "buff", b.Name, "id", b.ID)
	return true
}

// Tick fires every buff whose trigger matches moment and whose countdown
// has elapsed. Damage and restoration values are multiplied by stacks.
// The manager never ends combat; lethal ticks leave HP at zero.
func (m *Manager) Tick(target *model.Combatant, moment data.Trigger) []effect.Result {
	var results []effect.Result

	for _, b := range target.Buffs() {
		if b.Trigger != moment {
			continue
		}
		// an earlier tick may have removed it (a broken shield)
		if target.BuffByID(b.ID) == nil {
			continue
		}

		b.TickCountdown--
		if b.TickCountdown > 0 {
			continue
		}
		b.TickCountdown = b.TickInterval

		results = append(results, m.execute(target, b)...)
	}

	return results
}

func (m *Manager) execute(target *model.Combatant, b *model.Buff) []effect.Result {
	if m.applier == nil {
		return nil
	}

	attacker := m.source(target, b)
	cc := &effect.Context{
		Attacker: attacker,
		Target:   target,
		Hit:      true,
		BuffTick: true,
		Buff:     b,
	}

	var results []effect.Result
	for _, spec := range b.Effects {
		switch spec.Kind {
		case data.EffectStatModifier:
			continue
		case data.EffectDamage, data.EffectHeal, data.EffectRestoreResource, data.EffectResourceDrain:
			spec.Value *= float64(b.Stacks)
		}
		// ticks always land on the holder
		spec.Target = data.TargetEnemy

		res, err := m.applier.Apply(spec, attacker, target, cc)
		if err != nil {
			continue
		}
		results = append(results, res)

		switch res.Kind {
		case data.EffectDamage:
			m.sink.Send(target.ID(), fmt.Sprintf("%s deals %d damage to you.", b.Name, res.Amount))
		case data.EffectHeal:
			m.sink.Send(target.ID(), fmt.Sprintf("%s restores %d health.", b.Name, res.Amount))
		case data.EffectRestoreResource:
			m.sink.Send(target.ID(), fmt.Sprintf("%s restores %d qi.", b.Name, res.Amount))
		}
	}
	return results
}

// source is the combatant whose stats scale the tick: whoever applied the
// buff, or the holder itself when that one is unknown.
func (m *Manager) source(holder *model.Combatant, b *model.Buff) *model.Combatant {
	if m.sources == nil || b.SourceID == "" || b.SourceID == holder.ID() {
		return holder
	}
	if c := m.sources(holder, b.SourceID); c != nil {
		return c
	}
	return holder
}

// ReduceDurations decrements every buff by one round and removes expired
// ones. Returns the names of the removed buffs.
func (m *Manager) ReduceDurations(target *model.Combatant) []string {
	var expired []string
	for _, b := range target.Buffs() {
		b.Remaining--
		if b.Remaining > 0 {
			continue
		}
		if m.RemoveBuff(target, b.ID) {
			expired = append(expired, b.Name)
		}
	}
	return expired
}

// ClearAll removes every buff, or only those of the given kinds.
// Returns the number removed.
func (m *Manager) ClearAll(target *model.Combatant, kinds ...data.BuffKind) int {
	var n int
	for _, b := range target.Buffs() {
		if len(kinds) > 0 && !slices.Contains(kinds, b.Kind) {
			continue
		}
		if m.RemoveBuff(target, b.ID) {
			n++
		}
	}
	return n
}

// Has reports whether target carries a buff with this name.
func (m *Manager) Has(target *model.Combatant, name string) bool {
	return target.BuffByName(name) != nil
}

// Stacks returns the stack count of the named buff, or 0.
func (m *Manager) Stacks(target *model.Combatant, name string) int32 {
	if b := target.BuffByName(name); b != nil {
		return b.Stacks
	}
	return 0
}

// HasFlag reports whether any buff on target carries the extra-data flag.
func (m *Manager) HasFlag(target *model.Combatant, flag string) bool {
	for _, b := range target.Buffs() {
		if b.Flag(flag) {
			return true
		}
	}
	return false
}

// AbsorbShield drains shield pools by up to damage and returns the amount
// absorbed. A pool reaching zero removes its buff.
func (m *Manager) AbsorbShield(target *model.Combatant, damage int32) int32 {
	var absorbed int32
	for _, b := range target.Buffs() {
		if damage-absorbed <= 0 {
			break
		}
		pool := int32(b.Number(data.ExtraShield))
		if pool <= 0 {
			continue
		}

		take := min(pool, damage-absorbed)
		absorbed += take
		pool -= take
		b.SetNumber(data.ExtraShield, float64(pool))

		if pool <= 0 {
			m.sink.Send(target.ID(), fmt.Sprintf("%s shatters!", b.Name))
			m.RemoveBuff(target, b.ID)
		}
	}
	return absorbed
}

// applyStatModifiers adds every stat-modifier effect times factor.
// factor is +1 per stack gained and -stacks on removal.
func applyStatModifiers(target *model.Combatant, b *model.Buff, factor int32) {
	for _, e := range b.Effects {
		if e.Kind != data.EffectStatModifier {
			continue
		}
		target.AddStat(e.Stat, e.Value*float64(factor))
	}
}

func (m *Manager) notify(target *model.Combatant, b *model.Buff, text string) {
	m.sink.Send(target.ID(), kindMarker(b.Kind)+" "+text)
}

// kindMarker prefixes notifications so clients can colour them.
func kindMarker(k data.BuffKind) string {
	switch k {
	case data.KindBuff, data.KindHoT:
		return "[+]"
	case data.KindDebuff, data.KindDoT:
		return "[-]"
	case data.KindControl:
		return "[!]"
	default:
		return "[*]"
	}
}
