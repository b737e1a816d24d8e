package api

import (
	"fmt"
	"sync"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/model"
)

// FighterSpec describes a combatant sent by a client.
type FighterSpec struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Level  int32              `json:"level"`
	MaxHP  int32              `json:"max_hp"`
	MaxQi  int32              `json:"max_qi"`
	Stats  map[string]float64 `json:"stats,omitempty"`
	Skills []SkillSpec        `json:"skills,omitempty"`
}

// SkillSpec is a known skill of a FighterSpec.
type SkillSpec struct {
	ID    string `json:"id"`
	Level int32  `json:"level"`
}

// Roster keeps the combatants known to the server, keyed by id.
//
// Thread-safe.
type Roster struct {
	mu       sync.RWMutex
	fighters map[string]*model.Combatant
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{fighters: make(map[string]*model.Combatant)}
}

// Get returns the combatant with id, or nil.
func (r *Roster) Get(id string) *model.Combatant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fighters[id]
}

// Upsert returns the combatant described by spec. A known combatant that
// is in combat is returned untouched; otherwise it is rebuilt from spec.
func (r *Roster) Upsert(spec FighterSpec) (*model.Combatant, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("fighter id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.fighters[spec.ID]; c != nil && c.InCombat() {
		return c, nil
	}

	c, err := build(spec)
	if err != nil {
		return nil, err
	}
	r.fighters[spec.ID] = c
	return c, nil
}

func build(spec FighterSpec) (*model.Combatant, error) {
	name := spec.Name
	if name == "" {
		name = spec.ID
	}
	maxHP := spec.MaxHP
	if maxHP <= 0 {
		maxHP = 100
	}

	c := model.NewCombatant(spec.ID, name, spec.Level, maxHP, spec.MaxQi)
	for key, v := range spec.Stats {
		st, ok := data.ParseStat(key)
		if !ok {
			return nil, fmt.Errorf("fighter %s: unknown stat %q", spec.ID, key)
		}
		c.SetStat(st, v)
	}

	slots := make([]model.SkillSlot, 0, len(spec.Skills))
	for _, s := range spec.Skills {
		slots = append(slots, model.SkillSlot{SkillID: s.ID, Level: max(s.Level, 1)})
	}
	c.SetSkills(slots)
	return c, nil
}
