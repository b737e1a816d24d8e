package model

import (
	"maps"
	"slices"
	"sync"

	"github.com/udisondev/qimud/internal/data"
)

// SkillSlot is a known active or passive skill with its level.
type SkillSlot struct {
	SkillID string
	Level   int32
}

// Combatant is the combat view of a character or NPC.
// HP and Qi are always kept within [0, max]; every setter clamps.
//
// Thread-safe: all methods are protected by sync.RWMutex. Buff records
// returned by Buffs are owned by the buff manager and must only be mutated
// by the component that holds the combatant's turn.
type Combatant struct {
	mu sync.RWMutex

	id    string
	name  string
	level int32

	currentHP int32
	maxHP     int32
	currentQi int32
	maxQi     int32

	attrs [data.StatCount]float64

	skills    []SkillSlot
	cooldowns map[string]int32
	buffs     []*Buff

	// Ephemeral combat fields
	inCombat bool
	round    int32
}

// NewCombatant creates a combatant at full HP and Qi.
func NewCombatant(id, name string, level, maxHP, maxQi int32) *Combatant {
	maxHP = max(maxHP, 1)
	maxQi = max(maxQi, 0)
	return &Combatant{
		id:        id,
		name:      name,
		level:     max(level, 1),
		currentHP: maxHP,
		maxHP:     maxHP,
		currentQi: maxQi,
		maxQi:     maxQi,
		cooldowns: make(map[string]int32, 4),
	}
}

// ID returns the stable combatant id.
func (c *Combatant) ID() string { return c.id }

// Name returns the display name.
func (c *Combatant) Name() string { return c.name }

// Level returns the combatant level.
func (c *Combatant) Level() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

// SetLevel sets the level (minimum 1).
func (c *Combatant) SetLevel(level int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = max(level, 1)
}

// CurrentHP возвращает текущее HP.
func (c *Combatant) CurrentHP() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentHP
}

// MaxHP возвращает максимальное HP.
func (c *Combatant) MaxHP() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxHP
}

// SetCurrentHP устанавливает текущее HP с валидацией (clamp 0..maxHP).
func (c *Combatant) SetCurrentHP(hp int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentHP = clamp(hp, 0, c.maxHP)
}

// SetMaxHP sets max HP (minimum 1) and clamps current HP to it.
func (c *Combatant) SetMaxHP(maxHP int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxHP = max(maxHP, 1)
	c.currentHP = min(c.currentHP, c.maxHP)
}

// ReduceCurrentHP subtracts damage and returns the HP actually lost.
func (c *Combatant) ReduceCurrentHP(damage int32) int32 {
	if damage <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.currentHP
	c.currentHP = max(c.currentHP-damage, 0)
	return old - c.currentHP
}

// RestoreHP adds amount and returns the HP actually restored.
func (c *Combatant) RestoreHP(amount int32) int32 {
	if amount <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.currentHP
	c.currentHP = min(c.currentHP+amount, c.maxHP)
	return c.currentHP - old
}

// IsDead returns true when HP is zero.
func (c *Combatant) IsDead() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentHP <= 0
}

// CurrentQi returns current Qi.
func (c *Combatant) CurrentQi() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentQi
}

// MaxQi returns max Qi.
func (c *Combatant) MaxQi() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxQi
}

// SetCurrentQi sets current Qi, clamped to [0, maxQi].
func (c *Combatant) SetCurrentQi(qi int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentQi = clamp(qi, 0, c.maxQi)
}

// SetMaxQi sets max Qi and clamps current Qi to it.
func (c *Combatant) SetMaxQi(maxQi int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxQi = max(maxQi, 0)
	c.currentQi = min(c.currentQi, c.maxQi)
}

// ReduceQi subtracts amount and returns the Qi actually spent.
func (c *Combatant) ReduceQi(amount int32) int32 {
	if amount <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.currentQi
	c.currentQi = max(c.currentQi-amount, 0)
	return old - c.currentQi
}

// RestoreQi adds amount and returns the Qi actually restored.
func (c *Combatant) RestoreQi(amount int32) int32 {
	if amount <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.currentQi
	c.currentQi = min(c.currentQi+amount, c.maxQi)
	return c.currentQi - old
}

// Stat returns the current value of a combat attribute (0 if never set).
func (c *Combatant) Stat(s data.Stat) float64 {
	if int(s) >= data.StatCount {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attrs[s]
}

// SetStat sets a combat attribute.
func (c *Combatant) SetStat(s data.Stat, v float64) {
	if int(s) >= data.StatCount {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[s] = v
}

// AddStat adds delta to a combat attribute.
// Used by stat modifiers; applying -delta exactly reverses it.
func (c *Combatant) AddStat(s data.Stat, delta float64) {
	if int(s) >= data.StatCount {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[s] += delta
}

// Skills returns a copy of the known skills.
func (c *Combatant) Skills() []SkillSlot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.skills)
}

// SetSkills replaces the known skills.
func (c *Combatant) SetSkills(skills []SkillSlot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skills = slices.Clone(skills)
}

// SkillLevel returns the level of a known skill, or 0.
func (c *Combatant) SkillLevel(skillID string) int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.skills {
		if s.SkillID == skillID {
			return s.Level
		}
	}
	return 0
}

// Cooldown returns remaining cooldown rounds for a skill.
func (c *Combatant) Cooldown(skillID string) int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cooldowns[skillID]
}

// SetCooldown sets remaining cooldown rounds; 0 clears the entry.
func (c *Combatant) SetCooldown(skillID string, rounds int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rounds <= 0 {
		delete(c.cooldowns, skillID)
		return
	}
	c.cooldowns[skillID] = rounds
}

// TickCooldowns decrements every cooldown by one round and drops expired ones.
func (c *Combatant) TickCooldowns() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, left := range c.cooldowns {
		if left <= 1 {
			delete(c.cooldowns, id)
			continue
		}
		c.cooldowns[id] = left - 1
	}
}

// ResetCooldowns clears the cooldown map.
func (c *Combatant) ResetCooldowns() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.cooldowns)
}

// Cooldowns returns a copy of the cooldown map.
func (c *Combatant) Cooldowns() map[string]int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.cooldowns)
}

// Buffs returns a copy of the buff list.
func (c *Combatant) Buffs() []*Buff {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.buffs)
}

// BuffByName returns the first buff with the given name.
func (c *Combatant) BuffByName(name string) *Buff {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.buffs {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// BuffByID returns the buff with the given id.
func (c *Combatant) BuffByID(id string) *Buff {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.buffs {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// AttachBuff appends a buff record.
func (c *Combatant) AttachBuff(b *Buff) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffs = append(c.buffs, b)
}

// DetachBuff removes the buff with id and returns it, or nil.
func (c *Combatant) DetachBuff(id string) *Buff {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range c.buffs {
		if b.ID == id {
			c.buffs = slices.Delete(c.buffs, i, i+1)
			return b
		}
	}
	return nil
}

// InCombat reports whether the combatant belongs to an active session
// or is resolving a skill use outside of one.
func (c *Combatant) InCombat() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inCombat
}

// TryEnterCombat sets the in-combat flag if it was clear.
// Returns false if the combatant is already in combat.
func (c *Combatant) TryEnterCombat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inCombat {
		return false
	}
	c.inCombat = true
	c.round = 0
	return true
}

// LeaveCombat clears the in-combat flag and the round counter.
func (c *Combatant) LeaveCombat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inCombat = false
	c.round = 0
}

// Round returns the combatant's round counter.
func (c *Combatant) Round() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.round
}

// SetRound sets the round counter.
func (c *Combatant) SetRound(round int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.round = round
}

func clamp(v, lo, hi int32) int32 {
	return min(max(v, lo), hi)
}
