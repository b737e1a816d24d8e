package data

// EffectKind is the tag used by the effect registry to pick a handler.
type EffectKind string

const (
	EffectDamage          EffectKind = "damage"
	EffectHeal            EffectKind = "heal"
	EffectRestoreResource EffectKind = "restore-resource"
	EffectStatModifier    EffectKind = "stat-modifier"
	EffectApplyBuff       EffectKind = "apply-buff"
	EffectLifesteal       EffectKind = "lifesteal"
	EffectShield          EffectKind = "shield"
	EffectSilence         EffectKind = "silence"
	EffectStun            EffectKind = "stun"
	EffectResourceDrain   EffectKind = "qi-drain"
)

// EffectTarget selects who receives an effect.
type EffectTarget string

const (
	TargetEnemy EffectTarget = "target" // default
	TargetSelf  EffectTarget = "self"
)

// EffectSpec describes one effect of a skill or buff.
// Only the fields relevant to Kind are read by its handler.
type EffectSpec struct {
	Kind EffectKind `yaml:"kind"`

	// Value is the base magnitude (damage, heal, qi, stat delta, shield pool).
	Value float64 `yaml:"value"`

	// Scaled names a level-formula stat that replaces Value when the skill
	// instance is resolved (e.g. "damage", "tick_damage").
	Scaled string `yaml:"scaled,omitempty"`

	// ScaleWith/ScaleRatio add attacker[ScaleWith]*ScaleRatio to Value.
	ScaleWith  Stat    `yaml:"scale_with,omitempty"`
	ScaleRatio float64 `yaml:"scale_ratio,omitempty"`

	// Ratio is the lifesteal fraction of the last damage dealt.
	Ratio float64 `yaml:"ratio,omitempty"`

	// Stat is the attribute changed by stat-modifier.
	Stat Stat `yaml:"stat,omitempty"`

	Target   EffectTarget `yaml:"target,omitempty"`
	Duration int32        `yaml:"duration,omitempty"` // rounds; overrides the buff default
	Name     string       `yaml:"name,omitempty"`     // display name for shield/control buffs
	Element  string       `yaml:"element,omitempty"`

	// Buff is the template applied by apply-buff.
	Buff *BuffSpec `yaml:"buff,omitempty"`
}

// AppliesToSelf reports whether the effect targets the caster.
func (e EffectSpec) AppliesToSelf() bool {
	return e.Target == TargetSelf
}

// BuffKind classifies a buff for display and bulk removal.
type BuffKind string

const (
	KindBuff    BuffKind = "buff"
	KindDebuff  BuffKind = "debuff"
	KindDoT     BuffKind = "dot"
	KindHoT     BuffKind = "hot"
	KindControl BuffKind = "control"
)

// StackMode governs how a repeated application combines with an existing buff.
type StackMode string

const (
	StackAdd     StackMode = "add"
	StackRefresh StackMode = "refresh" // default
	StackReplace StackMode = "replace"
)

// Trigger is the moment within a turn when a buff's periodic effects fire.
type Trigger string

const (
	TriggerTurnStart Trigger = "turn_start" // default
	TriggerTurnEnd   Trigger = "turn_end"
)

// Extra-data keys understood by the engine.
const (
	ExtraSilenced = "silenced"
	ExtraStunned  = "stunned"
	ExtraShield   = "shield" // remaining absorb pool
)

// BuffSpec is the template of a buff created by an apply-buff effect.
type BuffSpec struct {
	Name         string         `yaml:"name"`
	Kind         BuffKind       `yaml:"kind"`
	Duration     int32          `yaml:"duration"`
	MaxStacks    int32          `yaml:"max_stacks"`
	StackMode    StackMode      `yaml:"stack_mode"`
	Effects      []EffectSpec   `yaml:"effects"`
	Trigger      Trigger        `yaml:"trigger"`
	TickInterval int32          `yaml:"tick_interval"`
	Extra        map[string]any `yaml:"extra,omitempty"`
}

// Defaults returned for zero-valued buff fields.
const (
	DefaultBuffDuration = 3
	DefaultMaxStacks    = 1
	DefaultTickInterval = 1
)

// Normalized returns a copy with defaults filled in.
func (b BuffSpec) Normalized() BuffSpec {
	if b.Kind == "" {
		b.Kind = KindBuff
	}
	if b.Duration <= 0 {
		b.Duration = DefaultBuffDuration
	}
	if b.MaxStacks <= 0 {
		b.MaxStacks = DefaultMaxStacks
	}
	if b.StackMode == "" {
		b.StackMode = StackRefresh
	}
	if b.Trigger == "" {
		b.Trigger = TriggerTurnStart
	}
	if b.TickInterval <= 0 {
		b.TickInterval = DefaultTickInterval
	}
	return b
}
