package data

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrSkillNotFound is returned when a skill id has no template.
var ErrSkillNotFound = errors.New("skill template not found")

//go:embed skills.yaml
var defaultSkillsYAML []byte

// skillFile is the on-disk layout of a skill catalog.
type skillFile struct {
	Skills []SkillTemplate `yaml:"skills"`
}

// Catalog is the registry of all skill templates, keyed by id.
// Read-only after construction and safe for concurrent use.
type Catalog struct {
	skills map[string]*SkillTemplate
}

// NewCatalog validates templates and builds a Catalog.
// A built-in basic attack is added when the templates do not define one.
func NewCatalog(templates []SkillTemplate) (*Catalog, error) {
	c := &Catalog{skills: make(map[string]*SkillTemplate, len(templates)+1)}

	for i := range templates {
		t := templates[i]
		if err := validateTemplate(&t); err != nil {
			return nil, err
		}
		if _, dup := c.skills[t.ID]; dup {
			return nil, fmt.Errorf("duplicate skill id %q", t.ID)
		}
		c.skills[t.ID] = &t
	}

	if _, ok := c.skills[BasicAttackID]; !ok {
		basic := builtinBasicAttack()
		c.skills[BasicAttackID] = &basic
	}

	return c, nil
}

// LoadCatalog decodes a YAML skill catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f skillFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding skill catalog: %w", err)
	}
	return NewCatalog(f.Skills)
}

// LoadCatalogFile loads a skill catalog from path.
// An empty path loads the embedded default catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening skill catalog %s: %w", path, err)
	}
	defer f.Close()

	c, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Info("loaded skills", "path", path, "count", c.Len())
	return c, nil
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	var f skillFile
	if err := yaml.Unmarshal(defaultSkillsYAML, &f); err != nil {
		return nil, fmt.Errorf("decoding embedded skills: %w", err)
	}
	return NewCatalog(f.Skills)
}

// Template returns the raw template for id.
func (c *Catalog) Template(id string) (*SkillTemplate, bool) {
	t, ok := c.skills[id]
	return t, ok
}

// Skill resolves id at level into a SkillInstance.
func (c *Catalog) Skill(id string, level int32) (*SkillInstance, error) {
	t, ok := c.skills[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, id)
	}
	return t.Instance(level), nil
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.skills)
}

func validateTemplate(t *SkillTemplate) error {
	if t.ID == "" {
		return errors.New("skill template without id")
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	switch t.Type {
	case "":
		t.Type = SkillActive
	case SkillActive, SkillPassive:
	default:
		return fmt.Errorf("skill %q: unknown type %q", t.ID, t.Type)
	}
	if t.CastTime < 0 || t.Cooldown < 0 || t.CostQi < 0 || t.CostHP < 0 {
		return fmt.Errorf("skill %q: negative cast time, cooldown or cost", t.ID)
	}
	for i := range t.Effects {
		if err := validateEffect(t.Effects[i]); err != nil {
			return fmt.Errorf("skill %q effect %d: %w", t.ID, i, err)
		}
	}
	return nil
}

func validateEffect(e EffectSpec) error {
	if e.Kind == "" {
		return errors.New("missing kind")
	}
	if e.Kind == EffectApplyBuff && e.Buff == nil {
		return errors.New("apply-buff without buff")
	}
	if e.Buff == nil {
		return nil
	}
	switch e.Buff.StackMode {
	case "", StackAdd, StackRefresh, StackReplace:
	default:
		return fmt.Errorf("buff %q: unknown stack mode %q", e.Buff.Name, e.Buff.StackMode)
	}
	switch e.Buff.Trigger {
	case "", TriggerTurnStart, TriggerTurnEnd:
	default:
		return fmt.Errorf("buff %q: unknown trigger %q", e.Buff.Name, e.Buff.Trigger)
	}
	for i := range e.Buff.Effects {
		if err := validateEffect(e.Buff.Effects[i]); err != nil {
			return fmt.Errorf("buff %q effect %d: %w", e.Buff.Name, i, err)
		}
	}
	return nil
}

func builtinBasicAttack() SkillTemplate {
	accuracy := DefaultAccuracy
	return SkillTemplate{
		ID:       BasicAttackID,
		Name:     "Basic Attack",
		Type:     SkillActive,
		MaxLevel: 1,
		Accuracy: &accuracy,
		Effects: []EffectSpec{
			{Kind: EffectDamage, Value: 10, ScaleWith: StatPower, ScaleRatio: 1},
		},
		Text: BattleText{
			Hit:       []TextLine{{Text: "{caster} strikes {target} for {damage} damage."}},
			Critical:  []TextLine{{Text: "{caster} lands a crushing blow on {target} for {damage} damage!"}},
			Dodge:     []TextLine{{Text: "{target} sidesteps {caster}'s strike."}},
			Countered: []TextLine{{Text: "{target} turns {caster}'s strike aside!"}},
		},
	}
}
