package skill

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/game/effect"
	"github.com/udisondev/qimud/internal/model"
)

// Fallback lines for skills whose templates carry no battle text.
var (
	defaultHit       = []data.TextLine{{Text: "{caster}'s {skill} hits {target} for {damage} damage."}}
	defaultSelf      = []data.TextLine{{Text: "{caster} uses {skill}."}}
	defaultDodge     = []data.TextLine{{Text: "{target} evades {caster}'s {skill}."}}
	defaultCountered = []data.TextLine{{Text: "{target} counters {caster}'s {skill}!"}}
	defaultTrigger   = []data.TextLine{{Text: "{caster} answers with {skill}!"}}
)

// renderer substitutes {caster}, {target}, {skill}, {damage} and {heal}.
// Totals are read at render time, after effects have run.
func render(text string, caster, target *model.Combatant, skillName string, cc *effect.Context) string {
	var damage, heal int32
	if cc != nil {
		damage, heal = cc.TotalDamage, cc.TotalHeal
	}
	targetName := ""
	if target != nil {
		targetName = target.Name()
	}
	return strings.NewReplacer(
		"{caster}", caster.Name(),
		"{target}", targetName,
		"{skill}", skillName,
		"{damage}", strconv.Itoa(int(damage)),
		"{heal}", strconv.Itoa(int(heal)),
	).Replace(text)
}

// lineOffset converts a line's percent delay into an offset within castTime.
func lineOffset(castTime time.Duration, pct float64) time.Duration {
	pct = min(max(pct, 0), 100)
	return time.Duration(float64(castTime) * pct / 100)
}

// sortedLines orders lines by delay, keeping template order for ties.
func sortedLines(lines []data.TextLine) []data.TextLine {
	out := slices.Clone(lines)
	slices.SortStableFunc(out, func(a, b data.TextLine) int {
		return cmp.Compare(a.DelayPercent, b.DelayPercent)
	})
	return out
}

// resultLines picks the narrative for a resolved use.
func resultLines(inst *data.SkillInstance, out *Outcome) []data.TextLine {
	t := inst.Text
	switch {
	case out.Countered:
		return orDefault(t.Countered, defaultCountered)
	case !out.Hit:
		return orDefault(t.Dodge, defaultDodge)
	case out.Crit && len(t.Critical) > 0:
		return t.Critical
	case len(t.Hit) > 0:
		return t.Hit
	case out.Damage > 0:
		return defaultHit
	default:
		return defaultSelf
	}
}

func orDefault(lines, def []data.TextLine) []data.TextLine {
	if len(lines) > 0 {
		return lines
	}
	return def
}
