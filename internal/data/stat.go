package data

import "fmt"

// Stat identifies a combat-relevant attribute of a combatant.
// The set is fixed; a combatant that does not define a stat reads 0.
type Stat uint8

const (
	StatPower Stat = iota
	StatAgility
	StatIntellect
	StatConstitution
	StatCritRate
	StatDodgeRate
	StatCounterRate
	StatLuck

	statCount
)

// StatCount is the number of known stats.
const StatCount = int(statCount)

var statNames = [StatCount]string{
	StatPower:        "power",
	StatAgility:      "agility",
	StatIntellect:    "intellect",
	StatConstitution: "constitution",
	StatCritRate:     "critical_rate",
	StatDodgeRate:    "dodge_rate",
	StatCounterRate:  "counter_rate",
	StatLuck:         "luck",
}

// String returns the YAML name of the stat.
func (s Stat) String() string {
	if int(s) < StatCount {
		return statNames[s]
	}
	return fmt.Sprintf("stat(%d)", uint8(s))
}

// ParseStat converts a stat name to Stat.
// Accepts the legacy aliases "strength" and "intelligence".
func ParseStat(name string) (Stat, bool) {
	for i, n := range statNames {
		if n == name {
			return Stat(i), true
		}
	}
	switch name {
	case "strength":
		return StatPower, true
	case "intelligence":
		return StatIntellect, true
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (s Stat) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stat) UnmarshalText(text []byte) error {
	v, ok := ParseStat(string(text))
	if !ok {
		return fmt.Errorf("unknown stat %q", text)
	}
	*s = v
	return nil
}
