package skill

import "errors"

// Usage errors abort a single skill use without side effects.
// They are reported to the acting combatant only; combat continues.
var (
	ErrUnknownSkill   = errors.New("unknown skill")
	ErrPassiveSkill   = errors.New("passive skills cannot be used")
	ErrNoTarget       = errors.New("no valid target")
	ErrOnCooldown     = errors.New("skill is on cooldown")
	ErrInsufficientQi = errors.New("not enough qi")
	ErrInsufficientHP = errors.New("not enough health")
	ErrSilenced       = errors.New("silenced")
	ErrStunned        = errors.New("stunned")
)

var usageErrors = []error{
	ErrUnknownSkill,
	ErrPassiveSkill,
	ErrNoTarget,
	ErrOnCooldown,
	ErrInsufficientQi,
	ErrInsufficientHP,
	ErrSilenced,
	ErrStunned,
}

// IsUsageError reports whether err is one of the usage errors.
func IsUsageError(err error) bool {
	for _, target := range usageErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
