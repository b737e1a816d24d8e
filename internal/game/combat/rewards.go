package combat

import (
	"context"
	"math"
	"time"

	"github.com/udisondev/qimud/internal/config"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/model"
)

// Reward is what the winner of a fight receives.
type Reward struct {
	Exp  int64
	Gold int64
}

// IsZero reports whether the reward grants nothing.
func (r Reward) IsZero() bool {
	return r.Exp == 0 && r.Gold == 0
}

// RewardGranter credits a reward to the winner (progression hook).
type RewardGranter interface {
	GrantReward(ctx context.Context, winner *model.Combatant, loserID string, r Reward) error
}

// QuestNotifier is told about every kill.
type QuestNotifier interface {
	OnKill(ctx context.Context, killer *model.Combatant, victimID string)
}

// Record summarises an ended session.
type Record struct {
	SessionID  string
	AttackerID string
	DefenderID string
	// WinnerID and LoserID are empty when nobody won.
	WinnerID  string
	LoserID   string
	Reason    EndReason
	Rounds    int32
	Reward    Reward
	StartedAt time.Time
	EndedAt   time.Time
}

// ResultRecorder stores ended sessions.
type ResultRecorder interface {
	RecordResult(ctx context.Context, r Record) error
}

// CalculateReward rolls the reward for defeating a combatant of loserLevel:
// per_level * loserLevel scaled by a uniform roll in [1-variance, 1+variance].
func CalculateReward(cfg config.Rewards, rng dice.Rand, loserLevel int32) Reward {
	lvl := float64(max(loserLevel, 1))
	return Reward{
		Exp:  roll(rng, cfg.ExpPerLevel*lvl, cfg.ExpVariance),
		Gold: roll(rng, cfg.GoldPerLevel*lvl, cfg.GoldVariance),
	}
}

func roll(rng dice.Rand, base, variance float64) int64 {
	if base <= 0 {
		return 0
	}
	if variance > 0 {
		base *= dice.Uniform(rng, 1-variance, 1+variance)
	}
	return max(int64(math.Floor(base)), 0)
}
