package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/qimud/internal/game/combat"
	"github.com/udisondev/qimud/internal/model"
)

// Progress is a character's accumulated combat rewards.
type Progress struct {
	CharacterID string
	Exp         int64
	Gold        int64
	Victories   int32
}

// ProgressRepository credits rewards and tallies kills.
// Implements combat.RewardGranter and combat.QuestNotifier.
type ProgressRepository struct {
	db *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(db *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GrantReward adds r to the winner's totals and counts the victory.
func (r *ProgressRepository) GrantReward(ctx context.Context, winner *model.Combatant, loserID string, reward combat.Reward) error {
	query := `
		INSERT INTO character_progress (character_id, exp, gold, victories, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (character_id) DO UPDATE SET
			exp        = character_progress.exp + EXCLUDED.exp,
			gold       = character_progress.gold + EXCLUDED.gold,
			victories  = character_progress.victories + 1,
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, winner.ID(), reward.Exp, reward.Gold); err != nil {
		return fmt.Errorf("granting reward to %s for defeating %s: %w", winner.ID(), loserID, err)
	}
	return nil
}

// OnKill increments the killer's tally against victimID.
// Errors are logged: quest progress never fails a fight.
func (r *ProgressRepository) OnKill(ctx context.Context, killer *model.Combatant, victimID string) {
	query := `
		INSERT INTO character_kills (killer_id, victim_id, kills)
		VALUES ($1, $2, 1)
		ON CONFLICT (killer_id, victim_id) DO UPDATE SET
			kills = character_kills.kills + 1
	`
	if _, err := r.db.Exec(ctx, query, killer.ID(), victimID); err != nil {
		slog.Error("recording kill", "killer", killer.ID(), "victim", victimID, "error", err)
	}
}

// Progress returns the totals of characterID, zero if it never won.
func (r *ProgressRepository) Progress(ctx context.Context, characterID string) (Progress, error) {
	p := Progress{CharacterID: characterID}
	err := r.db.QueryRow(ctx,
		`SELECT exp, gold, victories FROM character_progress WHERE character_id = $1`,
		characterID,
	).Scan(&p.Exp, &p.Gold, &p.Victories)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return p, fmt.Errorf("querying progress of %s: %w", characterID, err)
	}
	return p, nil
}

// Kills returns how many times killerID has defeated victimID.
func (r *ProgressRepository) Kills(ctx context.Context, killerID, victimID string) (int32, error) {
	var n int32
	err := r.db.QueryRow(ctx,
		`SELECT kills FROM character_kills WHERE killer_id = $1 AND victim_id = $2`,
		killerID, victimID,
	).Scan(&n)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("querying kills %s>%s: %w", killerID, victimID, err)
	}
	return n, nil
}
