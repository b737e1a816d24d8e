package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/qimud/internal/game/combat"
)

// CombatResultRepository stores ended combat sessions.
// Implements combat.ResultRecorder.
type CombatResultRepository struct {
	db *pgxpool.Pool
}

// NewCombatResultRepository creates a new CombatResultRepository.
func NewCombatResultRepository(db *pgxpool.Pool) *CombatResultRepository {
	return &CombatResultRepository{db: db}
}

// RecordResult inserts one session record. Recording the same session
// twice keeps the first row.
func (r *CombatResultRepository) RecordResult(ctx context.Context, rec combat.Record) error {
	query := `
		INSERT INTO combat_results (
			session_id, attacker_id, defender_id, winner_id, loser_id,
			reason, rounds, reward_exp, reward_gold, started_at, ended_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		rec.SessionID, rec.AttackerID, rec.DefenderID, rec.WinnerID, rec.LoserID,
		string(rec.Reason), rec.Rounds, rec.Reward.Exp, rec.Reward.Gold,
		rec.StartedAt, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting combat result %s: %w", rec.SessionID, err)
	}
	return nil
}

// ListByCombatant returns the latest sessions combatantID took part in,
// newest first.
func (r *CombatResultRepository) ListByCombatant(ctx context.Context, combatantID string, limit int) ([]combat.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT session_id, attacker_id, defender_id,
		       COALESCE(winner_id, ''), COALESCE(loser_id, ''),
		       reason, rounds, reward_exp, reward_gold, started_at, ended_at
		FROM combat_results
		WHERE attacker_id = $1 OR defender_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, combatantID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying combat results for %s: %w", combatantID, err)
	}
	defer rows.Close()

	recs := make([]combat.Record, 0, limit)
	for rows.Next() {
		var (
			rec    combat.Record
			reason string
		)
		if err := rows.Scan(
			&rec.SessionID, &rec.AttackerID, &rec.DefenderID,
			&rec.WinnerID, &rec.LoserID,
			&reason, &rec.Rounds, &rec.Reward.Exp, &rec.Reward.Gold,
			&rec.StartedAt, &rec.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning combat result row: %w", err)
		}
		rec.Reason = combat.EndReason(reason)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating combat result rows: %w", err)
	}
	return recs, nil
}
