package db_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/qimud/internal/db"
	"github.com/udisondev/qimud/internal/game/combat"
	"github.com/udisondev/qimud/internal/testutil"
)

func TestCombatResultRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	repo := db.NewCombatResultRepository(pool)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	won := combat.Record{
		SessionID:  "5f0c6c1e-8d7a-4b43-9a55-0a1f2d3c4b5e",
		AttackerID: "lin",
		DefenderID: "bo",
		WinnerID:   "lin",
		LoserID:    "bo",
		Reason:     combat.ReasonDefeat,
		Rounds:     7,
		Reward:     combat.Reward{Exp: 10, Gold: 5},
		StartedAt:  started,
		EndedAt:    started.Add(20 * time.Second),
	}
	timedOut := combat.Record{
		SessionID:  "9b2e4f60-1c3d-4e5f-8a7b-6c5d4e3f2a1b",
		AttackerID: "mei",
		DefenderID: "lin",
		Reason:     combat.ReasonTimeout,
		Rounds:     100,
		StartedAt:  started.Add(time.Minute),
		EndedAt:    started.Add(5 * time.Minute),
	}

	require.NoError(t, repo.RecordResult(ctx, won))
	require.NoError(t, repo.RecordResult(ctx, timedOut))
	require.NoError(t, repo.RecordResult(ctx, won), "recording twice is a no-op")

	recs, err := repo.ListByCombatant(ctx, "lin", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, timedOut.SessionID, recs[0].SessionID, "newest first")
	assert.Empty(t, recs[0].WinnerID)
	assert.Equal(t, combat.ReasonTimeout, recs[0].Reason)

	got := recs[1]
	assert.Equal(t, won.WinnerID, got.WinnerID)
	assert.Equal(t, won.LoserID, got.LoserID)
	assert.Equal(t, won.Rounds, got.Rounds)
	assert.Equal(t, won.Reward, got.Reward)
	assert.WithinDuration(t, won.EndedAt, got.EndedAt, time.Millisecond)

	recs, err = repo.ListByCombatant(ctx, "bo", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestProgressRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	repo := db.NewProgressRepository(pool)

	lin := testutil.Fighter("lin", "Lin")

	p, err := repo.Progress(ctx, "lin")
	require.NoError(t, err)
	assert.Zero(t, p.Exp, "unknown character has no progress")

	require.NoError(t, repo.GrantReward(ctx, lin, "bo", combat.Reward{Exp: 10, Gold: 5}))
	require.NoError(t, repo.GrantReward(ctx, lin, "mei", combat.Reward{Exp: 22, Gold: 9}))

	p, err = repo.Progress(ctx, "lin")
	require.NoError(t, err)
	assert.Equal(t, int64(32), p.Exp)
	assert.Equal(t, int64(14), p.Gold)
	assert.Equal(t, int32(2), p.Victories)

	repo.OnKill(ctx, lin, "bo")
	repo.OnKill(ctx, lin, "bo")

	n, err := repo.Kills(ctx, "lin", "bo")
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)

	n, err = repo.Kills(ctx, "lin", "mei")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngineRecordsIntoPostgres(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)

	results := db.NewCombatResultRepository(pool)
	progress := db.NewProgressRepository(pool)

	catalog := testutil.Catalog(t)
	cfg := testutil.FastCombat()

	e := combat.New(cfg, combat.Deps{
		Catalog: catalog,
		Rewards: progress,
		Quests:  progress,
		Results: results,
	})

	lin := testutil.Fighter("lin", "Lin", testutil.WithLevel(3))
	bo := testutil.Fighter("bo", "Bo")
	bo.SetCurrentHP(1)

	require.True(t, e.Start(lin, bo))
	s := e.SessionOf(lin)
	require.NotNil(t, s)

	select {
	case <-s.Done():
	case <-ctx.Done():
		t.Fatal("session did not end")
	}

	recs, err := results.ListByCombatant(ctx, "lin", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, s.ID(), recs[0].SessionID)
	assert.Equal(t, combat.ReasonDefeat, recs[0].Reason)
	assert.Equal(t, "lin", recs[0].WinnerID)

	n, err := progress.Kills(ctx, "lin", "bo")
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)
}
