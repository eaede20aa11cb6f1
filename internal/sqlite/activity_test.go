package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)
	insertPlayer(t, db, "p1", player.Resources{})

	due := time.Date(2030, 1, 2, 3, 4, 5, 6, time.UTC)
	group := "w1"
	a := &activity.Activity{
		ID:        "a1",
		OwnerID:   "p1",
		Kind:      activity.KindExplore,
		GroupID:   &group,
		CardIDs:   []string{"c2", "c1"},
		Cost:      player.Resources{Coins: 5, Fuel: 3},
		DueAt:     due,
		Payload:   json.RawMessage(`{"destination":"moon"}`),
		CreatedAt: due.Add(-time.Hour),
		UpdatedAt: due.Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, activity.KindExplore, got.Kind)
	require.Equal(t, []string{"c2", "c1"}, got.CardIDs)
	require.Equal(t, a.Cost, got.Cost)
	require.True(t, due.Equal(got.DueAt))
	require.Equal(t, "w1", *got.GroupID)
	require.JSONEq(t, `{"destination":"moon"}`, string(got.Payload))

	require.ErrorIs(t, repo.Create(ctx, a), repository.ErrConflict)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestActivityRepository_UpdateDelete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)
	insertPlayer(t, db, "p1", player.Resources{})
	a := insertActivity(t, db, "a1", "p1", activity.KindCook, time.Now().UTC())

	next := a.DueAt.Add(time.Hour)
	a.DueAt = next
	a.Payload = json.RawMessage(`{"returning":true}`)
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	require.True(t, next.Equal(got.DueAt))
	require.Empty(t, got.CardIDs)

	require.NoError(t, repo.Delete(ctx, "a1"))
	require.ErrorIs(t, repo.Delete(ctx, "a1"), repository.ErrNotFound)
	require.ErrorIs(t, repo.Update(ctx, a), repository.ErrNotFound)
}

func TestActivityRepository_DeleteRequiresReleasedCards(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)
	cards := NewCardRepository(db)
	insertPlayer(t, db, "p1", player.Resources{})
	insertCard(t, db, "c1", "p1")
	insertActivity(t, db, "a1", "p1", activity.KindCook, time.Now())
	require.NoError(t, cards.Commit(ctx, "p1", []string{"c1"}, "a1"))

	require.ErrorIs(t, repo.Delete(ctx, "a1"), repository.ErrForeignKeyViolation)

	_, err := cards.Release(ctx, "a1")
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "a1"))
}

func TestActivityRepository_Lists(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)
	insertPlayer(t, db, "p1", player.Resources{})
	insertPlayer(t, db, "p2", player.Resources{})

	now := time.Now().UTC()
	insertActivity(t, db, "late", "p1", activity.KindCook, now.Add(2*time.Hour))
	insertActivity(t, db, "early", "p1", activity.KindCook, now.Add(time.Hour))
	insertActivity(t, db, "other", "p2", activity.KindTrain, now)

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 3)
	require.Equal(t, "other", open[0].ID)

	mine, err := repo.ListByOwner(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "early", mine[0].ID)
	require.Equal(t, "late", mine[1].ID)

	n, err := repo.CountOpen(ctx, "p1", activity.KindCook)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = repo.CountOpen(ctx, "p1", activity.KindTrain)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
