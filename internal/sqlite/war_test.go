package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/domain/war"
	"github.com/rpggio/starcards/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestWarRepository_Lifecycle(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewWarRepository(db)
	insertPlayer(t, db, "def", player.Resources{})

	now := time.Now().UTC()
	w := &war.War{
		ID:           "w1",
		DefenderID:   "def",
		Status:       war.StatusMustering,
		Participants: 1,
		StartsAt:     now.Add(time.Hour),
		CreatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, w))

	found, err := repo.FindMustering(ctx, "def")
	require.NoError(t, err)
	require.Equal(t, "w1", found.ID)
	require.True(t, w.StartsAt.Equal(found.StartsAt))

	w.Status = war.StatusFought
	w.Participants = 2
	w.Plunder = 70
	w.AttackersWon = true
	require.NoError(t, repo.Update(ctx, w))

	_, err = repo.FindMustering(ctx, "def")
	require.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.Get(ctx, "w1")
	require.NoError(t, err)
	require.Equal(t, war.StatusFought, got.Status)
	require.True(t, got.AttackersWon)
	require.Equal(t, 2, got.Participants)
	require.Equal(t, int64(70), got.Plunder)

	require.NoError(t, repo.Delete(ctx, "w1"))
	_, err = repo.Get(ctx, "w1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWarRepository_UnknownDefender(t *testing.T) {
	db := NewTestDB(t)
	err := NewWarRepository(db).Create(context.Background(), &war.War{
		ID:         "w1",
		DefenderID: "ghost",
		Status:     war.StatusMustering,
	})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}
