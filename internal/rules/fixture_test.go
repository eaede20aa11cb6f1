package rules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
	"github.com/rpggio/starcards/internal/repository"
	"github.com/rpggio/starcards/internal/sqlite"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recorder keeps every notification it receives.
type recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recorder) forPlayer(id string) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.sent {
		if n.PlayerID == id {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) last(t *testing.T, playerID string) notify.Notification {
	t.Helper()
	sent := r.forPlayer(playerID)
	require.NotEmpty(t, sent, "no notification for %s", playerID)
	return sent[len(sent)-1]
}

type fixture struct {
	db      *sqlite.DB
	store   *sqlite.Store
	players *sqlite.PlayerRepository
	cards   *sqlite.CardRepository
	wars    *sqlite.WarRepository
	clock   *clockwork.FakeClock
	notes   *recorder
	roll    float64
	deps    Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:      db,
		store:   sqlite.NewStore(db),
		players: sqlite.NewPlayerRepository(db),
		cards:   sqlite.NewCardRepository(db),
		wars:    sqlite.NewWarRepository(db),
		clock:   clockwork.NewFakeClockAt(t0),
		notes:   &recorder{},
	}
	f.deps = Deps{
		Store:    f.store,
		Notifier: f.notes,
		Clock:    f.clock,
		Balance:  DefaultBalance(),
		Roll:     func() float64 { return f.roll },
	}
	return f
}

func (f *fixture) player(t *testing.T, id string, res player.Resources) *player.Player {
	t.Helper()
	p := &player.Player{
		ID:        id,
		Name:      "player " + id,
		Resources: res,
		Buildings: map[player.Building]int{},
		CreatedAt: t0,
	}
	for _, b := range player.Buildings {
		p.Buildings[b] = 1
	}
	require.NoError(t, f.players.Create(context.Background(), p))
	return p
}

func (f *fixture) card(t *testing.T, id, ownerID string, level, power int) *player.Card {
	t.Helper()
	c := &player.Card{
		ID:        id,
		OwnerID:   ownerID,
		Name:      id,
		Level:     level,
		Power:     power,
		CreatedAt: t0,
	}
	require.NoError(t, f.cards.Create(context.Background(), c))
	return c
}

func (f *fixture) balance(t *testing.T, id string) player.Resources {
	t.Helper()
	p, err := f.players.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Resources
}

func (f *fixture) getCard(t *testing.T, ownerID, id string) *player.Card {
	t.Helper()
	c, err := f.cards.Get(context.Background(), ownerID, id)
	require.NoError(t, err)
	return c
}

func (f *fixture) stat(t *testing.T, id string, s player.Stat) int64 {
	t.Helper()
	stats, err := f.players.Stats(context.Background(), id)
	require.NoError(t, err)
	return stats[s]
}

func (f *fixture) stored(t *testing.T, id string) *activity.Activity {
	t.Helper()
	a, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (f *fixture) requireGone(t *testing.T, id string) {
	t.Helper()
	_, err := f.store.Get(context.Background(), id)
	require.ErrorIs(t, err, repository.ErrNotFound, "activity %s should be deleted", id)
}

func requireClass(t *testing.T, err error, class error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, class, "got %v", err)
}

func requireTime(t *testing.T, want, got time.Time) {
	t.Helper()
	require.True(t, want.Equal(got), "want %s, got %s", want, got)
}
