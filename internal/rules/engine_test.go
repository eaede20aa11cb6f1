package rules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/repository"
	"github.com/rpggio/starcards/internal/scheduler"
)

// engine wires the real rules, scheduler and service over one fixture.
type engine struct {
	*fixture
	sched *scheduler.Scheduler
	svc   *activity.Service
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	f := newFixture(t)
	reg, err := activity.NewRegistry(All(f.deps)...)
	require.NoError(t, err)

	sched := scheduler.New(f.store, reg, scheduler.WithClock(f.clock))
	t.Cleanup(func() { sched.StopAll() })
	return &engine{
		fixture: f,
		sched:   sched,
		svc:     activity.NewService(f.store, reg, sched, nil),
	}
}

func (e *engine) waitTimers(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.clock.BlockUntilContext(ctx, n))
}

func (e *engine) waitGone(t *testing.T, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := e.store.Get(context.Background(), id)
		return errors.Is(err, repository.ErrNotFound)
	}, 2*time.Second, 5*time.Millisecond, "activity %s never completed", id)
}

func (e *engine) create(t *testing.T, ownerID, kind string, req activity.Request) activity.Projection {
	t.Helper()
	out, err := e.svc.CreateActivity(context.Background(), ownerID, kind, req)
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0]
}

func TestEngine_CookCompletesAtDueTime(t *testing.T) {
	e := newEngine(t)
	e.player(t, "p1", player.Resources{Coins: 100})
	e.card(t, "c1", "p1", 1, 10)

	a := e.create(t, "p1", "cook", activity.Request{CardIDs: []string{"c1"}})
	requireTime(t, t0.Add(30*time.Minute), a.DueAt)
	require.True(t, e.sched.Live(a.ID))

	e.waitTimers(t, 1)
	e.clock.Advance(29 * time.Minute)
	require.True(t, e.sched.Live(a.ID))
	require.Equal(t, player.Resources{Coins: 95}, e.balance(t, "p1"))

	e.clock.Advance(time.Minute)
	e.waitGone(t, a.ID)

	require.False(t, e.sched.Live(a.ID))
	require.Equal(t, player.Resources{Coins: 95, Food: 10}, e.balance(t, "p1"))
	require.False(t, e.getCard(t, "p1", "c1").Busy())
	require.Equal(t, int64(1), e.stat(t, "p1", player.StatMealsCooked))
}

func TestEngine_ExploreRunsBothLegs(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.roll = 0.1
	e.player(t, "p1", player.Resources{Fuel: 100})
	e.card(t, "c1", "p1", 1, 10)

	a := e.create(t, "p1", "explore", activity.Request{CardIDs: []string{"c1"}, Target: "moon"})

	e.waitTimers(t, 1)
	e.clock.Advance(20 * time.Minute)
	require.Eventually(t, func() bool {
		stored, err := e.store.Get(ctx, a.ID)
		return err == nil && stored.DueAt.Equal(t0.Add(40*time.Minute)) && e.sched.Live(a.ID)
	}, 2*time.Second, 5*time.Millisecond)

	// The return leg cannot be recalled and keeps its timer.
	err := e.svc.DeleteActivity(ctx, "p1", a.ID)
	requireClass(t, err, activity.ErrCancelDenied)
	require.True(t, e.sched.Live(a.ID))

	e.waitTimers(t, 1)
	e.clock.Advance(20 * time.Minute)
	e.waitGone(t, a.ID)

	require.Equal(t, player.Resources{Coins: 10, Materials: 30, Fuel: 90}, e.balance(t, "p1"))
	require.Equal(t, int64(1), e.stat(t, "p1", player.StatExpeditions))
}

func TestEngine_CancelOutboundExpedition(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.player(t, "p1", player.Resources{Fuel: 100})
	e.card(t, "c1", "p1", 1, 10)

	a := e.create(t, "p1", "explore", activity.Request{CardIDs: []string{"c1"}, Target: "moon"})
	e.waitTimers(t, 1)

	require.NoError(t, e.svc.DeleteActivity(ctx, "p1", a.ID))
	require.False(t, e.sched.Live(a.ID))
	require.Equal(t, player.Resources{Fuel: 100}, e.balance(t, "p1"))
	e.requireGone(t, a.ID)

	e.clock.Advance(time.Hour)
	require.Equal(t, int64(0), e.stat(t, "p1", player.StatExpeditions))
	require.Equal(t, int64(0), e.stat(t, "p1", player.StatExpeditionsFailed))
}

func TestEngine_CancelAndCompleteAreExclusive(t *testing.T) {
	for i := 0; i < 20; i++ {
		e := newEngine(t)
		e.player(t, "p1", player.Resources{Coins: 100})
		e.card(t, "c1", "p1", 1, 10)
		a := e.create(t, "p1", "cook", activity.Request{CardIDs: []string{"c1"}})
		e.waitTimers(t, 1)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.clock.Advance(30 * time.Minute)
		}()
		delErr := e.svc.DeleteActivity(context.Background(), "p1", a.ID)
		wg.Wait()
		e.sched.StopAll()

		bal := e.balance(t, "p1")
		refunded := bal == player.Resources{Coins: 100}
		completed := bal == player.Resources{Coins: 95, Food: 10}
		require.NotEqual(t, refunded, completed, "balance %s", bal)

		if delErr == nil {
			require.True(t, refunded, "cancel succeeded but balance is %s", bal)
			require.Equal(t, int64(0), e.stat(t, "p1", player.StatMealsCooked))
		} else {
			require.True(t, completed, "cancel failed with %v but balance is %s", delErr, bal)
			require.True(t, errors.Is(delErr, activity.ErrCancelDenied) || errors.Is(delErr, activity.ErrNotFound), delErr)
		}
		e.requireGone(t, a.ID)
		require.False(t, e.getCard(t, "p1", "c1").Busy())
	}
}

func TestEngine_RestartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.player(t, "p1", player.Resources{Coins: 100, Food: 100})
	e.card(t, "c1", "p1", 1, 10)
	e.card(t, "c2", "p1", 1, 10)

	cook := e.create(t, "p1", "cook", activity.Request{CardIDs: []string{"c1"}})
	train := e.create(t, "p1", "train", activity.Request{CardIDs: []string{"c2"}})
	before := e.balance(t, "p1")

	require.Equal(t, 2, e.svc.StopAll())
	require.False(t, e.sched.Live(cook.ID))
	e.stored(t, cook.ID)
	e.stored(t, train.ID)

	armed, err := e.svc.RestartAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, armed)

	armed, err = e.svc.RestartAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, armed)
	require.Equal(t, 2, e.sched.Len())
	require.Equal(t, before, e.balance(t, "p1"))

	e.waitTimers(t, 2)
	e.clock.Advance(30 * time.Minute)
	e.waitGone(t, cook.ID)
	e.waitGone(t, train.ID)

	require.Equal(t, int64(1), e.stat(t, "p1", player.StatMealsCooked))
	require.Equal(t, int64(1), e.stat(t, "p1", player.StatCardsTrained))
	require.Equal(t, 2, e.getCard(t, "p1", "c2").Level)
	require.Equal(t, before.Add(player.Resources{Food: 10}), e.balance(t, "p1"))
}

func TestEngine_PastDueCompletesOnRestart(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.player(t, "p1", player.Resources{Coins: 100})
	e.card(t, "c1", "p1", 1, 10)
	a := e.create(t, "p1", "cook", activity.Request{CardIDs: []string{"c1"}})

	e.svc.StopAll()
	e.clock.Advance(2 * time.Hour)

	armed, err := e.svc.RestartAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, armed)
	e.waitGone(t, a.ID)
	require.Equal(t, player.Resources{Coins: 95, Food: 10}, e.balance(t, "p1"))
}

func TestEngine_FailedCompletionKeepsRecord(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.player(t, "a1", player.Resources{Food: 50, Fuel: 50})
	e.player(t, "def", player.Resources{Coins: 1000})
	e.card(t, "x1", "a1", 1, 50)

	a := e.create(t, "a1", "war", activity.Request{CardIDs: []string{"x1"}, Target: "def"})
	require.NoError(t, e.wars.Delete(ctx, *a.GroupID))

	e.waitTimers(t, 1)
	e.clock.Advance(10 * time.Minute)
	require.Eventually(t, func() bool { return !e.sched.Live(a.ID) }, 2*time.Second, 5*time.Millisecond)
	e.sched.StopAll()

	stored := e.stored(t, a.ID)
	requireTime(t, a.DueAt, stored.DueAt)
	require.True(t, e.getCard(t, "a1", "x1").Busy())
	require.Equal(t, player.Resources{Food: 45, Fuel: 45}, e.balance(t, "a1"))

	armed, err := e.svc.RestartAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, armed)
}
