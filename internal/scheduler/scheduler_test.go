package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/repository"
	"github.com/rpggio/starcards/internal/repository/mocks"
	"github.com/rpggio/starcards/internal/scheduler"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	clock    *clockwork.FakeClock
	loader   *mocks.Store
	resolver *mocks.Resolver
	rule     *mocks.Rule
	sched    *scheduler.Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    clockwork.NewFakeClockAt(t0),
		loader:   &mocks.Store{},
		resolver: &mocks.Resolver{},
		rule:     &mocks.Rule{RuleKind: activity.KindCook},
	}
	h.sched = scheduler.New(h.loader, h.resolver, scheduler.WithClock(h.clock), scheduler.WithWorkers(2))
	t.Cleanup(func() { h.sched.StopAll() })
	return h
}

func (h *harness) expect(a *activity.Activity) {
	h.loader.On("Get", mock.Anything, a.ID).Return(a, nil)
	h.resolver.On("ForActivity", a).Return(h.rule, nil)
}

func (h *harness) waitTimers(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, n))
}

func signal(ch chan struct{}) func(mock.Arguments) {
	return func(mock.Arguments) { ch <- struct{}{} }
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestScheduler_FiresAtDueTime(t *testing.T) {
	h := newHarness(t)
	a := &activity.Activity{ID: "a1", Kind: activity.KindCook, DueAt: t0.Add(30 * time.Minute)}
	h.expect(a)
	done := make(chan struct{}, 1)
	h.rule.On("Complete", mock.Anything, a).Return(activity.Done(), nil).Run(signal(done)).Once()

	require.NoError(t, h.sched.Register(a))
	require.True(t, h.sched.Live("a1"))
	require.Equal(t, 1, h.sched.Len())

	h.waitTimers(t, 1)
	h.clock.Advance(29 * time.Minute)
	require.True(t, h.sched.Live("a1"))

	h.clock.Advance(time.Minute)
	waitFor(t, done)

	require.Eventually(t, func() bool { return h.sched.Len() == 0 }, time.Second, 5*time.Millisecond)
	h.rule.AssertNumberOfCalls(t, "Complete", 1)
}

func TestScheduler_PastDueFiresImmediately(t *testing.T) {
	h := newHarness(t)
	a := &activity.Activity{ID: "a1", Kind: activity.KindCook, DueAt: t0.Add(-time.Hour)}
	h.expect(a)
	done := make(chan struct{}, 1)
	h.rule.On("Complete", mock.Anything, a).Return(activity.Done(), nil).Run(signal(done)).Once()

	require.NoError(t, h.sched.Register(a))
	waitFor(t, done)
	require.Eventually(t, func() bool { return !h.sched.Live("a1") }, time.Second, 5*time.Millisecond)
}

func TestScheduler_RegisterTwice(t *testing.T) {
	h := newHarness(t)
	a := &activity.Activity{ID: "a1", DueAt: t0.Add(time.Hour)}

	require.NoError(t, h.sched.Register(a))
	require.ErrorIs(t, h.sched.Register(a), scheduler.ErrAlreadyScheduled)
	require.Equal(t, 1, h.sched.Len())
}

func TestScheduler_CancelPreventsCompletion(t *testing.T) {
	h := newHarness(t)
	a := &activity.Activity{ID: "a1", DueAt: t0.Add(time.Hour)}

	require.NoError(t, h.sched.Register(a))
	h.waitTimers(t, 1)

	require.True(t, h.sched.Cancel("a1"))
	require.False(t, h.sched.Cancel("a1"))
	require.False(t, h.sched.Live("a1"))

	h.clock.Advance(2 * time.Hour)
	require.Equal(t, 0, h.sched.StopAll())

	h.loader.AssertNotCalled(t, "Get", mock.Anything, "a1")
	h.rule.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestScheduler_CancelAfterClaimIsNoop(t *testing.T) {
	h := newHarness(t)
	a := &activity.Activity{ID: "a1", DueAt: t0}
	h.expect(a)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	h.rule.On("Complete", mock.Anything, a).Return(activity.Done(), nil).Run(func(mock.Arguments) {
		entered <- struct{}{}
		<-release
	}).Once()

	require.NoError(t, h.sched.Register(a))
	waitFor(t, entered)

	require.False(t, h.sched.Cancel("a1"))
	close(release)
	h.sched.StopAll()
	h.rule.AssertNumberOfCalls(t, "Complete", 1)
}

func TestScheduler_Reschedule(t *testing.T) {
	h := newHarness(t)
	a := &activity.Activity{ID: "a1", Kind: activity.KindExplore, DueAt: t0.Add(10 * time.Minute)}
	next := &activity.Activity{ID: "a1", Kind: activity.KindExplore, DueAt: t0.Add(20 * time.Minute)}
	h.loader.On("Get", mock.Anything, "a1").Return(a, nil)
	h.resolver.On("ForActivity", a).Return(h.rule, nil)

	done := make(chan struct{}, 2)
	h.rule.On("Complete", mock.Anything, a).Return(activity.Reschedule(next), nil).Run(signal(done)).Once()
	h.rule.On("Complete", mock.Anything, a).Return(activity.Done(), nil).Run(signal(done)).Once()

	require.NoError(t, h.sched.Register(a))
	h.waitTimers(t, 1)
	h.clock.Advance(10 * time.Minute)
	waitFor(t, done)

	// The same id is re-armed for the next phase.
	h.waitTimers(t, 1)
	require.True(t, h.sched.Live("a1"))

	h.clock.Advance(10 * time.Minute)
	waitFor(t, done)
	require.Eventually(t, func() bool { return !h.sched.Live("a1") }, time.Second, 5*time.Millisecond)
	h.rule.AssertNumberOfCalls(t, "Complete", 2)
}

func TestScheduler_CompletionErrorIsContained(t *testing.T) {
	h := newHarness(t)
	bad := &activity.Activity{ID: "bad", DueAt: t0}
	good := &activity.Activity{ID: "good", DueAt: t0}
	h.expect(bad)
	h.expect(good)

	done := make(chan struct{}, 2)
	h.rule.On("Complete", mock.Anything, bad).Return(activity.Outcome{}, errors.New("group vanished")).Run(signal(done)).Once()
	h.rule.On("Complete", mock.Anything, good).Return(activity.Done(), nil).Run(signal(done)).Once()

	require.NoError(t, h.sched.Register(bad))
	require.NoError(t, h.sched.Register(good))
	waitFor(t, done)
	waitFor(t, done)

	h.sched.StopAll()
	require.False(t, h.sched.Live("bad"))
	h.rule.AssertExpectations(t)
}

func TestScheduler_VanishedRecord(t *testing.T) {
	h := newHarness(t)
	a := &activity.Activity{ID: "gone", DueAt: t0}
	h.loader.On("Get", mock.Anything, "gone").Return(nil, repository.ErrNotFound)

	require.NoError(t, h.sched.Register(a))
	require.Eventually(t, func() bool { return !h.sched.Live("gone") }, time.Second, 5*time.Millisecond)
	h.sched.StopAll()

	h.resolver.AssertNotCalled(t, "ForActivity", mock.Anything)
}

func TestScheduler_StopAll(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, h.sched.Register(&activity.Activity{ID: id, DueAt: t0.Add(time.Hour)}))
	}
	require.Equal(t, []string{"a", "b", "c"}, h.sched.LiveIDs())

	require.Equal(t, 3, h.sched.StopAll())
	require.Equal(t, 0, h.sched.Len())

	// Stopping is not terminal; timers can be armed again.
	require.NoError(t, h.sched.Register(&activity.Activity{ID: "a", DueAt: t0.Add(time.Hour)}))
	require.True(t, h.sched.Live("a"))
}
