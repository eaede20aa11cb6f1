package activity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/repository"
	"github.com/rpggio/starcards/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceHarness struct {
	store *mocks.Store
	sched *mocks.Scheduler
	cook  *mocks.Rule
	probe *mocks.CancellableRule
	svc   *activity.Service
}

// newServiceHarness wires a registry whose cook rule is a plain mock and whose
// explore rule also implements Cancellable.
func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	h := &serviceHarness{
		store: &mocks.Store{},
		sched: &mocks.Scheduler{},
		cook:  &mocks.Rule{RuleKind: activity.KindCook},
		probe: &mocks.CancellableRule{Rule: mocks.Rule{RuleKind: activity.KindExplore}},
	}
	rules := []activity.Rule{h.cook, h.probe}
	for _, k := range activity.Kinds {
		if k != activity.KindCook && k != activity.KindExplore {
			rules = append(rules, &mocks.Rule{RuleKind: k})
		}
	}
	reg, err := activity.NewRegistry(rules...)
	require.NoError(t, err)
	h.svc = activity.NewService(h.store, reg, h.sched, nil)
	return h
}

func TestService_CreateActivity(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	req := activity.Request{CardIDs: []string{"c1"}}
	a := &activity.Activity{ID: "a1", OwnerID: "p1", Kind: activity.KindCook, CardIDs: []string{"c1"}, DueAt: time.Now().Add(30 * time.Minute)}

	h.cook.On("Start", ctx, "p1", req).Return([]*activity.Activity{a}, nil)
	h.sched.On("Register", a).Return(nil)

	out, err := h.svc.CreateActivity(ctx, "p1", "COOK", req)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "a1", out[0].ID)
	require.Equal(t, a.DueAt, out[0].DueAt)
	h.sched.AssertNumberOfCalls(t, "Register", 1)
}

func TestService_CreateActivity_InvalidSchedulesNothing(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	req := activity.Request{CardIDs: []string{"c1"}}

	h.cook.On("Start", ctx, "p1", req).Return(nil, activity.Invalid("card c1 is busy"))

	_, err := h.svc.CreateActivity(ctx, "p1", "cook", req)
	require.ErrorIs(t, err, activity.ErrInvalid)
	h.sched.AssertNotCalled(t, "Register", mock.Anything)
}

func TestService_CreateActivity_UnknownKind(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.svc.CreateActivity(context.Background(), "p1", "casino", activity.Request{})
	require.ErrorIs(t, err, activity.ErrNotFound)
}

func TestService_EstimateActivity(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	req := activity.Request{CardIDs: []string{"c1"}}
	est := &activity.Estimate{Kind: activity.KindCook, Allowed: true}

	h.cook.On("Estimate", ctx, "p1", req).Return(est, nil)

	got, err := h.svc.EstimateActivity(ctx, "p1", "cook", req)
	require.NoError(t, err)
	require.Same(t, est, got)
	h.cook.AssertNotCalled(t, "Start", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_DeleteActivity(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	a := &activity.Activity{ID: "a1", OwnerID: "p1", Kind: activity.KindCook}

	h.store.On("Get", ctx, "a1").Return(a, nil)
	h.sched.On("Cancel", "a1").Return(true)
	h.cook.On("Cancel", ctx, a).Return(nil)

	require.NoError(t, h.svc.DeleteActivity(ctx, "p1", "a1"))
	h.cook.AssertExpectations(t)
}

func TestService_DeleteActivity_OtherOwner(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	h.store.On("Get", ctx, "a1").Return(&activity.Activity{ID: "a1", OwnerID: "p2", Kind: activity.KindCook}, nil)

	err := h.svc.DeleteActivity(ctx, "p1", "a1")
	require.ErrorIs(t, err, activity.ErrNotFound)
	h.sched.AssertNotCalled(t, "Cancel", mock.Anything)
}

func TestService_DeleteActivity_Missing(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	h.store.On("Get", ctx, "a1").Return(nil, repository.ErrNotFound)

	err := h.svc.DeleteActivity(ctx, "p1", "a1")
	require.ErrorIs(t, err, activity.ErrNotFound)
}

func TestService_DeleteActivity_AlreadyCompleting(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	a := &activity.Activity{ID: "a1", OwnerID: "p1", Kind: activity.KindCook}

	h.store.On("Get", ctx, "a1").Return(a, nil)
	h.sched.On("Cancel", "a1").Return(false)

	err := h.svc.DeleteActivity(ctx, "p1", "a1")
	require.ErrorIs(t, err, activity.ErrCancelDenied)
	h.cook.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestService_DeleteActivity_DeniedBeforeClaim(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	a := &activity.Activity{ID: "a1", OwnerID: "p1", Kind: activity.KindExplore}

	h.store.On("Get", ctx, "a1").Return(a, nil)
	h.probe.On("CanCancel", a).Return(false, "expedition is already on its way back")

	err := h.svc.DeleteActivity(ctx, "p1", "a1")
	require.ErrorIs(t, err, activity.ErrCancelDenied)
	require.Equal(t, "expedition is already on its way back", activity.ReasonOf(err))
	h.sched.AssertNotCalled(t, "Cancel", mock.Anything)
}

func TestService_DeleteActivity_RuleRefusesRearms(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	a := &activity.Activity{ID: "a1", OwnerID: "p1", Kind: activity.KindExplore}

	h.store.On("Get", ctx, "a1").Return(a, nil)
	h.probe.On("CanCancel", a).Return(true, "")
	h.sched.On("Cancel", "a1").Return(true)
	h.probe.On("Cancel", ctx, a).Return(errors.New("database is locked"))
	h.sched.On("Register", a).Return(nil)

	err := h.svc.DeleteActivity(ctx, "p1", "a1")
	require.Error(t, err)
	h.sched.AssertCalled(t, "Register", a)
}

func TestService_ListActivities(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	h.store.On("ListByOwner", ctx, "p1").Return([]*activity.Activity{
		{ID: "a1", OwnerID: "p1", Kind: activity.KindCook},
		{ID: "a2", OwnerID: "p1", Kind: activity.KindTrain},
	}, nil)

	out, err := h.svc.ListActivities(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, activity.KindTrain, out[1].Kind)
}

func TestService_RestartAll_SkipsLive(t *testing.T) {
	ctx := context.Background()
	h := newServiceHarness(t)
	live := &activity.Activity{ID: "live"}
	idle := &activity.Activity{ID: "idle"}

	h.store.On("ListOpen", ctx).Return([]*activity.Activity{live, idle}, nil)
	h.sched.On("Live", "live").Return(true)
	h.sched.On("Live", "idle").Return(false)
	h.sched.On("Register", idle).Return(nil)

	armed, err := h.svc.RestartAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, armed)
	h.sched.AssertNotCalled(t, "Register", live)
}

func TestService_StopAll(t *testing.T) {
	h := newServiceHarness(t)
	h.sched.On("StopAll").Return(4)

	require.Equal(t, 4, h.svc.StopAll())
}
