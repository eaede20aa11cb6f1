package activity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/starcards/internal/observability"
	"github.com/rpggio/starcards/internal/repository"
)

// Service is the entry point used by the transport layer. It validates and
// starts activities through their rules and keeps the scheduler in step with
// storage.
type Service struct {
	store     Store
	rules     *Registry
	scheduler Scheduler
	logger    *slog.Logger
}

// NewService creates a new activity service.
func NewService(store Store, rules *Registry, scheduler Scheduler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, rules: rules, scheduler: scheduler, logger: logger}
}

// CreateActivity validates and starts an activity, then schedules every record
// the rule produced.
func (s *Service) CreateActivity(ctx context.Context, ownerID, kind string, req Request) ([]Projection, error) {
	rule, err := s.rules.ForName(kind)
	if err != nil {
		return nil, err
	}

	records, err := rule.Start(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}

	out := make([]Projection, 0, len(records))
	for _, a := range records {
		if err := s.scheduler.Register(a); err != nil {
			return nil, Internal("scheduling activity", err)
		}
		observability.ActivityStarted(string(a.Kind))
		s.logger.Info("activity started", "activity_id", a.ID, "owner_id", a.OwnerID, "kind", a.Kind, "due_at", a.DueAt)
		out = append(out, Project(a))
	}
	return out, nil
}

// EstimateActivity previews an activity without mutating anything.
func (s *Service) EstimateActivity(ctx context.Context, ownerID, kind string, req Request) (*Estimate, error) {
	rule, err := s.rules.ForName(kind)
	if err != nil {
		return nil, err
	}
	return rule.Estimate(ctx, ownerID, req)
}

// DeleteActivity cancels an open activity and refunds its cost. The timer is
// claimed first so that cancellation and completion never both run.
func (s *Service) DeleteActivity(ctx context.Context, ownerID, activityID string) error {
	a, err := s.load(ctx, ownerID, activityID)
	if err != nil {
		return err
	}
	rule, err := s.rules.ForActivity(a)
	if err != nil {
		return err
	}
	if err := checkCancellable(rule, a); err != nil {
		return err
	}

	if !s.scheduler.Cancel(a.ID) {
		return CancelDenied("activity %s is already completing", a.ID)
	}

	// The record may have moved to a later phase between the load and the claim.
	current, err := s.store.Get(ctx, a.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("activity %s not found", a.ID)
		}
		s.rearm(a)
		return Internal("reloading activity", err)
	}
	if err := checkCancellable(rule, current); err != nil {
		s.rearm(current)
		return err
	}

	if err := rule.Cancel(ctx, current); err != nil {
		s.rearm(current)
		return err
	}

	observability.ActivityCancelled(string(current.Kind))
	s.logger.Info("activity cancelled", "activity_id", current.ID, "owner_id", current.OwnerID, "kind", current.Kind)
	return nil
}

// GetActivity returns one of the owner's open activities.
func (s *Service) GetActivity(ctx context.Context, ownerID, activityID string) (*Projection, error) {
	a, err := s.load(ctx, ownerID, activityID)
	if err != nil {
		return nil, err
	}
	p := Project(a)
	return &p, nil
}

// ListActivities returns the owner's open activities ordered by due time.
func (s *Service) ListActivities(ctx context.Context, ownerID string) ([]Projection, error) {
	records, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, Internal("listing activities", err)
	}
	out := make([]Projection, 0, len(records))
	for _, a := range records {
		out = append(out, Project(a))
	}
	return out, nil
}

// RestartAll arms a timer for every stored activity that is not already live.
// It never touches resources, so calling it repeatedly is safe.
func (s *Service) RestartAll(ctx context.Context) (int, error) {
	records, err := s.store.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading open activities: %w", err)
	}

	armed := 0
	for _, a := range records {
		if s.scheduler.Live(a.ID) {
			continue
		}
		if err := s.scheduler.Register(a); err != nil {
			s.logger.Warn("failed to re-arm activity", "activity_id", a.ID, "error", err)
			continue
		}
		armed++
	}
	observability.ActivitiesResumed(armed)
	s.logger.Info("activities resumed", "armed", armed, "stored", len(records))
	return armed, nil
}

// StopAll stops every local timer without touching storage.
func (s *Service) StopAll() int {
	n := s.scheduler.StopAll()
	s.logger.Info("activity timers stopped", "count", n)
	return n
}

func (s *Service) load(ctx context.Context, ownerID, activityID string) (*Activity, error) {
	a, err := s.store.Get(ctx, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("activity %s not found", activityID)
		}
		return nil, Internal("loading activity", err)
	}
	if a.OwnerID != ownerID {
		return nil, NotFound("activity %s not found", activityID)
	}
	return a, nil
}

func (s *Service) rearm(a *Activity) {
	if err := s.scheduler.Register(a); err != nil {
		s.logger.Error("failed to re-arm activity after refused cancel", "activity_id", a.ID, "error", err)
	}
}

func checkCancellable(rule Rule, a *Activity) error {
	c, ok := rule.(Cancellable)
	if !ok {
		return nil
	}
	if allowed, reason := c.CanCancel(a); !allowed {
		return CancelDenied("%s", reason)
	}
	return nil
}
