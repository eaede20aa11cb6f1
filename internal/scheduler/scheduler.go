// Package scheduler owns the in-process timers of open activities and runs
// their completions when they fall due.
package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/observability"
	"github.com/rpggio/starcards/internal/repository"
)

var (
	// ErrAlreadyScheduled indicates a live timer already exists for the id.
	ErrAlreadyScheduled = errors.New("activity already scheduled")
	// ErrStopping indicates StopAll is in progress.
	ErrStopping = errors.New("scheduler is stopping")
)

// Loader fetches the current state of a record right before completion.
type Loader interface {
	Get(ctx context.Context, id string) (*activity.Activity, error)
}

// Resolver finds the rule governing a record.
type Resolver interface {
	ForActivity(a *activity.Activity) (activity.Rule, error)
}

type handle struct {
	dueAt  time.Time
	cancel context.CancelFunc
}

// Scheduler keeps at most one live timer per activity id.
type Scheduler struct {
	loader   Loader
	resolver Resolver

	clock             clockwork.Clock
	logger            *slog.Logger
	workers           *semaphore.Weighted
	completionTimeout time.Duration

	mu       sync.Mutex
	live     map[string]*handle
	stopping bool
	wg       sync.WaitGroup
}

// New creates a scheduler.
func New(loader Loader, resolver Resolver, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		loader:            loader,
		resolver:          resolver,
		clock:             o.clock,
		logger:            logger,
		workers:           semaphore.NewWeighted(int64(o.workers)),
		completionTimeout: o.completionTimeout,
		live:              make(map[string]*handle),
	}
}

// Register arms a timer for a. A due time in the past completes right away,
// on a scheduler goroutine.
func (s *Scheduler) Register(a *activity.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		return ErrStopping
	}
	if _, ok := s.live[a.ID]; ok {
		return ErrAlreadyScheduled
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{dueAt: a.DueAt, cancel: cancel}
	s.live[a.ID] = h
	observability.TimerArmed()

	s.wg.Add(1)
	go s.run(ctx, a.ID, h)

	s.logger.Debug("timer armed", "activity_id", a.ID, "kind", a.Kind, "due_at", a.DueAt)
	return nil
}

// Cancel releases the live timer for id. It returns false when no timer is
// live, which includes the case where completion has already claimed it.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	h, ok := s.live[id]
	if ok {
		delete(s.live, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	h.cancel()
	observability.TimerReleased()
	s.logger.Debug("timer cancelled", "activity_id", id)
	return true
}

// StopAll cancels every live timer and waits for in-flight completions. It
// never touches storage. It returns the number of timers cancelled.
func (s *Scheduler) StopAll() int {
	s.mu.Lock()
	s.stopping = true
	handles := s.live
	s.live = make(map[string]*handle)
	s.mu.Unlock()

	for _, h := range handles {
		h.cancel()
		observability.TimerReleased()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.stopping = false
	s.mu.Unlock()
	return len(handles)
}

// Live reports whether a timer is armed for id.
func (s *Scheduler) Live(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[id]
	return ok
}

// Len returns the number of live timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// LiveIDs returns the sorted ids of every live timer.
func (s *Scheduler) LiveIDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (s *Scheduler) run(ctx context.Context, id string, h *handle) {
	defer s.wg.Done()

	if delay := h.dueAt.Sub(s.clock.Now()); delay > 0 {
		timer := s.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}

	if !s.claim(id, h) {
		return
	}
	s.complete(id)
}

// claim removes h from the live set if it is still the registered handle.
// Once claimed, Cancel for id is a no-op.
func (s *Scheduler) claim(id string, h *handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live[id] != h {
		return false
	}
	delete(s.live, id)
	observability.TimerReleased()
	return true
}

func (s *Scheduler) complete(id string) {
	_ = s.workers.Acquire(context.Background(), 1)
	defer s.workers.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), s.completionTimeout)
	defer cancel()

	start := s.clock.Now()
	rec, err := s.loader.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("due activity no longer stored", "activity_id", id)
			observability.CompletionFinished("unknown", "vanished", 0)
			return
		}
		s.logger.Error("failed to load due activity", "activity_id", id, "error", err)
		observability.CompletionFinished("unknown", "error", 0)
		return
	}

	kind := string(rec.Kind)
	rule, err := s.resolver.ForActivity(rec)
	if err != nil {
		s.logger.Error("no rule for due activity", "activity_id", id, "kind", kind, "error", err)
		observability.CompletionFinished(kind, "error", 0)
		return
	}

	outcome, err := rule.Complete(ctx, rec)
	elapsed := s.clock.Since(start)
	if err != nil {
		// The record stays stored and is retried when timers are next resumed.
		s.logger.Error("activity completion failed", "activity_id", id, "kind", kind, "error", err)
		observability.CompletionFinished(kind, "error", elapsed)
		return
	}

	if outcome.Next == nil {
		s.logger.Info("activity completed", "activity_id", id, "kind", kind)
		observability.CompletionFinished(kind, "done", elapsed)
		return
	}

	observability.CompletionFinished(kind, "rescheduled", elapsed)
	if err := s.Register(outcome.Next); err != nil {
		s.logger.Warn("failed to re-arm activity for next phase", "activity_id", id, "kind", kind, "error", err)
		return
	}
	s.logger.Info("activity entered next phase", "activity_id", id, "kind", kind, "due_at", outcome.Next.DueAt)
}
