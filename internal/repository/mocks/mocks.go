package mocks

import (
	"context"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/stretchr/testify/mock"
)

// Store is a mock for activity.Store. Atomic hands Tx to fn when one is set.
type Store struct {
	mock.Mock
	Tx activity.Tx
}

func (m *Store) Atomic(ctx context.Context, fn func(activity.Tx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Tx)
}

func (m *Store) Get(ctx context.Context, id string) (*activity.Activity, error) {
	args := m.Called(ctx, id)
	if a, ok := args.Get(0).(*activity.Activity); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) ListOpen(ctx context.Context) ([]*activity.Activity, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]*activity.Activity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) ListByOwner(ctx context.Context, ownerID string) ([]*activity.Activity, error) {
	args := m.Called(ctx, ownerID)
	if list, ok := args.Get(0).([]*activity.Activity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Scheduler is a mock for activity.Scheduler.
type Scheduler struct {
	mock.Mock
}

func (m *Scheduler) Register(a *activity.Activity) error {
	args := m.Called(a)
	return args.Error(0)
}

func (m *Scheduler) Cancel(id string) bool {
	args := m.Called(id)
	return args.Bool(0)
}

func (m *Scheduler) Live(id string) bool {
	args := m.Called(id)
	return args.Bool(0)
}

func (m *Scheduler) StopAll() int {
	args := m.Called()
	return args.Int(0)
}

// Rule is a mock for activity.Rule.
type Rule struct {
	mock.Mock
	RuleKind activity.Kind
}

func (m *Rule) Kind() activity.Kind {
	return m.RuleKind
}

func (m *Rule) CanExecute(owner *player.Player, cards []*player.Card, req activity.Request) (bool, string) {
	args := m.Called(owner, cards, req)
	return args.Bool(0), args.String(1)
}

func (m *Rule) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	args := m.Called(ctx, ownerID, req)
	if list, ok := args.Get(0).([]*activity.Activity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Rule) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	args := m.Called(ctx, ownerID, req)
	if est, ok := args.Get(0).(*activity.Estimate); ok {
		return est, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Rule) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(activity.Outcome), args.Error(1)
}

func (m *Rule) Cancel(ctx context.Context, a *activity.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// CancellableRule is a Rule mock that also implements activity.Cancellable.
type CancellableRule struct {
	Rule
}

func (m *CancellableRule) CanCancel(a *activity.Activity) (bool, string) {
	args := m.Called(a)
	return args.Bool(0), args.String(1)
}

// Resolver is a mock for the scheduler's rule lookup.
type Resolver struct {
	mock.Mock
}

func (m *Resolver) ForActivity(a *activity.Activity) (activity.Rule, error) {
	args := m.Called(a)
	if rule, ok := args.Get(0).(activity.Rule); ok {
		return rule, args.Error(1)
	}
	return nil, args.Error(1)
}

// PlayerRepository is a mock for player.Repository.
type PlayerRepository struct {
	mock.Mock
}

func (m *PlayerRepository) Create(ctx context.Context, p *player.Player) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *PlayerRepository) Get(ctx context.Context, id string) (*player.Player, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*player.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlayerRepository) Debit(ctx context.Context, id string, cost player.Resources) error {
	args := m.Called(ctx, id, cost)
	return args.Error(0)
}

func (m *PlayerRepository) Credit(ctx context.Context, id string, amount player.Resources) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *PlayerRepository) SetBuildingLevel(ctx context.Context, id string, b player.Building, level int) error {
	args := m.Called(ctx, id, b, level)
	return args.Error(0)
}

func (m *PlayerRepository) IncrementStat(ctx context.Context, id string, stat player.Stat, delta int64) error {
	args := m.Called(ctx, id, stat, delta)
	return args.Error(0)
}

func (m *PlayerRepository) Stats(ctx context.Context, id string) (map[player.Stat]int64, error) {
	args := m.Called(ctx, id)
	if stats, ok := args.Get(0).(map[player.Stat]int64); ok {
		return stats, args.Error(1)
	}
	return nil, args.Error(1)
}

// CardRepository is a mock for player.CardRepository.
type CardRepository struct {
	mock.Mock
}

func (m *CardRepository) Create(ctx context.Context, c *player.Card) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CardRepository) Get(ctx context.Context, ownerID, id string) (*player.Card, error) {
	args := m.Called(ctx, ownerID, id)
	if c, ok := args.Get(0).(*player.Card); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) GetMany(ctx context.Context, ownerID string, ids []string) ([]*player.Card, error) {
	args := m.Called(ctx, ownerID, ids)
	if list, ok := args.Get(0).([]*player.Card); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) ListByOwner(ctx context.Context, ownerID string) ([]*player.Card, error) {
	args := m.Called(ctx, ownerID)
	if list, ok := args.Get(0).([]*player.Card); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) ListFree(ctx context.Context, ownerID string) ([]*player.Card, error) {
	args := m.Called(ctx, ownerID)
	if list, ok := args.Get(0).([]*player.Card); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardRepository) Update(ctx context.Context, c *player.Card) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CardRepository) Commit(ctx context.Context, ownerID string, ids []string, activityID string) error {
	args := m.Called(ctx, ownerID, ids, activityID)
	return args.Error(0)
}

func (m *CardRepository) Release(ctx context.Context, activityID string) (int, error) {
	args := m.Called(ctx, activityID)
	return args.Int(0), args.Error(1)
}
