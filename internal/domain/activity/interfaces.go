package activity

import (
	"context"

	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/domain/war"
)

// Repository provides persistence for activity records.
type Repository interface {
	Create(ctx context.Context, a *Activity) error
	Get(ctx context.Context, id string) (*Activity, error)
	Update(ctx context.Context, a *Activity) error
	Delete(ctx context.Context, id string) error
	ListOpen(ctx context.Context) ([]*Activity, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Activity, error)
	ListByGroup(ctx context.Context, groupID string) ([]*Activity, error)
	CountOpen(ctx context.Context, ownerID string, kind Kind) (int, error)
}

// Tx exposes the repositories bound to one storage transaction.
type Tx interface {
	Activities() Repository
	Players() player.Repository
	Cards() player.CardRepository
	Wars() war.Repository
}

// Store runs units of work atomically and serves non-transactional reads.
type Store interface {
	Atomic(ctx context.Context, fn func(Tx) error) error
	Get(ctx context.Context, id string) (*Activity, error)
	ListOpen(ctx context.Context) ([]*Activity, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Activity, error)
}

// Scheduler owns the live timers of open activities.
type Scheduler interface {
	Register(a *Activity) error
	Cancel(id string) bool
	Live(id string) bool
	StopAll() int
}
