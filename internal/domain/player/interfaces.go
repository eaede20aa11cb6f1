package player

import "context"

// Repository provides persistence for players.
type Repository interface {
	Create(ctx context.Context, p *Player) error
	Get(ctx context.Context, id string) (*Player, error)
	Debit(ctx context.Context, id string, cost Resources) error
	Credit(ctx context.Context, id string, amount Resources) error
	SetBuildingLevel(ctx context.Context, id string, b Building, level int) error
	IncrementStat(ctx context.Context, id string, stat Stat, delta int64) error
	Stats(ctx context.Context, id string) (map[Stat]int64, error)
}

// CardRepository provides persistence for cards and their activity back-references.
type CardRepository interface {
	Create(ctx context.Context, c *Card) error
	Get(ctx context.Context, ownerID, id string) (*Card, error)
	GetMany(ctx context.Context, ownerID string, ids []string) ([]*Card, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Card, error)
	ListFree(ctx context.Context, ownerID string) ([]*Card, error)
	Update(ctx context.Context, c *Card) error
	Commit(ctx context.Context, ownerID string, ids []string, activityID string) error
	Release(ctx context.Context, activityID string) (int, error)
}
