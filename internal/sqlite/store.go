package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/domain/war"
)

// Store implements activity.Store. Atomic runs a unit of work in one SQLite
// transaction; the repositories handed to fn are bound to it.
type Store struct {
	db         *DB
	activities *ActivityRepository
}

// NewStore creates a new Store
func NewStore(db *DB) *Store {
	return &Store{db: db, activities: NewActivityRepository(db)}
}

// Atomic runs fn inside a transaction and commits when fn returns nil. Only the
// repositories exposed by tx may be used inside fn: the pool holds a single
// connection, so reaching for the Store's own readers would block.
func (s *Store) Atomic(ctx context.Context, fn func(tx activity.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(newTxRepos(sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves an activity record by ID
func (s *Store) Get(ctx context.Context, id string) (*activity.Activity, error) {
	return s.activities.Get(ctx, id)
}

// ListOpen returns every stored record
func (s *Store) ListOpen(ctx context.Context) ([]*activity.Activity, error) {
	return s.activities.ListOpen(ctx)
}

// ListByOwner returns the owner's records
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*activity.Activity, error) {
	return s.activities.ListByOwner(ctx, ownerID)
}

type txRepos struct {
	activities *ActivityRepository
	players    *PlayerRepository
	cards      *CardRepository
	wars       *WarRepository
}

func newTxRepos(tx *sql.Tx) *txRepos {
	return &txRepos{
		activities: &ActivityRepository{q: tx},
		players:    &PlayerRepository{q: tx},
		cards:      &CardRepository{q: tx},
		wars:       &WarRepository{q: tx},
	}
}

func (t *txRepos) Activities() activity.Repository { return t.activities }
func (t *txRepos) Players() player.Repository { return t.players }
func (t *txRepos) Cards() player.CardRepository { return t.cards }
func (t *txRepos) Wars() war.Repository { return t.wars }
