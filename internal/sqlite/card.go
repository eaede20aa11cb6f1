package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/repository"
)

const cardColumns = `id, owner_id, name, level, power, damaged, activity_id, created_at`

// CardRepository implements player.CardRepository for SQLite
type CardRepository struct {
	q queryer
}

// NewCardRepository creates a new CardRepository
func NewCardRepository(db *DB) *CardRepository {
	return &CardRepository{q: db}
}

// Create inserts a new card
func (r *CardRepository) Create(ctx context.Context, c *player.Card) error {
	query := `INSERT INTO cards (` + cardColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		c.ID,
		c.OwnerID,
		c.Name,
		c.Level,
		c.Power,
		c.Damaged,
		c.ActivityID,
		toNanos(c.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// Get retrieves one of the owner's cards
func (r *CardRepository) Get(ctx context.Context, ownerID, id string) (*player.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = ? AND owner_id = ?`

	c, err := scanCard(r.q.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return c, nil
}

// GetMany retrieves the owner's cards in the requested order. Any missing id
// yields repository.ErrNotFound.
func (r *CardRepository) GetMany(ctx context.Context, ownerID string, ids []string) ([]*player.Card, error) {
	cards := make([]*player.Card, 0, len(ids))
	for _, id := range ids {
		c, err := r.Get(ctx, ownerID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("card %s: %w", id, repository.ErrNotFound)
			}
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// ListByOwner returns every card of the owner
func (r *CardRepository) ListByOwner(ctx context.Context, ownerID string) ([]*player.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = ? ORDER BY created_at, id`
	return r.list(ctx, query, ownerID)
}

// ListFree returns the owner's cards not committed to any activity
func (r *CardRepository) ListFree(ctx context.Context, ownerID string) ([]*player.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = ? AND activity_id IS NULL ORDER BY created_at, id`
	return r.list(ctx, query, ownerID)
}

// Update writes a card's mutable attributes. The activity back-reference is
// only changed through Commit and Release.
func (r *CardRepository) Update(ctx context.Context, c *player.Card) error {
	query := `
		UPDATE cards SET name = ?, level = ?, power = ?, damaged = ?
		WHERE id = ? AND owner_id = ?
	`

	result, err := r.q.ExecContext(ctx, query, c.Name, c.Level, c.Power, c.Damaged, c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Commit points every card at activityID. A card already committed elsewhere
// makes the call fail with repository.ErrConflict; run it inside a transaction
// so that a partial commit is rolled back.
func (r *CardRepository) Commit(ctx context.Context, ownerID string, ids []string, activityID string) error {
	query := `UPDATE cards SET activity_id = ? WHERE id = ? AND owner_id = ? AND activity_id IS NULL`

	for _, id := range ids {
		result, err := r.q.ExecContext(ctx, query, activityID, id, ownerID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to commit card: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("card %s: %w", id, repository.ErrConflict)
		}
	}
	return nil
}

// Release clears the back-reference of every card held by activityID
func (r *CardRepository) Release(ctx context.Context, activityID string) (int, error) {
	result, err := r.q.ExecContext(ctx, `UPDATE cards SET activity_id = NULL WHERE activity_id = ?`, activityID)
	if err != nil {
		return 0, fmt.Errorf("failed to release cards: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (r *CardRepository) list(ctx context.Context, query string, args ...any) ([]*player.Card, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*player.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*player.Card, error) {
	var c player.Card
	var activityID sql.NullString
	var createdAt int64
	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Level,
		&c.Power,
		&c.Damaged,
		&activityID,
		&createdAt,
	); err != nil {
		return nil, err
	}
	if activityID.Valid {
		c.ActivityID = &activityID.String
	}
	c.CreatedAt = fromNanos(createdAt)
	return &c, nil
}
