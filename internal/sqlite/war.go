package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/starcards/internal/domain/war"
	"github.com/rpggio/starcards/internal/repository"
)

const warColumns = `id, defender_id, status, participants, plunder, attackers_won, starts_at, created_at`

// WarRepository implements war.Repository for SQLite
type WarRepository struct {
	q queryer
}

// NewWarRepository creates a new WarRepository
func NewWarRepository(db *DB) *WarRepository {
	return &WarRepository{q: db}
}

// Create inserts a new war group
func (r *WarRepository) Create(ctx context.Context, w *war.War) error {
	query := `INSERT INTO wars (` + warColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		w.ID,
		w.DefenderID,
		w.Status,
		w.Participants,
		w.Plunder,
		w.AttackersWon,
		toNanos(w.StartsAt),
		toNanos(w.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create war: %w", err)
	}
	return nil
}

// Get retrieves a war by ID
func (r *WarRepository) Get(ctx context.Context, id string) (*war.War, error) {
	query := `SELECT ` + warColumns + ` FROM wars WHERE id = ?`
	return r.get(ctx, query, id)
}

// FindMustering returns the defender's most recent war still accepting attackers
func (r *WarRepository) FindMustering(ctx context.Context, defenderID string) (*war.War, error) {
	query := `SELECT ` + warColumns + ` FROM wars WHERE defender_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1`
	return r.get(ctx, query, defenderID, war.StatusMustering)
}

// Update writes the mutable fields of a war
func (r *WarRepository) Update(ctx context.Context, w *war.War) error {
	query := `UPDATE wars SET status = ?, participants = ?, plunder = ?, attackers_won = ?, starts_at = ? WHERE id = ?`

	result, err := r.q.ExecContext(ctx, query, w.Status, w.Participants, w.Plunder, w.AttackersWon, toNanos(w.StartsAt), w.ID)
	if err != nil {
		return fmt.Errorf("failed to update war: %w", err)
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

// Delete removes a war group
func (r *WarRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM wars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete war: %w", err)
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

func (r *WarRepository) get(ctx context.Context, query string, args ...any) (*war.War, error) {
	var w war.War
	var startsAt, createdAt int64
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&w.ID,
		&w.DefenderID,
		&w.Status,
		&w.Participants,
		&w.Plunder,
		&w.AttackersWon,
		&startsAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get war: %w", err)
	}
	w.StartsAt = fromNanos(startsAt)
	w.CreatedAt = fromNanos(createdAt)
	return &w, nil
}
