package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/repository"
)

const activityColumns = `
	id, owner_id, kind, group_id, card_ids,
	cost_coins, cost_food, cost_materials, cost_fuel,
	due_at, payload, created_at, updated_at`

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	q queryer
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{q: db}
}

// Create inserts a new activity record
func (r *ActivityRepository) Create(ctx context.Context, a *activity.Activity) error {
	cardIDs, err := json.Marshal(nonNil(a.CardIDs))
	if err != nil {
		return fmt.Errorf("failed to encode card ids: %w", err)
	}

	query := `INSERT INTO activities (` + activityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.q.ExecContext(ctx, query,
		a.ID,
		a.OwnerID,
		a.Kind,
		a.GroupID,
		string(cardIDs),
		a.Cost.Coins,
		a.Cost.Food,
		a.Cost.Materials,
		a.Cost.Fuel,
		toNanos(a.DueAt),
		string(a.Payload),
		toNanos(a.CreatedAt),
		toNanos(a.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// Get retrieves an activity record by ID
func (r *ActivityRepository) Get(ctx context.Context, id string) (*activity.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = ?`

	a, err := scanActivity(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// Update writes the phase-mutable fields of a record: due time, payload and group
func (r *ActivityRepository) Update(ctx context.Context, a *activity.Activity) error {
	query := `
		UPDATE activities
		SET group_id = ?, due_at = ?, payload = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		a.GroupID,
		toNanos(a.DueAt),
		string(a.Payload),
		toNanos(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
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

// Delete removes a record. Cards still pointing at it make this fail with
// repository.ErrForeignKeyViolation.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete activity: %w", err)
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

// ListOpen returns every stored record ordered by due time
func (r *ActivityRepository) ListOpen(ctx context.Context) ([]*activity.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities ORDER BY due_at, id`
	return r.list(ctx, query)
}

// ListByOwner returns the owner's records ordered by due time
func (r *ActivityRepository) ListByOwner(ctx context.Context, ownerID string) ([]*activity.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE owner_id = ? ORDER BY due_at, id`
	return r.list(ctx, query, ownerID)
}

// ListByGroup returns the records linked to a group entity
func (r *ActivityRepository) ListByGroup(ctx context.Context, groupID string) ([]*activity.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE group_id = ? ORDER BY due_at, id`
	return r.list(ctx, query, groupID)
}

// CountOpen counts the owner's records of one kind
func (r *ActivityRepository) CountOpen(ctx context.Context, ownerID string, kind activity.Kind) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE owner_id = ? AND kind = ?`, ownerID, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return n, nil
}

func (r *ActivityRepository) list(ctx context.Context, query string, args ...any) ([]*activity.Activity, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var out []*activity.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return out, nil
}

func scanActivity(row rowScanner) (*activity.Activity, error) {
	var a activity.Activity
	var groupID sql.NullString
	var cardIDs, payload string
	var dueAt, createdAt, updatedAt int64
	if err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Kind,
		&groupID,
		&cardIDs,
		&a.Cost.Coins,
		&a.Cost.Food,
		&a.Cost.Materials,
		&a.Cost.Fuel,
		&dueAt,
		&payload,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if groupID.Valid {
		a.GroupID = &groupID.String
	}
	if err := json.Unmarshal([]byte(cardIDs), &a.CardIDs); err != nil {
		return nil, fmt.Errorf("decoding card ids: %w", err)
	}
	if payload != "" {
		a.Payload = json.RawMessage(payload)
	}
	a.DueAt = fromNanos(dueAt)
	a.CreatedAt = fromNanos(createdAt)
	a.UpdatedAt = fromNanos(updatedAt)
	return &a, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
