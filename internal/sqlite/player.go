package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/repository"
)

// PlayerRepository implements player.Repository for SQLite
type PlayerRepository struct {
	q queryer
}

// NewPlayerRepository creates a new PlayerRepository
func NewPlayerRepository(db *DB) *PlayerRepository {
	return &PlayerRepository{q: db}
}

// Create inserts a player and its building levels
func (r *PlayerRepository) Create(ctx context.Context, p *player.Player) error {
	query := `
		INSERT INTO players (id, name, coins, food, materials, fuel, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.q.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Resources.Coins,
		p.Resources.Food,
		p.Resources.Materials,
		p.Resources.Fuel,
		toNanos(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create player: %w", err)
	}

	for b, level := range p.Buildings {
		if err := r.SetBuildingLevel(ctx, p.ID, b, level); err != nil {
			return err
		}
	}

	return nil
}

// Get retrieves a player with building levels
func (r *PlayerRepository) Get(ctx context.Context, id string) (*player.Player, error) {
	query := `
		SELECT id, name, coins, food, materials, fuel, created_at
		FROM players
		WHERE id = ?
	`

	var p player.Player
	var createdAt int64
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Resources.Coins,
		&p.Resources.Food,
		&p.Resources.Materials,
		&p.Resources.Fuel,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	p.CreatedAt = fromNanos(createdAt)

	rows, err := r.q.QueryContext(ctx, `SELECT building, level FROM buildings WHERE player_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get buildings: %w", err)
	}
	defer rows.Close()

	p.Buildings = make(map[player.Building]int)
	for rows.Next() {
		var b player.Building
		var level int
		if err := rows.Scan(&b, &level); err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		p.Buildings[b] = level
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating building rows: %w", err)
	}

	return &p, nil
}

// Debit subtracts cost, refusing to overdraw any balance
func (r *PlayerRepository) Debit(ctx context.Context, id string, cost player.Resources) error {
	query := `
		UPDATE players
		SET coins = coins - ?, food = food - ?, materials = materials - ?, fuel = fuel - ?
		WHERE id = ? AND coins >= ? AND food >= ? AND materials >= ? AND fuel >= ?
	`

	result, err := r.q.ExecContext(ctx, query,
		cost.Coins, cost.Food, cost.Materials, cost.Fuel,
		id,
		cost.Coins, cost.Food, cost.Materials, cost.Fuel,
	)
	if err != nil {
		return fmt.Errorf("failed to debit player: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return player.ErrInsufficientResources
	}

	return nil
}

// Credit adds amount to the player's balances. A negative amount that would
// overdraw a balance fails with player.ErrInsufficientResources.
func (r *PlayerRepository) Credit(ctx context.Context, id string, amount player.Resources) error {
	query := `
		UPDATE players
		SET coins = coins + ?, food = food + ?, materials = materials + ?, fuel = fuel + ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		amount.Coins, amount.Food, amount.Materials, amount.Fuel, id)
	if err != nil {
		if isCheckViolation(err) {
			return player.ErrInsufficientResources
		}
		return fmt.Errorf("failed to credit player: %w", err)
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

// SetBuildingLevel upserts the level of one building
func (r *PlayerRepository) SetBuildingLevel(ctx context.Context, id string, b player.Building, level int) error {
	query := `
		INSERT INTO buildings (player_id, building, level) VALUES (?, ?, ?)
		ON CONFLICT(player_id, building) DO UPDATE SET level = excluded.level
	`

	if _, err := r.q.ExecContext(ctx, query, id, b, level); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to set building level: %w", err)
	}
	return nil
}

// IncrementStat bumps one of the closed set of player counters
func (r *PlayerRepository) IncrementStat(ctx context.Context, id string, stat player.Stat, delta int64) error {
	if !stat.Valid() {
		return player.ErrUnknownStat
	}

	query := `
		INSERT INTO player_stats (player_id, stat, value) VALUES (?, ?, ?)
		ON CONFLICT(player_id, stat) DO UPDATE SET value = value + excluded.value
	`

	if _, err := r.q.ExecContext(ctx, query, id, stat, delta); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to increment stat: %w", err)
	}
	return nil
}

// Stats returns every non-zero counter of the player
func (r *PlayerRepository) Stats(ctx context.Context, id string) (map[player.Stat]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT stat, value FROM player_stats WHERE player_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[player.Stat]int64)
	for rows.Next() {
		var stat player.Stat
		var value int64
		if err := rows.Scan(&stat, &value); err != nil {
			return nil, fmt.Errorf("failed to scan stat: %w", err)
		}
		stats[stat] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stat rows: %w", err)
	}

	return stats, nil
}
