package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/starcards/internal/repository"
)

// APIKeyRepository maps bearer tokens to players. Only the token hash is stored.
type APIKeyRepository struct {
	q queryer
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{q: db}
}

// Create stores a key for playerID
func (r *APIKeyRepository) Create(ctx context.Context, token, playerID, description string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, player_id, created_at, description) VALUES (?, ?, ?, ?)`,
		HashToken(token), playerID, time.Now().UTC(), description,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// ResolvePlayer returns the player owning token and records the use
func (r *APIKeyRepository) ResolvePlayer(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)

	var playerID string
	err := r.q.QueryRowContext(ctx, `SELECT player_id FROM api_keys WHERE key_hash = ?`, hash).Scan(&playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return playerID, nil
}

// HashToken returns the hex SHA-256 of a bearer token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
