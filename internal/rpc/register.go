package rpc

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rpggio/starcards/internal/domain/player"
)

// PlayerRegistrar creates players.
type PlayerRegistrar interface {
	Register(ctx context.Context, name string) (*player.Player, error)
}

// KeyStore stores bearer tokens for players.
type KeyStore interface {
	Create(ctx context.Context, token, playerID, description string) error
}

// Registration signs up a player and issues the bearer token used by every
// other method.
type Registration struct {
	players PlayerRegistrar
	keys    KeyStore
	logger  *slog.Logger
}

// NewRegistration creates a Registration.
func NewRegistration(players PlayerRegistrar, keys KeyStore, logger *slog.Logger) *Registration {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registration{players: players, keys: keys, logger: logger}
}

// Register creates the player and a fresh token for it.
func (r *Registration) Register(ctx context.Context, params RegisterParams) (*RegisterResponse, error) {
	p, err := r.players.Register(ctx, params.Name)
	if err != nil {
		return nil, MapError(err)
	}

	token := uuid.NewString()
	if err := r.keys.Create(ctx, token, p.ID, "registration"); err != nil {
		r.logger.Error("failed to issue api key", "player_id", p.ID, "error", err)
		return nil, MapError(fmt.Errorf("issuing api key: %w", err))
	}
	return &RegisterResponse{Player: p, Token: token}, nil
}
