package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/starcards/internal/repository"
)

// CardTemplate describes a card granted to new players.
type CardTemplate struct {
	Name  string `yaml:"name"`
	Power int    `yaml:"power"`
}

// StarterKit is what a freshly registered player receives.
type StarterKit struct {
	Resources Resources      `yaml:"resources"`
	Cards     []CardTemplate `yaml:"cards"`
}

// Service handles player registration and lookups.
type Service struct {
	players Repository
	cards   CardRepository
	starter StarterKit
	logger  *slog.Logger
}

// NewService creates a new player service.
func NewService(players Repository, cards CardRepository, starter StarterKit, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{players: players, cards: cards, starter: starter, logger: logger}
}

// Register creates a player with the starter kit.
func (s *Service) Register(ctx context.Context, name string) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	now := time.Now().UTC()
	p := &Player{
		ID:        uuid.NewString(),
		Name:      name,
		Resources: s.starter.Resources,
		Buildings: make(map[Building]int, len(Buildings)),
		CreatedAt: now,
	}
	for _, b := range Buildings {
		p.Buildings[b] = 1
	}

	if err := s.players.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}

	for _, tmpl := range s.starter.Cards {
		card := &Card{
			ID:        uuid.NewString(),
			OwnerID:   p.ID,
			Name:      tmpl.Name,
			Level:     1,
			Power:     tmpl.Power,
			CreatedAt: now,
		}
		if err := s.cards.Create(ctx, card); err != nil {
			return nil, fmt.Errorf("creating starter card: %w", err)
		}
	}

	s.logger.Info("player registered", "player_id", p.ID, "cards", len(s.starter.Cards))
	return p, nil
}

// Get fetches a player by ID.
func (s *Service) Get(ctx context.Context, id string) (*Player, error) {
	p, err := s.players.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return p, nil
}

// Profile returns the player with their cards and counters.
func (s *Service) Profile(ctx context.Context, id string) (*Profile, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cards, err := s.cards.ListByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	stats, err := s.players.Stats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	return &Profile{Player: p, Cards: cards, Stats: stats}, nil
}
