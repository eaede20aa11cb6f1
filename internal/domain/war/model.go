// Package war holds the shared group entity joined by war-participation activities.
package war

import (
	"context"
	"errors"
	"time"
)

// Status is the phase of a war as a whole.
type Status string

const (
	// StatusMustering accepts new attackers until StartsAt.
	StatusMustering Status = "mustering"
	// StatusFought means the battle is resolved and the attackers march home.
	StatusFought Status = "fought"
)

// Statuses lists every war status.
var Statuses = []Status{StatusMustering, StatusFought}

// ErrWarNotFound indicates the war group doesn't exist.
var ErrWarNotFound = errors.New("war not found")

// War groups every attacker marching on the same defender.
type War struct {
	ID           string    `json:"id"`
	DefenderID   string    `json:"defender_id"`
	Status       Status    `json:"status"`
	Participants int       `json:"participants"`
	Plunder      int64     `json:"plunder"`
	AttackersWon bool      `json:"attackers_won"`
	StartsAt     time.Time `json:"starts_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository provides persistence for wars.
type Repository interface {
	Create(ctx context.Context, w *War) error
	Get(ctx context.Context, id string) (*War, error)
	FindMustering(ctx context.Context, defenderID string) (*War, error)
	Update(ctx context.Context, w *War) error
	Delete(ctx context.Context, id string) error
}
