package activity

import (
	"context"

	"github.com/rpggio/starcards/internal/domain/player"
)

// Rule encapsulates the business rules of one activity family.
type Rule interface {
	// Kind is the family this rule governs.
	Kind() Kind
	// CanExecute is a pure precondition check shared by Start and Estimate.
	CanExecute(owner *player.Player, cards []*player.Card, req Request) (bool, string)
	// Start validates, debits resources, commits cards and persists the records.
	Start(ctx context.Context, ownerID string, req Request) ([]*Activity, error)
	// Estimate computes what Start would record without mutating anything.
	Estimate(ctx context.Context, ownerID string, req Request) (*Estimate, error)
	// Complete runs once the due time elapses.
	Complete(ctx context.Context, a *Activity) (Outcome, error)
	// Cancel refunds the recorded cost, releases the cards and deletes the record.
	Cancel(ctx context.Context, a *Activity) error
}

// Cancellable is implemented by rules whose activities may refuse cancellation
// in later phases. It is consulted before the scheduler is asked to let go of
// the timer.
type Cancellable interface {
	CanCancel(a *Activity) (bool, string)
}
