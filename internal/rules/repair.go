package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
)

// Repair clears the damaged flag of cards.
type Repair struct {
	base
}

// NewRepair creates the repair rule.
func NewRepair(d Deps) *Repair {
	return &Repair{base{Deps: d.withDefaults(), kind: activity.KindRepair}}
}

// CanExecute only accepts damaged cards.
func (r *Repair) CanExecute(owner *player.Player, cards []*player.Card, _ activity.Request) (bool, string) {
	bal := r.Balance.Repair
	if ok, reason := checkCards(cards, 1, bal.MaxCards); !ok {
		return false, reason
	}
	for _, c := range cards {
		if !c.Damaged {
			return false, fmt.Sprintf("card %s is not damaged", c.Name)
		}
	}
	return checkFunds(owner, bal.CostPerCard.Scale(int64(len(cards))))
}

func (r *Repair) plan(_ context.Context, _ activity.Tx, _ *player.Player, cards []*player.Card, _ activity.Request, now time.Time) (*draft, error) {
	bal := r.Balance.Repair
	a, err := r.record(bal.CostPerCard.Scale(int64(len(cards))), now.Add(bal.Duration), cardIDs(cards), struct{}{})
	if err != nil {
		return nil, err
	}
	return &draft{records: []*activity.Activity{a}}, nil
}

// Start debits the cost and commits the cards.
func (r *Repair) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	return r.start(ctx, r, ownerID, req)
}

// Estimate previews a repair.
func (r *Repair) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	return r.estimate(ctx, r, ownerID, req)
}

// Complete restores the cards.
func (r *Repair) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		cards, err := tx.Cards().GetMany(ctx, a.OwnerID, a.CardIDs)
		if err != nil {
			return err
		}
		for _, c := range cards {
			c.Damaged = false
			if err := tx.Cards().Update(ctx, c); err != nil {
				return err
			}
		}
		if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatCardsRepaired, int64(len(cards))); err != nil {
			return err
		}
		return finish(ctx, tx, a)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing repair")
	}

	r.notify(ctx, a, notify.EventCompleted, nil, "%d card(s) repaired", len(a.CardIDs))
	return activity.Done(), nil
}

// Cancel refunds the cost.
func (r *Repair) Cancel(ctx context.Context, a *activity.Activity) error {
	return r.refund(ctx, a)
}
