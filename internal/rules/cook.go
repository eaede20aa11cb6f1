package rules

import (
	"context"
	"time"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
)

type cookPayload struct {
	KitchenLevel int              `json:"kitchen_level"`
	Reward       player.Resources `json:"reward"`
}

// Cook has one card prepare a meal in the kitchen. Higher kitchen levels cook
// faster, yield more and allow more meals at once.
type Cook struct {
	base
}

// NewCook creates the cook rule.
func NewCook(d Deps) *Cook {
	return &Cook{base{Deps: d.withDefaults(), kind: activity.KindCook}}
}

// CanExecute checks the card and the owner's funds.
func (r *Cook) CanExecute(owner *player.Player, cards []*player.Card, _ activity.Request) (bool, string) {
	if ok, reason := checkCards(cards, 1, 1); !ok {
		return false, reason
	}
	return checkFunds(owner, r.Balance.Cook.Cost)
}

func (r *Cook) plan(ctx context.Context, tx activity.Tx, owner *player.Player, cards []*player.Card, _ activity.Request, now time.Time) (*draft, error) {
	level := owner.BuildingLevel(player.BuildingKitchen)
	open, err := tx.Activities().CountOpen(ctx, owner.ID, activity.KindCook)
	if err != nil {
		return nil, err
	}
	if open >= level {
		return nil, activity.Invalid("kitchen is full: %d of %d meals cooking", open, level)
	}

	bal := r.Balance.Cook
	reward := bal.RewardPerLevel.Scale(int64(level))
	a, err := r.record(bal.Cost, now.Add(bal.Duration(level)), cardIDs(cards), cookPayload{
		KitchenLevel: level,
		Reward:       reward,
	})
	if err != nil {
		return nil, err
	}
	return &draft{records: []*activity.Activity{a}, reward: reward}, nil
}

// Start debits the cost and commits the card.
func (r *Cook) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	return r.start(ctx, r, ownerID, req)
}

// Estimate previews a meal.
func (r *Cook) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	return r.estimate(ctx, r, ownerID, req)
}

// Complete credits the meal and frees the card.
func (r *Cook) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	var p cookPayload
	if err := a.DecodePayload(&p); err != nil {
		return activity.Outcome{}, activity.Internal("reading cook payload", err)
	}

	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		if err := tx.Players().Credit(ctx, a.OwnerID, p.Reward); err != nil {
			return err
		}
		if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatMealsCooked, 1); err != nil {
			return err
		}
		return finish(ctx, tx, a)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing cook")
	}

	r.notify(ctx, a, notify.EventCompleted, map[string]any{"reward": p.Reward}, "Your meal is ready: %s", p.Reward)
	return activity.Done(), nil
}

// Cancel refunds the cost.
func (r *Cook) Cancel(ctx context.Context, a *activity.Activity) error {
	return r.refund(ctx, a)
}
