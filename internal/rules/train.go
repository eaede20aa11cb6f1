package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
)

type trainPayload struct {
	CardID    string `json:"card_id"`
	FromLevel int    `json:"from_level"`
	FromPower int    `json:"from_power"`
	PowerGain int    `json:"power_gain"`
}

// Train raises the level and power of cards. Each card gets its own record
// because cost and duration depend on the card's level.
type Train struct {
	base
}

// NewTrain creates the train rule.
func NewTrain(d Deps) *Train {
	return &Train{base{Deps: d.withDefaults(), kind: activity.KindTrain}}
}

func (r *Train) cost(c *player.Card) player.Resources {
	return r.Balance.Train.CostPerLevel.Scale(int64(c.Level))
}

// CanExecute checks every card and the combined cost.
func (r *Train) CanExecute(owner *player.Player, cards []*player.Card, _ activity.Request) (bool, string) {
	bal := r.Balance.Train
	if ok, reason := checkCards(cards, 1, bal.MaxCards); !ok {
		return false, reason
	}
	var total player.Resources
	for _, c := range cards {
		if c.Damaged {
			return false, fmt.Sprintf("card %s is damaged", c.Name)
		}
		if c.Level >= bal.MaxLevel {
			return false, fmt.Sprintf("card %s is at max level", c.Name)
		}
		total = total.Add(r.cost(c))
	}
	return checkFunds(owner, total)
}

func (r *Train) plan(_ context.Context, _ activity.Tx, _ *player.Player, cards []*player.Card, _ activity.Request, now time.Time) (*draft, error) {
	bal := r.Balance.Train
	d := &draft{}
	for _, c := range cards {
		due := now.Add(bal.DurationPerLevel * time.Duration(c.Level))
		a, err := r.record(r.cost(c), due, []string{c.ID}, trainPayload{
			CardID:    c.ID,
			FromLevel: c.Level,
			FromPower: c.Power,
			PowerGain: bal.PowerGain,
		})
		if err != nil {
			return nil, err
		}
		d.records = append(d.records, a)
	}
	d.finishAt = d.dueAt()
	return d, nil
}

// Start debits the cost and commits the cards.
func (r *Train) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	return r.start(ctx, r, ownerID, req)
}

// Estimate previews the training of every requested card.
func (r *Train) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	return r.estimate(ctx, r, ownerID, req)
}

// Complete levels the card up. The new level and power derive from the
// snapshot, so a repeated completion leaves the card unchanged.
func (r *Train) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	var p trainPayload
	if err := a.DecodePayload(&p); err != nil {
		return activity.Outcome{}, activity.Internal("reading train payload", err)
	}

	var card *player.Card
	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		c, err := tx.Cards().Get(ctx, a.OwnerID, p.CardID)
		if err != nil {
			return err
		}
		c.Level = p.FromLevel + 1
		c.Power = p.FromPower + p.PowerGain
		if err := tx.Cards().Update(ctx, c); err != nil {
			return err
		}
		if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatCardsTrained, 1); err != nil {
			return err
		}
		card = c
		return finish(ctx, tx, a)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing training")
	}

	r.notify(ctx, a, notify.EventCompleted, map[string]any{"card_id": card.ID, "level": card.Level},
		"%s reached level %d", card.Name, card.Level)
	return activity.Done(), nil
}

// Cancel refunds the cost.
func (r *Train) Cancel(ctx context.Context, a *activity.Activity) error {
	return r.refund(ctx, a)
}
