// Package rules implements the activity families of the game. Every rule runs
// its mutations inside one storage transaction and leaves timers to the
// scheduler.
package rules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/rpggio/starcards/internal/battle"
	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
	"github.com/rpggio/starcards/internal/repository"
)

// Battler resolves fights for the rules that need one.
type Battler interface {
	Chance(attacker, defender []battle.Fighter) float64
	Fight(attacker, defender []battle.Fighter) battle.Result
}

// Deps are the collaborators shared by every rule.
type Deps struct {
	Store    activity.Store
	Notifier notify.Notifier
	Clock    clockwork.Clock
	Balance  Balance
	Battles  Battler
	// Roll returns a number in [0, 1) for chance checks outside battles.
	Roll   func() float64
	Logger *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Roll == nil {
		d.Roll = rand.Float64
	}
	if d.Battles == nil {
		d.Battles = battle.NewSimulator(d.Roll)
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

// All builds one rule per activity kind.
func All(d Deps) []activity.Rule {
	d = d.withDefaults()
	return []activity.Rule{
		NewCook(d),
		NewTrain(d),
		NewRepair(d),
		NewBuild(d),
		NewExplore(d),
		NewOrbit(d),
		NewWar(d),
		NewBossFight(d),
	}
}

// draft is what a rule would record for a request. Estimate reads it; Start
// additionally runs commit and persists the records.
type draft struct {
	records  []*activity.Activity
	finishAt time.Time
	reward   player.Resources
	chance   float64
	// commit runs inside Start's transaction before the records are created.
	commit func(ctx context.Context, tx activity.Tx) error
}

func (d *draft) cost() player.Resources {
	var total player.Resources
	for _, a := range d.records {
		total = total.Add(a.Cost)
	}
	return total
}

func (d *draft) dueAt() time.Time {
	var latest time.Time
	for _, a := range d.records {
		if a.DueAt.After(latest) {
			latest = a.DueAt
		}
	}
	return latest
}

// planner is the per-family part of Start and Estimate.
type planner interface {
	CanExecute(owner *player.Player, cards []*player.Card, req activity.Request) (bool, string)
	plan(ctx context.Context, tx activity.Tx, owner *player.Player, cards []*player.Card, req activity.Request, now time.Time) (*draft, error)
}

type base struct {
	Deps
	kind activity.Kind
}

// Kind is the family this rule governs.
func (b *base) Kind() activity.Kind { return b.kind }

func (b *base) now() time.Time { return b.Clock.Now().UTC() }

func (b *base) record(cost player.Resources, due time.Time, cardIDs []string, payload any) (*activity.Activity, error) {
	a := &activity.Activity{
		Kind:    b.kind,
		CardIDs: cardIDs,
		Cost:    cost,
		DueAt:   due,
	}
	if err := a.EncodePayload(payload); err != nil {
		return nil, activity.Internal("encoding payload", err)
	}
	return a, nil
}

func (b *base) start(ctx context.Context, p planner, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	now := b.now()
	var records []*activity.Activity

	err := b.Store.Atomic(ctx, func(tx activity.Tx) error {
		owner, cards, err := load(ctx, tx, ownerID, req.CardIDs)
		if err != nil {
			return err
		}
		if ok, reason := p.CanExecute(owner, cards, req); !ok {
			return activity.Invalid("%s", reason)
		}
		d, err := p.plan(ctx, tx, owner, cards, req, now)
		if err != nil {
			return err
		}
		if d.commit != nil {
			if err := d.commit(ctx, tx); err != nil {
				return err
			}
		}
		for _, a := range d.records {
			a.ID = uuid.NewString()
			a.OwnerID = ownerID
			a.CreatedAt = now
			a.UpdatedAt = now
			if err := begin(ctx, tx, a); err != nil {
				return err
			}
		}
		records = d.records
		return nil
	})
	if err != nil {
		return nil, classify(err, "starting activity")
	}
	return records, nil
}

func (b *base) estimate(ctx context.Context, p planner, ownerID string, req activity.Request) (*activity.Estimate, error) {
	now := b.now()
	est := &activity.Estimate{Kind: b.kind}

	err := b.Store.Atomic(ctx, func(tx activity.Tx) error {
		owner, cards, err := load(ctx, tx, ownerID, req.CardIDs)
		if err != nil {
			return err
		}
		if ok, reason := p.CanExecute(owner, cards, req); !ok {
			est.Reason = reason
			return nil
		}
		d, err := p.plan(ctx, tx, owner, cards, req, now)
		if err != nil {
			if errors.Is(err, activity.ErrInvalid) {
				est.Reason = activity.ReasonOf(err)
				return nil
			}
			return err
		}
		est.Allowed = true
		est.Cost = d.cost()
		est.DueAt = d.dueAt()
		est.FinishAt = d.finishAt
		if est.FinishAt.IsZero() {
			est.FinishAt = est.DueAt
		}
		est.Reward = d.reward
		est.Chance = d.chance
		return nil
	})
	if err != nil {
		return nil, classify(err, "estimating activity")
	}
	return est, nil
}

// refund is the cancellation of a record that has not produced any effect yet.
func (b *base) refund(ctx context.Context, a *activity.Activity) error {
	err := b.Store.Atomic(ctx, func(tx activity.Tx) error {
		return refund(ctx, tx, a)
	})
	if err != nil {
		return classify(err, "cancelling activity")
	}
	return nil
}

func (b *base) notify(ctx context.Context, a *activity.Activity, event notify.Event, data map[string]any, format string, args ...any) {
	b.Notifier.Notify(ctx, notify.Notification{
		PlayerID:   a.OwnerID,
		Event:      event,
		ActivityID: a.ID,
		Kind:       string(a.Kind),
		Message:    fmt.Sprintf(format, args...),
		Data:       data,
		At:         b.now(),
	})
}

func load(ctx context.Context, tx activity.Tx, ownerID string, cardIDs []string) (*player.Player, []*player.Card, error) {
	owner, err := tx.Players().Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, activity.NotFound("player %s not found", ownerID)
		}
		return nil, nil, err
	}

	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		if seen[id] {
			return nil, nil, activity.Invalid("card %s listed twice", id)
		}
		seen[id] = true
	}

	cards, err := tx.Cards().GetMany(ctx, ownerID, cardIDs)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, &activity.Error{Class: activity.ErrNotFound, Reason: "card not found", Err: err}
		}
		return nil, nil, err
	}
	return owner, cards, nil
}

// begin debits the cost, persists the record and commits its cards.
func begin(ctx context.Context, tx activity.Tx, a *activity.Activity) error {
	if err := tx.Players().Debit(ctx, a.OwnerID, a.Cost); err != nil {
		if errors.Is(err, player.ErrInsufficientResources) {
			return activity.Invalid("insufficient resources: need %s", a.Cost)
		}
		return err
	}
	if err := tx.Activities().Create(ctx, a); err != nil {
		return err
	}
	if err := tx.Cards().Commit(ctx, a.OwnerID, a.CardIDs, a.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return &activity.Error{Class: activity.ErrInvalid, Reason: "card is busy", Err: err}
		}
		return err
	}
	return nil
}

// finish releases the record's cards and deletes it.
func finish(ctx context.Context, tx activity.Tx, a *activity.Activity) error {
	if _, err := tx.Cards().Release(ctx, a.ID); err != nil {
		return err
	}
	if err := tx.Activities().Delete(ctx, a.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return activity.NotFound("activity %s not found", a.ID)
		}
		return err
	}
	return nil
}

func refund(ctx context.Context, tx activity.Tx, a *activity.Activity) error {
	if err := tx.Players().Credit(ctx, a.OwnerID, a.Cost); err != nil {
		return err
	}
	return finish(ctx, tx, a)
}

// damage marks the record's cards as damaged.
func damage(ctx context.Context, tx activity.Tx, a *activity.Activity) error {
	cards, err := tx.Cards().GetMany(ctx, a.OwnerID, a.CardIDs)
	if err != nil {
		return err
	}
	for _, c := range cards {
		c.Damaged = true
		if err := tx.Cards().Update(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// classify keeps domain errors as they are and wraps anything else as internal.
func classify(err error, reason string) error {
	var de *activity.Error
	if errors.As(err, &de) {
		return err
	}
	return activity.Internal(reason, err)
}

// checkCards validates the number of cards and that none is committed elsewhere.
func checkCards(cards []*player.Card, min, max int) (bool, string) {
	if len(cards) < min {
		if min == 1 {
			return false, "a card is required"
		}
		return false, fmt.Sprintf("at least %d cards are required", min)
	}
	if max > 0 && len(cards) > max {
		return false, fmt.Sprintf("at most %d cards are allowed", max)
	}
	for _, c := range cards {
		if c.Busy() {
			return false, fmt.Sprintf("card %s is busy", c.Name)
		}
	}
	return true, ""
}

func checkFunds(owner *player.Player, cost player.Resources) (bool, string) {
	if !owner.Resources.Covers(cost) {
		return false, fmt.Sprintf("insufficient resources: need %s", cost)
	}
	return true, ""
}

func cardIDs(cards []*player.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}
