package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
)

type orbitPayload struct {
	Site  string           `json:"site"`
	Yield player.Resources `json:"yield"`
}

// Orbit parks cards around a planet to skim resources. The yield grows with
// the combined level of the crew and is fixed when the orbit starts.
type Orbit struct {
	base
}

// NewOrbit creates the orbit rule.
func NewOrbit(d Deps) *Orbit {
	return &Orbit{base{Deps: d.withDefaults(), kind: activity.KindOrbit}}
}

// CanExecute checks the site, the crew and the supplies.
func (r *Orbit) CanExecute(owner *player.Player, cards []*player.Card, req activity.Request) (bool, string) {
	site, ok := r.Balance.Orbit.Sites[req.Target]
	if !ok {
		return false, fmt.Sprintf("unknown orbit site %q", req.Target)
	}
	if ok, reason := checkCards(cards, 1, r.Balance.Orbit.MaxCards); !ok {
		return false, reason
	}
	return checkFunds(owner, site.Cost)
}

func (r *Orbit) plan(_ context.Context, _ activity.Tx, _ *player.Player, cards []*player.Card, req activity.Request, now time.Time) (*draft, error) {
	site := r.Balance.Orbit.Sites[req.Target]

	var levels int64
	for _, c := range cards {
		levels += int64(c.Level)
	}
	yield := site.YieldPerLevel.Scale(levels)

	a, err := r.record(site.Cost, now.Add(site.Duration), cardIDs(cards), orbitPayload{
		Site:  req.Target,
		Yield: yield,
	})
	if err != nil {
		return nil, err
	}
	return &draft{records: []*activity.Activity{a}, reward: yield}, nil
}

// Start debits the supplies and commits the crew.
func (r *Orbit) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	return r.start(ctx, r, ownerID, req)
}

// Estimate previews an orbit.
func (r *Orbit) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	return r.estimate(ctx, r, ownerID, req)
}

// Complete credits the yield and frees the crew.
func (r *Orbit) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	var p orbitPayload
	if err := a.DecodePayload(&p); err != nil {
		return activity.Outcome{}, activity.Internal("reading orbit payload", err)
	}

	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		if err := tx.Players().Credit(ctx, a.OwnerID, p.Yield); err != nil {
			return err
		}
		if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatOrbits, 1); err != nil {
			return err
		}
		return finish(ctx, tx, a)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing orbit")
	}

	r.notify(ctx, a, notify.EventCompleted, map[string]any{"site": p.Site, "yield": p.Yield}, "Back from orbit around %s with %s", p.Site, p.Yield)
	return activity.Done(), nil
}

// Cancel recalls the crew and refunds the supplies.
func (r *Orbit) Cancel(ctx context.Context, a *activity.Activity) error {
	return r.refund(ctx, a)
}
