package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/starcards/internal/battle"
	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
)

type explorePayload struct {
	Destination string           `json:"destination"`
	LegSeconds  int64            `json:"leg_seconds"`
	Chance      float64          `json:"chance"`
	Returning   bool             `json:"returning"`
	Success     bool             `json:"success,omitempty"`
	Loot        player.Resources `json:"loot"`
}

func (p explorePayload) leg() time.Duration {
	return time.Duration(p.LegSeconds) * time.Second
}

// Explore sends cards to a destination and back. The arrival rolls against
// the chance snapshotted at start; the return leg delivers the loot or brings
// the crew home damaged. Only the outbound leg can be cancelled.
type Explore struct {
	base
}

// NewExplore creates the explore rule.
func NewExplore(d Deps) *Explore {
	return &Explore{base{Deps: d.withDefaults(), kind: activity.KindExplore}}
}

func dangerSide(danger int) []battle.Fighter {
	return []battle.Fighter{{Power: danger, Level: 1}}
}

// CanExecute checks the destination, the crew and the fuel.
func (r *Explore) CanExecute(owner *player.Player, cards []*player.Card, req activity.Request) (bool, string) {
	dest, ok := r.Balance.Explore.Destinations[req.Target]
	if !ok {
		return false, fmt.Sprintf("unknown destination %q", req.Target)
	}
	if ok, reason := checkCards(cards, 1, r.Balance.Explore.MaxCards); !ok {
		return false, reason
	}
	for _, c := range cards {
		if c.Damaged {
			return false, fmt.Sprintf("card %s is damaged", c.Name)
		}
	}
	return checkFunds(owner, dest.Cost)
}

func (r *Explore) plan(_ context.Context, _ activity.Tx, owner *player.Player, cards []*player.Card, req activity.Request, now time.Time) (*draft, error) {
	dest := r.Balance.Explore.Destinations[req.Target]
	leg := r.Balance.Explore.LegDuration(dest, owner.BuildingLevel(player.BuildingHangar))
	chance := r.Battles.Chance(battle.FromCards(cards), dangerSide(dest.Danger))

	a, err := r.record(dest.Cost, now.Add(leg), cardIDs(cards), explorePayload{
		Destination: req.Target,
		LegSeconds:  int64(leg / time.Second),
		Chance:      chance,
	})
	if err != nil {
		return nil, err
	}
	return &draft{
		records:  []*activity.Activity{a},
		finishAt: now.Add(2 * leg),
		reward:   dest.Loot,
		chance:   chance,
	}, nil
}

// Start debits the fuel and commits the crew.
func (r *Explore) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	return r.start(ctx, r, ownerID, req)
}

// Estimate previews both legs of the expedition.
func (r *Explore) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	return r.estimate(ctx, r, ownerID, req)
}

// Complete handles the arrival and then the return.
func (r *Explore) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	var p explorePayload
	if err := a.DecodePayload(&p); err != nil {
		return activity.Outcome{}, activity.Internal("reading explore payload", err)
	}
	if p.Returning {
		return r.returnHome(ctx, a, p)
	}
	return r.arrive(ctx, a, p)
}

func (r *Explore) arrive(ctx context.Context, a *activity.Activity, p explorePayload) (activity.Outcome, error) {
	p.Returning = true
	p.Success = r.Roll() < p.Chance
	if p.Success {
		p.Loot = r.Balance.Explore.Destinations[p.Destination].Loot
	}

	next := *a
	next.DueAt = a.DueAt.Add(p.leg())
	next.UpdatedAt = r.now()
	if err := next.EncodePayload(p); err != nil {
		return activity.Outcome{}, activity.Internal("writing explore payload", err)
	}

	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		return tx.Activities().Update(ctx, &next)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing outbound leg")
	}

	if p.Success {
		r.notify(ctx, &next, notify.EventPhase, map[string]any{"destination": p.Destination, "loot": p.Loot},
			"Your crew reached %s and is heading home with %s", p.Destination, p.Loot)
	} else {
		r.notify(ctx, &next, notify.EventPhase, map[string]any{"destination": p.Destination},
			"Your crew ran into trouble at %s and is limping home", p.Destination)
	}
	return activity.Reschedule(&next), nil
}

func (r *Explore) returnHome(ctx context.Context, a *activity.Activity, p explorePayload) (activity.Outcome, error) {
	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		if p.Success {
			if err := tx.Players().Credit(ctx, a.OwnerID, p.Loot); err != nil {
				return err
			}
			if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatExpeditions, 1); err != nil {
				return err
			}
		} else {
			if err := damage(ctx, tx, a); err != nil {
				return err
			}
			if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatExpeditionsFailed, 1); err != nil {
				return err
			}
		}
		return finish(ctx, tx, a)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing return leg")
	}

	event := notify.EventCompleted
	if !p.Success {
		event = notify.EventFailed
	}
	r.notify(ctx, a, event, map[string]any{"destination": p.Destination, "success": p.Success}, "Your crew is back from %s", p.Destination)
	return activity.Done(), nil
}

// CanCancel allows cancellation only before arrival.
func (r *Explore) CanCancel(a *activity.Activity) (bool, string) {
	var p explorePayload
	if err := a.DecodePayload(&p); err != nil {
		return false, "unreadable expedition"
	}
	if p.Returning {
		return false, "expedition is already on its way back"
	}
	return true, ""
}

// Cancel recalls an outbound expedition and refunds the fuel.
func (r *Explore) Cancel(ctx context.Context, a *activity.Activity) error {
	if ok, reason := r.CanCancel(a); !ok {
		return activity.CancelDenied("%s", reason)
	}
	return r.refund(ctx, a)
}
