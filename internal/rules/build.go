package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
)

type buildPayload struct {
	Building    player.Building `json:"building"`
	TargetLevel int             `json:"target_level"`
}

// Build upgrades a building by one level, using one card as the worker.
// Request.Target names the building.
type Build struct {
	base
}

// NewBuild creates the build rule.
func NewBuild(d Deps) *Build {
	return &Build{base{Deps: d.withDefaults(), kind: activity.KindBuild}}
}

// CanExecute checks the building, the worker and the funds.
func (r *Build) CanExecute(owner *player.Player, cards []*player.Card, req activity.Request) (bool, string) {
	b, ok := player.ParseBuilding(req.Target)
	if !ok {
		return false, fmt.Sprintf("unknown building %q", req.Target)
	}
	if ok, reason := checkCards(cards, 1, 1); !ok {
		return false, reason
	}
	level := owner.BuildingLevel(b)
	if level >= r.Balance.Build.MaxLevel {
		return false, fmt.Sprintf("%s is at max level", b)
	}
	return checkFunds(owner, r.Balance.Build.CostPerLevel.Scale(int64(level+1)))
}

func (r *Build) plan(ctx context.Context, tx activity.Tx, owner *player.Player, cards []*player.Card, req activity.Request, now time.Time) (*draft, error) {
	b, _ := player.ParseBuilding(req.Target)

	open, err := tx.Activities().ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range open {
		if a.Kind != activity.KindBuild {
			continue
		}
		var p buildPayload
		if err := a.DecodePayload(&p); err != nil {
			return nil, err
		}
		if p.Building == b {
			return nil, activity.Invalid("%s is already being upgraded", b)
		}
	}

	bal := r.Balance.Build
	target := owner.BuildingLevel(b) + 1
	a, err := r.record(bal.CostPerLevel.Scale(int64(target)), now.Add(bal.DurationPerLevel*time.Duration(target)), cardIDs(cards), buildPayload{
		Building:    b,
		TargetLevel: target,
	})
	if err != nil {
		return nil, err
	}
	return &draft{records: []*activity.Activity{a}}, nil
}

// Start debits the cost and commits the worker.
func (r *Build) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	return r.start(ctx, r, ownerID, req)
}

// Estimate previews an upgrade.
func (r *Build) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	return r.estimate(ctx, r, ownerID, req)
}

// Complete sets the building to the snapshotted target level.
func (r *Build) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	var p buildPayload
	if err := a.DecodePayload(&p); err != nil {
		return activity.Outcome{}, activity.Internal("reading build payload", err)
	}

	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		if err := tx.Players().SetBuildingLevel(ctx, a.OwnerID, p.Building, p.TargetLevel); err != nil {
			return err
		}
		if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatBuildingsUpgraded, 1); err != nil {
			return err
		}
		return finish(ctx, tx, a)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing build")
	}

	r.notify(ctx, a, notify.EventCompleted, map[string]any{"building": p.Building, "level": p.TargetLevel},
		"Your %s reached level %d", p.Building, p.TargetLevel)
	return activity.Done(), nil
}

// Cancel refunds the cost.
func (r *Build) Cancel(ctx context.Context, a *activity.Activity) error {
	return r.refund(ctx, a)
}
