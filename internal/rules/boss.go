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

type bossPayload struct {
	Boss   string           `json:"boss"`
	Chance float64          `json:"chance"`
	Reward player.Resources `json:"reward"`
}

// BossFight pits cards against a scripted opponent. The fight itself is
// resolved at completion with the cards' state at that time.
type BossFight struct {
	base
}

// NewBossFight creates the boss rule.
func NewBossFight(d Deps) *BossFight {
	return &BossFight{base{Deps: d.withDefaults(), kind: activity.KindBoss}}
}

func bossSide(b Boss) []battle.Fighter {
	return []battle.Fighter{{Power: b.Power, Level: 1}}
}

// CanExecute checks the boss, the party and the funds.
func (r *BossFight) CanExecute(owner *player.Player, cards []*player.Card, req activity.Request) (bool, string) {
	boss, ok := r.Balance.Boss.Bosses[req.Target]
	if !ok {
		return false, fmt.Sprintf("unknown boss %q", req.Target)
	}
	if ok, reason := checkCards(cards, 1, r.Balance.Boss.MaxCards); !ok {
		return false, reason
	}
	for _, c := range cards {
		if c.Damaged {
			return false, fmt.Sprintf("card %s is damaged", c.Name)
		}
	}
	return checkFunds(owner, boss.Cost)
}

func (r *BossFight) plan(_ context.Context, _ activity.Tx, _ *player.Player, cards []*player.Card, req activity.Request, now time.Time) (*draft, error) {
	boss := r.Balance.Boss.Bosses[req.Target]
	chance := r.Battles.Chance(battle.FromCards(cards), bossSide(boss))

	a, err := r.record(boss.Cost, now.Add(boss.Duration), cardIDs(cards), bossPayload{
		Boss:   req.Target,
		Chance: chance,
		Reward: boss.Reward,
	})
	if err != nil {
		return nil, err
	}
	return &draft{records: []*activity.Activity{a}, reward: boss.Reward, chance: chance}, nil
}

// Start debits the cost and commits the party.
func (r *BossFight) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	return r.start(ctx, r, ownerID, req)
}

// Estimate previews the fight.
func (r *BossFight) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	return r.estimate(ctx, r, ownerID, req)
}

// Complete fights the boss.
func (r *BossFight) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	var p bossPayload
	if err := a.DecodePayload(&p); err != nil {
		return activity.Outcome{}, activity.Internal("reading boss payload", err)
	}
	boss, ok := r.Balance.Boss.Bosses[p.Boss]
	if !ok {
		return activity.Outcome{}, activity.Internal("resolving boss", fmt.Errorf("boss %q is no longer configured", p.Boss))
	}

	var result battle.Result
	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		cards, err := tx.Cards().GetMany(ctx, a.OwnerID, a.CardIDs)
		if err != nil {
			return err
		}
		result = r.Battles.Fight(battle.FromCards(cards), bossSide(boss))
		if result.Won {
			if err := tx.Players().Credit(ctx, a.OwnerID, p.Reward); err != nil {
				return err
			}
			if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatBossesDefeated, 1); err != nil {
				return err
			}
		} else if err := damage(ctx, tx, a); err != nil {
			return err
		}
		return finish(ctx, tx, a)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing boss fight")
	}

	if result.Won {
		r.notify(ctx, a, notify.EventCompleted, map[string]any{"boss": p.Boss, "reward": p.Reward}, "You defeated %s", p.Boss)
	} else {
		r.notify(ctx, a, notify.EventFailed, map[string]any{"boss": p.Boss}, "%s was too strong", p.Boss)
	}
	return activity.Done(), nil
}

// Cancel refunds the cost.
func (r *BossFight) Cancel(ctx context.Context, a *activity.Activity) error {
	return r.refund(ctx, a)
}
