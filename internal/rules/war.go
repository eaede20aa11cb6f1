package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/starcards/internal/battle"
	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/domain/war"
	"github.com/rpggio/starcards/internal/notify"
	"github.com/rpggio/starcards/internal/repository"
)

const (
	warPhaseMustering = "mustering"
	warPhaseReturning = "returning"
)

type warPayload struct {
	DefenderID string `json:"defender_id"`
	Phase      string `json:"phase"`
	Won        bool   `json:"won,omitempty"`
	Share      int64  `json:"share,omitempty"`
}

// War sends cards against another player. Attackers on the same defender
// muster into one war group; the first attacker to fall due resolves the
// battle for the whole group, and each attacker then marches home with its
// share of the plunder. Only mustering attackers can withdraw.
type War struct {
	base
}

// NewWar creates the war rule.
func NewWar(d Deps) *War {
	return &War{base{Deps: d.withDefaults(), kind: activity.KindWar}}
}

// CanExecute checks the target, the army and the supplies.
func (r *War) CanExecute(owner *player.Player, cards []*player.Card, req activity.Request) (bool, string) {
	if req.Target == "" {
		return false, "a defender is required"
	}
	if req.Target == owner.ID {
		return false, "cannot attack yourself"
	}
	bal := r.Balance.War
	if ok, reason := checkCards(cards, 1, bal.MaxCards); !ok {
		return false, reason
	}
	for _, c := range cards {
		if c.Damaged {
			return false, fmt.Sprintf("card %s is damaged", c.Name)
		}
	}
	return checkFunds(owner, bal.CostPerCard.Scale(int64(len(cards))))
}

func (r *War) plan(ctx context.Context, tx activity.Tx, _ *player.Player, cards []*player.Card, req activity.Request, now time.Time) (*draft, error) {
	bal := r.Balance.War

	defender, err := tx.Players().Get(ctx, req.Target)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, activity.NotFound("defender %s not found", req.Target)
		}
		return nil, err
	}

	w, err := tx.Wars().FindMustering(ctx, defender.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		w = nil
	case err != nil:
		return nil, err
	case !w.StartsAt.After(now):
		// Past its start but not fought yet; open a new one.
		w = nil
	}

	joining := w != nil
	if !joining {
		w = &war.War{
			ID:         uuid.NewString(),
			DefenderID: defender.ID,
			Status:     war.StatusMustering,
			StartsAt:   now.Add(bal.Muster),
			CreatedAt:  now,
		}
	}

	defenders, err := tx.Cards().ListFree(ctx, defender.ID)
	if err != nil {
		return nil, err
	}
	chance := r.Battles.Chance(battle.FromCards(cards), battle.FromCards(defenders))

	a, err := r.record(bal.CostPerCard.Scale(int64(len(cards))), w.StartsAt, cardIDs(cards), warPayload{
		DefenderID: defender.ID,
		Phase:      warPhaseMustering,
	})
	if err != nil {
		return nil, err
	}
	groupID := w.ID
	a.GroupID = &groupID

	return &draft{
		records:  []*activity.Activity{a},
		finishAt: w.StartsAt.Add(bal.March),
		chance:   chance,
		commit: func(ctx context.Context, tx activity.Tx) error {
			w.Participants++
			if joining {
				return tx.Wars().Update(ctx, w)
			}
			return tx.Wars().Create(ctx, w)
		},
	}, nil
}

// Start debits the supplies, joins or opens the war group and commits the army.
func (r *War) Start(ctx context.Context, ownerID string, req activity.Request) ([]*activity.Activity, error) {
	return r.start(ctx, r, ownerID, req)
}

// Estimate previews the attack, including the muster time of a war already
// forming against the same defender.
func (r *War) Estimate(ctx context.Context, ownerID string, req activity.Request) (*activity.Estimate, error) {
	return r.estimate(ctx, r, ownerID, req)
}

// Complete resolves the battle if needed and then brings the army home.
func (r *War) Complete(ctx context.Context, a *activity.Activity) (activity.Outcome, error) {
	var p warPayload
	if err := a.DecodePayload(&p); err != nil {
		return activity.Outcome{}, activity.Internal("reading war payload", err)
	}
	if a.GroupID == nil {
		return activity.Outcome{}, activity.Internal("resolving war", war.ErrWarNotFound)
	}
	if p.Phase == warPhaseReturning {
		return r.returnHome(ctx, a, p)
	}
	return r.march(ctx, a, p)
}

func (r *War) march(ctx context.Context, a *activity.Activity, p warPayload) (activity.Outcome, error) {
	next := *a
	var fought *battle.Result
	var w *war.War

	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		var err error
		w, err = r.loadWar(ctx, tx, *a.GroupID)
		if err != nil {
			return err
		}
		if w.Status == war.StatusMustering {
			result, err := r.resolve(ctx, tx, w)
			if err != nil {
				return err
			}
			fought = &result
		}

		p.Phase = warPhaseReturning
		p.Won = w.AttackersWon
		if w.AttackersWon && w.Participants > 0 {
			p.Share = w.Plunder / int64(w.Participants)
		}
		next.DueAt = w.StartsAt.Add(r.Balance.War.March)
		next.UpdatedAt = r.now()
		if err := next.EncodePayload(p); err != nil {
			return err
		}
		return tx.Activities().Update(ctx, &next)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing war muster")
	}

	if fought != nil {
		r.Notifier.Notify(ctx, notify.Notification{
			PlayerID: w.DefenderID,
			Event:    notify.EventAttacked,
			Kind:     string(activity.KindWar),
			Message:  fmt.Sprintf("%d attacker(s) raided your base", w.Participants),
			Data:     map[string]any{"war_id": w.ID, "defended": !fought.Won, "plunder": w.Plunder},
			At:       r.now(),
		})
	}
	r.notify(ctx, &next, notify.EventPhase, map[string]any{"war_id": w.ID, "won": p.Won, "share": p.Share},
		"The battle is over and your army is marching home")
	return activity.Reschedule(&next), nil
}

// resolve fights the battle for every attacker in the group and fixes the plunder.
func (r *War) resolve(ctx context.Context, tx activity.Tx, w *war.War) (battle.Result, error) {
	attackers, err := tx.Activities().ListByGroup(ctx, w.ID)
	if err != nil {
		return battle.Result{}, err
	}
	var army []*player.Card
	for _, a := range attackers {
		cards, err := tx.Cards().GetMany(ctx, a.OwnerID, a.CardIDs)
		if err != nil {
			return battle.Result{}, err
		}
		army = append(army, cards...)
	}
	defenders, err := tx.Cards().ListFree(ctx, w.DefenderID)
	if err != nil {
		return battle.Result{}, err
	}

	result := r.Battles.Fight(battle.FromCards(army), battle.FromCards(defenders))

	w.Status = war.StatusFought
	w.Participants = len(attackers)
	w.AttackersWon = result.Won
	if result.Won {
		defender, err := tx.Players().Get(ctx, w.DefenderID)
		if err != nil {
			return battle.Result{}, err
		}
		w.Plunder = int64(float64(defender.Resources.Coins) * r.Balance.War.PlunderRate)
		if err := tx.Players().Debit(ctx, w.DefenderID, player.Resources{Coins: w.Plunder}); err != nil {
			return battle.Result{}, err
		}
	}
	if err := tx.Wars().Update(ctx, w); err != nil {
		return battle.Result{}, err
	}
	r.Logger.Info("war fought", "war_id", w.ID, "defender_id", w.DefenderID, "attackers", w.Participants, "won", result.Won, "plunder", w.Plunder)
	return result, nil
}

func (r *War) returnHome(ctx context.Context, a *activity.Activity, p warPayload) (activity.Outcome, error) {
	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		if _, err := r.loadWar(ctx, tx, *a.GroupID); err != nil {
			return err
		}
		if p.Won {
			if err := tx.Players().Credit(ctx, a.OwnerID, player.Resources{Coins: p.Share}); err != nil {
				return err
			}
			if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatWarsWon, 1); err != nil {
				return err
			}
		} else if err := damage(ctx, tx, a); err != nil {
			return err
		}
		if err := tx.Players().IncrementStat(ctx, a.OwnerID, player.StatWarsFought, 1); err != nil {
			return err
		}
		if err := finish(ctx, tx, a); err != nil {
			return err
		}
		return r.dissolveIfEmpty(ctx, tx, *a.GroupID)
	})
	if err != nil {
		return activity.Outcome{}, classify(err, "completing war return")
	}

	event := notify.EventCompleted
	if !p.Won {
		event = notify.EventFailed
	}
	r.notify(ctx, a, event, map[string]any{"won": p.Won, "share": p.Share}, "Your army is home")
	return activity.Done(), nil
}

// CanCancel allows withdrawing only while mustering.
func (r *War) CanCancel(a *activity.Activity) (bool, string) {
	var p warPayload
	if err := a.DecodePayload(&p); err != nil {
		return false, "unreadable war record"
	}
	if p.Phase != warPhaseMustering {
		return false, "the battle has already been fought"
	}
	return true, ""
}

// Cancel withdraws a mustering attacker and refunds its supplies. The war
// group is dropped once its last attacker leaves.
func (r *War) Cancel(ctx context.Context, a *activity.Activity) error {
	if ok, reason := r.CanCancel(a); !ok {
		return activity.CancelDenied("%s", reason)
	}
	if a.GroupID == nil {
		return activity.Internal("resolving war", war.ErrWarNotFound)
	}

	err := r.Store.Atomic(ctx, func(tx activity.Tx) error {
		w, err := r.loadWar(ctx, tx, *a.GroupID)
		if err != nil {
			return err
		}
		if w.Status != war.StatusMustering {
			return activity.CancelDenied("the battle has already been fought")
		}
		if err := refund(ctx, tx, a); err != nil {
			return err
		}
		w.Participants--
		if w.Participants > 0 {
			return tx.Wars().Update(ctx, w)
		}
		return r.dissolveIfEmpty(ctx, tx, w.ID)
	})
	if err != nil {
		return classify(err, "withdrawing from war")
	}
	return nil
}

// loadWar fetches the group. A missing group is a failure: the record is left
// for a later retry.
func (r *War) loadWar(ctx context.Context, tx activity.Tx, id string) (*war.War, error) {
	w, err := tx.Wars().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("war %s: %w", id, war.ErrWarNotFound)
		}
		return nil, err
	}
	return w, nil
}

func (r *War) dissolveIfEmpty(ctx context.Context, tx activity.Tx, id string) error {
	remaining, err := tx.Activities().ListByGroup(ctx, id)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}
	return tx.Wars().Delete(ctx, id)
}
