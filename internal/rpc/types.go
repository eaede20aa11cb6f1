package rpc

import (
	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
)

// ActivityParams is shared by create_activity and estimate_activity.
type ActivityParams struct {
	Kind    string   `json:"kind"`
	CardIDs []string `json:"card_ids"`
	Target  string   `json:"target,omitempty"`
}

func (p ActivityParams) request() activity.Request {
	return activity.Request{CardIDs: p.CardIDs, Target: p.Target}
}

type ActivityIDParams struct {
	ID string `json:"id"`
}

type CreateActivityResponse struct {
	Activities []activity.Projection `json:"activities"`
}

type ListActivitiesResponse struct {
	Activities []activity.Projection `json:"activities"`
}

type DeleteActivityResponse struct {
	ID       string `json:"id"`
	Refunded bool   `json:"refunded"`
}

type RegisterParams struct {
	Name string `json:"name"`
}

type RegisterResponse struct {
	Player *player.Player `json:"player"`
	Token  string         `json:"token"`
}
