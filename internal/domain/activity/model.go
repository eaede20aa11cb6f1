package activity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/starcards/internal/domain/player"
)

// Kind identifies the rule family governing an activity.
type Kind string

const (
	KindCook    Kind = "cook"
	KindTrain   Kind = "train"
	KindRepair  Kind = "repair"
	KindBuild   Kind = "build"
	KindExplore Kind = "explore"
	KindOrbit   Kind = "orbit"
	KindWar     Kind = "war"
	KindBoss    Kind = "boss"
)

// Kinds lists every activity family. The registry must cover all of them.
var Kinds = []Kind{KindCook, KindTrain, KindRepair, KindBuild, KindExplore, KindOrbit, KindWar, KindBoss}

// ParseKind resolves a declared kind name, ignoring case and surrounding space.
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range Kinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Activity is the durable record of one in-flight deferred action.
type Activity struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"owner_id"`
	Kind      Kind             `json:"kind"`
	GroupID   *string          `json:"group_id,omitempty"`
	CardIDs   []string         `json:"card_ids"`
	Cost      player.Resources `json:"cost"`
	DueAt     time.Time        `json:"due_at"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// DecodePayload unmarshals the rule-private payload into v.
func (a *Activity) DecodePayload(v any) error {
	if len(a.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(a.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", a.Kind, err)
	}
	return nil
}

// EncodePayload replaces the payload with the JSON encoding of v.
func (a *Activity) EncodePayload(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", a.Kind, err)
	}
	a.Payload = data
	return nil
}

// Request is a client's ask to start or preview an activity. Target carries the
// family-specific subject, such as a destination, a boss or a defender.
type Request struct {
	CardIDs []string `json:"card_ids"`
	Target  string   `json:"target,omitempty"`
}

// Projection is the client-facing view of an activity.
type Projection struct {
	ID      string           `json:"id"`
	Kind    Kind             `json:"kind"`
	CardIDs []string         `json:"card_ids"`
	GroupID *string          `json:"group_id,omitempty"`
	Cost    player.Resources `json:"cost"`
	DueAt   time.Time        `json:"due_at"`
	Details json.RawMessage  `json:"details,omitempty"`
}

// Project builds the client-facing view of a.
func Project(a *Activity) Projection {
	return Projection{
		ID:      a.ID,
		Kind:    a.Kind,
		CardIDs: append([]string(nil), a.CardIDs...),
		GroupID: a.GroupID,
		Cost:    a.Cost,
		DueAt:   a.DueAt,
		Details: a.Payload,
	}
}

// Estimate previews what Start would record for the same request.
type Estimate struct {
	Kind    Kind             `json:"kind"`
	Allowed bool             `json:"allowed"`
	Reason  string           `json:"reason,omitempty"`
	Cost    player.Resources `json:"cost"`
	DueAt   time.Time        `json:"due_at"`

	// FinishAt is when the last phase ends; equal to DueAt for single-phase kinds.
	FinishAt time.Time        `json:"finish_at"`
	Reward   player.Resources `json:"reward"`
	Chance   float64          `json:"chance,omitempty"`
}

// Outcome is the result of a completion. A non-nil Next means the rule has
// persisted a new due time and the same record must be scheduled again.
type Outcome struct {
	Next *Activity
}

// Done is the terminal outcome.
func Done() Outcome { return Outcome{} }

// Reschedule is the phase-transition outcome.
func Reschedule(a *Activity) Outcome { return Outcome{Next: a} }
