// Package rpc dispatches JSON-RPC methods to the activity and player services.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
)

// ActivityService defines activity operations needed by RPC.
type ActivityService interface {
	CreateActivity(ctx context.Context, ownerID, kind string, req activity.Request) ([]activity.Projection, error)
	EstimateActivity(ctx context.Context, ownerID, kind string, req activity.Request) (*activity.Estimate, error)
	DeleteActivity(ctx context.Context, ownerID, activityID string) error
	GetActivity(ctx context.Context, ownerID, activityID string) (*activity.Projection, error)
	ListActivities(ctx context.Context, ownerID string) ([]activity.Projection, error)
}

// PlayerService defines player operations needed by RPC.
type PlayerService interface {
	Profile(ctx context.Context, id string) (*player.Profile, error)
}

// Handler dispatches RPC methods for an authenticated player.
type Handler struct {
	activities ActivityService
	players    PlayerService
}

// NewHandler creates a new RPC handler.
func NewHandler(activities ActivityService, players PlayerService) *Handler {
	return &Handler{activities: activities, players: players}
}

// Methods lists every method Handle accepts.
var Methods = []string{
	"create_activity",
	"estimate_activity",
	"delete_activity",
	"get_activity",
	"list_activities",
	"get_profile",
}

// Handle dispatches one RPC request on behalf of playerID.
func (h *Handler) Handle(ctx context.Context, playerID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "create_activity":
		var req ActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		created, err := h.activities.CreateActivity(ctx, playerID, req.Kind, req.request())
		if err != nil {
			return nil, mapError(err)
		}
		return CreateActivityResponse{Activities: created}, nil
	case "estimate_activity":
		var req ActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		est, err := h.activities.EstimateActivity(ctx, playerID, req.Kind, req.request())
		if err != nil {
			return nil, mapError(err)
		}
		return est, nil
	case "delete_activity":
		var req ActivityIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := requireID(req.ID); err != nil {
			return nil, err
		}
		if err := h.activities.DeleteActivity(ctx, playerID, req.ID); err != nil {
			return nil, mapError(err)
		}
		return DeleteActivityResponse{ID: req.ID, Refunded: true}, nil
	case "get_activity":
		var req ActivityIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := requireID(req.ID); err != nil {
			return nil, err
		}
		a, err := h.activities.GetActivity(ctx, playerID, req.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return a, nil
	case "list_activities":
		list, err := h.activities.ListActivities(ctx, playerID)
		if err != nil {
			return nil, mapError(err)
		}
		return ListActivitiesResponse{Activities: list}, nil
	case "get_profile":
		profile, err := h.players.Profile(ctx, playerID)
		if err != nil {
			return nil, mapError(err)
		}
		return profile, nil
	default:
		return nil, &APIError{RPC: CodeNoMethod, Code: "METHOD_NOT_FOUND", Message: fmt.Sprintf("unknown method: %s", method)}
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return badParams(err)
	}
	return nil
}

func requireID(id string) error {
	if id == "" {
		return badParams(errors.New("id is required"))
	}
	return nil
}

func mapError(err error) error {
	return MapError(err)
}
