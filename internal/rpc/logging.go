package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Dispatcher is anything that serves RPC methods for a player.
type Dispatcher interface {
	Handle(ctx context.Context, playerID, method string, params json.RawMessage) (any, error)
}

type trafficLogger struct {
	next   Dispatcher
	logger *slog.Logger
}

// WithTrafficLogging logs every request and response at debug level.
func WithTrafficLogging(next Dispatcher, logger *slog.Logger) Dispatcher {
	if logger == nil {
		return next
	}
	return &trafficLogger{next: next, logger: logger}
}

func (t *trafficLogger) Handle(ctx context.Context, playerID, method string, params json.RawMessage) (any, error) {
	if !t.logger.Enabled(ctx, slog.LevelDebug) {
		return t.next.Handle(ctx, playerID, method, params)
	}

	t.logger.Debug("rpc traffic", "stage", "request", "method", method, "player_id", playerID, "params", string(params))
	result, err := t.next.Handle(ctx, playerID, method, params)
	if err != nil {
		t.logger.Debug("rpc traffic", "stage", "response", "method", method, "player_id", playerID, "error", err)
	} else {
		t.logger.Debug("rpc traffic", "stage", "response", "method", method, "player_id", playerID, "result", formatPayload(result))
	}
	return result, err
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
