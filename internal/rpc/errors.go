package rpc

import (
	"errors"
	"fmt"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
)

// JSON-RPC error codes for domain failures, in the server-defined range.
const (
	CodeInvalid      = -32002
	CodeNotFound     = -32004
	CodeCancelDenied = -32009
	CodeInternal     = -32603
	CodeBadParams    = -32602
	CodeNoMethod     = -32601
)

// APIError represents an RPC error response.
type APIError struct {
	RPC          int    `json:"-"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) RPCCode() int {
	return e.RPC
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to RPC error codes. The message is the domain
// reason; internal failures never leak their cause.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, player.ErrPlayerNotFound):
		return &APIError{RPC: CodeNotFound, Code: "NOT_FOUND", Message: "player not found"}
	case errors.Is(err, player.ErrInvalidInput):
		return &APIError{RPC: CodeInvalid, Code: "INVALID_REQUEST", Message: "a player name is required"}
	}
	switch activity.ClassOf(err) {
	case activity.ErrInvalid:
		return &APIError{RPC: CodeInvalid, Code: "INVALID_REQUEST", Message: activity.ReasonOf(err), RecoveryHint: "Call estimate_activity to check the request"}
	case activity.ErrNotFound:
		return &APIError{RPC: CodeNotFound, Code: "NOT_FOUND", Message: activity.ReasonOf(err), RecoveryHint: "Check ID spelling"}
	case activity.ErrCancelDenied:
		return &APIError{RPC: CodeCancelDenied, Code: "CANCEL_DENIED", Message: activity.ReasonOf(err), RecoveryHint: "Wait for the activity to complete"}
	default:
		return &APIError{RPC: CodeInternal, Code: "INTERNAL", Message: "internal error"}
	}
}

func badParams(err error) *APIError {
	return &APIError{RPC: CodeBadParams, Code: "INVALID_PARAMS", Message: err.Error()}
}
