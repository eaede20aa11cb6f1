package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
)

// maxRequestBytes bounds one RPC body. Activity requests are a handful of ids.
const maxRequestBytes = 64 << 10

var (
	errInvalidRequest = errors.New("invalid request")
	errBatch          = errors.New("batch requests are not supported")
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorData is the data member of domain errors: a stable string code the
// client can branch on, plus an optional hint.
type ErrorData struct {
	Code         string `json:"code"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

// ParseRequest reads one JSON-RPC request from body.
func ParseRequest(body io.Reader) (Request, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxRequestBytes+1))
	if err != nil {
		return Request{}, fmt.Errorf("read request: %w", err)
	}
	if len(raw) > maxRequestBytes {
		return Request{}, fmt.Errorf("request exceeds %d bytes: %w", maxRequestBytes, errInvalidRequest)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		return Request{}, errBatch
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("parse error: %w", err)
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return Request{}, errInvalidRequest
	}
	return req, nil
}

// ParseErrorCode returns the JSON-RPC code for a ParseRequest failure.
func ParseErrorCode(err error) int {
	if errors.Is(err, errInvalidRequest) || errors.Is(err, errBatch) {
		return ErrInvalidReq
	}
	return ErrParseCode
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id any, result any) {
	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	})
}

// WriteError writes a JSON-RPC error response. Errors travel with status 200
// as the protocol requires.
func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
