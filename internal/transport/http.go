package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rpggio/starcards/internal/rpc"
)

// RPCHandler handles RPC method dispatch for an authenticated player.
type RPCHandler interface {
	Handle(ctx context.Context, playerID, method string, params json.RawMessage) (any, error)
}

// Registrar signs up new players.
type Registrar interface {
	Register(ctx context.Context, params rpc.RegisterParams) (*rpc.RegisterResponse, error)
}

// codedError is implemented by errors that carry an RPC error code.
type codedError interface {
	error
	RPCCode() int
	CodeValue() string
	MessageValue() string
	RecoveryHintValue() string
}

// Options wires the optional parts of the router.
type Options struct {
	Auth      func(http.Handler) http.Handler
	RateLimit func(http.Handler) http.Handler
	Registrar Registrar
	Metrics   http.Handler
	Logger    *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler   RPCHandler
	registrar Registrar
	logger    *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(handler RPCHandler, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &Server{handler: handler, registrar: opts.Registrar, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	if opts.Registrar != nil {
		r.Post("/register", srv.handleRegister)
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit)
		}
		r.Post("/rpc", srv.handleRPC)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, ParseErrorCode(err), err.Error(), nil)
		return
	}

	playerID, ok := PlayerFromContext(r.Context())
	if !ok || playerID == "" {
		http.Error(w, "missing player", http.StatusUnauthorized)
		return
	}

	result, err := s.handler.Handle(r.Context(), playerID, req.Method, req.Params)
	if err != nil {
		s.writeRPCError(w, req, err)
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) writeRPCError(w http.ResponseWriter, req Request, err error) {
	var coded codedError
	if errors.As(err, &coded) {
		WriteError(w, req.ID, coded.RPCCode(), coded.MessageValue(), ErrorData{
			Code:         coded.CodeValue(),
			RecoveryHint: coded.RecoveryHintValue(),
		})
		return
	}
	s.logger.Error("rpc method failed", "method", req.Method, "error", err)
	WriteError(w, req.ID, ErrInternal, "internal error", nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var params rpc.RegisterParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	resp, err := s.registrar.Register(r.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		body := map[string]string{"error": "internal error"}
		var coded codedError
		if errors.As(err, &coded) {
			body = map[string]string{"code": coded.CodeValue(), "error": coded.MessageValue()}
			if coded.RPCCode() != rpc.CodeInternal {
				status = http.StatusBadRequest
			}
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
