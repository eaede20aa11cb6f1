// Package testserver runs the full HTTP stack over an in-memory database for
// integration tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/rpc"
	"github.com/rpggio/starcards/internal/rules"
	"github.com/rpggio/starcards/internal/scheduler"
	"github.com/rpggio/starcards/internal/sqlite"
	"github.com/rpggio/starcards/internal/transport"
)

// Epoch is the fake clock's starting time.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type TestServer struct {
	Server     *httptest.Server
	DB         *sqlite.DB
	Clock      *clockwork.FakeClock
	Activities *activity.Service
	Scheduler  *scheduler.Scheduler

	nextID int
}

// New starts a server whose chance rolls always return roll.
func New(t *testing.T, roll float64) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	clock := clockwork.NewFakeClockAt(Epoch)
	store := sqlite.NewStore(db)
	balance := rules.DefaultBalance()

	registry, err := activity.NewRegistry(rules.All(rules.Deps{
		Store:   store,
		Clock:   clock,
		Balance: balance,
		Roll:    func() float64 { return roll },
	})...)
	require.NoError(t, err)

	sched := scheduler.New(store, registry, scheduler.WithClock(clock))
	activitySvc := activity.NewService(store, registry, sched, nil)
	playerSvc := player.NewService(sqlite.NewPlayerRepository(db), sqlite.NewCardRepository(db), balance.Starter, nil)
	apiKeys := sqlite.NewAPIKeyRepository(db)

	handler := rpc.NewHandler(activitySvc, playerSvc)
	server := httptest.NewServer(transport.NewServer(handler, transport.Options{
		Auth:      transport.AuthMiddleware(apiKeys),
		Registrar: rpc.NewRegistration(playerSvc, apiKeys, nil),
	}))

	t.Cleanup(func() {
		server.Close()
		activitySvc.StopAll()
		_ = db.Close()
	})

	return &TestServer{
		Server:     server,
		DB:         db,
		Clock:      clock,
		Activities: activitySvc,
		Scheduler:  sched,
	}
}

// Register signs up a player over HTTP.
func (ts *TestServer) Register(t *testing.T, name string) rpc.RegisterResponse {
	t.Helper()
	body, err := json.Marshal(rpc.RegisterParams{Name: name})
	require.NoError(t, err)

	resp, err := http.Post(ts.Server.URL+"/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out rpc.RegisterResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Call performs one JSON-RPC call as the player owning token.
func (ts *TestServer) Call(t *testing.T, token, method string, params any) transport.Response {
	t.Helper()
	ts.nextID++
	req := map[string]any{"jsonrpc": "2.0", "method": method, "id": ts.nextID}
	if params != nil {
		req["params"] = params
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out transport.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Result calls method, requires success and decodes the result into out.
func (ts *TestServer) Result(t *testing.T, token, method string, params, out any) {
	t.Helper()
	resp := ts.Call(t, token, method, params)
	require.Nil(t, resp.Error, "%s failed: %+v", method, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// Advance waits for n armed timers, then moves the clock forward by d.
func (ts *TestServer) Advance(t *testing.T, n int, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ts.Clock.BlockUntilContext(ctx, n))
	ts.Clock.Advance(d)
}
