package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/domain/war"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps in-memory databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. It is safe to run on every start.
func (db *DB) RunMigrations() error {
	migration := fmt.Sprintf(`
-- Players and their balances
CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    coins INTEGER NOT NULL DEFAULT 0 CHECK(coins >= 0),
    food INTEGER NOT NULL DEFAULT 0 CHECK(food >= 0),
    materials INTEGER NOT NULL DEFAULT 0 CHECK(materials >= 0),
    fuel INTEGER NOT NULL DEFAULT 0 CHECK(fuel >= 0),
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS buildings (
    player_id TEXT NOT NULL,
    building TEXT NOT NULL CHECK(building IN (%s)),
    level INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (player_id, building),
    FOREIGN KEY (player_id) REFERENCES players(id)
);

CREATE TABLE IF NOT EXISTS player_stats (
    player_id TEXT NOT NULL,
    stat TEXT NOT NULL CHECK(stat IN (%s)),
    value INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (player_id, stat),
    FOREIGN KEY (player_id) REFERENCES players(id)
);

-- Open activities; terminal activities are deleted
CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN (%s)),
    group_id TEXT,
    card_ids TEXT NOT NULL DEFAULT '[]',
    cost_coins INTEGER NOT NULL DEFAULT 0,
    cost_food INTEGER NOT NULL DEFAULT 0,
    cost_materials INTEGER NOT NULL DEFAULT 0,
    cost_fuel INTEGER NOT NULL DEFAULT 0,
    due_at INTEGER NOT NULL,
    payload TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (owner_id) REFERENCES players(id)
);
CREATE INDEX IF NOT EXISTS idx_activities_owner ON activities(owner_id);
CREATE INDEX IF NOT EXISTS idx_activities_group ON activities(group_id);
CREATE INDEX IF NOT EXISTS idx_activities_due ON activities(due_at);

-- Cards; activity_id is the back-reference to the open activity holding the card
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    level INTEGER NOT NULL DEFAULT 1,
    power INTEGER NOT NULL DEFAULT 0,
    damaged INTEGER NOT NULL DEFAULT 0,
    activity_id TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (owner_id) REFERENCES players(id),
    FOREIGN KEY (activity_id) REFERENCES activities(id)
);
CREATE INDEX IF NOT EXISTS idx_cards_owner ON cards(owner_id);
CREATE INDEX IF NOT EXISTS idx_cards_activity ON cards(activity_id);

-- Wars group every attacker marching on one defender
CREATE TABLE IF NOT EXISTS wars (
    id TEXT PRIMARY KEY,
    defender_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN (%s)),
    participants INTEGER NOT NULL DEFAULT 0,
    plunder INTEGER NOT NULL DEFAULT 0,
    attackers_won INTEGER NOT NULL DEFAULT 0,
    starts_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (defender_id) REFERENCES players(id)
);
CREATE INDEX IF NOT EXISTS idx_wars_defender ON wars(defender_id, status);

-- API keys for authentication
CREATE TABLE IF NOT EXISTS api_keys (
    key_hash TEXT PRIMARY KEY,
    player_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_used TIMESTAMP,
    description TEXT,
    FOREIGN KEY (player_id) REFERENCES players(id)
);
CREATE INDEX IF NOT EXISTS idx_player_keys ON api_keys(player_id);
`,
		quoteList(player.Buildings),
		quoteList(player.Stats),
		quoteList(activity.Kinds),
		quoteList(war.Statuses),
	)

	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// queryer is satisfied by both *DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func quoteList[T ~string](values []T) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + string(v) + "'"
	}
	return strings.Join(quoted, ", ")
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
