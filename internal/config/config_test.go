package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/starcards/internal/domain/player"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STARCARDS_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "starcards.db", cfg.DB.Path)
	require.Equal(t, 8, cfg.Scheduler.Workers)
	require.Empty(t, cfg.Notify.Brokers)
	require.Equal(t, 30*time.Minute, cfg.Balance.Cook.BaseDuration)
	require.Contains(t, cfg.Balance.Explore.Destinations, "moon")
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9000
scheduler:
  workers: 2
  completion_timeout: 10s
balance:
  cook:
    base_duration: 45m
    min_duration: 5m
    cost:
      coins: 7
  boss:
    bosses:
      moon_wyrm:
        power: 30
        duration: 15m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("STARCARDS_CONFIG_PATH", path)
	t.Setenv("STARCARDS_SERVER_HOST", "127.0.0.1")
	t.Setenv("STARCARDS_NOTIFY_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("STARCARDS_RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, 2, cfg.Scheduler.Workers)
	require.Equal(t, 10*time.Second, cfg.Scheduler.CompletionTimeout)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Notify.Brokers)
	require.Equal(t, 2.5, cfg.RateLimit.RPS)

	require.Equal(t, 45*time.Minute, cfg.Balance.Cook.BaseDuration)
	require.Equal(t, player.Resources{Coins: 7}, cfg.Balance.Cook.Cost)
	// Unset tables keep their defaults.
	require.Equal(t, 5*time.Minute, cfg.Balance.Cook.LevelSpeedup)
	require.Equal(t, 10, cfg.Balance.Train.MaxLevel)
	require.Contains(t, cfg.Balance.Boss.Bosses, "space_kraken")
	require.Equal(t, 30, cfg.Balance.Boss.Bosses["moon_wyrm"].Power)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("STARCARDS_SERVER_PORT", "http")

	_, err := Load()
	require.ErrorContains(t, err, "STARCARDS_SERVER_PORT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.Workers = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Notify.Brokers = []string{"localhost:9092"}
	cfg.Notify.Topic = ""
	require.Error(t, cfg.Validate())

	require.NoError(t, Default().Validate())
}
