package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rpggio/starcards/internal/rules"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Balance   rules.Balance   `yaml:"balance"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig bounds the completion worker pool.
type SchedulerConfig struct {
	Workers           int           `yaml:"workers"`
	CompletionTimeout time.Duration `yaml:"completion_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// NotifyConfig selects the notification sink. Without brokers notifications
// are only logged.
type NotifyConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RateLimitConfig is the per-player request budget. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "starcards.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Scheduler: SchedulerConfig{
			Workers:           8,
			CompletionTimeout: 30 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Notify: NotifyConfig{
			Topic: "starcards.notifications",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
		Balance: rules.DefaultBalance(),
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("STARCARDS_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("STARCARDS_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("STARCARDS_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STARCARDS_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("STARCARDS_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("STARCARDS_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if workersStr := os.Getenv("STARCARDS_SCHEDULER_WORKERS"); workersStr != "" {
		workers, err := strconv.Atoi(workersStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STARCARDS_SCHEDULER_WORKERS: %w", err)
		}
		cfg.Scheduler.Workers = workers
	}
	if brokers := os.Getenv("STARCARDS_NOTIFY_BROKERS"); brokers != "" {
		cfg.Notify.Brokers = splitList(brokers)
	}
	if topic := os.Getenv("STARCARDS_NOTIFY_TOPIC"); topic != "" {
		cfg.Notify.Topic = topic
	}
	if rpsStr := os.Getenv("STARCARDS_RATE_LIMIT_RPS"); rpsStr != "" {
		rps, err := strconv.ParseFloat(rpsStr, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STARCARDS_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = rps
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler workers must be positive, got %d", c.Scheduler.Workers)
	}
	if len(c.Notify.Brokers) > 0 && c.Notify.Topic == "" {
		return fmt.Errorf("notify topic is required when brokers are set")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit rps must not be negative")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
