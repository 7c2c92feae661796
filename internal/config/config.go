package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Stream    StreamConfig    `mapstructure:"stream"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sweep   string `mapstructure:"sweep"`
}

// EvaluatorConfig controls the compliance sweep over active accounts.
type EvaluatorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Workers bounds the number of accounts evaluated concurrently per sweep.
	Workers int `mapstructure:"workers"`
	// SweepInterval drives the in-process ticker used when cron scheduling is
	// disabled.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// DefaultTimezone is used for accounts created without an explicit
	// trading timezone. Day boundaries are computed per account.
	DefaultTimezone string `mapstructure:"default_timezone"`
	// StaleEquityAfter marks an account's metrics as stale when the broker
	// adapter has not delivered an equity reading within this window.
	StaleEquityAfter time.Duration `mapstructure:"stale_equity_after"`
}

// IngestConfig guards the broker event endpoints.
type IngestConfig struct {
	// RatePerSecond / Burst feed a token-bucket limiter on the ingest routes.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type StreamConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Buffer is the per-subscriber event queue; slow consumers are dropped
	// once it fills rather than blocking the evaluator.
	Buffer int `mapstructure:"buffer"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.sweep", "@every 15s")
	v.SetDefault("evaluator.enabled", true)
	v.SetDefault("evaluator.workers", 16)
	v.SetDefault("evaluator.sweep_interval", "15s")
	v.SetDefault("evaluator.default_timezone", "UTC")
	v.SetDefault("evaluator.stale_equity_after", "2m")
	v.SetDefault("ingest.rate_per_second", 200)
	v.SetDefault("ingest.burst", 400)
	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.buffer", 64)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
