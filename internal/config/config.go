package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	DefaultTopic0   = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
)

// Sink kinds.
const (
	SinkJSONL    = "jsonl"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

// Checkpoint backends.
const (
	CheckpointFile  = "file"
	CheckpointDB    = "db"
	CheckpointRedis = "redis"
	CheckpointNone  = "none"
)

// Config holds the run command settings. It is built once at startup and not mutated.
type Config struct {
	RPCURL            string
	Contract          string
	Topic0            string
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	Follow            bool
	PollInterval      time.Duration
	Sink              string
	Out               string
	PGDSN             string
	SQLitePath        string
	RawOut            string
	Rejects           string
	CheckpointBackend string
	Checkpoint        string
	CheckpointName    string
	RedisAddr         string
	SkipMalformed     bool
	StrictFilter      bool
	ObserveBalances   bool
	ObserverTimeout   time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	RetryBackoff      time.Duration
	MetricsAddr       string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"rpc":                "https://api.trongrid.io/jsonrpc",
		"contract":           DefaultContract,
		"topic0":             DefaultTopic0,
		"batch-size":         uint64(100),
		"poll-interval":      3 * time.Second,
		"sink":               SinkJSONL,
		"out":                "./data/transfers.jsonl",
		"sqlite-path":        "./data/transfers.db",
		"rejects":            "./data/rejected_logs.jsonl",
		"checkpoint-backend": CheckpointFile,
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-name":    "usdt-transfers",
		"redis-addr":         "localhost:6379",
		"observer-timeout":   2 * time.Second,
		"rps":                5.0,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"log-level":          "info",
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		Contract:          strings.TrimSpace(v.GetString("contract")),
		Topic0:            strings.TrimSpace(v.GetString("topic0")),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		Follow:            v.GetBool("follow"),
		PollInterval:      v.GetDuration("poll-interval"),
		Sink:              strings.ToLower(v.GetString("sink")),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		SQLitePath:        v.GetString("sqlite-path"),
		RawOut:            v.GetString("raw-out"),
		Rejects:           v.GetString("rejects"),
		CheckpointBackend: strings.ToLower(v.GetString("checkpoint-backend")),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointName:    v.GetString("checkpoint-name"),
		RedisAddr:         v.GetString("redis-addr"),
		SkipMalformed:     v.GetBool("skip-malformed"),
		StrictFilter:      v.GetBool("strict-filter"),
		ObserveBalances:   v.GetBool("observe-balances"),
		ObserverTimeout:   v.GetDuration("observer-timeout"),
		RequestsPerSecond: v.GetFloat64("rps"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
	}
	return cfg, cfg.Validate()
}

// Validate checks option combinations that cannot be caught by type conversion.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch-size must be greater than zero")
	}
	if c.ToBlock != 0 && c.ToBlock < c.FromBlock {
		return fmt.Errorf("to (%d) must be >= from (%d)", c.ToBlock, c.FromBlock)
	}
	if c.Follow && c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive with follow")
	}

	switch c.Sink {
	case SinkJSONL:
		if c.Out == "" {
			return fmt.Errorf("out is required for the jsonl sink")
		}
	case SinkPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres sink")
		}
	case SinkSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite-path is required for the sqlite sink")
		}
	default:
		return fmt.Errorf("unknown sink %q", c.Sink)
	}

	switch c.CheckpointBackend {
	case CheckpointNone:
	case CheckpointFile:
		if c.Checkpoint == "" {
			return fmt.Errorf("checkpoint path is required for the file backend")
		}
	case CheckpointDB:
		if c.Sink == SinkJSONL {
			return fmt.Errorf("checkpoint-backend db needs a postgres or sqlite sink")
		}
	case CheckpointRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint-backend %q", c.CheckpointBackend)
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}
