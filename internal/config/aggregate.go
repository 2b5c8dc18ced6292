package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// AggregateConfig holds configuration for aggregation.
type AggregateConfig struct {
	RPCURL        string
	Input         string
	Contract      string
	ChainID       uint64
	Decimals      int
	Window        string
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom string
	LogLevel      string
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"contract":   DefaultContract,
		"decimals":   -1,
		"batch-size": 1000,
		"log-level":  "info",
		"window":     "5m",
		"in":         "./data/transfers.jsonl",
	})
	if err != nil {
		return AggregateConfig{}, err
	}

	cfg := AggregateConfig{
		RPCURL:        v.GetString("rpc"),
		Input:         v.GetString("in"),
		Contract:      v.GetString("contract"),
		ChainID:       v.GetUint64("chain-id"),
		Decimals:      v.GetInt("decimals"),
		Window:        v.GetString("window"),
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: v.GetString("recompute-from"),
		LogLevel:      v.GetString("log-level"),
	}
	if cfg.Decimals < 0 && cfg.RPCURL == "" {
		return AggregateConfig{}, fmt.Errorf("decimals or rpc is required")
	}
	if cfg.Decimals > 77 {
		return AggregateConfig{}, fmt.Errorf("decimals out of range: %d", cfg.Decimals)
	}
	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	if val, err := strconv.ParseUint(input, 10, 64); err == nil {
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", input)
	}
	return uint64(tm.Unix()), nil
}
