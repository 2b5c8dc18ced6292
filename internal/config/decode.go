package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the offline decode command.
type DecodeConfig struct {
	In            string
	Out           string
	Errors        string
	Contract      string
	SkipMalformed bool
	StrictFilter  bool
	LogLevel      string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"contract":       DefaultContract,
		"out":            "./data/transfers.jsonl",
		"errors":         "./data/decode_errors.jsonl",
		"skip-malformed": true,
		"log-level":      "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		In:            v.GetString("in"),
		Out:           v.GetString("out"),
		Errors:        v.GetString("errors"),
		Contract:      v.GetString("contract"),
		SkipMalformed: v.GetBool("skip-malformed"),
		StrictFilter:  v.GetBool("strict-filter"),
		LogLevel:      v.GetString("log-level"),
	}
	if cfg.In == "" {
		return DecodeConfig{}, fmt.Errorf("in is required")
	}
	if cfg.Out == "" {
		return DecodeConfig{}, fmt.Errorf("out is required")
	}
	return cfg, nil
}
