// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package config loads the simulator configuration. Values come from, in
// increasing priority: built-in defaults, a TOML file, TOKENGOV_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mccoysc/tokengov/governance"
	"github.com/mccoysc/tokengov/token"
)

// Config is the full simulator configuration
type Config struct {
	Governance GovernanceConfig `toml:"governance"`
	Token      TokenConfig      `toml:"token"`
	Journal    JournalConfig    `toml:"journal"`
	Log        LogConfig        `toml:"log"`
}

// GovernanceConfig holds the engine's identity and initial voting rules
type GovernanceConfig struct {
	Address      string `toml:"address"`
	VotingPeriod uint64 `toml:"voting_period"` // seconds
	MinQuorumBps uint16 `toml:"min_quorum_bps"`
}

// TokenConfig describes the weight token ledger
type TokenConfig struct {
	Address      string `toml:"address"`
	Name         string `toml:"name"`
	Symbol       string `toml:"symbol"`
	Decimals     uint8  `toml:"decimals"`
	Owner        string `toml:"owner"`
	FeeBps       uint16 `toml:"fee_bps"`
	FeeCollector string `toml:"fee_collector"`
}

// JournalConfig locates the event journal. An empty path keeps it in memory.
type JournalConfig struct {
	Path string `toml:"path"`
}

// LogConfig controls log output
type LogConfig struct {
	Level      string `toml:"level"`  // trace, debug, info, warn, error, crit
	Format     string `toml:"format"` // terminal, json, or empty to detect
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	gov := governance.DefaultConfig()
	tok := token.DefaultConfig()
	return &Config{
		Governance: GovernanceConfig{
			Address:      "0x0000000000000000000000000000000000001001",
			VotingPeriod: gov.VotingPeriod,
			MinQuorumBps: gov.MinQuorumBps,
		},
		Token: TokenConfig{
			Address:  "0x0000000000000000000000000000000000001002",
			Name:     tok.Name,
			Symbol:   tok.Symbol,
			Decimals: tok.Decimals,
			Owner:    "0x0000000000000000000000000000000000001000",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the TOML file at path over the defaults and applies environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debug("Loaded configuration", "file", path, "period", cfg.Governance.VotingPeriod, "quorum", cfg.Governance.MinQuorumBps)
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Governance.Address = getEnvOrDefault("TOKENGOV_GOVERNANCE_ADDRESS", c.Governance.Address)
	c.Token.Address = getEnvOrDefault("TOKENGOV_TOKEN_ADDRESS", c.Token.Address)
	c.Token.Owner = getEnvOrDefault("TOKENGOV_TOKEN_OWNER", c.Token.Owner)
	c.Journal.Path = getEnvOrDefault("TOKENGOV_JOURNAL", c.Journal.Path)
	c.Log.Level = getEnvOrDefault("TOKENGOV_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnvOrDefault("TOKENGOV_LOG_FILE", c.Log.File)

	if v := os.Getenv("TOKENGOV_VOTING_PERIOD"); v != "" {
		period, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TOKENGOV_VOTING_PERIOD: %w", err)
		}
		c.Governance.VotingPeriod = period
	}
	if v := os.Getenv("TOKENGOV_MIN_QUORUM_BPS"); v != "" {
		bps, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("TOKENGOV_MIN_QUORUM_BPS: %w", err)
		}
		c.Governance.MinQuorumBps = uint16(bps)
	}
	if v := os.Getenv("TOKENGOV_TOKEN_FEE_BPS"); v != "" {
		bps, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("TOKENGOV_TOKEN_FEE_BPS: %w", err)
		}
		c.Token.FeeBps = uint16(bps)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := c.GovernanceRules().Validate(); err != nil {
		return fmt.Errorf("governance: %w", err)
	}
	for name, addr := range map[string]string{
		"governance.address": c.Governance.Address,
		"token.address":      c.Token.Address,
		"token.owner":        c.Token.Owner,
	} {
		if !isAddress(addr) {
			return fmt.Errorf("%s: invalid address %q", name, addr)
		}
	}
	if c.Token.FeeCollector != "" && !isAddress(c.Token.FeeCollector) {
		return fmt.Errorf("token.fee_collector: invalid address %q", c.Token.FeeCollector)
	}
	if c.Governance.Address == c.Token.Address {
		return errors.New("governance and token addresses must differ")
	}
	if c.Token.FeeBps > token.MaxFeeBps {
		return fmt.Errorf("token.fee_bps: %w", token.ErrFeeTooHigh)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "terminal", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// ErrUnknownLogLevel is returned for a log level name ParseLogLevel does not know.
var ErrUnknownLogLevel = errors.New("unknown log level")

// ParseLogLevel maps a level name, case-insensitively, to the log package's
// level. The four letter forms used in terminal output are accepted too.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "trce":
		return log.LevelTrace, nil
	case "debug", "dbug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error", "eror":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return log.LevelInfo, fmt.Errorf("%w %q", ErrUnknownLogLevel, name)
}

// GovernanceRules returns the engine's initial voting rules.
func (c *Config) GovernanceRules() *governance.Config {
	return &governance.Config{
		VotingPeriod: c.Governance.VotingPeriod,
		MinQuorumBps: c.Governance.MinQuorumBps,
	}
}

// GovernanceAddress returns the engine's account.
func (c *Config) GovernanceAddress() common.Address {
	return common.HexToAddress(c.Governance.Address)
}

// TokenAddress returns the account under which the token ledger is reachable
// by proposals.
func (c *Config) TokenAddress() common.Address {
	return common.HexToAddress(c.Token.Address)
}

// LedgerConfig returns the parameters of a new token ledger.
func (c *Config) LedgerConfig() *token.Config {
	cfg := &token.Config{
		Name:     c.Token.Name,
		Symbol:   c.Token.Symbol,
		Decimals: c.Token.Decimals,
		Owner:    common.HexToAddress(c.Token.Owner),
		FeeBps:   c.Token.FeeBps,
	}
	if c.Token.FeeCollector != "" {
		cfg.FeeCollector = common.HexToAddress(c.Token.FeeCollector)
	}
	return cfg
}

func isAddress(s string) bool {
	return common.IsHexAddress(s) && common.HexToAddress(s) != (common.Address{})
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
