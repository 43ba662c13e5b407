// Package config provides configuration loading for protocold.
//
// Precedence, highest to lowest: environment variables prefixed with
// PROTOCOLD_, the YAML config file, hardcoded defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "PROTOCOLD_"
	maxConfigFileSize = 1024 * 1024
)

// Load reads the YAML file at configPath (skipped when empty or absent),
// applies PROTOCOLD_* environment overrides, fills defaults, and validates.
//
// Environment variables map section and field with the first underscore:
// PROTOCOLD_SERVER_PORT -> server.port, PROTOCOLD_BANDIT_UCB_C ->
// bandit.ucb_c.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
			}
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// PROTOCOLD_SERVER_PORT -> server.port: the first underscore
		// separates section from field, later underscores stay in the
		// field name.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8420
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "protocold"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Interval == 0 {
		cfg.Telemetry.Interval = 30 * time.Second
	}

	if cfg.Bandit.Window == 0 {
		cfg.Bandit.Window = 50
	}
	if cfg.Bandit.Epsilon == nil {
		epsilon := 0.1
		cfg.Bandit.Epsilon = &epsilon
	}
	if cfg.Bandit.UCBC == 0 {
		cfg.Bandit.UCBC = 2.0
	}

	if cfg.Reward.Alpha == 0 {
		cfg.Reward.Alpha = 0.3
	}

	if cfg.Improver.Interval == 0 {
		cfg.Improver.Interval = time.Hour
	}
	if cfg.Improver.EvolveEvery == nil {
		every := 5
		cfg.Improver.EvolveEvery = &every
	}

	if cfg.Evolution.Threshold == 0 {
		cfg.Evolution.Threshold = 2.0
	}
	if cfg.Evolution.Noise == 0 {
		cfg.Evolution.Noise = 0.5
	}

	if cfg.Episodic.Sink == "" {
		cfg.Episodic.Sink = "nop"
	}
	if cfg.Episodic.Collection == "" {
		cfg.Episodic.Collection = "protocold_episodes"
	}
	if cfg.Episodic.Subject == "" {
		cfg.Episodic.Subject = "protocold.episodes"
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	switch c.Telemetry.Protocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", c.Telemetry.Protocol)
	}

	if c.Bandit.Epsilon != nil && (*c.Bandit.Epsilon < 0 || *c.Bandit.Epsilon > 1) {
		return fmt.Errorf("bandit.epsilon must be in [0, 1], got %v", *c.Bandit.Epsilon)
	}
	if c.Bandit.Window < 1 {
		return fmt.Errorf("bandit.window must be positive, got %d", c.Bandit.Window)
	}
	if c.Bandit.UCBC <= 0 {
		return fmt.Errorf("bandit.ucb_c must be positive, got %v", c.Bandit.UCBC)
	}

	if c.Reward.Alpha <= 0 || c.Reward.Alpha > 1 {
		return fmt.Errorf("reward.alpha must be in (0, 1], got %v", c.Reward.Alpha)
	}

	if c.Improver.Interval <= 0 {
		return fmt.Errorf("improver.interval must be positive, got %v", c.Improver.Interval)
	}
	if c.Improver.EvolveEvery != nil && *c.Improver.EvolveEvery < 0 {
		return fmt.Errorf("improver.evolve_every cannot be negative, got %d", *c.Improver.EvolveEvery)
	}

	if c.Evolution.Threshold <= 0 || c.Evolution.Threshold > 5 {
		return fmt.Errorf("evolution.threshold must be in (0, 5], got %v", c.Evolution.Threshold)
	}
	if c.Evolution.Noise <= 0 {
		return fmt.Errorf("evolution.noise must be positive, got %v", c.Evolution.Noise)
	}

	switch c.Episodic.Sink {
	case "nop", "memory", "chromem", "nats":
	default:
		return fmt.Errorf("episodic.sink must be one of nop, memory, chromem, nats, got %q", c.Episodic.Sink)
	}
	if c.Episodic.Sink == "chromem" && c.Episodic.Path == "" {
		return fmt.Errorf("episodic.path is required for the chromem sink")
	}

	if c.Manifest.Watch && c.Manifest.Path == "" {
		return fmt.Errorf("manifest.watch requires manifest.path")
	}
	return nil
}
