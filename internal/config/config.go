// Package config loads the edge policy file. Connection secrets (database,
// Redis, VAPID keys) come from the environment instead; the YAML file only
// carries caching and delivery policy, which is versioned with the site.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Generation names become part of cache store keys and scan patterns, so
// glob metacharacters and the key separator are rejected up front.
var generationNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		Origin string `yaml:"origin"`
	} `yaml:"server"`

	Cache struct {
		// Generation is the current cache generation name, e.g. "cpl-v2".
		// Bumping it on redeploy is the only way to discard stale entries.
		Generation  string   `yaml:"generation"`
		OfflinePath string   `yaml:"offlinePath"`
		SeedPaths   []string `yaml:"seedPaths"`
		// BypassPrefixes are never cached and never served stale.
		BypassPrefixes        []string `yaml:"bypassPrefixes"`
		RevalidateConcurrency int      `yaml:"revalidateConcurrency"`
	} `yaml:"cache"`

	Push struct {
		Subscriber   string `yaml:"subscriber"` // contact for VAPID claims
		TTL          int    `yaml:"ttl"`        // seconds the push service may queue
		BatchLimit   int    `yaml:"batchLimit"`
		Concurrency  int    `yaml:"concurrency"`
		PollInterval string `yaml:"pollInterval"`

		pollDur time.Duration
	} `yaml:"push"`
}

func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Origin == "" {
		return Config{}, fmt.Errorf("server.origin is required")
	}
	cfg.Server.Origin = strings.TrimRight(cfg.Server.Origin, "/")

	if cfg.Cache.Generation == "" {
		return Config{}, fmt.Errorf("cache.generation is required")
	}
	if !generationNamePattern.MatchString(cfg.Cache.Generation) {
		return Config{}, fmt.Errorf("cache.generation %q: only letters, digits, '.', '_' and '-' are allowed", cfg.Cache.Generation)
	}
	if cfg.Cache.OfflinePath == "" {
		cfg.Cache.OfflinePath = "/offline"
	}
	if len(cfg.Cache.SeedPaths) == 0 {
		cfg.Cache.SeedPaths = []string{cfg.Cache.OfflinePath, "/icon-192x192.png", "/manifest.json"}
	}
	if !contains(cfg.Cache.SeedPaths, cfg.Cache.OfflinePath) {
		return Config{}, fmt.Errorf("cache.seedPaths must include cache.offlinePath %q", cfg.Cache.OfflinePath)
	}
	if len(cfg.Cache.BypassPrefixes) == 0 {
		cfg.Cache.BypassPrefixes = []string{"/api/", "/admin/"}
	}
	if cfg.Cache.RevalidateConcurrency <= 0 {
		cfg.Cache.RevalidateConcurrency = 32
	}

	if cfg.Push.Subscriber == "" {
		cfg.Push.Subscriber = "mailto:web@cpl.example.edu"
	}
	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 30
	}
	if cfg.Push.BatchLimit <= 0 {
		cfg.Push.BatchLimit = 1000
	}
	if cfg.Push.Concurrency <= 0 {
		cfg.Push.Concurrency = 16
	}
	if cfg.Push.PollInterval == "" {
		cfg.Push.PollInterval = "5m"
	}
	d, err := time.ParseDuration(cfg.Push.PollInterval)
	if err != nil {
		return Config{}, fmt.Errorf("push.pollInterval: %w", err)
	}
	cfg.Push.pollDur = d

	return cfg, nil
}

// PollDuration returns the parsed notification poll interval.
func (c *Config) PollDuration() time.Duration {
	return c.Push.pollDur
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
