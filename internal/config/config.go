// Package config defines service configuration and the loader that layers
// defaults, an optional YAML file and GYMPULSE_ environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/gympulse/internal/domain/access"
	"github.com/okian/gympulse/internal/domain/kpi"
	"github.com/okian/gympulse/internal/domain/types"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory ingestion queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of storage workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the in-memory deduplication set.
	DedupeSize int `koanf:"dedupe_size"`

	// FetchTimeout bounds the store reads behind one snapshot.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// DatabaseURL selects the Postgres event store. Empty keeps events in memory.
	DatabaseURL string `koanf:"database_url"`

	// RunMigrations applies the embedded schema on startup.
	RunMigrations bool `koanf:"run_migrations"`

	// RedisAddr enables the snapshot cache and the shared deduper.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// CacheTTL is how long a computed snapshot stays cached.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// DedupeTTL is how long an accepted event id is remembered in Redis.
	DedupeTTL time.Duration `koanf:"dedupe_ttl"`

	// KafkaBrokers enables the event consumer.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	KafkaGroup   string   `koanf:"kafka_group"`

	// JWTSecret verifies HS256 bearer tokens on /snapshot and /events. Empty trusts the
	// X-Tenant-ID, X-Role and X-Rep-ID headers instead.
	JWTSecret string `koanf:"jwt_secret"`

	// PaidSources lists the lead sources counted as paid acquisition.
	PaidSources []string `koanf:"paid_sources"`

	// SourcePlatforms maps a lead source onto its ad platform.
	SourcePlatforms map[string]string `koanf:"source_platforms"`

	// Platforms fixes the order of the per-platform ROAS report.
	Platforms []string `koanf:"platforms"`

	// Permissions replaces the stock role table when set.
	Permissions map[string]Permission `koanf:"permissions"`
}

// Permission is one role's visible metric groups.
type Permission struct {
	Groups   []string `koanf:"groups"`
	SelfOnly bool     `koanf:"self_only"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		EventQueueSize: 10_000,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     100_000,
		FetchTimeout:   5 * time.Second,
		RunMigrations:  true,
		CacheTTL:       time.Minute,
		DedupeTTL:      24 * time.Hour,
		KafkaTopic:     "gym-events",
		KafkaGroup:     "gympulse",
	}
}

// Validate reports the first setting that cannot run.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.FetchTimeout <= 0:
		return fmt.Errorf("%w: fetch_timeout must be positive", ErrInvalidConfig)
	case c.CacheTTL < 0 || c.DedupeTTL < 0:
		return fmt.Errorf("%w: ttl must not be negative", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case len(c.KafkaBrokers) > 0 && c.KafkaTopic == "":
		return fmt.Errorf("%w: kafka_topic is required with kafka_brokers", ErrInvalidConfig)
	case len(c.PaidSources) == 0 && (len(c.SourcePlatforms) > 0 || len(c.Platforms) > 0):
		return fmt.Errorf("%w: source_platforms and platforms need paid_sources", ErrInvalidConfig)
	}
	if _, err := c.PermissionTable(); err != nil {
		return err
	}
	return nil
}

// Vocabulary returns the attribution vocabulary. Without paid_sources the
// stock gym vocabulary is used; Validate rejects platform settings given
// without them.
func (c *Config) Vocabulary() kpi.Vocabulary {
	if len(c.PaidSources) == 0 {
		return kpi.DefaultVocabulary()
	}
	return kpi.NewVocabulary(c.PaidSources, c.SourcePlatforms, c.Platforms)
}

// PermissionTable returns the role table. Without permissions the stock
// table is used.
func (c *Config) PermissionTable() (*access.Table, error) {
	if len(c.Permissions) == 0 {
		return access.DefaultTable(), nil
	}
	rules := make(map[string]access.Rule, len(c.Permissions))
	for role, p := range c.Permissions {
		r := access.Rule{SelfOnly: p.SelfOnly}
		for _, name := range p.Groups {
			g, ok := types.ParseGroup(strings.ToLower(strings.TrimSpace(name)))
			if !ok {
				return nil, fmt.Errorf("%w: role %q names unknown group %q", ErrInvalidConfig, role, name)
			}
			r.Groups = append(r.Groups, g)
		}
		rules[role] = r
	}
	return access.NewTable(rules), nil
}
