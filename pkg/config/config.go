// Package config loads the user-level TOML settings file described in
// spec.md §6, with environment-variable overrides layered on top.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultConfigEnv names the environment variable that overrides the
	// default config file location (~/.pytanis/config.toml).
	DefaultConfigEnv = "PYTANIS_CONFIG"
)

// Config is the root configuration object, mirroring the sections
// described in SPEC_FULL.md §A1.
type Config struct {
	Env string
	Log LogConfig

	Pretalx       PretalxConfig
	RateLimit     RateLimitConfig
	Cache         CacheConfig
	Storage       *StorageConfig
	Communication *CommunicationConfig
	Admin         AdminConfig
	Events        EventsConfig
	Redis         *RedisConfig
	Solver        SolverConfig
}

// RedisConfig backs the optional distributed cache / rate-limit bucket
// (SPEC_FULL.md §C3/§C4 supplements). Absence means purely in-process
// behavior, matching the Non-goals in spec.md §1.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PretalxConfig holds the credentials and wire-version pin for the
// upstream client (spec.md §6).
type PretalxConfig struct {
	APIToken      string
	APIVersion    string
	BaseURL       string
	VersionHeader string
}

// RateLimitConfig configures the fetcher's token bucket (spec.md §4.1).
type RateLimitConfig struct {
	Calls       int
	Seconds     int
	Burst       int
	Distributed bool
}

// CacheConfig configures the expansion cache (spec.md §4.2).
type CacheConfig struct {
	Prepopulate bool
	MaxEntries  int
}

// StorageConfig is optional; absence disables artifact storage (spec.md §6).
type StorageConfig struct {
	Provider  string
	LocalPath string
}

// CommunicationConfig is declared only as a contract: mail delivery is out
// of scope per spec.md §1, so no adapter is wired regardless of its value.
type CommunicationConfig struct {
	EmailProvider string
}

// AdminConfig gates the optional trigger/inspection HTTP surface (A5).
type AdminConfig struct {
	Enabled        bool
	BearerToken    string
	ListenAddr     string
	ArtifactSecret string
	ArtifactTTL    time.Duration
}

// EventsConfig gates the optional RabbitMQ run-progress publisher (A7).
type EventsConfig struct {
	Enabled  bool
	URL      string
	Exchange string
}

// SolverConfig names the out-of-process MIP solver C7 shells out to
// (spec.md §4.6's solve contract). An empty BinaryPath disables
// scheduling runs; fetch and assign remain available regardless.
type SolverConfig struct {
	BinaryPath string
	Args       []string
	WorkDir    string
	TimeLimit  time.Duration
}

// LogConfig configures the structured logger (A2).
type LogConfig struct {
	Level  string
	Format string
}

// Load reads the TOML settings file (default ~/.pytanis/config.toml,
// overridable via PYTANIS_CONFIG) with environment-variable overrides, and
// validates the required fields.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	path := configPath()
	v.SetConfigFile(path)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{
		Env: v.GetString("env"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Pretalx: PretalxConfig{
			APIToken:      v.GetString("pretalx.api_token"),
			APIVersion:    v.GetString("pretalx.api_version"),
			BaseURL:       v.GetString("pretalx.base_url"),
			VersionHeader: v.GetString("pretalx.version_header"),
		},
		RateLimit: RateLimitConfig{
			Calls:       v.GetInt("ratelimit.calls"),
			Seconds:     v.GetInt("ratelimit.seconds"),
			Burst:       v.GetInt("ratelimit.burst"),
			Distributed: v.GetBool("ratelimit.distributed"),
		},
		Cache: CacheConfig{
			Prepopulate: v.GetBool("cache.prepopulate"),
			MaxEntries:  v.GetInt("cache.max_entries"),
		},
		Admin: AdminConfig{
			Enabled:        v.GetBool("admin.enabled"),
			BearerToken:    v.GetString("admin.bearer_token"),
			ListenAddr:     v.GetString("admin.listen_addr"),
			ArtifactSecret: v.GetString("admin.artifact_secret"),
			ArtifactTTL:    ParseDuration(v.GetString("admin.artifact_ttl"), time.Hour),
		},
		Events: EventsConfig{
			Enabled:  v.GetBool("events.enabled"),
			URL:      v.GetString("events.url"),
			Exchange: v.GetString("events.exchange"),
		},
		Solver: SolverConfig{
			BinaryPath: v.GetString("solver.binary_path"),
			Args:       v.GetStringSlice("solver.args"),
			WorkDir:    v.GetString("solver.work_dir"),
			TimeLimit:  ParseDuration(v.GetString("solver.time_limit"), 5*time.Minute),
		},
	}

	if v.IsSet("storage.provider") {
		cfg.Storage = &StorageConfig{
			Provider:  v.GetString("storage.provider"),
			LocalPath: v.GetString("storage.local_path"),
		}
	}
	if v.IsSet("communication.email_provider") {
		cfg.Communication = &CommunicationConfig{
			EmailProvider: v.GetString("communication.email_provider"),
		}
	}
	if v.IsSet("redis.host") {
		cfg.Redis = &RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		}
	}

	if cfg.Pretalx.APIToken == "" {
		return nil, &apperrors.ConfigMissing{Field: "pretalx.api_token"}
	}

	return cfg, nil
}

func configPath() string {
	if p := os.Getenv(DefaultConfigEnv); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".pytanis", "config.toml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("pretalx.api_version", "v1")
	v.SetDefault("pretalx.base_url", "https://pretalx.com")
	v.SetDefault("pretalx.version_header", "Pretalx-Version")

	v.SetDefault("ratelimit.calls", 2)
	v.SetDefault("ratelimit.seconds", 1)
	v.SetDefault("ratelimit.burst", 2)
	v.SetDefault("ratelimit.distributed", false)

	v.SetDefault("cache.prepopulate", true)
	v.SetDefault("cache.max_entries", 0)

	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.listen_addr", ":8080")

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.exchange", "pytanis.runs")

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("solver.work_dir", filepath.Join(os.TempDir(), "pytanis-schedule"))
	v.SetDefault("solver.time_limit", "5m")
}

// ParseDuration parses raw, falling back to fallback on empty or invalid
// input. Kept for callers that read ad-hoc duration strings out of Viper.
func ParseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
