// Package config loads the bwlog CLI configuration.
//
// A config file is YAML (.yaml, .yml) or TOML (.toml). Values from a
// ".env" file in the working directory and from BWLOG_* environment
// variables override the file; command-line flags override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bwlog/bwlog-go/internal/safefile"
	"github.com/bwlog/bwlog-go/pkg/bwlog"
	"github.com/bwlog/bwlog-go/pkg/bwlog/stats"
)

// Environment variables that override the config file.
const (
	EnvSelfUsername = "BWLOG_SELF_USERNAME"
	EnvClient       = "BWLOG_CLIENT"
	EnvLogFile      = "BWLOG_LOG_FILE"
	EnvLogLevel     = "BWLOG_LOG_LEVEL"
	EnvStatsAPIKey  = "BWLOG_STATS_API_KEY"
)

// MaxFileSize is the maximum allowed size of a config file (256KB).
const MaxFileSize = 256 * 1024

// Replay modes accepted in the config file.
const (
	ReplayNone  = "none"
	ReplayStart = "start"
	ReplayLastN = "last_n"
)

// Config is the CLI configuration.
type Config struct {
	Client       string `yaml:"client" toml:"client"`
	LogFile      string `yaml:"log_file" toml:"log_file"`
	SelfUsername string `yaml:"self_username" toml:"self_username"`
	LogLevel     string `yaml:"log_level" toml:"log_level"`

	PollInterval        Duration `yaml:"poll_interval" toml:"poll_interval"`
	TimerResolution     Duration `yaml:"timer_resolution" toml:"timer_resolution"`
	InviteExpiry        Duration `yaml:"invite_expiry" toml:"invite_expiry"`
	GuildCaptureTimeout Duration `yaml:"guild_capture_timeout" toml:"guild_capture_timeout"`
	GameStartDelay      Duration `yaml:"game_start_delay" toml:"game_start_delay"`

	Replay       Replay   `yaml:"replay" toml:"replay"`
	Gates        Gates    `yaml:"gates" toml:"gates"`
	Types        []string `yaml:"types" toml:"types"`
	ExcludeTypes []string `yaml:"exclude_types" toml:"exclude_types"`
	TriggersFile string   `yaml:"triggers_file" toml:"triggers_file"`

	Listen string `yaml:"listen" toml:"listen"`
	Stats  Stats  `yaml:"stats" toml:"stats"`
}

// Replay selects what happens to existing lines when tailing starts.
type Replay struct {
	Mode  string `yaml:"mode" toml:"mode"`
	LastN int    `yaml:"last_n" toml:"last_n"`
}

// Gates mirrors bwlog.Gates field for field.
type Gates struct {
	AddFromWho             bool `yaml:"add_from_who" toml:"add_from_who"`
	RemoveOnDeath          bool `yaml:"remove_on_death" toml:"remove_on_death"`
	RemoveOnDisconnect     bool `yaml:"remove_on_disconnect" toml:"remove_on_disconnect"`
	TrackParty             bool `yaml:"track_party" toml:"track_party"`
	TrackInvites           bool `yaml:"track_invites" toml:"track_invites"`
	GuildOnlineOnly        bool `yaml:"guild_online_only" toml:"guild_online_only"`
	ClearManualOnGameStart bool `yaml:"clear_manual_on_game_start" toml:"clear_manual_on_game_start"`
}

// Stats configures player stats lookups for newly tracked names.
// Lookups are off unless at least one URL is set.
type Stats struct {
	URLs         []string `yaml:"urls" toml:"urls"`
	APIKeyHeader string   `yaml:"api_key_header" toml:"api_key_header"`
	APIKey       string   `yaml:"-" toml:"-"` // from env only
	CacheTTL     Duration `yaml:"cache_ttl" toml:"cache_ttl"`
	Concurrency  int      `yaml:"concurrency" toml:"concurrency"`

	// RateLimit is the requests per second allowed per provider; 0 is
	// unlimited.
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
}

// Enabled reports whether any stats provider is configured.
func (s Stats) Enabled() bool {
	return len(s.URLs) > 0
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel:            "warn",
		PollInterval:        Duration(bwlog.DefaultPollInterval),
		TimerResolution:     Duration(bwlog.DefaultTimerResolution),
		InviteExpiry:        Duration(bwlog.DefaultInviteExpiry),
		GuildCaptureTimeout: Duration(bwlog.DefaultGuildCaptureTimeout),
		GameStartDelay:      Duration(bwlog.DefaultGameStartDelay),
		Replay:              Replay{Mode: ReplayNone},
		Gates:               Gates(bwlog.DefaultGates()),
		Stats: Stats{
			APIKeyHeader: "API-Key",
			CacheTTL:     Duration(stats.DefaultCacheTTL),
			Concurrency:  stats.DefaultConcurrency,
		},
	}
}

// DefaultPath returns the config file looked up when none is given:
// the first of config.yaml, config.yml and config.toml that exists in the
// user config directory's "bwlog" folder. Returns "" if none exists.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, "bwlog", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the config file at path, then applies ".env" and the
// environment. An empty path uses DefaultPath, and a missing default file
// is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := safefile.ReadLimited(path, MaxFileSize)
		switch {
		case errors.Is(err, safefile.ErrEmpty):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", filepath.Base(path), err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// applyEnv overrides file values. A source set from the environment
// replaces the other kind of source set in the file.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSelfUsername); v != "" {
		c.SelfUsername = v
	}
	if v := os.Getenv(EnvClient); v != "" {
		c.Client, c.LogFile = v, ""
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile, c.Client = v, ""
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	c.Stats.APIKey = os.Getenv(EnvStatsAPIKey)
}

// Validate checks values that cannot be caught while decoding.
func (c Config) Validate() error {
	var errs []error
	if c.Client != "" && !slices.Contains(bwlog.Clients(), strings.ToLower(c.Client)) {
		errs = append(errs, fmt.Errorf("client: %w: %s", bwlog.ErrUnknownClient, c.Client))
	}
	if c.Client != "" && c.LogFile != "" {
		errs = append(errs, errors.New("client and log_file are mutually exclusive"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.Replay.Mode {
	case "", ReplayNone, ReplayStart:
	case ReplayLastN:
		if c.Replay.LastN <= 0 || c.Replay.LastN > bwlog.DefaultMaxReplayLastN {
			errs = append(errs, fmt.Errorf("replay.last_n must be between 1 and %d", bwlog.DefaultMaxReplayLastN))
		}
	default:
		errs = append(errs, fmt.Errorf("replay.mode: unknown mode %q", c.Replay.Mode))
	}
	for _, d := range []struct {
		name string
		v    Duration
	}{
		{"poll_interval", c.PollInterval},
		{"timer_resolution", c.TimerResolution},
		{"invite_expiry", c.InviteExpiry},
		{"guild_capture_timeout", c.GuildCaptureTimeout},
		{"game_start_delay", c.GameStartDelay},
		{"stats.cache_ttl", c.Stats.CacheTTL},
	} {
		if d.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
	}
	if c.Stats.Concurrency < 0 {
		errs = append(errs, errors.New("stats.concurrency must not be negative"))
	}
	if c.Stats.RateLimit < 0 {
		errs = append(errs, errors.New("stats.rate_limit must not be negative"))
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}
