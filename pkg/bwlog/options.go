package bwlog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwlog/bwlog-go/internal/roster"
	"github.com/bwlog/bwlog-go/pkg/bwlog/trigger"
)

// ReplayMode specifies how to handle existing log lines.
type ReplayMode int

const (
	// ReplayNone only follows new lines (default, tail -f behavior).
	ReplayNone ReplayMode = iota
	// ReplayFromStart reads from the beginning of the file.
	ReplayFromStart
	// ReplayLastN reads the last N lines before following.
	ReplayLastN
)

// DefaultMaxReplayLastN is the default maximum lines for ReplayLastN mode.
const DefaultMaxReplayLastN = 10000

// Defaults for the session tickers.
const (
	DefaultPollInterval    = 2 * time.Second
	DefaultTimerResolution = 100 * time.Millisecond
)

// Default roster timer durations.
const (
	DefaultInviteExpiry        = roster.DefaultInviteExpiry
	DefaultGuildCaptureTimeout = roster.DefaultGuildCaptureTimeout
	DefaultGameStartDelay      = roster.DefaultGameStartDelay
)

// ReplayConfig configures replay behavior.
type ReplayConfig struct {
	Mode  ReplayMode
	LastN int // For ReplayLastN
}

// Option configures a Session or ReplayFile using the functional
// options pattern.
type Option func(*sessionConfig)

// sessionConfig holds internal configuration for a session.
type sessionConfig struct {
	logFile      string
	client       string
	selfUsername string
	candidates   []Source // nil = DefaultSources()

	pollInterval    time.Duration
	timerResolution time.Duration
	pollTail        bool

	inviteExpiry        time.Duration
	guildCaptureTimeout time.Duration
	gameStartDelay      time.Duration

	replay             ReplayConfig
	maxReplayLines     int
	maxReplayBytes     int // Maximum total bytes for replay (0 = unlimited)
	maxReplayLineBytes int // Maximum bytes per line for replay (0 = unlimited)

	gates          Gates
	filter         *compiledFilter
	triggers       *trigger.Matcher
	includeRawLine bool

	logger *slog.Logger
	clock  func() time.Time
}

// defaultSessionConfig returns a sessionConfig with sensible defaults.
func defaultSessionConfig() *sessionConfig {
	return &sessionConfig{
		pollInterval:        DefaultPollInterval,
		timerResolution:     DefaultTimerResolution,
		inviteExpiry:        DefaultInviteExpiry,
		guildCaptureTimeout: DefaultGuildCaptureTimeout,
		gameStartDelay:      DefaultGameStartDelay,
		maxReplayLines:      DefaultMaxReplayLastN,
		maxReplayBytes:      10 * 1024 * 1024, // 10MB default
		maxReplayLineBytes:  512 * 1024,       // 512KB default
		gates:               DefaultGates(),
		clock:               time.Now,
	}
}

// applyOptions applies functional options to a sessionConfig.
func applyOptions(opts []Option) *sessionConfig {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// validate checks for invalid option combinations.
func (c *sessionConfig) validate() error {
	if c.logFile != "" && c.client != "" {
		return fmt.Errorf("log file and client are mutually exclusive")
	}

	if c.replay.Mode == ReplayLastN && c.replay.LastN < 0 {
		return fmt.Errorf("replay LastN must be non-negative, got %d", c.replay.LastN)
	}
	if c.replay.Mode == ReplayLastN {
		maxLines := c.maxReplayLines
		if maxLines == 0 {
			maxLines = DefaultMaxReplayLastN
		}
		if maxLines > 0 && c.replay.LastN > maxLines {
			return fmt.Errorf("replay LastN (%d) exceeds maximum of %d", c.replay.LastN, maxLines)
		}
	}

	if c.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.pollInterval)
	}
	if c.timerResolution <= 0 {
		return fmt.Errorf("timer resolution must be positive, got %v", c.timerResolution)
	}
	if c.inviteExpiry <= 0 {
		return fmt.Errorf("invite expiry must be positive, got %v", c.inviteExpiry)
	}
	if c.guildCaptureTimeout <= 0 {
		return fmt.Errorf("guild capture timeout must be positive, got %v", c.guildCaptureTimeout)
	}
	if c.gameStartDelay <= 0 {
		return fmt.Errorf("game start delay must be positive, got %v", c.gameStartDelay)
	}

	if c.maxReplayBytes < 0 {
		return fmt.Errorf("maxReplayBytes must be non-negative, got %d", c.maxReplayBytes)
	}
	if c.maxReplayLineBytes < 0 {
		return fmt.Errorf("maxReplayLineBytes must be non-negative, got %d", c.maxReplayLineBytes)
	}

	if c.clock == nil {
		return fmt.Errorf("clock must not be nil")
	}
	return nil
}

// WithLogFile follows an explicit log file instead of auto-detecting one.
// Can also be set via the BWLOG_LOG_FILE environment variable.
func WithLogFile(path string) Option {
	return func(c *sessionConfig) {
		c.logFile = path
	}
}

// WithClient follows the log of one client key (see Clients).
func WithClient(client string) Option {
	return func(c *sessionConfig) {
		c.client = client
	}
}

// WithSelfUsername sets the local player's name, used for mention
// detection and outgoing invites.
func WithSelfUsername(name string) Option {
	return func(c *sessionConfig) {
		c.selfUsername = name
	}
}

// WithCandidates replaces the candidate logs used for client lookup and
// auto-detection. Default: DefaultSources().
func WithCandidates(sources ...Source) Option {
	return func(c *sessionConfig) {
		c.candidates = append([]Source(nil), sources...)
	}
}

// WithPollInterval sets how often to check for a newer log file and to
// retry detection after a failure.
// Default: 2 seconds.
func WithPollInterval(interval time.Duration) Option {
	return func(c *sessionConfig) {
		c.pollInterval = interval
	}
}

// WithTimerResolution sets how often roster timers are checked.
// Default: 100 milliseconds.
func WithTimerResolution(d time.Duration) Option {
	return func(c *sessionConfig) {
		c.timerResolution = d
	}
}

// WithPollTail makes the tailer poll the file instead of relying on
// filesystem notifications. Useful on network filesystems.
func WithPollTail(poll bool) Option {
	return func(c *sessionConfig) {
		c.pollTail = poll
	}
}

// WithInviteExpiry sets how long a party invite keeps its name on the
// roster. Default: 60 seconds.
func WithInviteExpiry(d time.Duration) Option {
	return func(c *sessionConfig) {
		c.inviteExpiry = d
	}
}

// WithGuildCaptureTimeout sets when an unterminated guild listing ends.
// Default: 5 seconds.
func WithGuildCaptureTimeout(d time.Duration) Option {
	return func(c *sessionConfig) {
		c.guildCaptureTimeout = d
	}
}

// WithGameStartDelay sets the delay between the countdown line and the
// game start. Default: 1.1 seconds.
func WithGameStartDelay(d time.Duration) Option {
	return func(c *sessionConfig) {
		c.gameStartDelay = d
	}
}

// WithReplay configures replay behavior for existing log lines.
// Default: ReplayNone (only new lines).
func WithReplay(config ReplayConfig) Option {
	return func(c *sessionConfig) {
		c.replay = config
	}
}

// WithReplayFromStart reads from the beginning of the log file.
func WithReplayFromStart() Option {
	return func(c *sessionConfig) {
		c.replay = ReplayConfig{Mode: ReplayFromStart}
	}
}

// WithReplayLastN reads the last N non-empty lines before following.
// Empty lines are skipped and not counted towards N.
func WithReplayLastN(n int) Option {
	return func(c *sessionConfig) {
		c.replay = ReplayConfig{Mode: ReplayLastN, LastN: n}
	}
}

// WithMaxReplayLines sets the maximum lines for ReplayLastN mode.
// 0 uses default (10000). Set to -1 for unlimited (not recommended).
func WithMaxReplayLines(max int) Option {
	return func(c *sessionConfig) {
		c.maxReplayLines = max
	}
}

// WithMaxReplayBytes sets the maximum total bytes to read during replay.
// Default is 10MB. Set to 0 for unlimited (not recommended).
func WithMaxReplayBytes(max int) Option {
	return func(c *sessionConfig) {
		c.maxReplayBytes = max
	}
}

// WithMaxReplayLineBytes sets the maximum bytes per line during replay.
// Default is 512KB. Set to 0 for unlimited (not recommended).
func WithMaxReplayLineBytes(max int) Option {
	return func(c *sessionConfig) {
		c.maxReplayLineBytes = max
	}
}

// WithGates sets which events may mutate the roster.
// Default: DefaultGates().
func WithGates(g Gates) Option {
	return func(c *sessionConfig) {
		c.gates = g
	}
}

// WithIncludeTypes only reports notifications for events of the given
// types. List notifications are always reported.
// If called multiple times, only the last call takes effect.
func WithIncludeTypes(types ...EventType) Option {
	return func(c *sessionConfig) {
		if c.filter == nil {
			c.filter = &compiledFilter{}
		}
		c.filter.include = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			c.filter.include[t] = struct{}{}
		}
	}
}

// WithExcludeTypes suppresses notifications for events of the given
// types. Exclude takes precedence over include.
// If called multiple times, only the last call takes effect.
func WithExcludeTypes(types ...EventType) Option {
	return func(c *sessionConfig) {
		if c.filter == nil {
			c.filter = &compiledFilter{}
		}
		c.filter.exclude = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			c.filter.exclude[t] = struct{}{}
		}
	}
}

// WithTriggers sets the chat triggers that track matching speakers.
func WithTriggers(m *trigger.Matcher) Option {
	return func(c *sessionConfig) {
		c.triggers = m
	}
}

// WithIncludeRawLine includes the original log line in Event.RawLine.
// Default: false.
func WithIncludeRawLine(include bool) Option {
	return func(c *sessionConfig) {
		c.includeRawLine = include
	}
}

// WithLogger sets a custom logger for debug output.
// If logger is nil, logging is disabled (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithClock sets the time source of a live session. Default: time.Now.
// ReplayFile ignores it and uses the log's own timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *sessionConfig) {
		c.clock = now
	}
}

// candidateList returns the configured candidate logs.
func (c *sessionConfig) candidateList() []Source {
	if c.candidates != nil {
		return c.candidates
	}
	return DefaultSources()
}
