package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwlog/bwlog-go/pkg/bwlog"
	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
	"github.com/bwlog/bwlog-go/pkg/bwlog/stats"
	"github.com/bwlog/bwlog-go/pkg/bwlog/trigger"
)

// SessionOptions converts the config into session options.
// The triggers file, if any, is loaded here.
func (c Config) SessionOptions(logger *slog.Logger) ([]bwlog.Option, error) {
	opts := []bwlog.Option{
		bwlog.WithSelfUsername(c.SelfUsername),
		bwlog.WithGates(bwlog.Gates(c.Gates)),
	}
	if logger != nil {
		opts = append(opts, bwlog.WithLogger(logger))
	}
	if c.LogFile != "" {
		opts = append(opts, bwlog.WithLogFile(c.LogFile))
	}
	if c.Client != "" {
		opts = append(opts, bwlog.WithClient(strings.ToLower(c.Client)))
	}

	durations := []struct {
		v   Duration
		opt func(d Duration) bwlog.Option
	}{
		{c.PollInterval, func(d Duration) bwlog.Option { return bwlog.WithPollInterval(d.Std()) }},
		{c.TimerResolution, func(d Duration) bwlog.Option { return bwlog.WithTimerResolution(d.Std()) }},
		{c.InviteExpiry, func(d Duration) bwlog.Option { return bwlog.WithInviteExpiry(d.Std()) }},
		{c.GuildCaptureTimeout, func(d Duration) bwlog.Option { return bwlog.WithGuildCaptureTimeout(d.Std()) }},
		{c.GameStartDelay, func(d Duration) bwlog.Option { return bwlog.WithGameStartDelay(d.Std()) }},
	}
	for _, d := range durations {
		if d.v > 0 {
			opts = append(opts, d.opt(d.v))
		}
	}

	switch c.Replay.Mode {
	case ReplayStart:
		opts = append(opts, bwlog.WithReplayFromStart())
	case ReplayLastN:
		opts = append(opts, bwlog.WithReplayLastN(c.Replay.LastN))
	}

	include, err := ParseTypes(c.Types)
	if err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}
	if len(include) > 0 {
		opts = append(opts, bwlog.WithIncludeTypes(include...))
	}
	exclude, err := ParseTypes(c.ExcludeTypes)
	if err != nil {
		return nil, fmt.Errorf("exclude_types: %w", err)
	}
	if len(exclude) > 0 {
		opts = append(opts, bwlog.WithExcludeTypes(exclude...))
	}

	if c.TriggersFile != "" {
		m, err := trigger.NewFromFile(c.TriggersFile)
		if err != nil {
			return nil, fmt.Errorf("triggers_file: %w", err)
		}
		opts = append(opts, bwlog.WithTriggers(m))
	}
	return opts, nil
}

// ParseTypes parses event type names, accepting comma-separated lists
// inside each element. Empty elements are skipped.
func ParseTypes(names []string) ([]bwlog.EventType, error) {
	var out []bwlog.EventType
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, ok := event.ParseType(part)
			if !ok {
				return nil, fmt.Errorf("unknown event type %q (valid: %s)", part, strings.Join(event.TypeNames(), ", "))
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// StatsProvider builds the configured stats provider: an HTTP provider
// per URL, chained in order and wrapped in a cache.
// Returns nil if stats lookups are disabled.
func (c Config) StatsProvider() (*stats.Cache, error) {
	if !c.Stats.Enabled() {
		return nil, nil
	}
	var chain stats.Chain
	for _, u := range c.Stats.URLs {
		var opts []stats.HTTPOption
		if c.Stats.APIKey != "" && c.Stats.APIKeyHeader != "" {
			opts = append(opts, stats.WithHeader(c.Stats.APIKeyHeader, c.Stats.APIKey))
		}
		if c.Stats.RateLimit > 0 {
			opts = append(opts, stats.WithRateLimit(c.Stats.RateLimit, 1))
		}
		p, err := stats.NewHTTPProvider(u, opts...)
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
	}

	var cacheOpts []stats.CacheOption
	if c.Stats.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, stats.WithTTL(c.Stats.CacheTTL.Std()))
	}
	return stats.NewCache(chain, cacheOpts...), nil
}
