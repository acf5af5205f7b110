package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bwlog/bwlog-go/internal/config"
	"github.com/bwlog/bwlog-go/internal/server"
	"github.com/bwlog/bwlog-go/pkg/bwlog"
	"github.com/bwlog/bwlog-go/pkg/bwlog/stats"
)

// tailFlags holds the flags shared by tail and replay.
type tailFlags struct {
	logFile      string
	client       string
	self         string
	format       string
	kinds        []string
	types        []string
	includeRaw   bool
	replayLast   int
	triggersFile string
	listen       string
	track        []string
	lookupStats  bool
}

var tailOpts tailFlags

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow the client log and output roster notifications",
	Long: `Follow a Minecraft client log in real-time and output notifications
about the roster, party, guild and chat.

Notifications are output as JSON Lines by default (one JSON object per
line), which makes it easy to process with tools like jq. Without
--log-file or --client the newest client log is followed, and bwlog
switches when another client's log becomes newer.

Examples:
  # Follow the newest client log
  bwlog tail

  # Follow Lunar Client and highlight mentions of your name
  bwlog tail --client lunar --self Steve --format pretty

  # Only roster updates and mentions
  bwlog tail --kinds roster_changed,mention

  # Replay the last 500 lines before following
  bwlog tail --replay-last 500

  # Serve the roster to an overlay on http://127.0.0.1:7070/api/v1/roster
  bwlog tail --listen 127.0.0.1:7070

  # Pipe to jq
  bwlog tail | jq 'select(.kind == "roster_changed") | .names'`,
	RunE: runTail,
}

func init() {
	addSourceFlags(tailCmd, &tailOpts)
	addOutputFlags(tailCmd, &tailOpts)
	tailCmd.Flags().IntVar(&tailOpts.replayLast, "replay-last", -1,
		"Replay last N lines before following (-1 = disabled, 0 = from start)")
	tailCmd.Flags().StringVar(&tailOpts.listen, "listen", "",
		"Serve the roster over HTTP on this address (e.g. 127.0.0.1:7070)")
	tailCmd.Flags().StringSliceVar(&tailOpts.track, "track", nil,
		"Player names to track manually from the start")
	tailCmd.Flags().BoolVar(&tailOpts.lookupStats, "stats", false,
		"Look up stats of players added to the roster (needs stats.urls in the config)")
	rootCmd.AddCommand(tailCmd)
}

// addSourceFlags registers the flags selecting and interpreting a log.
func addSourceFlags(cmd *cobra.Command, f *tailFlags) {
	cmd.Flags().StringVarP(&f.logFile, "log-file", "l", "",
		"Log file to follow (auto-detected if not specified)")
	cmd.Flags().StringVar(&f.client, "client", "",
		"Client whose log to follow: "+strings.Join(bwlog.Clients(), ", "))
	cmd.Flags().StringVarP(&f.self, "self", "u", "",
		"Your username, for mentions and your own invites")
	cmd.Flags().StringSliceVar(&f.types, "types", nil,
		"Event types to handle (comma-separated, see 'bwlog classify --help')")
	cmd.Flags().StringVar(&f.triggersFile, "triggers", "",
		"YAML chat trigger file")
	_ = cmd.RegisterFlagCompletionFunc("client", cobra.FixedCompletions(bwlog.Clients(), cobra.ShellCompDirectiveNoFileComp))
}

// addOutputFlags registers the flags controlling notification output.
func addOutputFlags(cmd *cobra.Command, f *tailFlags) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "jsonl",
		"Output format: "+strings.Join(formatNames(), ", "))
	cmd.Flags().StringSliceVarP(&f.kinds, "kinds", "k", nil,
		"Notification kinds to show (comma-separated: "+strings.Join(bwlog.KindNames(), ",")+")")
	cmd.Flags().BoolVar(&f.includeRaw, "raw", false,
		"Include raw log lines in output")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(formatNames(), cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("kinds", cobra.FixedCompletions(bwlog.KindNames(), cobra.ShellCompDirectiveNoFileComp))
}

// merge applies the flags that were set over c.
func (f *tailFlags) merge(cmd *cobra.Command, c config.Config) (config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("log-file") {
		c.LogFile, c.Client = f.logFile, ""
	}
	if flags.Changed("client") {
		c.Client, c.LogFile = f.client, ""
	}
	if flags.Changed("self") {
		c.SelfUsername = f.self
	}
	if flags.Changed("types") {
		c.Types = f.types
	}
	if flags.Changed("triggers") {
		c.TriggersFile = f.triggersFile
	}
	if flags.Lookup("replay-last") != nil && flags.Changed("replay-last") {
		switch {
		case f.replayLast < 0:
			c.Replay = config.Replay{Mode: config.ReplayNone}
		case f.replayLast == 0:
			c.Replay = config.Replay{Mode: config.ReplayStart}
		default:
			c.Replay = config.Replay{Mode: config.ReplayLastN, LastN: f.replayLast}
		}
	}
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		c.Listen = f.listen
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// kindFilter parses --kinds. A nil filter shows everything.
func kindFilter(names []string) (map[bwlog.Kind]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	filter := make(map[bwlog.Kind]bool)
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			k, ok := bwlog.ParseKind(part)
			if !ok {
				return nil, fmt.Errorf("unknown notification kind %q (valid: %s)", part, strings.Join(bwlog.KindNames(), ", "))
			}
			filter[k] = true
		}
	}
	return filter, nil
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := tailOpts.merge(cmd, cfg)
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	kinds, err := kindFilter(tailOpts.kinds)
	if err != nil {
		return err
	}
	p, err := newPrinter(tailOpts.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts, err := c.SessionOptions(logger)
	if err != nil {
		return err
	}
	opts = append(opts, bwlog.WithIncludeRawLine(tailOpts.includeRaw))

	provider, err := c.StatsProvider()
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	if tailOpts.lookupStats && provider == nil {
		return fmt.Errorf("--stats needs stats.urls in the config")
	}

	s, err := bwlog.NewSession(opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	notes, errs, err := s.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Debug("session started", "session", s.ID())

	if c.Listen != "" {
		srvOpts := []server.Option{server.WithLogger(logger)}
		if provider != nil {
			srvOpts = append(srvOpts, server.WithStats(provider))
		}
		srv := server.New(c.Listen, s, srvOpts...)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				logger.Error("http server stopped", "error", err)
			}
		}()
	}

	if len(tailOpts.track) > 0 {
		// Track waits on the session goroutine, which waits on us
		// draining notes, so it cannot run here.
		go trackAll(ctx, s, tailOpts.track)
	}

	var lookups chan []stats.Result
	if tailOpts.lookupStats {
		lookups = make(chan []stats.Result, 4)
		if ttl := c.Stats.CacheTTL.Std(); ttl > 0 {
			provider.StartPurgeTicker(ctx, ttl)
		}
	}

	for {
		select {
		case n, ok := <-notes:
			if !ok {
				return nil
			}
			if lookups != nil && n.Kind == bwlog.KindRosterChanged && len(n.Added) > 0 {
				go lookupStats(ctx, provider, n.Added, c.Stats.Concurrency, lookups)
			}
			if kinds != nil && !kinds[n.Kind] {
				continue
			}
			if err := p.Notification(n); err != nil {
				return fmt.Errorf("output error: %w", err)
			}

		case results := <-lookups:
			if err := p.Stats(results); err != nil {
				return fmt.Errorf("output error: %w", err)
			}

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

func trackAll(ctx context.Context, s *bwlog.Session, names []string) {
	for _, name := range names {
		if err := s.Track(ctx, name); err != nil {
			logger.Warn("track failed", "name", name, "error", err)
		}
	}
}

func lookupStats(ctx context.Context, p stats.Provider, names []string, concurrency int, out chan<- []stats.Result) {
	results, err := stats.Lookup(ctx, p, names, concurrency)
	if err != nil {
		return
	}
	select {
	case out <- results:
	case <-ctx.Done():
	}
}
