package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bwlog/bwlog-go/pkg/bwlog"
)

var (
	replayOpts     tailFlags
	replaySnapshot bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Run a whole log file through the roster",
	Long: `Read a finished log file from start to end and output the
notifications a live session would have produced. Each line's
[HH:MM:SS] stamp drives the roster timers, so invites and guild listings
expire as they did in the game.

Examples:
  bwlog replay ~/.minecraft/logs/latest.log --format pretty
  bwlog replay latest.log --kinds roster_changed --snapshot`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayOpts.self, "self", "u", "",
		"Your username, for mentions and your own invites")
	replayCmd.Flags().StringSliceVar(&replayOpts.types, "types", nil,
		"Event types to handle (comma-separated)")
	replayCmd.Flags().StringVar(&replayOpts.triggersFile, "triggers", "",
		"YAML chat trigger file")
	replayCmd.Flags().BoolVar(&replaySnapshot, "snapshot", false,
		"Print the final roster after the notifications")
	addOutputFlags(replayCmd, &replayOpts)
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	c, err := replayOpts.merge(cmd, cfg)
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	// The file argument is the source.
	c.LogFile, c.Client = "", ""

	kinds, err := kindFilter(replayOpts.kinds)
	if err != nil {
		return err
	}
	p, err := newPrinter(replayOpts.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts, err := c.SessionOptions(logger)
	if err != nil {
		return err
	}
	opts = append(opts, bwlog.WithIncludeRawLine(replayOpts.includeRaw))

	snap, notes, err := bwlog.ReplayFile(cmd.Context(), args[0], opts...)
	if err != nil {
		return err
	}
	for _, n := range notes {
		if kinds != nil && !kinds[n.Kind] {
			continue
		}
		if err := p.Notification(n); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	if replaySnapshot {
		return p.Snapshot(snap)
	}
	return nil
}
