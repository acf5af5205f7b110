package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bwlog/bwlog-go/pkg/bwlog"
)

var detectOpts tailFlags

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show which client log would be followed",
	Long: `List the known client log locations for this OS with their last
modification time, and print the log that 'bwlog tail' would follow.

Examples:
  bwlog detect
  bwlog detect --client badlion`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVarP(&detectOpts.logFile, "log-file", "l", "",
		"Explicit log file to check")
	detectCmd.Flags().StringVar(&detectOpts.client, "client", "",
		"Client to resolve instead of the newest log")
	_ = detectCmd.RegisterFlagCompletionFunc("client", cobra.FixedCompletions(bwlog.Clients(), cobra.ShellCompDirectiveNoFileComp))
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	c, err := detectOpts.merge(cmd, cfg)
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	out := cmd.OutOrStdout()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tMODIFIED\tPATH")
	for _, src := range bwlog.DefaultSources() {
		modified := "-"
		if info, err := os.Stat(src.Path); err == nil && info.Mode().IsRegular() {
			modified = info.ModTime().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", src.Client, modified, src.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var opts []bwlog.Option
	if c.LogFile != "" {
		opts = append(opts, bwlog.WithLogFile(c.LogFile))
	}
	if c.Client != "" {
		opts = append(opts, bwlog.WithClient(strings.ToLower(c.Client)))
	}
	src, err := bwlog.FindLogFile(opts...)
	if errors.Is(err, bwlog.ErrNoLogFiles) {
		fmt.Fprintln(out, "\nno client log found")
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nfollowing %s: %s\n", src.Client, src.Path)
	return nil
}
