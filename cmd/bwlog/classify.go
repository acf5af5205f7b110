package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bwlog/bwlog-go/internal/safefile"
	"github.com/bwlog/bwlog-go/pkg/bwlog"
	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
)

// maxClassifyLine caps a single input line.
const maxClassifyLine = 512 * 1024

var (
	classifyFormat string
	classifySelf   string
	classifyAll    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [FILE]",
	Short: "Print the event each log line is classified as",
	Long: `Classify every line of a log file (or stdin when FILE is "-" or
missing) and print the resulting events. Lines are read in context, so
guild listings and invite follow-ups classify as they would live.

Unclassified lines are skipped unless --all is given.

Event types:
  ` + strings.Join(event.TypeNames(), "\n  "),
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyFormat, "format", "f", "jsonl",
		"Output format: "+strings.Join(formatNames(), ", "))
	classifyCmd.Flags().StringVarP(&classifySelf, "self", "u", "",
		"Your username, for mentions and your own invites")
	classifyCmd.Flags().BoolVarP(&classifyAll, "all", "a", false,
		"Also print unclassified lines")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(classifyFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, _, err := safefile.OpenRegular(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	self := cfg.SelfUsername
	if cmd.Flags().Changed("self") {
		self = classifySelf
	}
	lc, err := bwlog.NewLineClassifier(bwlog.WithSelfUsername(self))
	if err != nil {
		return err
	}
	return classifyLines(in, lc, p, classifyAll)
}

func classifyLines(in io.Reader, lc *bwlog.LineClassifier, p *printer, all bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxClassifyLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		ev := lc.Classify(strings.TrimSuffix(scanner.Text(), "\r"))
		if !ev.IsClassified() && !all {
			continue
		}
		if err := p.Event(lineNo, ev); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("line %d: %w", lineNo+1, err)
	}
	return nil
}

