package bwlog

import (
	"fmt"

	"github.com/bwlog/bwlog-go/internal/classifier"
)

// LineState is the roster context a line is classified against.
// The zero value classifies a line as seen outside any lobby, guild
// listing or pending invite.
type LineState = classifier.State

// ClassifyLine classifies a single Minecraft client log line.
//
// Unrecognized lines yield an event of type event.Unclassified; the
// classifier never fails.
//
// Example:
//
//	line := "[22:01:04] [Client thread/INFO]: [CHAT] Steve has quit."
//	ev := bwlog.ClassifyLine(line, bwlog.LineState{})
//	// ev.Type == event.PlayerDisconnected, ev.Name == "Steve"
func ClassifyLine(line string, st LineState) Event {
	return classifier.Classify(line, st)
}

// LineClassifier classifies consecutive lines of one log. Unlike
// ClassifyLine it keeps a roster behind the scenes, so lines whose
// meaning depends on earlier ones (guild listings, invite follow-ups,
// lobby membership) are read in context. Line stamps drive the roster
// timers as in ReplayFile.
//
// A LineClassifier is not safe for concurrent use.
type LineClassifier struct {
	eng *engine
	clk *logClock
}

// NewLineClassifier returns a classifier configured by opts. Source and
// replay options are ignored.
func NewLineClassifier(opts ...Option) (*LineClassifier, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &LineClassifier{
		eng: newEngine(cfg),
		clk: newLogClock(cfg.clock()),
	}, nil
}

// Classify classifies line and updates the roster with its event.
func (c *LineClassifier) Classify(line string) Event {
	ev, _ := c.eng.classifyLine(line, c.clk.advance(line))
	return ev
}

// State returns the flags the next line will be classified against.
func (c *LineClassifier) State() LineState {
	return c.eng.roster.ClassifierState(c.eng.self)
}

// Snapshot returns the roster built from the lines so far.
func (c *LineClassifier) Snapshot() Snapshot {
	snap := c.eng.snapshot()
	snap.UpdatedAt = c.clk.now
	return snap
}
