package bwlog

import (
	"fmt"
	"time"

	"github.com/bwlog/bwlog-go/internal/logfinder"
	"github.com/bwlog/bwlog-go/internal/roster"
	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
)

// Event is a classified log line.
type Event = event.Event

// EventType is the type of an Event.
type EventType = event.Type

// Source is a log file to watch. An empty Path with a Client key resolves
// that client's log; a zero Source auto-detects the newest log.
type Source struct {
	Client string `json:"client,omitempty"`
	Path   string `json:"path,omitempty"`
}

// IsZero reports whether s selects auto-detection.
func (s Source) IsZero() bool {
	return s.Client == "" && s.Path == ""
}

func sourceOf(c logfinder.Candidate) Source {
	return Source{Client: c.Client, Path: c.Path}
}

// DefaultSources returns the candidate client logs for the running OS.
func DefaultSources() []Source {
	cands := logfinder.DefaultCandidates()
	out := make([]Source, len(cands))
	for i, c := range cands {
		out[i] = sourceOf(c)
	}
	return out
}

// FindLogFile returns the log file a Session built with opts would
// follow first. WithLogFile wins over the BWLOG_LOG_FILE environment
// variable, which wins over WithClient; otherwise the newest candidate
// is picked.
func FindLogFile(opts ...Option) (Source, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return Source{}, fmt.Errorf("invalid options: %w", err)
	}
	c, err := resolveSource(cfg.candidateList(), Source{Client: cfg.client, Path: cfg.logFile})
	if err != nil {
		return Source{}, err
	}
	return sourceOf(c), nil
}

// resolveSource turns a source preference into a concrete log file.
func resolveSource(srcs []Source, want Source) (logfinder.Candidate, error) {
	cands := make([]logfinder.Candidate, len(srcs))
	for i, src := range srcs {
		cands[i] = logfinder.Candidate{Client: src.Client, Path: src.Path}
	}

	c, err := logfinder.ResolveFrom(want.Path, want.Client, cands)
	if err != nil {
		return logfinder.Candidate{}, err
	}
	if want.Path != "" && want.Client != "" {
		c.Client = want.Client
	}
	return c, nil
}

// Clients returns the known client keys.
func Clients() []string {
	return logfinder.Clients()
}

// Player is one entry of the active roster.
type Player struct {
	Name    string         `json:"name"`
	Origins []event.Origin `json:"origins"`
}

// Snapshot is a read-only copy of a session's roster.
type Snapshot struct {
	SessionID      string    `json:"session_id,omitempty"`
	Source         Source    `json:"source"`
	Active         []Player  `json:"active"`
	Party          []string  `json:"party"`
	Guild          []string  `json:"guild"`
	InLobby        bool      `json:"in_lobby"`
	InGuildCapture bool      `json:"in_guild_capture"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ActiveNames returns the active player names in roster order.
func (s Snapshot) ActiveNames() []string {
	names := make([]string, len(s.Active))
	for i, p := range s.Active {
		names[i] = p.Name
	}
	return names
}

func snapshotOf(rs roster.Snapshot) Snapshot {
	active := make([]Player, len(rs.Active))
	for i, p := range rs.Active {
		active[i] = Player{Name: p.Name, Origins: p.Origins}
	}
	return Snapshot{
		Active:         active,
		Party:          rs.Party,
		Guild:          rs.Guild,
		InLobby:        rs.InLobby,
		InGuildCapture: rs.InGuildCapture,
	}
}
