// Package roster holds the player roster inferred from classified events.
//
// A State is owned by a single goroutine. Apply, Expire and Reset are the
// only operations that mutate it; time is supplied by the caller so that
// live sessions and offline replays share the same timer semantics.
package roster

import (
	"time"

	"github.com/bwlog/bwlog-go/internal/classifier"
	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
)

// Default timer durations.
const (
	DefaultInviteExpiry        = 60 * time.Second
	DefaultGuildCaptureTimeout = 5 * time.Second
	DefaultGameStartDelay      = 1100 * time.Millisecond
)

// Config holds timer durations and mutation policy.
type Config struct {
	// InviteExpiry is how long an invite keeps its name on the roster.
	InviteExpiry time.Duration

	// GuildCaptureTimeout ends a guild listing that never printed a footer.
	GuildCaptureTimeout time.Duration

	// GameStartDelay is the delay between GameStarting and GameStart.
	GameStartDelay time.Duration

	// ClearManualOnGameStart drops manually tracked names on GameStart.
	ClearManualOnGameStart bool
}

// DefaultConfig returns the default Config.
func DefaultConfig() Config {
	return Config{
		InviteExpiry:        DefaultInviteExpiry,
		GuildCaptureTimeout: DefaultGuildCaptureTimeout,
		GameStartDelay:      DefaultGameStartDelay,
	}
}

// Delta describes what one Apply or one fired timer changed.
type Delta struct {
	// Event is the applied event, or the event synthesized by a timer.
	Event event.Event

	// Added and Removed list names that entered or left the active roster.
	Added   []string
	Removed []string

	// GuildFound lists names newly added to the guild listing in flight.
	GuildFound []string

	ActiveChanged bool
	PartyChanged  bool
	GuildChanged  bool

	// Expired is set when the delta was produced by a timer.
	Expired bool
}

// Changed reports whether any list changed.
func (d Delta) Changed() bool {
	return d.ActiveChanged || d.PartyChanged || d.GuildChanged || len(d.GuildFound) > 0
}

// Player is one active roster entry.
type Player struct {
	Name    string         `json:"name"`
	Origins []event.Origin `json:"origins"`
}

// Snapshot is a copy of the roster lists and flags.
type Snapshot struct {
	Active         []Player `json:"active"`
	Party          []string `json:"party"`
	Guild          []string `json:"guild"`
	InLobby        bool     `json:"in_lobby"`
	InGuildCapture bool     `json:"in_guild_capture"`
}

// ActiveNames returns the active player names in roster order.
func (s Snapshot) ActiveNames() []string {
	names := make([]string, len(s.Active))
	for i, p := range s.Active {
		names[i] = p.Name
	}
	return names
}

// State is the roster of one log-watching session.
type State struct {
	cfg Config

	active   *nameSet
	origins  map[string]origins
	party    *nameSet
	guild    *nameSet
	guildBuf *nameSet

	inLobby                    bool
	inGuildCapture             bool
	awaitingInviteContinuation bool

	timers *scheduler
}

// New creates an empty State. Zero durations in cfg fall back to the
// defaults.
func New(cfg Config) *State {
	if cfg.InviteExpiry <= 0 {
		cfg.InviteExpiry = DefaultInviteExpiry
	}
	if cfg.GuildCaptureTimeout <= 0 {
		cfg.GuildCaptureTimeout = DefaultGuildCaptureTimeout
	}
	if cfg.GameStartDelay <= 0 {
		cfg.GameStartDelay = DefaultGameStartDelay
	}
	return &State{
		cfg:      cfg,
		active:   newNameSet(),
		origins:  make(map[string]origins),
		party:    newNameSet(),
		guild:    newNameSet(),
		guildBuf: newNameSet(),
		timers:   newScheduler(),
	}
}

// Apply mutates the roster for ev at logical time now.
// Events that carry no roster meaning are no-ops.
func (s *State) Apply(ev event.Event, now time.Time) Delta {
	d := Delta{Event: ev}

	// A chat line that interrupts a guild listing finishes it first.
	if ev.EndsCapture && s.inGuildCapture {
		s.finishGuildCapture(&d)
	}

	switch ev.Type {
	case event.ServerChange:
		s.clearActive(&d)
		s.inLobby = false

	case event.LobbyJoined:
		s.inLobby = true

	case event.WhoList:
		if s.inLobby {
			for _, name := range s.active.list() {
				if !s.origins[key(name)].has(originGuild) {
					s.drop(&d, name)
				}
			}
		} else {
			s.clearActive(&d)
		}
		for _, name := range ev.Names {
			s.tag(&d, name, originWho)
		}
		s.inLobby = false

	case event.PlayerDisconnected, event.FinalKill:
		if s.active.has(ev.Name) {
			s.drop(&d, ev.Name)
		}

	case event.PartyRoster:
		if ev.Replace {
			s.clearParty(&d)
		}
		for _, name := range ev.Names {
			s.joinParty(&d, name)
		}

	case event.PartyInvite:
		if ev.Name == "" {
			break
		}
		s.tag(&d, ev.Name, originInvite)
		s.timers.schedule(timerInvite, ev.Name, now.Add(s.cfg.InviteExpiry))
		if !ev.Outgoing {
			s.awaitingInviteContinuation = true
		}

	case event.InviteContinuation:
		s.awaitingInviteContinuation = false

	case event.PartyInviteExpired:
		s.timers.cancel(timerInvite, ev.Name)
		s.untag(&d, ev.Name, originInvite)

	case event.PartyMemberJoined:
		s.joinParty(&d, ev.Name)

	case event.PartyMemberLeft, event.PartyMemberKicked:
		if s.party.remove(ev.Name) {
			d.PartyChanged = true
		}
		s.untag(&d, ev.Name, originParty)

	case event.PartyDisbanded:
		s.clearParty(&d)

	case event.GuildListStart:
		s.inGuildCapture = true
		s.guildBuf.clear()
		s.timers.schedule(timerGuildCapture, "", now.Add(s.cfg.GuildCaptureTimeout))

	case event.GuildListLine:
		if !s.inGuildCapture {
			break
		}
		for _, name := range ev.Names {
			if s.guildBuf.add(name) {
				d.GuildFound = append(d.GuildFound, name)
			}
		}

	case event.GuildListEnd:
		if s.inGuildCapture {
			s.finishGuildCapture(&d)
		}

	case event.GuildLiveJoin:
		if s.guild.add(ev.Name) {
			d.GuildChanged = true
		}
		s.tag(&d, ev.Name, originGuild)

	case event.GuildLiveLeave:
		if s.guild.remove(ev.Name) {
			d.GuildChanged = true
		}
		s.untag(&d, ev.Name, originGuild)

	case event.GameStarting:
		s.timers.schedule(timerGameStart, "", now.Add(s.cfg.GameStartDelay))

	case event.GameStart:
		s.timers.cancel(timerGameStart, "")
		s.untagAll(&d, originGuild)
		if s.cfg.ClearManualOnGameStart {
			s.untagAll(&d, originManual)
		}
		s.inLobby = false

	case event.PlayerTracked:
		if ev.Name != "" {
			s.tag(&d, ev.Name, originOf(ev.Origin))
		}

	case event.PlayerUntracked:
		if s.active.has(ev.Name) {
			s.drop(&d, ev.Name)
		}
		s.timers.cancel(timerInvite, ev.Name)
	}

	return d
}

// Expire fires every timer whose deadline is not after now, oldest
// first, and returns one Delta per fired timer.
func (s *State) Expire(now time.Time) []Delta {
	var deltas []Delta
	for _, t := range s.timers.due(now) {
		var d Delta
		switch t.key.kind {
		case timerInvite:
			d = Delta{Event: event.Event{Type: event.PartyInviteExpired, Name: t.name}}
			s.untag(&d, t.name, originInvite)
		case timerGuildCapture:
			d = Delta{Event: event.Event{Type: event.GuildListEnd}}
			if s.inGuildCapture {
				s.finishGuildCapture(&d)
			}
		case timerGameStart:
			d = s.Apply(event.Event{Type: event.GameStart}, t.deadline)
		}
		d.Expired = true
		deltas = append(deltas, d)
	}
	return deltas
}

// NextDeadline returns the earliest pending timer deadline.
func (s *State) NextDeadline() (time.Time, bool) {
	return s.timers.next()
}

// PendingTimers returns the number of scheduled timers.
func (s *State) PendingTimers() int {
	return s.timers.len()
}

// Reset clears the active roster, the party, the flags and every pending
// timer. Guild members survive a reset.
func (s *State) Reset() {
	s.timers.cancelAll()

	var d Delta
	s.clearActive(&d)
	s.party.clear()
	s.guildBuf.clear()

	s.inLobby = false
	s.inGuildCapture = false
	s.awaitingInviteContinuation = false
}

// ClassifierState returns the flags the classifier rules consult.
func (s *State) ClassifierState(selfUsername string) classifier.State {
	return classifier.State{
		InLobby:                    s.inLobby,
		InGuildCapture:             s.inGuildCapture,
		AwaitingInviteContinuation: s.awaitingInviteContinuation,
		SelfUsername:               selfUsername,
	}
}

// Snapshot returns a copy of the roster.
func (s *State) Snapshot() Snapshot {
	names := s.active.list()
	active := make([]Player, len(names))
	for i, name := range names {
		active[i] = Player{Name: name, Origins: s.origins[key(name)].list()}
	}
	return Snapshot{
		Active:         active,
		Party:          s.party.list(),
		Guild:          s.guild.list(),
		InLobby:        s.inLobby,
		InGuildCapture: s.inGuildCapture,
	}
}

// GuildSourced returns the active names carrying the guild origin.
func (s *State) GuildSourced() []string {
	var out []string
	for _, name := range s.active.list() {
		if s.origins[key(name)].has(originGuild) {
			out = append(out, name)
		}
	}
	return out
}

func (s *State) tag(d *Delta, name string, bit origins) {
	if s.active.add(name) {
		d.Added = append(d.Added, name)
		d.ActiveChanged = true
	}
	k := key(name)
	if !s.origins[k].has(bit) {
		s.origins[k] |= bit
		d.ActiveChanged = true
	}
}

func (s *State) untag(d *Delta, name string, bit origins) {
	k := key(name)
	o, ok := s.origins[k]
	if !ok || !o.has(bit) {
		return
	}
	o &^= bit
	if o == 0 {
		s.drop(d, name)
		return
	}
	s.origins[k] = o
	d.ActiveChanged = true
}

func (s *State) untagAll(d *Delta, bit origins) {
	for _, name := range s.active.list() {
		s.untag(d, name, bit)
	}
}

func (s *State) drop(d *Delta, name string) {
	k := key(name)
	display := s.active.display[k]
	if !s.active.remove(name) {
		return
	}
	delete(s.origins, k)
	d.Removed = append(d.Removed, display)
	d.ActiveChanged = true
}

func (s *State) clearActive(d *Delta) {
	for _, name := range s.active.list() {
		s.drop(d, name)
	}
}

// joinParty promotes name from invite to party member.
func (s *State) joinParty(d *Delta, name string) {
	if s.party.add(name) {
		d.PartyChanged = true
	}
	s.timers.cancel(timerInvite, name)
	s.tag(d, name, originParty)
	s.untag(d, name, originInvite)
}

func (s *State) clearParty(d *Delta) {
	if s.party.clear() {
		d.PartyChanged = true
	}
	s.untagAll(d, originParty)
}

// finishGuildCapture replaces the guild list with the capture buffer and
// moves the guild origin onto exactly those names.
func (s *State) finishGuildCapture(d *Delta) {
	s.inGuildCapture = false
	s.timers.cancel(timerGuildCapture, "")

	s.guild.clear()
	for _, name := range s.guildBuf.list() {
		s.guild.add(name)
	}
	s.guildBuf.clear()
	d.GuildChanged = true

	for _, name := range s.active.list() {
		if !s.guild.has(name) {
			s.untag(d, name, originGuild)
		}
	}
	for _, name := range s.guild.list() {
		s.tag(d, name, originGuild)
	}
}
