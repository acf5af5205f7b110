package bwlog

import (
	"time"

	"github.com/bwlog/bwlog-go/internal/classifier"
	"github.com/bwlog/bwlog-go/internal/roster"
	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
	"github.com/bwlog/bwlog-go/pkg/bwlog/trigger"
)

// engine runs the classify, gate, apply and notify pipeline for one
// roster. It is not safe for concurrent use; a Session drives it from its
// own goroutine and ReplayFile from the caller's.
type engine struct {
	roster *roster.State
	self   string

	typeFilter *compiledFilter // suppresses event notifications
	gateFilter *compiledFilter // blocks roster mutation
	triggers   *trigger.Matcher

	includeRawLine bool
}

func newEngine(cfg *sessionConfig) *engine {
	return &engine{
		roster: roster.New(roster.Config{
			InviteExpiry:           cfg.inviteExpiry,
			GuildCaptureTimeout:    cfg.guildCaptureTimeout,
			GameStartDelay:         cfg.gameStartDelay,
			ClearManualOnGameStart: cfg.gates.ClearManualOnGameStart,
		}),
		self:           cfg.selfUsername,
		typeFilter:     cfg.filter,
		gateFilter:     cfg.gates.applyFilter(),
		triggers:       cfg.triggers,
		includeRawLine: cfg.includeRawLine,
	}
}

// handleLine fires due timers, then classifies line against the current
// roster flags and handles the resulting event.
func (e *engine) handleLine(line string, now time.Time) []Notification {
	_, out := e.classifyLine(line, now)
	return out
}

// classifyLine is handleLine that also returns the line's event.
func (e *engine) classifyLine(line string, now time.Time) (event.Event, []Notification) {
	out := e.expire(now)

	ev := classifier.Classify(line, e.roster.ClassifierState(e.self))
	if !ev.IsClassified() {
		return ev, out
	}
	if e.includeRawLine {
		ev.RawLine = line
	}
	return ev, append(out, e.handleEvent(ev, now)...)
}

// handleEvent applies ev unless a gate blocks it and returns the
// resulting notifications.
func (e *engine) handleEvent(ev event.Event, now time.Time) []Notification {
	var d roster.Delta
	if e.gateFilter.Allows(ev.Type) {
		d = e.roster.Apply(ev, now)
	} else {
		d = roster.Delta{Event: ev}
	}
	out := e.notify(d, now)

	if ev.Type == event.ChatMessage {
		out = append(out, e.matchTriggers(ev, now)...)
	}
	return out
}

// matchTriggers reports every trigger matching a chat line and tracks
// the speaker of each match.
func (e *engine) matchTriggers(ev event.Event, now time.Time) []Notification {
	var out []Notification
	for _, m := range e.triggers.Match(ev.Name, ev.Message) {
		out = append(out, Notification{
			Kind:      KindTriggerMatched,
			Time:      now,
			Name:      m.Speaker,
			Message:   ev.Message,
			TriggerID: m.ID,
		})
		if m.Speaker == "" {
			continue
		}
		d := e.roster.Apply(event.Event{
			Type:   event.PlayerTracked,
			Name:   m.Speaker,
			Origin: event.OriginChat,
		}, now)
		out = append(out, e.notify(d, now)...)
	}
	return out
}

// expire fires every timer due at now.
func (e *engine) expire(now time.Time) []Notification {
	var out []Notification
	for _, d := range e.roster.Expire(now) {
		out = append(out, e.notify(d, now)...)
	}
	return out
}

// track adds name to the roster with the manual origin.
func (e *engine) track(name string, now time.Time) ([]Notification, error) {
	if !classifier.ValidName(name) {
		return nil, ErrInvalidName
	}
	return e.handleEvent(event.Event{
		Type:   event.PlayerTracked,
		Name:   name,
		Origin: event.OriginManual,
	}, now), nil
}

// untrack removes name from the roster whatever its origins.
func (e *engine) untrack(name string, now time.Time) ([]Notification, error) {
	if !classifier.ValidName(name) {
		return nil, ErrInvalidName
	}
	return e.handleEvent(event.Event{Type: event.PlayerUntracked, Name: name}, now), nil
}

// reset clears the roster for a new source and reports the lists.
func (e *engine) reset(now time.Time) []Notification {
	e.roster.Reset()
	return listNotifications(e.roster.Snapshot(), now)
}

func (e *engine) snapshot() Snapshot {
	return snapshotOf(e.roster.Snapshot())
}

func (e *engine) notify(d roster.Delta, now time.Time) []Notification {
	var snap roster.Snapshot
	if d.Changed() {
		snap = e.roster.Snapshot()
	}
	notes := notificationsFor(d, snap, now)
	if e.typeFilter == nil {
		return notes
	}

	out := notes[:0]
	for _, n := range notes {
		if n.Event != nil && !e.typeFilter.Allows(n.Event.Type) {
			continue
		}
		out = append(out, n)
	}
	return out
}
