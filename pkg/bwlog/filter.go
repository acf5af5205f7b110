package bwlog

import "github.com/bwlog/bwlog-go/pkg/bwlog/event"

// compiledFilter is an event type allow/deny set.
// Exclude takes precedence over include; an empty include allows all.
type compiledFilter struct {
	include map[EventType]struct{}
	exclude map[EventType]struct{}
}

func newCompiledFilter(include, exclude []EventType) *compiledFilter {
	f := &compiledFilter{}
	if len(include) > 0 {
		f.include = make(map[EventType]struct{}, len(include))
		for _, t := range include {
			f.include[t] = struct{}{}
		}
	}
	if len(exclude) > 0 {
		f.exclude = make(map[EventType]struct{}, len(exclude))
		for _, t := range exclude {
			f.exclude[t] = struct{}{}
		}
	}
	return f
}

// Allows reports whether events of type t pass the filter.
// A nil filter allows everything.
func (f *compiledFilter) Allows(t EventType) bool {
	if f == nil {
		return true
	}
	if _, ok := f.exclude[t]; ok {
		return false
	}
	if len(f.include) == 0 {
		return true
	}
	_, ok := f.include[t]
	return ok
}

// Gates decide which events may mutate the roster. A gated event is still
// reported as a notification; it just leaves the roster untouched.
type Gates struct {
	// AddFromWho adds /who listings to the roster.
	AddFromWho bool

	// RemoveOnDeath drops final-killed players.
	RemoveOnDeath bool

	// RemoveOnDisconnect drops players that quit or disconnected.
	RemoveOnDisconnect bool

	// TrackParty follows party membership.
	TrackParty bool

	// TrackInvites adds invited players until the invite expires.
	TrackInvites bool

	// GuildOnlineOnly follows guild members coming online and going
	// offline.
	GuildOnlineOnly bool

	// ClearManualOnGameStart drops manually tracked names when a game
	// starts.
	ClearManualOnGameStart bool
}

// DefaultGates returns gates that let every event through and keep
// manually tracked names across games.
func DefaultGates() Gates {
	return Gates{
		AddFromWho:         true,
		RemoveOnDeath:      true,
		RemoveOnDisconnect: true,
		TrackParty:         true,
		TrackInvites:       true,
		GuildOnlineOnly:    true,
	}
}

// applyFilter compiles the gates into the filter consulted before
// roster mutation.
func (g Gates) applyFilter() *compiledFilter {
	var exclude []EventType
	if !g.AddFromWho {
		exclude = append(exclude, event.WhoList)
	}
	if !g.RemoveOnDeath {
		exclude = append(exclude, event.FinalKill)
	}
	if !g.RemoveOnDisconnect {
		exclude = append(exclude, event.PlayerDisconnected)
	}
	if !g.TrackParty {
		exclude = append(exclude,
			event.PartyRoster,
			event.PartyMemberJoined,
			event.PartyMemberLeft,
			event.PartyMemberKicked,
			event.PartyDisbanded,
		)
	}
	if !g.TrackInvites {
		exclude = append(exclude, event.PartyInvite, event.PartyInviteExpired)
	}
	if !g.GuildOnlineOnly {
		exclude = append(exclude, event.GuildLiveJoin, event.GuildLiveLeave)
	}
	if len(exclude) == 0 {
		return nil
	}
	return newCompiledFilter(nil, exclude)
}
