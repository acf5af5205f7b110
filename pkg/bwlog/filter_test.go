package bwlog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
)

func TestCompiledFilter(t *testing.T) {
	var nilFilter *compiledFilter
	assert.True(t, nilFilter.Allows(event.ChatMessage))

	tests := []struct {
		name    string
		include []EventType
		exclude []EventType
		allowed []EventType
		denied  []EventType
	}{
		{
			name:    "empty allows all",
			allowed: []EventType{event.ChatMessage, event.WhoList},
		},
		{
			name:    "include only",
			include: []EventType{event.WhoList},
			allowed: []EventType{event.WhoList},
			denied:  []EventType{event.ChatMessage},
		},
		{
			name:    "exclude only",
			exclude: []EventType{event.FinalKill},
			allowed: []EventType{event.WhoList},
			denied:  []EventType{event.FinalKill},
		},
		{
			name:    "exclude wins",
			include: []EventType{event.FinalKill, event.WhoList},
			exclude: []EventType{event.FinalKill},
			allowed: []EventType{event.WhoList},
			denied:  []EventType{event.FinalKill, event.ChatMessage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCompiledFilter(tt.include, tt.exclude)
			for _, typ := range tt.allowed {
				assert.True(t, f.Allows(typ), typ)
			}
			for _, typ := range tt.denied {
				assert.False(t, f.Allows(typ), typ)
			}
		})
	}
}

func TestGates_ApplyFilter(t *testing.T) {
	assert.Nil(t, DefaultGates().applyFilter())

	g := DefaultGates()
	g.ClearManualOnGameStart = true
	assert.Nil(t, g.applyFilter(), "clearing manual names is not an event filter")

	tests := []struct {
		name   string
		mutate func(*Gates)
		denied []EventType
	}{
		{"who", func(g *Gates) { g.AddFromWho = false }, []EventType{event.WhoList}},
		{"death", func(g *Gates) { g.RemoveOnDeath = false }, []EventType{event.FinalKill}},
		{"disconnect", func(g *Gates) { g.RemoveOnDisconnect = false }, []EventType{event.PlayerDisconnected}},
		{"party", func(g *Gates) { g.TrackParty = false }, []EventType{
			event.PartyRoster, event.PartyMemberJoined, event.PartyMemberLeft,
			event.PartyMemberKicked, event.PartyDisbanded,
		}},
		{"invites", func(g *Gates) { g.TrackInvites = false }, []EventType{event.PartyInvite, event.PartyInviteExpired}},
		{"guild live", func(g *Gates) { g.GuildOnlineOnly = false }, []EventType{event.GuildLiveJoin, event.GuildLiveLeave}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGates()
			tt.mutate(&g)
			f := g.applyFilter()
			for _, typ := range tt.denied {
				assert.False(t, f.Allows(typ), typ)
			}
			assert.True(t, f.Allows(event.ChatMessage))
			assert.True(t, f.Allows(event.GuildListEnd))
		})
	}
}
