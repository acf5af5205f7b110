package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
)

var t0 = time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)

func ev(typ event.Type, name string) event.Event {
	return event.Event{Type: typ, Name: name}
}

func names(typ event.Type, ns ...string) event.Event {
	return event.Event{Type: typ, Names: ns}
}

func originsOf(t *testing.T, s *State, name string) []event.Origin {
	t.Helper()
	for _, p := range s.Snapshot().Active {
		if key(p.Name) == key(name) {
			return p.Origins
		}
	}
	return nil
}

func TestWhoList_IdempotentOutsideLobby(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(names(event.WhoList, "Tom", "Jerry"), t0)
	once := s.Snapshot().ActiveNames()

	d := s.Apply(names(event.WhoList, "Tom", "Jerry"), t0)
	twice := s.Snapshot().ActiveNames()

	assert.Equal(t, []string{"Tom", "Jerry"}, once)
	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"Tom", "Jerry"}, d.Removed)
	assert.Equal(t, []string{"Tom", "Jerry"}, d.Added)
}

func TestWhoList_PreservesGuildOriginInLobby(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildLiveJoin, "A_guild"), t0)
	s.Apply(ev(event.LobbyJoined, ""), t0)
	s.Apply(names(event.WhoList, "B_who"), t0)
	require.Equal(t, []string{"A_guild", "B_who"}, s.Snapshot().ActiveNames())

	s.Apply(ev(event.LobbyJoined, ""), t0)
	s.Apply(names(event.WhoList, "C_who"), t0)

	snap := s.Snapshot()
	assert.Equal(t, []string{"A_guild", "C_who"}, snap.ActiveNames())
	assert.Equal(t, []event.Origin{event.OriginGuild}, originsOf(t, s, "A_guild"))
	assert.False(t, snap.InLobby)
}

func TestWhoList_ClearsEverythingOutsideLobby(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildLiveJoin, "Guildie"), t0)
	s.Apply(names(event.WhoList, "Tom"), t0)

	assert.Equal(t, []string{"Tom"}, s.Snapshot().ActiveNames())
	assert.Equal(t, []string{"Guildie"}, s.Snapshot().Guild)
}

func TestInvite_Lifecycle(t *testing.T) {
	s := New(DefaultConfig())

	d := s.Apply(ev(event.PartyInvite, "Bob"), t0)
	assert.Equal(t, []string{"Bob"}, d.Added)
	assert.Equal(t, []event.Origin{event.OriginInvite}, originsOf(t, s, "Bob"))
	assert.Equal(t, 1, s.PendingTimers())

	assert.Empty(t, s.Expire(t0.Add(59*time.Second)))

	deltas := s.Expire(t0.Add(60 * time.Second))
	require.Len(t, deltas, 1)
	assert.True(t, deltas[0].Expired)
	assert.Equal(t, event.PartyInviteExpired, deltas[0].Event.Type)
	assert.Equal(t, "Bob", deltas[0].Event.Name)
	assert.Equal(t, []string{"Bob"}, deltas[0].Removed)
	assert.Empty(t, s.Snapshot().Active)
	assert.Zero(t, s.PendingTimers())
}

func TestInvite_ExpiryKeepsOtherOrigins(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(names(event.WhoList, "Bob"), t0)
	s.Apply(ev(event.PartyInvite, "Bob"), t0)
	assert.Equal(t, []event.Origin{event.OriginWho, event.OriginInvite}, originsOf(t, s, "Bob"))

	deltas := s.Expire(t0.Add(time.Minute))
	require.Len(t, deltas, 1)
	assert.Empty(t, deltas[0].Removed)
	assert.Equal(t, []event.Origin{event.OriginWho}, originsOf(t, s, "Bob"))
}

func TestInvite_ReinviteReplacesTimer(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.PartyInvite, "Bob"), t0)
	s.Apply(ev(event.PartyInvite, "bob"), t0.Add(30*time.Second))
	assert.Equal(t, 1, s.PendingTimers())

	assert.Empty(t, s.Expire(t0.Add(60*time.Second)))
	assert.Len(t, s.Expire(t0.Add(90*time.Second)), 1)
}

func TestInvite_ExpiredEventCancelsTimer(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.PartyInvite, "Bob"), t0)
	d := s.Apply(ev(event.PartyInviteExpired, "Bob"), t0.Add(time.Second))

	assert.Equal(t, []string{"Bob"}, d.Removed)
	assert.Zero(t, s.PendingTimers())
	assert.Empty(t, s.Expire(t0.Add(time.Hour)))
}

func TestInvite_CustomExpiry(t *testing.T) {
	s := New(Config{InviteExpiry: 10 * time.Second})

	s.Apply(ev(event.PartyInvite, "Bob"), t0)
	assert.Len(t, s.Expire(t0.Add(10*time.Second)), 1)
}

func TestInvite_PromotionToParty(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.PartyInvite, "Bob"), t0)
	d := s.Apply(ev(event.PartyMemberJoined, "Bob"), t0.Add(time.Second))

	assert.True(t, d.PartyChanged)
	assert.Equal(t, []string{"Bob"}, s.Snapshot().Party)
	assert.Equal(t, []event.Origin{event.OriginParty}, originsOf(t, s, "Bob"))
	assert.Zero(t, s.PendingTimers())
}

func TestInvite_AwaitingContinuation(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(event.Event{Type: event.PartyInvite, Name: "Bob", Outgoing: true}, t0)
	assert.False(t, s.ClassifierState("").AwaitingInviteContinuation)

	s.Apply(ev(event.PartyInvite, "Alice"), t0)
	assert.True(t, s.ClassifierState("").AwaitingInviteContinuation)

	s.Apply(ev(event.InviteContinuation, ""), t0)
	assert.False(t, s.ClassifierState("").AwaitingInviteContinuation)
}

func TestParty_RosterReplaceAndMerge(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(names(event.PartyRoster, "Old"), t0)
	s.Apply(event.Event{Type: event.PartyRoster, Names: []string{"Leader"}, Role: event.RoleLeader, Replace: true}, t0)
	assert.Equal(t, []string{"Leader"}, s.Snapshot().Party)
	assert.Equal(t, []string{"Leader"}, s.Snapshot().ActiveNames())

	d := s.Apply(names(event.PartyRoster, "Alice", "Bob", "Leader"), t0)
	assert.True(t, d.PartyChanged)
	assert.Equal(t, []string{"Leader", "Alice", "Bob"}, s.Snapshot().Party)
}

func TestParty_LeaveKickDisband(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(names(event.WhoList, "Carl"), t0)
	s.Apply(names(event.PartyRoster, "Alice", "Bob", "Carl"), t0)

	d := s.Apply(ev(event.PartyMemberLeft, "Alice"), t0)
	assert.True(t, d.PartyChanged)
	assert.Equal(t, []string{"Alice"}, d.Removed)

	d = s.Apply(ev(event.PartyMemberKicked, "Bob"), t0)
	assert.Equal(t, []string{"Bob"}, d.Removed)
	assert.Equal(t, []string{"Carl"}, s.Snapshot().Party)

	d = s.Apply(ev(event.PartyDisbanded, ""), t0)
	assert.True(t, d.PartyChanged)
	assert.Empty(t, s.Snapshot().Party)
	// Carl was also on the /who list.
	assert.Equal(t, []string{"Carl"}, s.Snapshot().ActiveNames())
	assert.Equal(t, []event.Origin{event.OriginWho}, originsOf(t, s, "Carl"))
}

func TestParty_LeaveUnknownIsNoop(t *testing.T) {
	s := New(DefaultConfig())

	d := s.Apply(ev(event.PartyMemberLeft, "Nobody"), t0)
	assert.False(t, d.Changed())
}

func TestGuildCapture_RoundTrip(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildListStart, ""), t0)
	assert.True(t, s.ClassifierState("").InGuildCapture)

	for _, n := range []string{"Alice", "Bob", "Carl"} {
		d := s.Apply(names(event.GuildListLine, n), t0)
		assert.Equal(t, []string{n}, d.GuildFound)
	}
	// Blank and separator lines carry no names.
	d := s.Apply(ev(event.GuildListLine, ""), t0)
	assert.False(t, d.Changed())

	d = s.Apply(ev(event.GuildListEnd, ""), t0)
	assert.True(t, d.GuildChanged)
	assert.True(t, d.ActiveChanged)

	snap := s.Snapshot()
	assert.Equal(t, []string{"Alice", "Bob", "Carl"}, snap.Guild)
	assert.Equal(t, []string{"Alice", "Bob", "Carl"}, s.GuildSourced())
	assert.False(t, snap.InGuildCapture)
	assert.Zero(t, s.PendingTimers())
}

func TestGuildCapture_ReplacesPreviousListing(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildListStart, ""), t0)
	s.Apply(names(event.GuildListLine, "Alice", "Bob"), t0)
	s.Apply(ev(event.GuildListEnd, ""), t0)

	s.Apply(ev(event.GuildListStart, ""), t0)
	s.Apply(names(event.GuildListLine, "Bob", "Carl"), t0)
	d := s.Apply(ev(event.GuildListEnd, ""), t0)

	assert.Equal(t, []string{"Alice"}, d.Removed)
	assert.Equal(t, []string{"Carl"}, d.Added)
	assert.Equal(t, []string{"Bob", "Carl"}, s.Snapshot().Guild)
	assert.Equal(t, []string{"Bob", "Carl"}, s.GuildSourced())
}

func TestGuildCapture_RestartClearsBuffer(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildListStart, ""), t0)
	s.Apply(names(event.GuildListLine, "Alice"), t0)
	s.Apply(ev(event.GuildListStart, ""), t0)
	s.Apply(names(event.GuildListLine, "Bob"), t0)
	s.Apply(ev(event.GuildListEnd, ""), t0)

	assert.Equal(t, []string{"Bob"}, s.Snapshot().Guild)
}

func TestGuildCapture_Deadline(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildListStart, ""), t0)
	s.Apply(names(event.GuildListLine, "Alice"), t0.Add(time.Second))

	assert.Empty(t, s.Expire(t0.Add(4*time.Second)))

	deltas := s.Expire(t0.Add(5 * time.Second))
	require.Len(t, deltas, 1)
	assert.True(t, deltas[0].Expired)
	assert.True(t, deltas[0].GuildChanged)
	assert.Equal(t, event.GuildListEnd, deltas[0].Event.Type)
	assert.Equal(t, []string{"Alice"}, s.Snapshot().Guild)
	assert.False(t, s.Snapshot().InGuildCapture)
}

func TestGuildCapture_EndedByChat(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildListStart, ""), t0)
	s.Apply(names(event.GuildListLine, "Alice"), t0)
	d := s.Apply(event.Event{Type: event.ChatMessage, Name: "Alice", Message: "hi", EndsCapture: true}, t0)

	assert.True(t, d.GuildChanged)
	assert.Equal(t, event.ChatMessage, d.Event.Type)
	assert.Equal(t, []string{"Alice"}, s.Snapshot().Guild)
}

func TestGuildCapture_FooterWithoutCaptureIsNoop(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildLiveJoin, "Alice"), t0)
	d := s.Apply(ev(event.GuildListEnd, ""), t0)

	assert.False(t, d.Changed())
	assert.Equal(t, []string{"Alice"}, s.Snapshot().Guild)

	d = s.Apply(names(event.GuildListLine, "Bob"), t0)
	assert.Empty(t, d.GuildFound)
}

func TestGuildLive(t *testing.T) {
	s := New(DefaultConfig())

	d := s.Apply(ev(event.GuildLiveJoin, "Alice"), t0)
	assert.True(t, d.GuildChanged)
	assert.Equal(t, []string{"Alice"}, s.GuildSourced())

	d = s.Apply(ev(event.GuildLiveLeave, "alice"), t0)
	assert.True(t, d.GuildChanged)
	assert.Equal(t, []string{"Alice"}, d.Removed)
	assert.Empty(t, s.Snapshot().Guild)
}

func TestGameStart_Delayed(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.GuildLiveJoin, "Guildie"), t0)
	s.Apply(ev(event.LobbyJoined, ""), t0)
	s.Apply(ev(event.GameStarting, ""), t0)

	assert.Empty(t, s.Expire(t0.Add(time.Second)))

	deltas := s.Expire(t0.Add(1100 * time.Millisecond))
	require.Len(t, deltas, 1)
	assert.Equal(t, event.GameStart, deltas[0].Event.Type)
	assert.True(t, deltas[0].Expired)
	assert.Equal(t, []string{"Guildie"}, deltas[0].Removed)

	snap := s.Snapshot()
	assert.False(t, snap.InLobby)
	assert.Empty(t, snap.Active)
	assert.Equal(t, []string{"Guildie"}, snap.Guild)
}

func TestGameStart_ClearManual(t *testing.T) {
	tests := []struct {
		name      string
		clear     bool
		wantNames []string
	}{
		{"keep manual", false, []string{"Manual_1"}},
		{"clear manual", true, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ClearManualOnGameStart = tt.clear
			s := New(cfg)

			s.Apply(event.Event{Type: event.PlayerTracked, Name: "Manual_1", Origin: event.OriginManual}, t0)
			s.Apply(ev(event.GameStart, ""), t0)

			assert.Equal(t, tt.wantNames, s.Snapshot().ActiveNames())
		})
	}
}

func TestDisconnectAndFinalKill(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(names(event.WhoList, "Steve", "Alex"), t0)

	d := s.Apply(ev(event.PlayerDisconnected, "steve"), t0)
	assert.Equal(t, []string{"Steve"}, d.Removed)

	d = s.Apply(ev(event.FinalKill, "Alex"), t0)
	assert.Equal(t, []string{"Alex"}, d.Removed)

	d = s.Apply(ev(event.FinalKill, "Ghost"), t0)
	assert.False(t, d.Changed())
	assert.Empty(t, d.Removed)
}

func TestServerChange_KeepsPartyAndGuild(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.LobbyJoined, ""), t0)
	s.Apply(names(event.PartyRoster, "Pal"), t0)
	s.Apply(ev(event.GuildLiveJoin, "Guildie"), t0)

	d := s.Apply(ev(event.ServerChange, ""), t0)
	assert.True(t, d.ActiveChanged)

	snap := s.Snapshot()
	assert.Empty(t, snap.Active)
	assert.Equal(t, []string{"Pal"}, snap.Party)
	assert.Equal(t, []string{"Guildie"}, snap.Guild)
	assert.False(t, snap.InLobby)
}

func TestReset_KeepsGuild(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.LobbyJoined, ""), t0)
	s.Apply(ev(event.GuildLiveJoin, "Guildie"), t0)
	s.Apply(names(event.PartyRoster, "Pal"), t0)
	s.Apply(ev(event.PartyInvite, "Bob"), t0)
	s.Apply(ev(event.GuildListStart, ""), t0)

	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Active)
	assert.Empty(t, snap.Party)
	assert.Equal(t, []string{"Guildie"}, snap.Guild)
	assert.False(t, snap.InLobby)
	assert.False(t, snap.InGuildCapture)
	assert.Zero(t, s.PendingTimers())
	assert.Empty(t, s.Expire(t0.Add(time.Hour)))
}

func TestTrackUntrack(t *testing.T) {
	s := New(DefaultConfig())

	d := s.Apply(event.Event{Type: event.PlayerTracked, Name: "Chatty", Origin: event.OriginChat}, t0)
	assert.Equal(t, []string{"Chatty"}, d.Added)
	assert.Equal(t, []event.Origin{event.OriginChat}, originsOf(t, s, "Chatty"))

	s.Apply(event.Event{Type: event.PlayerTracked, Name: "chatty"}, t0)
	assert.Equal(t, []event.Origin{event.OriginChat, event.OriginManual}, originsOf(t, s, "Chatty"))

	d = s.Apply(ev(event.PlayerUntracked, "CHATTY"), t0)
	assert.Equal(t, []string{"Chatty"}, d.Removed)
	assert.Empty(t, s.Snapshot().Active)
}

func TestDuplicateAddsAreIdempotent(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(names(event.PartyRoster, "Bob", "bob", "BOB"), t0)
	d := s.Apply(ev(event.PartyMemberJoined, "Bob"), t0)

	assert.False(t, d.Changed())
	assert.Equal(t, []string{"Bob"}, s.Snapshot().Party)
	assert.Equal(t, []string{"Bob"}, s.Snapshot().ActiveNames())
}

func TestNoopEvents(t *testing.T) {
	s := New(DefaultConfig())
	s.Apply(names(event.WhoList, "Tom"), t0)

	for _, typ := range []event.Type{event.Unclassified, event.ChatMessage, event.UsernameMention, ""} {
		d := s.Apply(ev(typ, "Tom"), t0)
		assert.False(t, d.Changed(), "type %q", typ)
	}
	assert.Equal(t, []string{"Tom"}, s.Snapshot().ActiveNames())
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New(DefaultConfig())
	s.Apply(names(event.PartyRoster, "Bob"), t0)

	snap := s.Snapshot()
	snap.Party[0] = "Mallory"
	snap.Active[0].Origins[0] = event.OriginManual

	assert.Equal(t, []string{"Bob"}, s.Snapshot().Party)
	assert.Equal(t, []event.Origin{event.OriginParty}, originsOf(t, s, "Bob"))
}

func TestExpire_OrdersByDeadline(t *testing.T) {
	s := New(DefaultConfig())

	s.Apply(ev(event.PartyInvite, "Late"), t0.Add(2*time.Second))
	s.Apply(ev(event.PartyInvite, "Early"), t0)

	next, ok := s.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), next)

	deltas := s.Expire(t0.Add(time.Hour))
	require.Len(t, deltas, 2)
	assert.Equal(t, "Early", deltas[0].Event.Name)
	assert.Equal(t, "Late", deltas[1].Event.Name)

	_, ok = s.NextDeadline()
	assert.False(t, ok)
}

func TestClassifierState(t *testing.T) {
	s := New(DefaultConfig())
	s.Apply(ev(event.LobbyJoined, ""), t0)
	s.Apply(ev(event.GuildListStart, ""), t0)

	st := s.ClassifierState("Me_Self")
	assert.True(t, st.InLobby)
	assert.True(t, st.InGuildCapture)
	assert.Equal(t, "Me_Self", st.SelfUsername)
}
