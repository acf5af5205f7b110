package classifier

import (
	"strings"

	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
)

// rule is one entry of the chat rule table. match reports false when the
// rule does not apply, letting the next rule try.
type rule struct {
	name  string
	match func(msg string, st State) (event.Event, bool)
}

// rules is evaluated in order. More specific rules come first; the
// generic "contains ':'" chat rule must stay last.
var rules = []rule{
	{"server_change", matchServerChange},
	{"lobby_joined", matchLobbyJoined},
	{"who_list", matchWhoList},
	{"player_disconnected", matchDisconnected},
	{"final_kill", matchFinalKill},
	{"party_list", matchPartyList},
	{"invite_their_party", matchInviteTheirParty},
	{"invite_leader_party", matchInviteLeaderParty},
	{"outgoing_invite", matchOutgoingInvite},
	{"invite_expired", matchInviteExpired},
	{"joined_party_of", matchJoinedPartyOf},
	{"partying_with", matchPartyingWith},
	{"member_joined", matchMemberJoined},
	{"lobby_invite", matchLobbyInvite},
	{"lobby_member_joined", matchLobbyMemberJoined},
	{"party_disbanded", matchDisbanded},
	{"you_left_party", matchYouLeftParty},
	{"member_left", matchMemberLeft},
	{"member_removed", matchMemberRemoved},
	{"kicked_offline", matchKickedOffline},
	{"game_starting", matchGameStarting},
	{"guild_list_start", matchGuildListStart},
	{"guild_list_capture", matchGuildListCapture},
	{"guild_live", matchGuildLive},
	{"guild_list_end", matchGuildListEnd},
	{"chat", matchChat},
}

func hasColon(msg string) bool {
	return strings.Contains(msg, ":")
}

func named(t event.Type, name string) (event.Event, bool) {
	if !ValidName(name) {
		return event.Event{}, false
	}
	return event.Event{Type: t, Name: name}, true
}

func matchServerChange(msg string, _ State) (event.Event, bool) {
	if strings.Contains(msg, "Sending you to") && !hasColon(msg) {
		return event.Event{Type: event.ServerChange}, true
	}
	return event.Event{}, false
}

func matchLobbyJoined(msg string, _ State) (event.Event, bool) {
	joined := (strings.Contains(msg, "joined the lobby!") || strings.Contains(msg, "rewards!")) && !hasColon(msg)
	if joined || strings.Contains(msg, "slid into the lobby!") {
		return event.Event{Type: event.LobbyJoined}, true
	}
	return event.Event{}, false
}

func matchWhoList(msg string, _ State) (event.Event, bool) {
	const marker = "ONLINE:"
	i := strings.Index(msg, marker)
	if i < 0 || !strings.Contains(msg, ",") {
		return event.Event{}, false
	}
	names := validNames(strings.Split(msg[i+len(marker):], ", "))
	if len(names) == 0 {
		return event.Event{}, false
	}
	return event.Event{Type: event.WhoList, Names: names}, true
}

func matchDisconnected(msg string, _ State) (event.Event, bool) {
	if (strings.Contains(msg, "has quit") || strings.Contains(msg, "disconnected")) && !hasColon(msg) {
		return named(event.PlayerDisconnected, subjectName(msg))
	}
	return event.Event{}, false
}

func matchFinalKill(msg string, _ State) (event.Event, bool) {
	if strings.Contains(msg, "FINAL KILL") && !hasColon(msg) {
		return named(event.FinalKill, subjectName(msg))
	}
	return event.Event{}, false
}

func matchPartyList(msg string, st State) (event.Event, bool) {
	if !st.InLobby {
		return event.Event{}, false
	}
	for _, p := range partyListPrefixes {
		if !strings.HasPrefix(msg, p.prefix) {
			continue
		}
		var words []string
		for _, tok := range strings.Fields(msg[len(p.prefix):]) {
			if wordPattern.MatchString(tok) {
				words = append(words, tok)
			}
		}
		names := validNames(words)
		if len(names) == 0 {
			return event.Event{}, false
		}
		return event.Event{Type: event.PartyRoster, Names: names, Role: event.Role(p.role)}, true
	}
	return event.Event{}, false
}

func matchInviteTheirParty(msg string, _ State) (event.Event, bool) {
	if !strings.Contains(msg, "has invited you to join their party!") || hasColon(msg) {
		return event.Event{}, false
	}
	if m := inviteTheirPattern.FindStringSubmatch(msg); m != nil {
		return event.Event{Type: event.PartyInvite, Name: m[1]}, true
	}
	return named(event.PartyInvite, nameBefore(msg, " has invited"))
}

func matchInviteLeaderParty(msg string, _ State) (event.Event, bool) {
	if !strings.Contains(msg, "has invited you to join") || !strings.Contains(msg, "party!") || hasColon(msg) {
		return event.Event{}, false
	}
	if m := inviteLeaderPattern.FindStringSubmatch(msg); m != nil {
		return event.Event{Type: event.PartyInvite, Name: m[1], Leader: m[2]}, true
	}

	ev, ok := named(event.PartyInvite, nameBefore(msg, " has invited"))
	if !ok {
		return ev, false
	}
	const joinMarker = "has invited you to join "
	k := strings.Index(msg, joinMarker)
	if k < 0 {
		return ev, true
	}
	rest := msg[k+len(joinMarker):]
	if j := strings.Index(rest, "'s party!"); j >= 0 {
		if leader := StripRank(rest[:j]); ValidName(leader) {
			ev.Leader = leader
		}
	}
	return ev, true
}

func matchOutgoingInvite(msg string, st State) (event.Event, bool) {
	if !strings.Contains(msg, " invited ") || !strings.Contains(msg, " to the party!") || hasColon(msg) {
		return event.Event{}, false
	}
	m := outgoingInvitePattern.FindStringSubmatch(msg)
	if m == nil {
		return event.Event{}, false
	}
	// Invites sent by other party members are consumed without an event.
	if st.SelfUsername == "" || !strings.EqualFold(m[1], st.SelfUsername) {
		return unclassified(), true
	}
	return event.Event{Type: event.PartyInvite, Name: m[2], Outgoing: true}, true
}

func matchInviteExpired(msg string, _ State) (event.Event, bool) {
	if !strings.Contains(msg, "party invite") || !strings.Contains(msg, "has expired") || hasColon(msg) {
		return event.Event{}, false
	}
	if m := inviteExpiredPattern.FindStringSubmatch(msg); m != nil {
		return event.Event{Type: event.PartyInviteExpired, Name: m[1]}, true
	}
	return event.Event{}, false
}

func matchJoinedPartyOf(msg string, _ State) (event.Event, bool) {
	const prefix, suffix = "You have joined ", "'s party!"
	if !strings.HasPrefix(msg, prefix) || hasColon(msg) {
		return event.Event{}, false
	}
	j := strings.Index(msg, suffix)
	if j < len(prefix) {
		return event.Event{}, false
	}
	leader := StripRank(msg[len(prefix):j])
	if !ValidName(leader) {
		return event.Event{}, false
	}
	return event.Event{
		Type:    event.PartyRoster,
		Names:   []string{leader},
		Role:    event.RoleLeader,
		Replace: true,
	}, true
}

func matchPartyingWith(msg string, _ State) (event.Event, bool) {
	const prefix = "You'll be partying with:"
	if !strings.HasPrefix(msg, prefix) || strings.Index(msg, ":") != len(prefix)-1 {
		return event.Event{}, false
	}
	names := validNames(strings.Split(msg[len(prefix):], ","))
	if len(names) == 0 {
		return event.Event{}, false
	}
	return event.Event{Type: event.PartyRoster, Names: names, Role: event.RoleMember}, true
}

func matchMemberJoined(msg string, _ State) (event.Event, bool) {
	joined := strings.Contains(msg, " joined the party!") || strings.Contains(msg, " joined the party.")
	if !joined || hasColon(msg) || strings.HasPrefix(msg, "You ") {
		return event.Event{}, false
	}
	return named(event.PartyMemberJoined, nameBefore(msg, " joined"))
}

func matchLobbyInvite(msg string, st State) (event.Event, bool) {
	if !st.InLobby || !strings.Contains(msg, "to join their party!") || hasColon(msg) {
		return event.Event{}, false
	}
	fields := strings.Fields(msg)
	for i := 1; i < len(fields); i++ {
		if fields[i] == "has" {
			return named(event.PartyInvite, StripRank(fields[i-1]))
		}
	}
	return event.Event{}, false
}

func matchLobbyMemberJoined(msg string, st State) (event.Event, bool) {
	if st.InLobby && strings.Contains(msg, "joined the party") && !hasColon(msg) {
		return named(event.PartyMemberJoined, subjectName(msg))
	}
	return event.Event{}, false
}

func matchDisbanded(msg string, _ State) (event.Event, bool) {
	if strings.Contains(msg, "disbanded") && !hasColon(msg) {
		return event.Event{Type: event.PartyDisbanded}, true
	}
	return event.Event{}, false
}

func matchYouLeftParty(msg string, _ State) (event.Event, bool) {
	if strings.Contains(msg, "You left the party") && !hasColon(msg) {
		return event.Event{Type: event.PartyDisbanded}, true
	}
	return event.Event{}, false
}

func matchMemberLeft(msg string, _ State) (event.Event, bool) {
	if strings.Contains(msg, "left the party") && !hasColon(msg) {
		return named(event.PartyMemberLeft, subjectName(msg))
	}
	return event.Event{}, false
}

func matchMemberRemoved(msg string, _ State) (event.Event, bool) {
	if strings.Contains(msg, "has been removed from the party") && !hasColon(msg) {
		return named(event.PartyMemberKicked, subjectName(msg))
	}
	return event.Event{}, false
}

func matchKickedOffline(msg string, _ State) (event.Event, bool) {
	const prefix = "Kicked "
	if strings.HasPrefix(msg, prefix) && strings.Contains(msg, "because they were offline") && !hasColon(msg) {
		return named(event.PartyMemberKicked, subjectName(msg[len(prefix):]))
	}
	return event.Event{}, false
}

func matchGameStarting(msg string, _ State) (event.Event, bool) {
	if strings.Contains(msg, "The game starts in 1 second!") && !hasColon(msg) {
		return event.Event{Type: event.GameStarting}, true
	}
	return event.Event{}, false
}

// matchGuildListStart opens a capture on "Guild Name: " (always, which
// resets a capture in flight) or on a section separator when no capture
// is active.
func matchGuildListStart(msg string, st State) (event.Event, bool) {
	if strings.HasPrefix(msg, "Guild Name: ") {
		return event.Event{Type: event.GuildListStart}, true
	}
	if !st.InGuildCapture && guildSectionPattern.MatchString(msg) {
		return event.Event{Type: event.GuildListStart}, true
	}
	return event.Event{}, false
}

func matchGuildListCapture(msg string, st State) (event.Event, bool) {
	if !st.InGuildCapture {
		return event.Event{}, false
	}
	if guildSectionPattern.MatchString(msg) || guildBarPattern.MatchString(msg) {
		return event.Event{Type: event.GuildListLine}, true
	}
	if hasAnyPrefix(msg, guildFooterPrefixes) {
		return event.Event{Type: event.GuildListEnd}, true
	}
	if names := guildMemberNames(msg); len(names) > 0 {
		return event.Event{Type: event.GuildListLine, Names: names}, true
	}
	// Chat interrupting the listing falls through to the chat rule,
	// which ends the capture.
	if hasColon(msg) {
		return event.Event{}, false
	}
	return event.Event{Type: event.GuildListLine}, true
}

func guildMemberNames(msg string) []string {
	if all := guildMemberPattern.FindAllStringSubmatch(msg, -1); len(all) > 1 {
		names := make([]string, 0, len(all))
		for _, m := range all {
			names = append(names, m[1])
		}
		return names
	}
	if m := guildRankMemberPattern.FindStringSubmatch(msg); m != nil {
		return []string{m[1]}
	}
	if m := guildBareMemberPattern.FindStringSubmatch(msg); m != nil {
		return []string{m[1]}
	}
	return nil
}

func matchGuildLive(msg string, _ State) (event.Event, bool) {
	if !strings.HasPrefix(msg, "Guild > ") || hasColon(msg) {
		return event.Event{}, false
	}
	m := guildLivePattern.FindStringSubmatch(msg)
	if m == nil {
		return event.Event{}, false
	}
	if m[2] == "left" {
		return event.Event{Type: event.GuildLiveLeave, Name: m[1]}, true
	}
	return event.Event{Type: event.GuildLiveJoin, Name: m[1]}, true
}

func matchGuildListEnd(msg string, _ State) (event.Event, bool) {
	if hasAnyPrefix(msg, guildFooterPrefixes) {
		return event.Event{Type: event.GuildListEnd}, true
	}
	return event.Event{}, false
}

func matchChat(msg string, st State) (event.Event, bool) {
	i := strings.Index(msg, ":")
	if i < 0 {
		return event.Event{}, false
	}
	text := strings.TrimSpace(msg[i+1:])
	if text == "" {
		if st.InGuildCapture {
			return event.Event{Type: event.GuildListEnd}, true
		}
		return event.Event{}, false
	}

	speaker := StripRank(msg[:i])
	if !ValidName(speaker) {
		speaker = ""
	}
	ev := event.Event{
		Type:        event.ChatMessage,
		Name:        speaker,
		Message:     text,
		EndsCapture: st.InGuildCapture,
	}
	if st.SelfUsername != "" && strings.Contains(strings.ToLower(text), strings.ToLower(st.SelfUsername)) {
		ev.Mention = true
	}
	return ev, true
}
