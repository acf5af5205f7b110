// Package event defines the Event type produced by classifying Minecraft
// client log lines.
//
// This package is separated from the main bwlog package to avoid import
// cycles between pkg/bwlog, internal/classifier and internal/roster.
package event

import (
	"sort"
	"strings"
)

// Type represents the type of a classified log event.
type Type string

const (
	// Unclassified is returned for lines that carry no known meaning.
	Unclassified Type = "unclassified"

	// ServerChange indicates the client is being sent to another server.
	ServerChange Type = "server_change"

	// LobbyJoined indicates a pre-game lobby was entered.
	LobbyJoined Type = "lobby_joined"

	// WhoList carries the names listed by /who (Names).
	WhoList Type = "who_list"

	// PlayerDisconnected indicates a player quit or disconnected (Name).
	PlayerDisconnected Type = "player_disconnected"

	// FinalKill indicates a player was final-killed (Name is the victim).
	FinalKill Type = "final_kill"

	// GameStarting is the one-second countdown line; GameStart follows it.
	GameStarting Type = "game_starting"

	// GameStart indicates the game has started.
	GameStart Type = "game_start"

	// PartyRoster carries party members (Names, Role, Replace).
	PartyRoster Type = "party_roster"

	// PartyInvite indicates a party invite (Name, optional Leader, Outgoing).
	PartyInvite Type = "party_invite"

	// PartyInviteExpired indicates an invite to or from Name expired.
	PartyInviteExpired Type = "party_invite_expired"

	// PartyMemberJoined indicates Name joined the party.
	PartyMemberJoined Type = "party_member_joined"

	// PartyMemberLeft indicates Name left the party.
	PartyMemberLeft Type = "party_member_left"

	// PartyMemberKicked indicates Name was removed from the party.
	PartyMemberKicked Type = "party_member_kicked"

	// PartyDisbanded indicates the party no longer exists for the user.
	PartyDisbanded Type = "party_disbanded"

	// GuildListStart opens a guild listing capture.
	GuildListStart Type = "guild_list_start"

	// GuildListLine is a line inside a guild listing (Names may be empty).
	GuildListLine Type = "guild_list_line"

	// GuildListEnd closes a guild listing capture.
	GuildListEnd Type = "guild_list_end"

	// GuildLiveLeave indicates a guild member went offline (Name).
	GuildLiveLeave Type = "guild_live_leave"

	// GuildLiveJoin indicates a guild member came online (Name).
	GuildLiveJoin Type = "guild_live_join"

	// ChatMessage is any other chat line (Name may be empty, Message).
	ChatMessage Type = "chat_message"

	// UsernameMention is forwarded when a chat message mentions the
	// configured self username (Name is the speaker).
	UsernameMention Type = "username_mention"

	// InviteContinuation is a decorative follow-up line of an invite
	// ("You have 60 seconds to accept", "Click here to join").
	InviteContinuation Type = "invite_continuation"

	// PlayerTracked adds Name to the roster with Origin. It is never
	// produced from a log line.
	PlayerTracked Type = "player_tracked"

	// PlayerUntracked removes Name from the roster regardless of origin.
	PlayerUntracked Type = "player_untracked"
)

// allTypes is the canonical list of all event types.
// Add new event types here when extending the classifier.
var allTypes = []Type{
	Unclassified, ServerChange, LobbyJoined, WhoList, PlayerDisconnected,
	FinalKill, GameStarting, GameStart, PartyRoster, PartyInvite,
	PartyInviteExpired, PartyMemberJoined, PartyMemberLeft, PartyMemberKicked,
	PartyDisbanded, GuildListStart, GuildListLine, GuildListEnd,
	GuildLiveLeave, GuildLiveJoin, ChatMessage, UsernameMention,
	InviteContinuation, PlayerTracked, PlayerUntracked,
}

// TypeNames returns a sorted list of all valid event type names.
func TypeNames() []string {
	names := make([]string, len(allTypes))
	for i, t := range allTypes {
		names[i] = string(t)
	}
	sort.Strings(names)
	return names
}

var typeByName = func() map[string]Type {
	m := make(map[string]Type, len(allTypes))
	for _, t := range allTypes {
		m[string(t)] = t
	}
	return m
}()

// ParseType converts a string to Type if valid.
// It is case-insensitive and trims leading/trailing whitespace.
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	t, ok := typeByName[name]
	return t, ok
}

// Role is the party role a PartyRoster line lists.
type Role string

const (
	RoleLeader    Role = "leader"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// Origin is the reason a name is on the roster.
type Origin string

const (
	OriginWho    Origin = "who"
	OriginParty  Origin = "party"
	OriginGuild  Origin = "guild"
	OriginInvite Origin = "invite"
	OriginChat   Origin = "chat"
	OriginManual Origin = "manual"
)

// Event represents one classified log line (or a synthetic roster
// instruction such as PlayerTracked).
type Event struct {
	// Type is the event type.
	Type Type `json:"type"`

	// Name is the single player the event refers to.
	Name string `json:"name,omitempty"`

	// Names lists players for who/party/guild listings.
	Names []string `json:"names,omitempty"`

	// Leader is the target party leader of a two-name invite.
	Leader string `json:"leader,omitempty"`

	// Role is set on PartyRoster events.
	Role Role `json:"role,omitempty"`

	// Replace makes a PartyRoster event replace the party instead of
	// merging into it.
	Replace bool `json:"replace,omitempty"`

	// Outgoing marks a PartyInvite sent by the local user.
	Outgoing bool `json:"outgoing,omitempty"`

	// Message is the chat text of a ChatMessage.
	Message string `json:"message,omitempty"`

	// Mention is set when Message mentions the self username.
	Mention bool `json:"mention,omitempty"`

	// EndsCapture is set when this line terminates a guild listing.
	EndsCapture bool `json:"ends_capture,omitempty"`

	// Origin is set on PlayerTracked events.
	Origin Origin `json:"origin,omitempty"`

	// RawLine is the original log line (only included if requested).
	RawLine string `json:"raw_line,omitempty"`
}

// IsClassified reports whether the event carries any meaning.
func (e Event) IsClassified() bool {
	return e.Type != "" && e.Type != Unclassified
}
