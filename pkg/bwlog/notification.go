package bwlog

import (
	"sort"
	"strings"
	"time"

	"github.com/bwlog/bwlog-go/internal/roster"
	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
)

// Kind is the kind of a Notification.
type Kind string

const (
	// List updates carry the full current list in Names.
	KindRosterChanged Kind = "roster_changed"
	KindPartyChanged  Kind = "party_changed"
	KindGuildChanged  Kind = "guild_changed"

	// KindGuildMemberFound carries the names a guild listing line added.
	KindGuildMemberFound Kind = "guild_member_found"

	// Single-name notifications.
	KindInviteReceived    Kind = "invite_received"
	KindInviteExpired     Kind = "invite_expired"
	KindFinalKill         Kind = "final_kill"
	KindPlayerLeft        Kind = "player_left"
	KindPartyMemberLeft   Kind = "party_member_left"
	KindPartyMemberKicked Kind = "party_member_kicked"
	KindPartyDisbanded    Kind = "party_disbanded"
	KindChat              Kind = "chat"
	KindMention           Kind = "mention"
	KindTriggerMatched    Kind = "trigger_matched"

	// Lifecycle notifications.
	KindLobbyJoined   Kind = "lobby_joined"
	KindServerChange  Kind = "server_change"
	KindGameStarting  Kind = "game_starting"
	KindGameStart     Kind = "game_start"
	KindSourceChanged Kind = "source_changed"
)

var allKinds = []Kind{
	KindRosterChanged, KindPartyChanged, KindGuildChanged, KindGuildMemberFound,
	KindInviteReceived, KindInviteExpired, KindFinalKill, KindPlayerLeft,
	KindPartyMemberLeft, KindPartyMemberKicked, KindPartyDisbanded, KindChat,
	KindMention, KindTriggerMatched, KindLobbyJoined, KindServerChange,
	KindGameStarting, KindGameStart, KindSourceChanged,
}

// KindNames returns a sorted list of all notification kind names.
func KindNames() []string {
	names := make([]string, len(allKinds))
	for i, k := range allKinds {
		names[i] = string(k)
	}
	sort.Strings(names)
	return names
}

// ParseKind converts a string to Kind if valid.
// It is case-insensitive and trims leading/trailing whitespace.
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range allKinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Notification is one observable change of a session.
type Notification struct {
	Kind Kind      `json:"kind"`
	Time time.Time `json:"time"`

	// Name is the single player the notification is about.
	Name string `json:"name,omitempty"`

	// Names is the full list for list updates, or the found names for
	// KindGuildMemberFound.
	Names []string `json:"names,omitempty"`

	// Added and Removed are set on KindRosterChanged.
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`

	Leader    string `json:"leader,omitempty"`
	Message   string `json:"message,omitempty"`
	Outgoing  bool   `json:"outgoing,omitempty"`
	TriggerID string `json:"trigger_id,omitempty"`

	// Expired is set when a timer produced the notification.
	Expired bool `json:"expired,omitempty"`

	// Client and Path are set on KindSourceChanged.
	Client string `json:"client,omitempty"`
	Path   string `json:"path,omitempty"`

	// Event is the event behind the notification, if any.
	Event *event.Event `json:"event,omitempty"`
}

// eventKinds maps events to their single notification.
var eventKinds = map[event.Type]Kind{
	event.PartyInvite:        KindInviteReceived,
	event.PartyInviteExpired: KindInviteExpired,
	event.FinalKill:          KindFinalKill,
	event.PlayerDisconnected: KindPlayerLeft,
	event.PartyMemberLeft:    KindPartyMemberLeft,
	event.PartyMemberKicked:  KindPartyMemberKicked,
	event.PartyDisbanded:     KindPartyDisbanded,
	event.ChatMessage:        KindChat,
	event.LobbyJoined:        KindLobbyJoined,
	event.ServerChange:       KindServerChange,
	event.GameStarting:       KindGameStarting,
	event.GameStart:          KindGameStart,
}

// notificationsFor turns a roster delta into notifications: the event's
// own notification first, then the derived mention, then list updates.
func notificationsFor(d roster.Delta, snap roster.Snapshot, now time.Time) []Notification {
	var out []Notification

	ev := d.Event
	if kind, ok := eventKinds[ev.Type]; ok {
		evCopy := ev
		out = append(out, Notification{
			Kind:     kind,
			Time:     now,
			Name:     ev.Name,
			Leader:   ev.Leader,
			Message:  ev.Message,
			Outgoing: ev.Outgoing,
			Expired:  d.Expired,
			Event:    &evCopy,
		})
	}

	if ev.Type == event.ChatMessage && ev.Mention {
		out = append(out, Notification{
			Kind:    KindMention,
			Time:    now,
			Name:    ev.Name,
			Message: ev.Message,
			Event:   &event.Event{Type: event.UsernameMention, Name: ev.Name, Message: ev.Message},
		})
	}

	if len(d.GuildFound) > 0 {
		out = append(out, Notification{Kind: KindGuildMemberFound, Time: now, Names: d.GuildFound})
	}
	if d.ActiveChanged {
		out = append(out, Notification{
			Kind:    KindRosterChanged,
			Time:    now,
			Names:   snap.ActiveNames(),
			Added:   d.Added,
			Removed: d.Removed,
			Expired: d.Expired,
		})
	}
	if d.PartyChanged {
		out = append(out, Notification{Kind: KindPartyChanged, Time: now, Names: snap.Party})
	}
	if d.GuildChanged {
		out = append(out, Notification{Kind: KindGuildChanged, Time: now, Names: snap.Guild})
	}

	return out
}

// listNotifications reports the full current lists, used after a reset.
func listNotifications(snap roster.Snapshot, now time.Time) []Notification {
	return []Notification{
		{Kind: KindRosterChanged, Time: now, Names: snap.ActiveNames()},
		{Kind: KindPartyChanged, Time: now, Names: snap.Party},
		{Kind: KindGuildChanged, Time: now, Names: snap.Guild},
	}
}
