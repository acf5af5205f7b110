// Package classifier maps Minecraft client log lines to Bedwars events.
package classifier

import (
	"strings"

	"github.com/bwlog/bwlog-go/pkg/bwlog/event"
)

// State is the read-only view of roster flags some rules depend on.
type State struct {
	// InLobby enables the party list and lobby-only party rules.
	InLobby bool

	// InGuildCapture enables guild listing member extraction.
	InGuildCapture bool

	// AwaitingInviteContinuation makes the follow-up lines of a bare
	// invite line classify as event.InviteContinuation.
	AwaitingInviteContinuation bool

	// SelfUsername is the local player's name. Used for mention
	// detection and the outgoing invite self-check.
	SelfUsername string
}

// Classify classifies one log line.
//
// Lines without the "[CHAT]" marker are only checked against the bare
// invite rules. Chat lines are stripped of color codes and matched
// against the rule table in order; the first matching rule wins.
// Lines nothing recognises yield an event.Unclassified event.
func Classify(line string, st State) event.Event {
	// Trim trailing CR for Windows CRLF compatibility
	line = strings.TrimRight(line, "\r")

	i := strings.Index(line, chatMarker)
	if i < 0 {
		return classifyBare(line, st)
	}

	msg := strings.TrimSpace(StripColorCodes(strings.TrimSpace(line[i+len(chatMarker):])))
	if msg == "" {
		return unclassified()
	}

	for _, r := range rules {
		if ev, ok := r.match(msg, st); ok {
			return ev
		}
	}
	return unclassified()
}

// RuleNames returns the rule table names in priority order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

func classifyBare(line string, st State) event.Event {
	clean := strings.TrimSpace(StripColorCodes(line))
	if clean == "" {
		return unclassified()
	}

	if m := bareInvitePattern.FindStringSubmatch(clean); m != nil {
		return event.Event{Type: event.PartyInvite, Name: m[1]}
	}
	if st.AwaitingInviteContinuation && inviteContinuationPattern.MatchString(clean) {
		return event.Event{Type: event.InviteContinuation}
	}
	return unclassified()
}

func unclassified() event.Event {
	return event.Event{Type: event.Unclassified}
}
