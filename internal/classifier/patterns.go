package classifier

import "regexp"

// chatMarker precedes every chat line in the client log:
// "[22:00:01] [Client thread/INFO]: [CHAT] message"
const chatMarker = "[CHAT]"

// rankTag matches an optional leading "[MVP+] " style prefix.
const rankTag = `(?:\[[^\]]*\]\s*)?`

// nameGroup captures a Minecraft display name.
const nameGroup = `([A-Za-z0-9_]{3,16})`

// Compiled regex patterns for event detection.
var (
	// "§a" / "§L" formatting codes.
	colorCodePattern = regexp.MustCompile(`(?i)§[0-9a-fk-or]`)

	validNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

	// Party list tokens: names only, rank tags and bullets are dropped.
	wordPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

	// Matches: "[MVP+] Bob has invited you to join their party!"
	// Captures: (1) inviter
	inviteTheirPattern = regexp.MustCompile(
		`^` + rankTag + nameGroup + ` has invited you to join their party!`,
	)

	// Matches: "[MVP+] Bob has invited you to join [VIP] Alice's party!"
	// Captures: (1) inviter, (2) party leader
	inviteLeaderPattern = regexp.MustCompile(
		`^` + rankTag + nameGroup + ` has invited you to join ` + rankTag + nameGroup + `'s party!`,
	)

	// Matches: "[MVP+] Me invited [VIP] Bob to the party! They have 60 seconds to accept."
	// Captures: (1) inviter, (2) invitee
	outgoingInvitePattern = regexp.MustCompile(
		`^` + rankTag + nameGroup + ` invited ` + rankTag + nameGroup + ` to the party!`,
	)

	// Matches: "The party invite from [VIP] Bob has expired"
	// Matches: "The party invite to Bob has expired"
	// Captures: (1) name
	inviteExpiredPattern = regexp.MustCompile(
		`^The party invite (?:from|to) ` + rankTag + nameGroup + ` has expired`,
	)

	// Invite lines logged without the chat marker.
	// Captures: (1) inviter
	bareInvitePattern = regexp.MustCompile(
		`(?i)\b` + nameGroup + `\s+has invited you to join their party`,
	)

	// Decorative lines that follow a bare invite line.
	inviteContinuationPattern = regexp.MustCompile(
		`(?i)(?:you have \d+ seconds|click here to join)`,
	)

	// Matches: "-- Guild Master --", "---- Officer ----"
	guildSectionPattern = regexp.MustCompile(`^-{2,}\s*[^-]+?\s*-{2,}$`)

	// Matches full-width chat separators: "-------------"
	guildBarPattern = regexp.MustCompile(`^-{3,}$`)

	// A guild member entry followed by the online bullet. The bullet is
	// often logged as "?" by clients writing the log in a legacy charset.
	// A "?" bullet counts only when spaced like a listing entry, so
	// "bedwars? or skywars?" is not read as two members.
	// Captures: (1) name
	guildMemberPattern = regexp.MustCompile(
		rankTag + `\b` + nameGroup + `(?:\s*●|\s+\?(?:\s{2}|$))`,
	)

	// Matches: "[MVP+] Bob ●", "[MVP+] Bob ?" or "[MVP+] Bob"
	guildRankMemberPattern = regexp.MustCompile(
		`^\[[^\]]*\]\s*` + nameGroup + `(?:\s*●|\s+\?)?$`,
	)

	// Matches: "Bob ●" or "Bob ?" but not "Why?"
	guildBareMemberPattern = regexp.MustCompile(
		`^` + nameGroup + `(?:\s*●|\s+\?)$`,
	)

	// Matches: "Guild > [MVP+] Bob left." / "Guild > Bob joined."
	// Captures: (1) name, (2) direction
	guildLivePattern = regexp.MustCompile(
		`^Guild > ` + rankTag + nameGroup + ` (left|joined)\.$`,
	)
)

// guildFooterPrefixes end a guild listing.
var guildFooterPrefixes = []string{
	"Total Members:",
	"Online Members:",
	"Offline Members:",
}

// partyListPrefixes introduce one role section of /party list output.
var partyListPrefixes = []struct {
	prefix string
	role   string
}{
	{"Party Leader:", "leader"},
	{"Party Moderators:", "moderator"},
	{"Party Members:", "member"},
}
