package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bwlog/bwlog-go/pkg/bwlog"
	"github.com/bwlog/bwlog-go/pkg/bwlog/stats"
)

// validFormats lists all valid output formats.
var validFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

// formatNames returns the valid formats, sorted.
func formatNames() []string {
	names := make([]string, 0, len(validFormats))
	for f := range validFormats {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

// styles are the pretty-format colors. Rendered through a writer-bound
// renderer, so output that is not a terminal stays plain.
type styles struct {
	time    lipgloss.Style
	add     lipgloss.Style
	remove  lipgloss.Style
	info    lipgloss.Style
	mention lipgloss.Style
	faint   lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		time:    r.NewStyle().Faint(true),
		add:     r.NewStyle().Foreground(lipgloss.Color("10")),
		remove:  r.NewStyle().Foreground(lipgloss.Color("9")),
		info:    r.NewStyle().Foreground(lipgloss.Color("14")),
		mention: r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		faint:   r.NewStyle().Faint(true),
	}
}

// printer writes notifications, events and stats in one output format.
type printer struct {
	format string
	out    io.Writer
	st     styles
}

func newPrinter(format string, out io.Writer) (*printer, error) {
	if !validFormats[format] {
		return nil, fmt.Errorf("unknown format: %s (valid: %s)", format, strings.Join(formatNames(), ", "))
	}
	return &printer{format: format, out: out, st: newStyles(out)}, nil
}

// Notification writes one notification.
func (p *printer) Notification(n bwlog.Notification) error {
	if p.format == "jsonl" {
		return p.json(n)
	}
	_, err := fmt.Fprintf(p.out, "%s %s\n", p.stamp(n.Time), p.describe(n))
	return err
}

// Event writes one classified line.
func (p *printer) Event(lineNo int, ev bwlog.Event) error {
	if p.format == "jsonl" {
		return p.json(struct {
			Line int `json:"line"`
			bwlog.Event
		}{lineNo, ev})
	}
	fields := eventFields(ev)
	if fields == "" {
		_, err := fmt.Fprintf(p.out, "%s %s\n", p.st.faint.Render(fmt.Sprintf("%5d", lineNo)), ev.Type)
		return err
	}
	_, err := fmt.Fprintf(p.out, "%s %s: %s\n", p.st.faint.Render(fmt.Sprintf("%5d", lineNo)), ev.Type, fields)
	return err
}

// Stats writes the outcome of a batch lookup.
func (p *printer) Stats(results []stats.Result) error {
	for _, r := range results {
		if p.format == "jsonl" {
			rec := struct {
				Kind  string       `json:"kind"`
				Name  string       `json:"name"`
				Stats *stats.Stats `json:"stats,omitempty"`
				Error string       `json:"error,omitempty"`
			}{Kind: "stats", Name: r.Name}
			if r.Err != nil {
				rec.Error = r.Err.Error()
			} else {
				rec.Stats = &r.Stats
			}
			if err := p.json(rec); err != nil {
				return err
			}
			continue
		}

		var line string
		if r.Err != nil {
			line = p.st.faint.Render(fmt.Sprintf("  %s: no stats (%v)", r.Name, r.Err))
		} else {
			s := r.Stats
			line = fmt.Sprintf("  %s %s wins=%d losses=%d fk=%d fd=%d beds=%d",
				r.Name, p.st.info.Render(fmt.Sprintf("[%d✫]", s.Stars)),
				s.Wins, s.Losses, s.FinalKills, s.FinalDeaths, s.BedsBroken)
			if s.Winstreak != nil {
				line += " ws=" + strconv.Itoa(*s.Winstreak)
			}
		}
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot writes a roster summary.
func (p *printer) Snapshot(snap bwlog.Snapshot) error {
	if p.format == "jsonl" {
		return p.json(snap)
	}
	_, err := fmt.Fprintf(p.out, "roster (%d): %s\nparty (%d): %s\nguild (%d): %s\n",
		len(snap.Active), joinNames(snap.ActiveNames()),
		len(snap.Party), joinNames(snap.Party),
		len(snap.Guild), joinNames(snap.Guild))
	return err
}

func (p *printer) json(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

func (p *printer) stamp(t time.Time) string {
	return p.st.time.Render("[" + t.Format("15:04:05") + "]")
}

// describe renders the pretty form of n without its timestamp.
func (p *printer) describe(n bwlog.Notification) string {
	st := p.st
	switch n.Kind {
	case bwlog.KindRosterChanged:
		return fmt.Sprintf("roster (%d): %s%s", len(n.Names), joinNames(n.Names), p.changes(n))
	case bwlog.KindPartyChanged:
		return fmt.Sprintf("party (%d): %s%s", len(n.Names), joinNames(n.Names), p.changes(n))
	case bwlog.KindGuildChanged:
		return fmt.Sprintf("guild (%d): %s%s", len(n.Names), joinNames(n.Names), p.changes(n))
	case bwlog.KindGuildMemberFound:
		return st.add.Render("+ guild: " + strings.Join(n.Names, ", "))
	case bwlog.KindInviteReceived:
		if n.Outgoing {
			return st.info.Render("> invited " + n.Name)
		}
		return st.info.Render("< " + n.Name + " invited you")
	case bwlog.KindInviteExpired:
		return st.faint.Render("invite " + n.Name + " expired")
	case bwlog.KindFinalKill:
		return st.remove.Render("x " + n.Name + " final killed")
	case bwlog.KindPlayerLeft:
		return st.remove.Render("- " + n.Name + " left")
	case bwlog.KindPartyMemberLeft:
		return st.remove.Render("- " + n.Name + " left the party")
	case bwlog.KindPartyMemberKicked:
		return st.remove.Render("- " + n.Name + " was kicked from the party")
	case bwlog.KindPartyDisbanded:
		return st.remove.Render("party disbanded")
	case bwlog.KindChat:
		if n.Name == "" {
			return st.faint.Render(n.Message)
		}
		return n.Name + ": " + n.Message
	case bwlog.KindMention:
		return st.mention.Render("! " + n.Name + " mentioned you")
	case bwlog.KindTriggerMatched:
		return st.info.Render(fmt.Sprintf("* trigger %s by %s", n.TriggerID, orDash(n.Name)))
	case bwlog.KindLobbyJoined:
		return st.info.Render("> joined a lobby")
	case bwlog.KindServerChange:
		return st.info.Render("> changing server")
	case bwlog.KindGameStarting:
		return st.info.Render("> game starting")
	case bwlog.KindGameStart:
		return st.info.Render("> game started")
	case bwlog.KindSourceChanged:
		return st.info.Render(fmt.Sprintf("> following %s: %s", orDash(n.Client), n.Path))
	default:
		return fmt.Sprintf("* %s: %s", n.Kind, notificationFields(n))
	}
}

func (p *printer) changes(n bwlog.Notification) string {
	var parts []string
	if len(n.Added) > 0 {
		parts = append(parts, p.st.add.Render("+"+strings.Join(n.Added, " +")))
	}
	if len(n.Removed) > 0 {
		parts = append(parts, p.st.remove.Render("-"+strings.Join(n.Removed, " -")))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, " ")
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// notificationFields formats the non-empty scalar fields of n.
func notificationFields(n bwlog.Notification) string {
	data := map[string]string{}
	if n.Name != "" {
		data["name"] = n.Name
	}
	if len(n.Names) > 0 {
		data["names"] = strings.Join(n.Names, ",")
	}
	if n.Leader != "" {
		data["leader"] = n.Leader
	}
	if n.Message != "" {
		data["message"] = n.Message
	}
	return formatData(data)
}

// eventFields formats the non-empty fields of ev.
func eventFields(ev bwlog.Event) string {
	data := map[string]string{}
	if ev.Name != "" {
		data["name"] = ev.Name
	}
	if len(ev.Names) > 0 {
		data["names"] = strings.Join(ev.Names, ",")
	}
	if ev.Leader != "" {
		data["leader"] = ev.Leader
	}
	if ev.Role != "" {
		data["role"] = string(ev.Role)
	}
	if ev.Replace {
		data["replace"] = "true"
	}
	if ev.Outgoing {
		data["outgoing"] = "true"
	}
	if ev.Message != "" {
		data["message"] = ev.Message
	}
	if ev.Mention {
		data["mention"] = "true"
	}
	if ev.EndsCapture {
		data["ends_capture"] = "true"
	}
	return formatData(data)
}

// formatData formats a map as sorted key=value pairs.
// Values are quoted if they contain spaces, equals signs, quotes, or control characters.
func formatData(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(data))
	for _, k := range keys {
		parts = append(parts, quoteIfNeeded(k)+"="+quoteIfNeeded(data[k]))
	}
	return strings.Join(parts, " ")
}

// quoteIfNeeded quotes a value if it contains special characters or control characters.
func quoteIfNeeded(v string) string {
	if v == "" {
		return `""`
	}
	if !strings.ContainsFunc(v, func(c rune) bool {
		return c == ' ' || c == '=' || c == '"' || c == '\\' || c < 0x20 || c == 0x7F
	}) {
		return v
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range v {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c == 0x7F:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
