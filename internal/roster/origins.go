package roster

import "github.com/bwlog/bwlog-go/pkg/bwlog/event"

// origins is the set of reasons a name is on the active roster.
type origins uint8

const (
	originWho origins = 1 << iota
	originParty
	originGuild
	originInvite
	originChat
	originManual
)

var originNames = []struct {
	bit  origins
	name event.Origin
}{
	{originWho, event.OriginWho},
	{originParty, event.OriginParty},
	{originGuild, event.OriginGuild},
	{originInvite, event.OriginInvite},
	{originChat, event.OriginChat},
	{originManual, event.OriginManual},
}

// originOf maps an event origin to its bit. Unknown origins map to manual.
func originOf(o event.Origin) origins {
	for _, n := range originNames {
		if n.name == o {
			return n.bit
		}
	}
	return originManual
}

func (o origins) has(bit origins) bool {
	return o&bit != 0
}

func (o origins) list() []event.Origin {
	var out []event.Origin
	for _, n := range originNames {
		if o.has(n.bit) {
			out = append(out, n.name)
		}
	}
	return out
}
