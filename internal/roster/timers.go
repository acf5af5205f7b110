package roster

import (
	"sort"
	"time"
)

type timerKind uint8

const (
	timerInvite timerKind = iota
	timerGuildCapture
	timerGameStart
)

func (k timerKind) String() string {
	switch k {
	case timerInvite:
		return "invite"
	case timerGuildCapture:
		return "guild_capture"
	case timerGameStart:
		return "game_start"
	default:
		return "unknown"
	}
}

// timerKey identifies a pending timer. Scheduling under an existing key
// replaces the previous deadline.
type timerKey struct {
	kind timerKind
	name string // lower-cased; empty for session-wide timers
}

type timer struct {
	key      timerKey
	deadline time.Time
	name     string // display name
	seq      uint64
}

// scheduler holds deadlines on the logical clock passed to Apply/Expire.
// It never starts goroutines.
type scheduler struct {
	pending map[timerKey]timer
	seq     uint64
}

func newScheduler() *scheduler {
	return &scheduler{pending: make(map[timerKey]timer)}
}

func (s *scheduler) schedule(kind timerKind, name string, deadline time.Time) {
	k := timerKey{kind: kind, name: key(name)}
	s.seq++
	s.pending[k] = timer{key: k, deadline: deadline, name: name, seq: s.seq}
}

func (s *scheduler) cancel(kind timerKind, name string) bool {
	k := timerKey{kind: kind, name: key(name)}
	if _, ok := s.pending[k]; !ok {
		return false
	}
	delete(s.pending, k)
	return true
}

func (s *scheduler) cancelAll() {
	s.pending = make(map[timerKey]timer)
}

// due removes and returns the timers whose deadline is not after now,
// oldest deadline first.
func (s *scheduler) due(now time.Time) []timer {
	var out []timer
	for k, t := range s.pending {
		if !t.deadline.After(now) {
			out = append(out, t)
			delete(s.pending, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].deadline.Equal(out[j].deadline) {
			return out[i].deadline.Before(out[j].deadline)
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// next returns the earliest pending deadline.
func (s *scheduler) next() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, t := range s.pending {
		if !found || t.deadline.Before(earliest) {
			earliest = t.deadline
			found = true
		}
	}
	return earliest, found
}

func (s *scheduler) len() int {
	return len(s.pending)
}
