package roster

import "strings"

// nameSet is an insertion-ordered set of player names. Lookups are
// case-insensitive; the casing of the first add is kept for display.
type nameSet struct {
	keys    []string
	display map[string]string
}

func newNameSet() *nameSet {
	return &nameSet{display: make(map[string]string)}
}

func key(name string) string {
	return strings.ToLower(name)
}

// add reports whether name was not already present.
func (s *nameSet) add(name string) bool {
	k := key(name)
	if _, ok := s.display[k]; ok {
		return false
	}
	s.keys = append(s.keys, k)
	s.display[k] = name
	return true
}

// remove reports whether name was present.
func (s *nameSet) remove(name string) bool {
	k := key(name)
	if _, ok := s.display[k]; !ok {
		return false
	}
	delete(s.display, k)
	for i, existing := range s.keys {
		if existing == k {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

func (s *nameSet) has(name string) bool {
	_, ok := s.display[key(name)]
	return ok
}

// clear reports whether the set was non-empty.
func (s *nameSet) clear() bool {
	if len(s.keys) == 0 {
		return false
	}
	s.keys = nil
	s.display = make(map[string]string)
	return true
}

func (s *nameSet) len() int {
	return len(s.keys)
}

// list returns the display names in insertion order.
func (s *nameSet) list() []string {
	out := make([]string, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.display[k]
	}
	return out
}
