package trigger

import (
	"fmt"
	"regexp"
)

// Matcher matches chat messages against compiled triggers.
// Matcher is safe for concurrent use by multiple goroutines.
type Matcher struct {
	triggers []*compiledTrigger
}

type compiledTrigger struct {
	id      string
	regex   *regexp.Regexp
	speaker *regexp.Regexp // nil matches any speaker
}

// Match is one trigger that matched a chat message.
type Match struct {
	ID      string `json:"id"`
	Speaker string `json:"speaker"`
}

// New compiles every trigger of f.
// Returns a *TriggerError if any regular expression is invalid.
func New(f *File) (*Matcher, error) {
	if f == nil {
		return nil, fmt.Errorf("trigger file is nil")
	}

	triggers := make([]*compiledTrigger, 0, len(f.Triggers))
	for i, tr := range f.Triggers {
		re, err := regexp.Compile(tr.Regex)
		if err != nil {
			return nil, &TriggerError{
				Index:   i,
				ID:      tr.ID,
				Field:   "regex",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
				Cause:   err,
			}
		}

		ct := &compiledTrigger{id: tr.ID, regex: re}
		if tr.Speaker != "" {
			sre, err := regexp.Compile(tr.Speaker)
			if err != nil {
				return nil, &TriggerError{
					Index:   i,
					ID:      tr.ID,
					Field:   "speaker",
					Message: fmt.Sprintf("invalid regular expression: %v", err),
					Cause:   err,
				}
			}
			ct.speaker = sre
		}
		triggers = append(triggers, ct)
	}

	return &Matcher{triggers: triggers}, nil
}

// NewFromFile loads a trigger file and compiles it in one step.
func NewFromFile(path string) (*Matcher, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(f)
}

// Len returns the number of triggers.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.triggers)
}

// Match returns every trigger matching message, in file order.
// A trigger with a speaker restriction never matches an empty speaker.
func (m *Matcher) Match(speaker, message string) []Match {
	if m == nil {
		return nil
	}

	var matches []Match
	for _, ct := range m.triggers {
		if ct.speaker != nil && (speaker == "" || !ct.speaker.MatchString(speaker)) {
			continue
		}
		if !ct.regex.MatchString(message) {
			continue
		}
		matches = append(matches, Match{ID: ct.id, Speaker: speaker})
	}
	return matches
}
