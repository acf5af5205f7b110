package trigger

import (
	"testing"
)

// FuzzLoadBytes tests LoadBytes with arbitrary YAML input to ensure
// it never panics and properly validates input.
func FuzzLoadBytes(f *testing.F) {
	// Seed with valid YAML
	f.Add([]byte(`version: 1
triggers:
  - id: test
    regex: 'party me'`))

	// Seed with edge cases
	f.Add([]byte(""))                  // Empty
	f.Add([]byte("not yaml"))          // Invalid YAML
	f.Add([]byte("version: 999"))      // Unsupported version
	f.Add([]byte("version: 1"))        // No triggers
	f.Add(make([]byte, MaxFileSize+1)) // Too large
	f.Add([]byte{0xff, 0xfe, 0xfd})    // Invalid UTF-8

	f.Fuzz(func(t *testing.T, data []byte) {
		tf, err := LoadBytes(data)
		if err != nil {
			if tf != nil {
				t.Error("LoadBytes returned both a file and an error")
			}
			return
		}
		if tf.Version != SupportedVersion {
			t.Errorf("LoadBytes accepted version %d", tf.Version)
		}
		if len(tf.Triggers) == 0 || len(tf.Triggers) > MaxTriggerCount {
			t.Errorf("LoadBytes accepted %d triggers", len(tf.Triggers))
		}
		// Compilation may fail, but must not panic.
		_, _ = New(tf)
	})
}

// FuzzMatcher_Match ensures Match never panics on arbitrary chat input.
func FuzzMatcher_Match(f *testing.F) {
	m, err := New(&File{
		Version: 1,
		Triggers: []Trigger{
			{ID: "party", Regex: `(?i)\bp(arty)? ?me\b`},
			{ID: "named", Regex: `fkdr`, Speaker: `^[A-Z]`},
		},
	})
	if err != nil {
		f.Fatalf("Failed to create matcher: %v", err)
	}

	f.Add("Alice", "p me")
	f.Add("", "fkdr")
	f.Add("Bob", string([]byte{0xff, 0xfe}))
	f.Add("", "")

	f.Fuzz(func(t *testing.T, speaker, message string) {
		for _, match := range m.Match(speaker, message) {
			if match.ID == "" {
				t.Error("Match returned an empty id")
			}
			if match.Speaker != speaker {
				t.Errorf("Match speaker = %q, want %q", match.Speaker, speaker)
			}
		}
	})
}
