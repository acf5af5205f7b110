// Package trigger loads chat trigger files. A trigger is a regular
// expression matched against chat messages; a match marks the speaker as
// a player of interest.
package trigger

// File represents the structure of a YAML trigger file.
//
// Example YAML file:
//
//	version: 1
//	triggers:
//	  - id: party_up
//	    regex: '(?i)\b(p|party) ?me\b'
//	  - id: bw_stats
//	    regex: '(?i)\bfkdr\b'
//	    speaker: '^[A-Z]'
type File struct {
	// Version is the trigger file format version. Currently only version 1 is supported.
	Version int `yaml:"version"`

	// Triggers is the list of trigger definitions.
	Triggers []Trigger `yaml:"triggers"`
}

// Trigger is a single chat trigger definition.
type Trigger struct {
	// ID is a unique identifier for this trigger (e.g., "party_up").
	ID string `yaml:"id"`

	// Regex is matched against the chat message text.
	Regex string `yaml:"regex"`

	// Speaker optionally restricts the trigger to speakers whose name
	// matches this regular expression.
	Speaker string `yaml:"speaker,omitempty"`
}
