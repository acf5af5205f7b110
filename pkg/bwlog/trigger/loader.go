package trigger

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bwlog/bwlog-go/internal/safefile"
)

const (
	// MaxFileSize is the maximum allowed size for a trigger file (1MB).
	MaxFileSize = 1 * 1024 * 1024

	// MaxRegexLength is the maximum allowed length of a trigger or speaker
	// regular expression (512 bytes).
	MaxRegexLength = 512

	// MaxTriggerCount is the maximum number of triggers in one file.
	MaxTriggerCount = 1000

	// SupportedVersion is the currently supported trigger file format version.
	SupportedVersion = 1
)

// Load reads and parses a trigger file from the given path.
// Non-regular files (FIFOs, devices, symlinks) and files larger than
// MaxFileSize are rejected.
//
// Example:
//
//	tf, err := trigger.Load("triggers.yaml")
//	if err != nil {
//	    log.Fatalf("failed to load trigger file: %v", err)
//	}
func Load(path string) (*File, error) {
	data, err := safefile.ReadLimited(path, MaxFileSize)
	if err != nil {
		if errors.Is(err, safefile.ErrEmpty) {
			return nil, errors.New("trigger file is empty")
		}
		return nil, fmt.Errorf("failed to read trigger file: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a trigger file from a byte slice.
func LoadBytes(data []byte) (*File, error) {
	if len(data) == 0 {
		return nil, errors.New("trigger file is empty")
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("trigger file too large: %d bytes (max %d)", len(data), MaxFileSize)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// Validate performs schema-level validation on the trigger file: version,
// trigger count, required fields, unique IDs and regex length limits.
//
// Regular expressions are compiled by New, not here.
func (f *File) Validate() error {
	if f.Version != SupportedVersion {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (only version %d is supported)", f.Version, SupportedVersion),
		}
	}

	if len(f.Triggers) == 0 {
		return &ValidationError{
			Field:   "triggers",
			Message: "at least one trigger is required",
		}
	}

	if len(f.Triggers) > MaxTriggerCount {
		return &ValidationError{
			Field:   "triggers",
			Message: fmt.Sprintf("too many triggers (%d), maximum allowed is %d", len(f.Triggers), MaxTriggerCount),
		}
	}

	seenIDs := make(map[string]int, len(f.Triggers))

	for i, tr := range f.Triggers {
		if tr.ID == "" {
			return &TriggerError{Index: i, Field: "id", Message: "id is required"}
		}
		if tr.Regex == "" {
			return &TriggerError{Index: i, ID: tr.ID, Field: "regex", Message: "regex is required"}
		}

		if prev, exists := seenIDs[tr.ID]; exists {
			return &TriggerError{
				Index:   i,
				ID:      tr.ID,
				Field:   "id",
				Message: fmt.Sprintf("duplicate id (previously defined at trigger[%d])", prev),
			}
		}
		seenIDs[tr.ID] = i

		if len(tr.Regex) > MaxRegexLength {
			return &TriggerError{
				Index:   i,
				ID:      tr.ID,
				Field:   "regex",
				Message: fmt.Sprintf("regex too long: %d bytes (max %d)", len(tr.Regex), MaxRegexLength),
			}
		}
		if len(tr.Speaker) > MaxRegexLength {
			return &TriggerError{
				Index:   i,
				ID:      tr.ID,
				Field:   "speaker",
				Message: fmt.Sprintf("regex too long: %d bytes (max %d)", len(tr.Speaker), MaxRegexLength),
			}
		}
	}

	return nil
}
