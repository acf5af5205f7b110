// Package logfinder provides Minecraft client log file detection.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

// EnvLogFile is the environment variable name for specifying the log file.
const EnvLogFile = "BWLOG_LOG_FILE"

// ClientCustom is the client key reported for explicit and env paths.
const ClientCustom = "custom"

// Client keys.
const (
	ClientVanilla       = "vanilla"
	ClientLunar         = "lunar"
	ClientLunarMultiver = "lunar_multiver"
	ClientBadlion       = "badlion"
	ClientForge         = "forge"
	ClientPvPLounge     = "pvplounge"
)

// Sentinel errors.
var (
	ErrNoLogFiles     = errors.New("no log files found")
	ErrLogFileInvalid = errors.New("log file not found or not a regular file")
	ErrUnknownClient  = errors.New("unknown client")
)

// Candidate is a client key paired with the path its log is written to.
type Candidate struct {
	Client string `json:"client"`
	Path   string `json:"path"`
}

// DefaultCandidates returns the candidate log files for the running OS.
func DefaultCandidates() []Candidate {
	home, _ := os.UserHomeDir()
	appData := os.Getenv("APPDATA")
	if appData == "" && home != "" {
		appData = filepath.Join(home, "AppData", "Roaming")
	}
	return CandidatesFor(runtime.GOOS, home, appData)
}

// CandidatesFor returns the candidate log files for goos given the user's
// home directory and, on Windows, the roaming AppData directory.
func CandidatesFor(goos, home, appData string) []Candidate {
	if home == "" {
		return nil
	}

	var mcDir, pvpDir string
	switch goos {
	case "windows":
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		mcDir = filepath.Join(appData, ".minecraft")
		pvpDir = filepath.Join(appData, ".pvplounge")
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		mcDir = filepath.Join(support, "minecraft")
		pvpDir = filepath.Join(support, ".pvplounge")
	default:
		mcDir = filepath.Join(home, ".minecraft")
		pvpDir = filepath.Join(home, ".pvplounge")
	}

	lunar := filepath.Join(home, ".lunarclient", "offline")

	return []Candidate{
		{ClientVanilla, filepath.Join(mcDir, "logs", "latest.log")},
		{ClientLunar, filepath.Join(lunar, "1.8", "logs", "latest.log")},
		{ClientLunarMultiver, filepath.Join(lunar, "multiver", "logs", "latest.log")},
		{ClientBadlion, filepath.Join(mcDir, "logs", "blclient", "minecraft", "latest.log")},
		{ClientForge, filepath.Join(mcDir, "logs", "fml-client-latest.log")},
		{ClientPvPLounge, filepath.Join(pvpDir, "logs", "latest.log")},
	}
}

// Clients returns the sorted list of known client keys.
func Clients() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, c := range CandidatesFor("linux", "/", "") {
		if _, ok := seen[c.Client]; ok {
			continue
		}
		seen[c.Client] = struct{}{}
		keys = append(keys, c.Client)
	}
	sort.Strings(keys)
	return keys
}

// logCandidate holds a candidate and its cached modification time.
// This avoids race conditions where files are deleted between stat and sort.
type logCandidate struct {
	Candidate
	modTime int64
}

// FindNewest returns the existing candidate with the most recent
// modification time.
//
// Returns ErrNoLogFiles if no candidate is an existing regular file.
func FindNewest(cands []Candidate) (Candidate, error) {
	found := make([]logCandidate, 0, len(cands))
	for _, c := range cands {
		info, err := os.Stat(c.Path)
		if err != nil {
			// Skip files that can't be stat'd (missing, permission issues, etc.)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		found = append(found, logCandidate{Candidate: c, modTime: info.ModTime().UnixNano()})
	}

	if len(found) == 0 {
		return Candidate{}, ErrNoLogFiles
	}

	// Newest first; ties keep candidate order
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].modTime > found[j].modTime
	})

	return found[0].Candidate, nil
}

// Resolve returns the log file to watch using DefaultCandidates.
// See ResolveFrom.
func Resolve(explicit, client string) (Candidate, error) {
	return ResolveFrom(explicit, client, DefaultCandidates())
}

// ResolveFrom returns the log file to watch.
//
// Priority:
//  1. explicit (if non-empty)
//  2. BWLOG_LOG_FILE environment variable
//  3. client key (if non-empty), looked up in cands
//  4. newest existing file among cands
//
// The returned path has symlinks resolved for consistency.
func ResolveFrom(explicit, client string, cands []Candidate) (Candidate, error) {
	// 1. Check explicit
	if explicit != "" {
		resolved, err := resolveLogFile(explicit)
		if err != nil {
			return Candidate{}, fmt.Errorf("%w: %s", ErrLogFileInvalid, explicit)
		}
		return Candidate{Client: ClientCustom, Path: resolved}, nil
	}

	// 2. Check environment variable
	if envFile := os.Getenv(EnvLogFile); envFile != "" {
		resolved, err := resolveLogFile(envFile)
		if err != nil {
			return Candidate{}, fmt.Errorf("%w: %s environment variable points to %s", ErrLogFileInvalid, EnvLogFile, envFile)
		}
		return Candidate{Client: ClientCustom, Path: resolved}, nil
	}

	// 3. Named client
	if client != "" {
		for _, c := range cands {
			if c.Client != client {
				continue
			}
			resolved, err := resolveLogFile(c.Path)
			if err != nil {
				return Candidate{}, fmt.Errorf("%w: %s has no log at %s", ErrNoLogFiles, client, c.Path)
			}
			return Candidate{Client: c.Client, Path: resolved}, nil
		}
		return Candidate{}, fmt.Errorf("%w: %q", ErrUnknownClient, client)
	}

	// 4. Auto-detect
	newest, err := FindNewest(cands)
	if err != nil {
		return Candidate{}, err
	}
	resolved, err := resolveLogFile(newest.Path)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %s", ErrLogFileInvalid, newest.Path)
	}
	return Candidate{Client: newest.Client, Path: resolved}, nil
}

// resolveLogFile resolves symlinks and checks that path is a regular file.
func resolveLogFile(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", ErrLogFileInvalid
	}
	return resolved, nil
}
