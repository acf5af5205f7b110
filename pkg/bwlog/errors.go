package bwlog

import (
	"errors"
	"fmt"

	"github.com/bwlog/bwlog-go/internal/logfinder"
)

// Sentinel errors.
var (
	// ErrSessionClosed is returned when operating on a closed Session.
	ErrSessionClosed = errors.New("session closed")

	// ErrAlreadyWatching is returned when Watch is called twice.
	ErrAlreadyWatching = errors.New("already watching")

	// ErrNotWatching is returned by Session methods that need a running
	// Watch.
	ErrNotWatching = errors.New("session is not watching")

	// ErrNoLogFiles is returned when no client log file can be found.
	ErrNoLogFiles = logfinder.ErrNoLogFiles

	// ErrUnknownClient is returned for a client key with no known log path.
	ErrUnknownClient = logfinder.ErrUnknownClient

	// ErrReplayLimitExceeded is returned when replay exceeds the configured
	// byte or line-length limits.
	ErrReplayLimitExceeded = errors.New("replay limit exceeded")

	// ErrInvalidName is returned by Track and Untrack for names that are
	// not valid player names.
	ErrInvalidName = errors.New("invalid player name")
)

// WatchOp identifies the operation that failed.
type WatchOp string

const (
	WatchOpResolve WatchOp = "resolve"
	WatchOpTail    WatchOp = "tail"
	WatchOpDetect  WatchOp = "detect"
	WatchOpReplay  WatchOp = "replay"
	WatchOpSwitch  WatchOp = "switch"
)

// WatchError is an error sent on the Session error channel.
type WatchError struct {
	Op   WatchOp
	Path string // may be empty
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *WatchError) Unwrap() error {
	return e.Err
}
