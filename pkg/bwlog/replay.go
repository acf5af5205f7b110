package bwlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bwlog/bwlog-go/internal/safefile"
)

// replayChunkSize is the read size of the backward scanner.
const replayChunkSize = 4096

// ReplayFile runs a whole log file through a fresh roster without
// following it. Each line's "[HH:MM:SS]" stamp drives the roster clock,
// so invites, guild captures and game starts expire as they did live.
//
// Stamps are anchored on the file's modification date; a stamp earlier
// than the previous one by more than twelve hours starts the next day.
// Lines without a stamp reuse the previous time.
//
// Pending timers are not fired at end of file.
// Returns ErrReplayLimitExceeded if the file or a line exceeds the
// WithMaxReplayBytes or WithMaxReplayLineBytes limits.
func ReplayFile(ctx context.Context, path string, opts ...Option) (Snapshot, []Notification, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return Snapshot{}, nil, fmt.Errorf("invalid options: %w", err)
	}

	f, info, err := safefile.OpenRegular(path)
	if err != nil {
		return Snapshot{}, nil, &WatchError{Op: WatchOpReplay, Path: path, Err: err}
	}
	defer f.Close()

	if cfg.maxReplayBytes > 0 && info.Size() > int64(cfg.maxReplayBytes) {
		return Snapshot{}, nil, &WatchError{Op: WatchOpReplay, Path: path,
			Err: fmt.Errorf("%w: file is %d bytes, limit %d", ErrReplayLimitExceeded, info.Size(), cfg.maxReplayBytes)}
	}

	maxLine := cfg.maxReplayLineBytes
	if maxLine == 0 {
		maxLine = math.MaxInt32
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	eng := newEngine(cfg)
	clk := newLogClock(info.ModTime())
	var notes []Notification

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return Snapshot{}, nil, ctx.Err()
		default:
		}
		line := scanner.Text()
		notes = append(notes, eng.handleLine(line, clk.advance(line))...)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = fmt.Errorf("%w: line exceeds %d bytes", ErrReplayLimitExceeded, maxLine)
		}
		return Snapshot{}, nil, &WatchError{Op: WatchOpReplay, Path: path, Err: err}
	}

	// Move everything back by the number of midnights crossed so the
	// last line lands on the modification date.
	if clk.days > 0 {
		for i := range notes {
			notes[i].Time = notes[i].Time.AddDate(0, 0, -clk.days)
		}
	}

	snap := eng.snapshot()
	snap.Source = Source{Path: path}
	snap.UpdatedAt = clk.now.AddDate(0, 0, -clk.days)
	return snap, notes, nil
}

// logClock turns per-line time-of-day stamps into a monotonic clock.
type logClock struct {
	midnight time.Time
	now      time.Time
	days     int
}

func newLogClock(anchor time.Time) *logClock {
	y, m, d := anchor.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())
	return &logClock{midnight: midnight, now: midnight}
}

// advance returns the time of line and moves the clock forward to it.
func (c *logClock) advance(line string) time.Time {
	tod, ok := parseStamp(line)
	if !ok {
		return c.now
	}
	t := c.midnight.AddDate(0, 0, c.days).Add(tod)
	if t.Before(c.now) {
		if c.now.Sub(t) > 12*time.Hour {
			c.days++
			t = t.AddDate(0, 0, 1)
		} else {
			// Lines from different threads may be slightly out of order.
			t = c.now
		}
	}
	c.now = t
	return t
}

// parseStamp parses a leading "[HH:MM:SS]" stamp.
func parseStamp(line string) (time.Duration, bool) {
	if len(line) < 10 || line[0] != '[' || line[3] != ':' || line[6] != ':' || line[9] != ']' {
		return 0, false
	}
	h, ok1 := twoDigits(line[1:3])
	m, ok2 := twoDigits(line[4:6])
	s, ok3 := twoDigits(line[7:9])
	if !ok1 || !ok2 || !ok3 || h > 23 || m > 59 || s > 59 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, true
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// readLastNLines reads the last N non-empty lines from a file using backward chunk scanning.
// Returns lines in order (oldest first).
//
// Memory limits:
//   - maxBytes: Maximum total bytes to read (0 = unlimited)
//   - maxLineBytes: Maximum bytes per single line (0 = unlimited)
//
// Returns ErrReplayLimitExceeded if limits are exceeded.
func readLastNLines(path string, n int, maxBytes int, maxLineBytes int) ([]string, error) {
	file, info, err := safefile.OpenRegular(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	offset := info.Size()
	if offset == 0 || n <= 0 {
		return nil, nil
	}

	lines := make([]string, 0, n)
	var carry []byte // incomplete line following the current chunk
	totalBytes := 0

	for len(lines) < n && offset > 0 {
		readSize := int64(replayChunkSize)
		if offset < readSize {
			readSize = offset
		}
		offset -= readSize

		if maxBytes > 0 && totalBytes+int(readSize)+len(carry) > maxBytes {
			return nil, ErrReplayLimitExceeded
		}

		chunk := make([]byte, readSize, int(readSize)+len(carry))
		if _, err := file.ReadAt(chunk, offset); err != nil {
			return nil, err
		}
		totalBytes += int(readSize)
		chunk = append(chunk, carry...)

		found, rest := extractLinesBackward(chunk, n-len(lines), maxLineBytes)
		if rest == nil && maxLineBytes > 0 && len(chunk) > maxLineBytes {
			return nil, ErrReplayLimitExceeded
		}
		if len(found) > 0 {
			lines = append(found, lines...)
		}
		carry = rest
	}

	// The first line of the file has no leading newline.
	if offset == 0 && len(carry) > 0 && len(lines) < n {
		if maxLineBytes > 0 && len(carry) > maxLineBytes {
			return nil, ErrReplayLimitExceeded
		}
		if line := trimCR(string(carry)); line != "" {
			lines = append([]string{line}, lines...)
		}
	}

	return lines, nil
}

// extractLinesBackward splits the complete lines out of buffer.
// Returns at most maxLines lines (the last ones, oldest first) and the
// incomplete line at the start of the buffer. A nil rest signals a line
// longer than maxLineBytes.
func extractLinesBackward(buffer []byte, maxLines int, maxLineBytes int) ([]string, []byte) {
	var lines []string
	end := len(buffer)

	for i := len(buffer) - 1; i >= 0; i-- {
		if buffer[i] != '\n' {
			continue
		}
		lineBytes := buffer[i+1 : end]
		if maxLineBytes > 0 && len(lineBytes) > maxLineBytes {
			return lines, nil
		}
		if line := trimCR(string(lineBytes)); line != "" {
			lines = append(lines, line)
		}
		end = i
	}

	// Collected newest first
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, buffer[:end]
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
