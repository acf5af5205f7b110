// Package tailer follows a log file line by line.
package tailer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nxadm/tail"
)

// errBuffer is the buffer size for the error channel.
const errBuffer = 16

// Config configures a Tailer.
type Config struct {
	// FromStart reads the file from the beginning instead of the end.
	FromStart bool

	// Poll checks the file for changes by polling instead of using
	// filesystem notifications.
	Poll bool

	// MustExist fails New when the file does not exist yet.
	MustExist bool
}

// DefaultConfig returns the default Config: follow new lines only and
// require the file to exist.
func DefaultConfig() Config {
	return Config{MustExist: true}
}

// Tailer follows one file. The file is re-opened when it is replaced.
type Tailer struct {
	path string
	t    *tail.Tail

	lines chan string
	errs  chan error

	stopping chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// New starts following path. The Tailer stops when ctx is cancelled or
// Stop is called; Lines is closed afterwards.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	tcfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: cfg.MustExist,
		Poll:      cfg.Poll,
		Logger:    tail.DiscardingLogger,
	}
	if !cfg.FromStart {
		tcfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, tcfg)
	if err != nil {
		return nil, fmt.Errorf("tailing %s: %w", path, err)
	}

	tl := &Tailer{
		path:     path,
		t:        t,
		lines:    make(chan string),
		errs:     make(chan error, errBuffer),
		stopping: make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go tl.forward()
	go func() {
		select {
		case <-ctx.Done():
			_ = tl.Stop()
		case <-tl.exited:
		}
	}()
	return tl, nil
}

// Path returns the followed file path.
func (tl *Tailer) Path() string {
	return tl.path
}

// Lines returns the channel of lines with trailing CR removed.
func (tl *Tailer) Lines() <-chan string {
	return tl.lines
}

// Errors returns the channel of read errors.
func (tl *Tailer) Errors() <-chan error {
	return tl.errs
}

// Stop stops following the file and waits for the internal goroutine.
// Safe to call multiple times.
func (tl *Tailer) Stop() error {
	tl.stopOnce.Do(func() {
		close(tl.stopping)
		tl.stopErr = tl.t.Stop()
		tl.t.Cleanup()
		<-tl.exited
	})
	return tl.stopErr
}

func (tl *Tailer) forward() {
	defer close(tl.exited)
	defer close(tl.errs)
	defer close(tl.lines)

	// The underlying tail blocks on send, so its channel is drained
	// until closed even after Stop.
	for line := range tl.t.Lines {
		if tl.isStopping() {
			continue
		}
		if line.Err != nil {
			tl.sendError(fmt.Errorf("reading %s: %w", tl.path, line.Err))
			continue
		}
		select {
		case tl.lines <- strings.TrimRight(line.Text, "\r"):
		case <-tl.stopping:
		}
	}

	<-tl.t.Dead()
	if err := tl.t.Err(); err != nil && !tl.isStopping() {
		tl.sendError(fmt.Errorf("tailing %s: %w", tl.path, err))
	}
}

func (tl *Tailer) isStopping() bool {
	select {
	case <-tl.stopping:
		return true
	default:
		return false
	}
}

func (tl *Tailer) sendError(err error) {
	select {
	case tl.errs <- err:
	default:
		// Drop error only if buffer is full
	}
}
