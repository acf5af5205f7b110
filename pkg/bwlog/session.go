package bwlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bwlog/bwlog-go/internal/logfinder"
	"github.com/bwlog/bwlog-go/internal/tailer"
)

// sessionErrBuffer is the buffer size for the error channel.
// A small buffer prevents error loss during brief moments when the consumer
// is busy processing notifications, while keeping memory usage minimal.
const sessionErrBuffer = 16

// discardLogger returns a logger that discards all output.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Session follows one client log at a time and keeps the roster inferred
// from it.
//
// A single goroutine started by Watch owns the roster. Track, Untrack,
// Switch and Redetect are routed to that goroutine and wait for it, so
// they must not be called from the goroutine that drains the
// notification channel.
type Session struct {
	cfg sessionConfig // internal configuration (immutable after creation)
	id  string
	log *slog.Logger

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc // cancel func to stop the goroutine
	doneCh   chan struct{}      // signals when goroutine has exited
	reqCh    chan request
	watching bool // true if Watch() has been called

	snapMu sync.RWMutex
	snap   Snapshot
}

type requestOp int

const (
	opTrack requestOp = iota
	opUntrack
	opSwitch
	opRedetect
)

// request is a call routed to the session goroutine.
type request struct {
	op     requestOp
	name   string
	source Source
	reply  chan error
}

// NewSession creates a session using functional options.
// Validates options but does NOT start goroutines (cheap to call).
//
// Example:
//
//	s, err := bwlog.NewSession(
//	    bwlog.WithClient("lunar"),
//	    bwlog.WithSelfUsername("Steve"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	notes, errs, err := s.Watch(ctx)
func NewSession(opts ...Option) (*Session, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	// Initialize logger (use discard logger if not provided)
	log := cfg.logger
	if log == nil {
		log = discardLogger
	}

	id := uuid.NewString()
	s := &Session{
		cfg: *cfg, // copy to ensure immutability
		id:  id,
		log: log.With("session", id),
	}
	s.snap = Snapshot{
		SessionID: id,
		Active:    []Player{},
		Party:     []string{},
		Guild:     []string{},
	}
	return s, nil
}

// WatchWithOptions creates a session and starts watching.
//
// The session stops when ctx is cancelled. Use NewSession and
// Session.Watch for synchronous shutdown through Close.
func WatchWithOptions(ctx context.Context, opts ...Option) (<-chan Notification, <-chan error, error) {
	s, err := NewSession(opts...)
	if err != nil {
		return nil, nil, err
	}
	return s.Watch(ctx)
}

// ID returns the session identifier attached to logs and snapshots.
func (s *Session) ID() string {
	return s.id
}

// Watch starts the session goroutine and returns its channels.
// Both channels close on ctx.Done() or Close.
// Watch can only be called once per Session.
//
// Returns ErrSessionClosed if the session has been closed.
// Returns ErrAlreadyWatching if Watch() has already been called.
func (s *Session) Watch(ctx context.Context) (<-chan Notification, <-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	if s.watching {
		return nil, nil, ErrAlreadyWatching
	}
	s.watching = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.doneCh = make(chan struct{})
	s.reqCh = make(chan request)

	noteCh := make(chan Notification)
	errCh := make(chan error, sessionErrBuffer)

	l := &loop{
		s:      s,
		eng:    newEngine(&s.cfg),
		noteCh: noteCh,
		errCh:  errCh,
		want:   Source{Client: s.cfg.client, Path: s.cfg.logFile},
	}
	go l.run(ctx)

	return noteCh, errCh, nil
}

// Close stops the session and releases resources.
// Safe to call multiple times.
// Blocks until the goroutine has exited.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	if s.cancel != nil {
		s.cancel()
	}
	doneCh := s.doneCh
	s.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

// Snapshot returns the roster as of the last processed line.
// The returned slices must not be modified.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Track adds name to the roster with the manual origin.
func (s *Session) Track(ctx context.Context, name string) error {
	return s.do(ctx, request{op: opTrack, name: name})
}

// Untrack removes name from the roster whatever its origins.
func (s *Session) Untrack(ctx context.Context, name string) error {
	return s.do(ctx, request{op: opUntrack, name: name})
}

// Switch follows src instead of the current log. A zero Source returns
// to auto-detection. The roster is reset; guild members are kept.
// On failure the current log stays active.
func (s *Session) Switch(ctx context.Context, src Source) error {
	return s.do(ctx, request{op: opSwitch, source: src})
}

// Redetect resolves the current source preference again and switches if
// it now points to a different file.
func (s *Session) Redetect(ctx context.Context) error {
	return s.do(ctx, request{op: opRedetect})
}

func (s *Session) do(ctx context.Context, req request) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.watching {
		s.mu.Unlock()
		return ErrNotWatching
	}
	reqCh, doneCh := s.reqCh, s.doneCh
	s.mu.Unlock()

	req.reply = make(chan error, 1)
	select {
	case reqCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-doneCh:
		return ErrSessionClosed
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-doneCh:
		return ErrSessionClosed
	}
}

func (s *Session) publish(snap Snapshot) {
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

// lineSource is a followed log file; *tailer.Tailer implements it.
type lineSource interface {
	Lines() <-chan string
	Errors() <-chan error
	Stop() error
}

// loop is the state of one Watch goroutine.
type loop struct {
	s   *Session
	eng *engine

	noteCh chan<- Notification
	errCh  chan<- error

	want    Source // requested source; zero = auto-detect
	current Source // source being followed
	tail    lineSource
	started bool // the initial replay has been done
}

func (l *loop) run(ctx context.Context) {
	defer close(l.s.doneCh) // Signal that goroutine has exited
	defer close(l.noteCh)
	defer close(l.errCh)
	defer func() {
		if l.tail != nil {
			_ = l.tail.Stop()
		}
	}()

	l.publish()
	if c, err := l.resolve(l.want); err != nil {
		sendError(ctx, l.errCh, &WatchError{Op: WatchOpResolve, Path: l.want.Path, Err: err})
	} else if !l.open(ctx, c, l.s.cfg.replay) {
		return
	}

	pollTicker := time.NewTicker(l.s.cfg.pollInterval)
	defer pollTicker.Stop()
	timerTicker := time.NewTicker(l.s.cfg.timerResolution)
	defer timerTicker.Stop()

	for {
		// nil channels block, so a missing tailer only disables its cases
		var lines <-chan string
		var tailErrs <-chan error
		if l.tail != nil {
			lines, tailErrs = l.tail.Lines(), l.tail.Errors()
		}

		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				l.s.log.Debug("tailer stopped", "path", l.current.Path)
				l.tailerDied(ctx)
				continue
			}
			if !l.emit(ctx, l.eng.handleLine(line, l.s.cfg.clock())) {
				return
			}
			l.publish()
		case err, ok := <-tailErrs:
			if !ok {
				l.dropTailer()
				continue
			}
			sendError(ctx, l.errCh, &WatchError{Op: WatchOpTail, Path: l.current.Path, Err: err})
		case <-timerTicker.C:
			notes := l.eng.expire(l.s.cfg.clock())
			if len(notes) == 0 {
				continue
			}
			if !l.emit(ctx, notes) {
				return
			}
			l.publish()
		case <-pollTicker.C:
			if !l.poll(ctx) {
				return
			}
		case req := <-l.s.reqCh:
			if !l.handle(ctx, req) {
				return
			}
		}
	}
}

// poll retries detection when nothing is followed and, in auto mode,
// moves to a log that became newer than the current one.
// Returns false if ctx was cancelled.
func (l *loop) poll(ctx context.Context) bool {
	if l.tail != nil && !l.want.IsZero() {
		return true
	}

	c, err := l.resolve(l.want)
	if err != nil {
		op := WatchOpDetect
		if !l.want.IsZero() {
			op = WatchOpResolve
		}
		sendError(ctx, l.errCh, &WatchError{Op: op, Path: l.want.Path, Err: err})
		return true
	}
	if l.tail != nil && c.Path == l.current.Path {
		return true
	}

	// Only the first source honors the replay mode. A log found later
	// may hold old chat, so it is followed from its end like a Switch.
	var replay ReplayConfig
	if !l.started {
		replay = l.s.cfg.replay
	}
	l.s.log.Debug("log source detected", "client", c.Client, "path", c.Path, "previous", l.current.Path)
	return l.open(ctx, c, replay)
}

// handle serves one routed request. Returns false if ctx was cancelled.
func (l *loop) handle(ctx context.Context, req request) bool {
	now := l.s.cfg.clock()
	switch req.op {
	case opTrack, opUntrack:
		var notes []Notification
		var err error
		if req.op == opTrack {
			notes, err = l.eng.track(req.name, now)
		} else {
			notes, err = l.eng.untrack(req.name, now)
		}
		req.reply <- err
		if !l.emit(ctx, notes) {
			return false
		}
		l.publish()

	case opSwitch, opRedetect:
		want := l.want
		if req.op == opSwitch {
			want = req.source
		}
		c, err := l.resolve(want)
		if err != nil {
			req.reply <- &WatchError{Op: WatchOpSwitch, Path: want.Path, Err: err}
			return true
		}
		if l.tail != nil && c.Path == l.current.Path && req.op == opRedetect {
			req.reply <- nil
			return true
		}
		if err := l.start(ctx, c, ReplayConfig{}); err != nil {
			req.reply <- &WatchError{Op: WatchOpSwitch, Path: c.Path, Err: err}
			return true
		}
		l.want = want
		req.reply <- nil
		l.s.log.Debug("switched log source", "client", c.Client, "path", c.Path)
		return l.announce(ctx, c)
	}
	return true
}

// open starts following c and reports the switch. Start failures are
// sent to the error channel. Returns false if ctx was cancelled.
func (l *loop) open(ctx context.Context, c logfinder.Candidate, replay ReplayConfig) bool {
	if err := l.start(ctx, c, replay); err != nil {
		sendError(ctx, l.errCh, &WatchError{Op: WatchOpTail, Path: c.Path, Err: err})
		return true
	}
	if !l.announce(ctx, c) {
		return false
	}
	return l.replayLines(ctx, c, replay)
}

// start replaces the tailer with one following c and resets the roster.
// The previous tailer keeps running if the new one cannot start.
func (l *loop) start(ctx context.Context, c logfinder.Candidate, replay ReplayConfig) error {
	cfg := tailer.DefaultConfig()
	cfg.Poll = l.s.cfg.pollTail
	// ReplayLastN is handled by replayLines; the tailer then follows from the end
	cfg.FromStart = replay.Mode == ReplayFromStart

	t, err := tailer.New(ctx, c.Path, cfg)
	if err != nil {
		return err
	}
	l.s.log.Debug("started tailing", "client", c.Client, "path", c.Path, "from_start", cfg.FromStart)

	l.dropTailer()
	l.tail = t
	l.current = sourceOf(c)
	l.started = true
	return nil
}

// announce reports the new source followed by the reset lists.
func (l *loop) announce(ctx context.Context, c logfinder.Candidate) bool {
	now := l.s.cfg.clock()
	notes := append([]Notification{{
		Kind:   KindSourceChanged,
		Time:   now,
		Client: c.Client,
		Path:   c.Path,
	}}, l.eng.reset(now)...)
	if !l.emit(ctx, notes) {
		return false
	}
	l.publish()
	return true
}

// replayLines feeds the last N lines of c through the engine.
func (l *loop) replayLines(ctx context.Context, c logfinder.Candidate, replay ReplayConfig) bool {
	if replay.Mode != ReplayLastN || replay.LastN <= 0 {
		return true
	}
	l.s.log.Debug("replaying last N lines", "n", replay.LastN, "path", c.Path)

	lines, err := readLastNLines(c.Path, replay.LastN, l.s.cfg.maxReplayBytes, l.s.cfg.maxReplayLineBytes)
	if err != nil {
		sendError(ctx, l.errCh, &WatchError{Op: WatchOpReplay, Path: c.Path, Err: err})
		return true
	}
	for _, line := range lines {
		if !l.emit(ctx, l.eng.handleLine(line, l.s.cfg.clock())) {
			return false
		}
	}
	l.publish()
	return true
}

// tailerDied drops a tailer whose lines closed on its own and reports
// the errors it left buffered, including the one it died with.
func (l *loop) tailerDied(ctx context.Context) {
	tl, path := l.tail, l.current.Path
	l.dropTailer()
	if tl == nil {
		return
	}
	// Stop has waited for the tailer to exit, so Errors is closed.
	for err := range tl.Errors() {
		sendError(ctx, l.errCh, &WatchError{Op: WatchOpTail, Path: path, Err: err})
	}
}

func (l *loop) dropTailer() {
	if l.tail == nil {
		return
	}
	_ = l.tail.Stop()
	l.tail = nil
}

// resolve turns a source preference into a concrete log file.
func (l *loop) resolve(want Source) (logfinder.Candidate, error) {
	c, err := resolveSource(l.s.cfg.candidateList(), want)
	if err != nil {
		return logfinder.Candidate{}, err
	}
	l.s.log.Debug("resolved log source", "client", c.Client, "path", c.Path)
	return c, nil
}

// emit sends notes in order. Returns false if ctx was cancelled.
func (l *loop) emit(ctx context.Context, notes []Notification) bool {
	for _, n := range notes {
		select {
		case l.noteCh <- n:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (l *loop) publish() {
	snap := l.eng.snapshot()
	snap.SessionID = l.s.id
	snap.Source = l.current
	snap.UpdatedAt = l.s.cfg.clock()
	l.s.publish(snap)
}

// sendError sends an error to the error channel.
// With a buffered channel, errors are only dropped if the buffer is full.
// The context case ensures we don't block during shutdown.
func sendError(ctx context.Context, errCh chan<- error, err error) {
	if err == nil {
		return
	}
	select {
	case errCh <- err:
	case <-ctx.Done():
		// Don't block during shutdown
	default:
		// Drop error only if buffer is full (rare with buffer size 16)
	}
}
