// Package recording is the control surface of the recorder. The control
// goroutine calls RequestStart, RequestStop and RequestPlay; each accepted
// request becomes one session run by a single worker goroutine, and its
// results come back on Events.
package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/notification"
	"github.com/yok-tottii/EzRec/internal/pump"
	"github.com/yok-tottii/EzRec/internal/session"
	"github.com/yok-tottii/EzRec/internal/storage"
	"github.com/yok-tottii/EzRec/internal/worker"
)

// Config holds configuration for the engine
type Config struct {
	// MinDuration is the length a recording must exceed to be kept
	MinDuration time.Duration
	Capture     audio.Config
	Playback    audio.Config
	// ProgressInterval throttles Progress events; 0 disables them
	ProgressInterval time.Duration
	// Clock defaults to time.Now
	Clock func() time.Time
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MinDuration:      3 * time.Second,
		Capture:          audio.DefaultConfig(),
		Playback:         audio.DefaultConfig(),
		ProgressInterval: time.Second,
		Clock:            time.Now,
	}
}

// Status is a point-in-time view of the engine
type Status struct {
	session.Snapshot
	SessionID uuid.UUID
	File      string
	Started   time.Time
	LastFile  string
}

type current struct {
	id      uuid.UUID
	file    string
	started time.Time
}

// Engine owns the session machine, the worker and the result queue
type Engine struct {
	driver audio.Driver
	store  *storage.Store
	cfg    Config
	log    *logger.Logger

	machine  session.Machine
	worker   *worker.Worker
	reporter *notification.Reporter

	minDuration atomic.Int64
	active      atomic.Pointer[current]

	mu       sync.Mutex
	lastFile string

	shutdownOnce sync.Once
}

// New creates an engine and starts its worker
func New(driver audio.Driver, store *storage.Store, cfg Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	e := &Engine{
		driver:   driver,
		store:    store,
		cfg:      cfg,
		log:      log,
		worker:   worker.New(log),
		reporter: notification.NewReporter(),
	}
	e.minDuration.Store(int64(cfg.MinDuration))
	return e
}

// RequestStart starts a recording in the given mode. It returns false and
// does nothing unless the engine is idle.
func (e *Engine) RequestStart(mode session.Mode) bool {
	return e.submit(session.New(session.Record, mode), e.record)
}

// RequestStop asks the running recording to stop at the next chunk
// boundary. It returns false and does nothing unless a recording is
// starting or active.
func (e *Engine) RequestStop() bool {
	return e.machine.RequestStop(session.Record)
}

// RequestPlay plays a recording. An empty path plays the last successful
// recording. It returns false and does nothing when the engine is busy or
// there is nothing to play.
func (e *Engine) RequestPlay(path string) bool {
	if path == "" {
		path = e.LastFile()
		if path == "" {
			return false
		}
	}
	s := session.New(session.Play, storage.ModeFor(path))
	s.File = path
	return e.submit(s, e.play)
}

func (e *Engine) submit(s *session.Session, run func(context.Context, *session.Session)) bool {
	if !e.machine.TryStart(s.Direction, s.Mode) {
		return false
	}

	name := fmt.Sprintf("%s %s", s.Direction, s.ID)
	if err := e.worker.Submit(name, func(ctx context.Context) { run(ctx, s) }); err != nil {
		e.log.Warn("Rejected %s: %v", name, err)
		e.machine.Fail()
		e.machine.Finish()
		return false
	}
	return true
}

// Events returns the result channel. It is closed after Shutdown once all
// results have been received.
func (e *Engine) Events() <-chan notification.Event {
	return e.reporter.Events()
}

// State returns the current session state
func (e *Engine) State() session.State {
	return e.machine.State()
}

// Status returns the machine snapshot with details of the running session
func (e *Engine) Status() Status {
	st := Status{Snapshot: e.machine.Load(), LastFile: e.LastFile()}
	if c := e.active.Load(); c != nil && st.State != session.Idle {
		st.SessionID = c.id
		st.File = c.file
		st.Started = c.started
	}
	return st
}

// LastFile returns the most recent successful recording, or "" if there is
// none. Play is only offered when it is set.
func (e *Engine) LastFile() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFile
}

func (e *Engine) setLastFile(path string) {
	e.mu.Lock()
	e.lastFile = path
	e.mu.Unlock()
}

func (e *Engine) clearLastFile(path string) {
	e.mu.Lock()
	if e.lastFile == path {
		e.lastFile = ""
	}
	e.mu.Unlock()
}

// MinDuration returns the current minimum recording length
func (e *Engine) MinDuration() time.Duration {
	return time.Duration(e.minDuration.Load())
}

// SetMinDuration changes the minimum recording length for later sessions
func (e *Engine) SetMinDuration(d time.Duration) {
	e.minDuration.Store(int64(d))
}

// Devices lists the driver's audio endpoints
func (e *Engine) Devices() ([]audio.Device, error) {
	return e.driver.ListDevices()
}

// Recordings lists stored recordings, newest first
func (e *Engine) Recordings() ([]storage.Recording, error) {
	return e.store.List()
}

// Store returns the recording store
func (e *Engine) Store() *storage.Store {
	return e.store
}

// Shutdown drops queued sessions, stops the running one and waits for it to
// release its device and file. Its final events are still delivered, then
// Events is closed. Callers must keep draining Events until it is closed;
// undelivered events hold the reporter's goroutine.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		if n := e.worker.Shutdown(); n > 0 {
			e.log.Info("Discarded %d queued session(s)", n)
		}
		// A discarded session never left Starting
		if e.machine.Fail() {
			e.machine.Finish()
		}
		e.reporter.Close()
	})
}

func (e *Engine) event(kind notification.Kind, s *session.Session) notification.Event {
	return notification.Event{
		Kind:      kind,
		SessionID: s.ID,
		Direction: s.Direction,
		Mode:      s.Mode,
		Outcome:   s.Outcome,
		File:      s.File,
		Duration:  s.Duration(),
		Bytes:     s.Bytes,
		Err:       s.Err,
		At:        e.cfg.Clock(),
	}
}

func (e *Engine) progress(s *session.Session) pump.Progress {
	interval := e.cfg.ProgressInterval
	if interval <= 0 {
		return nil
	}
	last := s.Started
	return func(total int64) {
		now := e.cfg.Clock()
		if now.Sub(last) < interval {
			return
		}
		last = now
		ev := e.event(notification.Progress, s)
		ev.Bytes = total
		ev.Duration = now.Sub(s.Started)
		e.reporter.Post(ev)
	}
}

// running is the pump predicate: the worker has not been shut down and
// no stop was requested
func (e *Engine) running(ctx context.Context) func() bool {
	return func() bool {
		return ctx.Err() == nil && e.machine.Running()
	}
}

func (e *Engine) activate(s *session.Session, log *logger.Logger) {
	s.Started = e.cfg.Clock()
	e.active.Store(&current{id: s.ID, file: s.File, started: s.Started})
	if !e.machine.Activate() {
		log.Warn("Unexpected state %s on activate", e.machine.State())
	}
}

// fail ends a session that never became or did not stay healthy
func (e *Engine) fail(s *session.Session, kind notification.Kind, err error, log *logger.Logger) {
	if s.Stopped.IsZero() && !s.Started.IsZero() {
		s.Stopped = e.cfg.Clock()
	}
	s.Outcome = session.Failure
	s.Err = err
	log.Error("%s failed: %v", s.Direction, err)

	e.machine.Fail()
	e.active.Store(nil)
	e.machine.Finish()
	e.reporter.Post(e.event(kind, s))
}

// release closes both ends of a session; errors are logged and otherwise
// ignored
func release(log *logger.Logger, what string, closers ...func() error) {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("Failed to release %s: %v", what, err)
	}
}

// sessionGuard owns what a session body has acquired. The device is
// released before the file, once, on every exit path.
type sessionGuard struct {
	log    *logger.Logger
	what   string
	device func() error
	file   func() error
	ended  bool // terminal event posted
	once   sync.Once
}

func (g *sessionGuard) release() {
	g.once.Do(func() {
		var closers []func() error
		if g.device != nil {
			closers = append(closers, g.device)
		}
		if g.file != nil {
			closers = append(closers, g.file)
		}
		release(g.log, g.what, closers...)
	})
}

// recoverSession is deferred by session bodies. A panic releases the
// session's resources and ends it with a failure event.
func (e *Engine) recoverSession(s *session.Session, g *sessionGuard, kind notification.Kind) {
	r := recover()
	g.release()
	if r == nil {
		return
	}
	if g.ended {
		g.log.Error("Panic after %s ended: %v", s.Direction, r)
		return
	}
	e.abort(s, g, kind, fmt.Errorf("panic: %v", r))
}

// abort releases what the session holds, then reports the failure
func (e *Engine) abort(s *session.Session, g *sessionGuard, kind notification.Kind, err error) {
	g.release()
	g.ended = true
	e.fail(s, kind, err, g.log)
}

func (e *Engine) record(ctx context.Context, s *session.Session) {
	log := e.log.With("session", s.ID.String())
	g := &sessionGuard{log: log, what: "recording"}
	defer e.recoverSession(s, g, notification.RecordingFailed)

	capture, err := audio.OpenCapture(e.driver, e.cfg.Capture)
	if err != nil {
		e.abort(s, g, notification.RecordingFailed, fmt.Errorf("failed to acquire capture device: %w", err))
		return
	}
	g.device = capture.Close

	sink, err := e.store.Create(s.Mode)
	if err != nil {
		e.abort(s, g, notification.RecordingFailed, err)
		return
	}
	g.file = sink.Close
	s.File = sink.Path()

	e.activate(s, log)
	log.Info("Recording to %s (buffer %d bytes)", s.File, capture.BufferSize())
	e.reporter.Post(e.event(notification.RecordingStarted, s))

	buf := make([]byte, capture.BufferSize())
	res, err := pump.Capture(capture, sink, buf, e.running(ctx), e.progress(s))
	s.Stopped = e.cfg.Clock()
	s.Bytes = res.Bytes

	if res.Outcome == pump.Failure {
		e.abort(s, g, notification.RecordingFailed, err)
		return
	}

	e.machine.BeginStopping()
	g.release()

	kind := notification.RecordingSucceeded
	if session.LongEnough(s.Duration(), e.MinDuration()) {
		s.Outcome = session.Success
		e.setLastFile(s.File)
		log.Info("Recorded %d bytes in %s", s.Bytes, s.Duration())
	} else {
		kind = notification.RecordingTooShort
		s.Outcome = session.TooShort
		if err := e.store.Remove(s.File); err != nil {
			log.Warn("Failed to remove short recording: %v", err)
		}
		log.Info("Recording too short (%s), discarded", s.Duration())
	}

	e.active.Store(nil)
	e.machine.Finish()
	g.ended = true
	e.reporter.Post(e.event(kind, s))
}

func (e *Engine) play(ctx context.Context, s *session.Session) {
	log := e.log.With("session", s.ID.String())
	g := &sessionGuard{log: log, what: "playback"}
	defer e.recoverSession(s, g, notification.PlaybackFailed)

	src, err := e.store.Open(s.File)
	if err != nil {
		e.clearLastFile(s.File)
		e.abort(s, g, notification.PlaybackFailed, err)
		return
	}
	g.file = src.Close

	playback, err := audio.OpenPlayback(e.driver, e.cfg.Playback)
	if err != nil {
		e.abort(s, g, notification.PlaybackFailed, fmt.Errorf("failed to acquire playback device: %w", err))
		return
	}
	g.device = playback.Close

	e.activate(s, log)
	log.Info("Playing %s (buffer %d bytes)", s.File, playback.BufferSize())
	e.reporter.Post(e.event(notification.PlaybackStarted, s))

	buf := make([]byte, playback.BufferSize())
	res, err := pump.Playback(src, playback, buf, e.running(ctx), e.progress(s))
	s.Stopped = e.cfg.Clock()
	s.Bytes = res.Bytes
	if res.Trailing > 0 {
		log.Warn("Dropped %d trailing byte(s) of %s, not a whole frame", res.Trailing, s.File)
	}

	if res.Outcome == pump.Failure {
		e.clearLastFile(s.File)
		e.abort(s, g, notification.PlaybackFailed, err)
		return
	}

	e.machine.BeginStopping()
	g.release()

	s.Outcome = session.Success
	if res.Outcome == pump.Aborted {
		s.Outcome = session.Aborted
	}
	log.Info("Playback %s after %d bytes", s.Outcome, s.Bytes)

	e.active.Store(nil)
	e.machine.Finish()
	g.ended = true
	e.reporter.Post(e.event(notification.PlaybackFinished, s))
}
