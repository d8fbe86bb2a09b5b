package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yok-tottii/EzRec/internal/session"
)

// Kind identifies what happened to a session
type Kind int

const (
	// RecordingStarted is posted once the capture device and file are open
	RecordingStarted Kind = iota
	// RecordingSucceeded is posted when a recording longer than the minimum ends
	RecordingSucceeded
	// RecordingTooShort is posted when a recording ends before the minimum duration
	RecordingTooShort
	// RecordingFailed is posted when acquisition or transfer fails
	RecordingFailed
	// PlaybackStarted is posted once the playback device and file are open
	PlaybackStarted
	// PlaybackFinished is posted when playback reaches the end of the file or is aborted
	PlaybackFinished
	// PlaybackFailed is posted when acquisition or transfer fails
	PlaybackFailed
	// Progress carries the running byte count of an active session
	Progress
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case RecordingStarted:
		return "RecordingStarted"
	case RecordingSucceeded:
		return "RecordingSucceeded"
	case RecordingTooShort:
		return "RecordingTooShort"
	case RecordingFailed:
		return "RecordingFailed"
	case PlaybackStarted:
		return "PlaybackStarted"
	case PlaybackFinished:
		return "PlaybackFinished"
	case PlaybackFailed:
		return "PlaybackFailed"
	case Progress:
		return "Progress"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the kind ends a session
func (k Kind) Terminal() bool {
	switch k {
	case RecordingSucceeded, RecordingTooShort, RecordingFailed, PlaybackFinished, PlaybackFailed:
		return true
	default:
		return false
	}
}

// Event is a session result delivered to the control goroutine
type Event struct {
	Kind      Kind
	SessionID uuid.UUID
	Direction session.Direction
	Mode      session.Mode
	Outcome   session.Outcome
	File      string
	Duration  time.Duration
	Bytes     int64
	Err       error
	At        time.Time
}

// Reporter is an unbounded single-consumer event queue. Post never blocks;
// a forwarding goroutine feeds Events in posting order.
type Reporter struct {
	mu      sync.Mutex
	pending []Event
	closed  bool

	signal chan struct{}
	out    chan Event
}

// NewReporter creates a reporter and starts its forwarding goroutine
func NewReporter() *Reporter {
	r := &Reporter{
		signal: make(chan struct{}, 1),
		out:    make(chan Event),
	}
	go r.forward()
	return r
}

// Post queues an event. Events posted after Close are dropped and Post
// returns false.
func (r *Reporter) Post(ev Event) bool {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.pending = append(r.pending, ev)
	r.mu.Unlock()

	r.wake()
	return true
}

// Events returns the delivery channel. It is closed after Close once every
// queued event has been received.
func (r *Reporter) Events() <-chan Event {
	return r.out
}

// Close stops accepting events. Already queued events are still delivered,
// so the consumer must drain Events until it is closed or the forwarding
// goroutine stays blocked.
func (r *Reporter) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wake()
}

func (r *Reporter) wake() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *Reporter) take() ([]Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := r.pending
	r.pending = nil
	return batch, r.closed
}

func (r *Reporter) forward() {
	defer close(r.out)
	for {
		batch, closed := r.take()
		for _, ev := range batch {
			r.out <- ev
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-r.signal
	}
}
