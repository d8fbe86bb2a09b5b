package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// live tracks the open handle per direction. At most one handle per
// direction exists in the process at any time.
var live [2]atomic.Bool

func claim(dir Direction) error {
	if !live[dir].CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", dir, ErrDeviceBusy)
	}
	return nil
}

func unclaim(dir Direction) {
	live[dir].Store(false)
}

// IsOpen reports whether a handle for the direction is currently live
func IsOpen(dir Direction) bool {
	return live[dir].Load()
}

// handle is the release bookkeeping shared by both directions
type handle struct {
	dir        Direction
	format     Format
	bufferSize int
	once       sync.Once
	closed     atomic.Bool
	closeErr   error
}

func (h *handle) release(closeFn func() error) error {
	h.once.Do(func() {
		h.closed.Store(true)
		h.closeErr = closeFn()
		unclaim(h.dir)
	})
	return h.closeErr
}

// BufferSize returns the negotiated buffer size in bytes
func (h *handle) BufferSize() int {
	return h.bufferSize
}

// CaptureHandle is an exclusive, open capture device
type CaptureHandle struct {
	handle
	stream CaptureStream
}

// PlaybackHandle is an exclusive, open playback device
type PlaybackHandle struct {
	handle
	stream PlaybackStream
}

func negotiate(d Driver, dir Direction, cfg Config) (int, error) {
	if err := cfg.Format.Validate(); err != nil {
		return 0, err
	}
	if cfg.ChunkSize <= 0 {
		return 0, fmt.Errorf("%w: chunk size %d", ErrBadValue, cfg.ChunkSize)
	}
	minimum, err := d.MinBufferSize(dir, cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to query minimum %s buffer: %w", dir, err)
	}
	return BufferSize(minimum, cfg.ChunkSize, cfg.Format), nil
}

// OpenCapture acquires the capture device. The returned handle must be
// closed exactly once; Close is idempotent.
func OpenCapture(d Driver, cfg Config) (*CaptureHandle, error) {
	if err := claim(Capture); err != nil {
		return nil, err
	}

	size, err := negotiate(d, Capture, cfg)
	if err != nil {
		unclaim(Capture)
		return nil, err
	}

	stream, err := d.OpenCapture(cfg, size)
	if err != nil {
		unclaim(Capture)
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}

	return &CaptureHandle{
		handle: handle{dir: Capture, format: cfg.Format, bufferSize: size},
		stream: stream,
	}, nil
}

// Read blocks for the next block of PCM. A read that yields no data is an error.
func (h *CaptureHandle) Read(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrInvalidOperation
	}
	if len(p) == 0 {
		return 0, ErrBadValue
	}

	n, err := h.stream.Read(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrCaptureRead, err)
	}
	if n <= 0 {
		return 0, ErrCaptureRead
	}
	return n, nil
}

// Close stops and releases the device
func (h *CaptureHandle) Close() error {
	return h.release(h.stream.Close)
}

// OpenPlayback acquires the playback device. The returned handle must be
// closed exactly once; Close is idempotent.
func OpenPlayback(d Driver, cfg Config) (*PlaybackHandle, error) {
	if err := claim(Playback); err != nil {
		return nil, err
	}

	size, err := negotiate(d, Playback, cfg)
	if err != nil {
		unclaim(Playback)
		return nil, err
	}

	stream, err := d.OpenPlayback(cfg, size)
	if err != nil {
		unclaim(Playback)
		return nil, fmt.Errorf("failed to open playback stream: %w", err)
	}

	return &PlaybackHandle{
		handle: handle{dir: Playback, format: cfg.Format, bufferSize: size},
		stream: stream,
	}, nil
}

// Write submits PCM to the device. It returns nil or an error wrapping one of
// ErrInvalidOperation, ErrBadValue or ErrDeadObject.
func (h *PlaybackHandle) Write(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrInvalidOperation
	}
	if len(p) == 0 || len(p)%h.format.FrameSize() != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a whole number of frames", ErrBadValue, len(p))
	}

	n, err := h.stream.Write(p)
	if err != nil {
		return n, classifyWriteError(err)
	}
	return n, nil
}

// Close drains and releases the device
func (h *PlaybackHandle) Close() error {
	return h.release(h.stream.Close)
}

func classifyWriteError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrBadValue), errors.Is(err, ErrDeadObject):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrDeadObject, err)
	}
}
