package audio

import (
	"sync/atomic"
	"time"
)

// DummyDriver is a device-less backend. Capture yields silence and
// playback discards, both paced at the real byte rate of the format.
// It is used for dry runs and on hosts without audio hardware.
type DummyDriver struct {
	// Pace disables real-time pacing when false
	Pace bool

	captured atomic.Int64
	played   atomic.Int64
}

// NewDummyDriver creates a paced dummy driver
func NewDummyDriver() *DummyDriver {
	return &DummyDriver{Pace: true}
}

// Name returns the backend name
func (d *DummyDriver) Name() string {
	return BackendDummy
}

// ListDevices returns a single duplex device
func (d *DummyDriver) ListDevices() ([]Device, error) {
	return []Device{{
		ID:             0,
		Name:           "Dummy Device",
		IsDefault:      true,
		InputChannels:  1,
		OutputChannels: 1,
	}}, nil
}

// MinBufferSize is zero, so the chunk size always wins
func (d *DummyDriver) MinBufferSize(Direction, Config) (int, error) {
	return 0, nil
}

// OpenCapture returns a silence source
func (d *DummyDriver) OpenCapture(cfg Config, bufferSize int) (CaptureStream, error) {
	return &dummyStream{driver: d, rate: cfg.Format.BytesPerSecond(), counter: &d.captured}, nil
}

// OpenPlayback returns a discarding sink
func (d *DummyDriver) OpenPlayback(cfg Config, bufferSize int) (PlaybackStream, error) {
	return &dummyStream{driver: d, rate: cfg.Format.BytesPerSecond(), counter: &d.played}, nil
}

// Close is a no-op
func (d *DummyDriver) Close() error {
	return nil
}

// Captured returns the number of silent bytes produced so far
func (d *DummyDriver) Captured() int64 {
	return d.captured.Load()
}

// Played returns the number of bytes discarded so far
func (d *DummyDriver) Played() int64 {
	return d.played.Load()
}

type dummyStream struct {
	driver  *DummyDriver
	rate    int
	counter *atomic.Int64
}

func (s *dummyStream) pace(n int) {
	if s.driver.Pace && s.rate > 0 {
		time.Sleep(time.Duration(n) * time.Second / time.Duration(s.rate))
	}
	s.counter.Add(int64(n))
}

func (s *dummyStream) Read(p []byte) (int, error) {
	clear(p)
	s.pace(len(p))
	return len(p), nil
}

func (s *dummyStream) Write(p []byte) (int, error) {
	s.pace(len(p))
	return len(p), nil
}

func (s *dummyStream) Close() error {
	return nil
}
