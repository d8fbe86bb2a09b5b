package audio

import (
	"errors"
	"fmt"
)

// Direction is the data flow of a device stream
type Direction int

const (
	// Capture reads PCM from an input device
	Capture Direction = iota
	// Playback writes PCM to an output device
	Playback
)

// String returns the string representation of the direction
func (d Direction) String() string {
	switch d {
	case Capture:
		return "capture"
	case Playback:
		return "playback"
	default:
		return "unknown"
	}
}

// ChunkSize is the transfer unit of the pump in bytes
const ChunkSize = 2048

var (
	// ErrInvalidOperation is returned when a handle is used after release
	// or a stream is not in a usable state
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrBadValue is returned for malformed buffers or parameters
	ErrBadValue = errors.New("bad value")
	// ErrDeadObject is returned when the device went away under a live stream
	ErrDeadObject = errors.New("dead object")
	// ErrCaptureRead is returned when a capture read produced no data
	ErrCaptureRead = errors.New("capture read returned no data")
	// ErrDeviceBusy is returned when a handle for the direction is already live
	ErrDeviceBusy = errors.New("device handle already open")
	// ErrUnsupportedFormat is returned for anything but 44.1kHz mono 16-bit PCM
	ErrUnsupportedFormat = errors.New("unsupported PCM format")
)

// Format describes the PCM layout. Samples are signed little-endian.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns 44.1kHz mono 16-bit PCM, the only format the engine moves
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		Channels:   1,
		BitDepth:   16,
	}
}

// Validate rejects every format other than DefaultFormat
func (f Format) Validate() error {
	if f != DefaultFormat() {
		return fmt.Errorf("%w: %d Hz, %d ch, %d bit", ErrUnsupportedFormat, f.SampleRate, f.Channels, f.BitDepth)
	}
	return nil
}

// FrameSize returns the number of bytes per frame
func (f Format) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

// BytesPerSecond returns the byte rate of the format
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Device represents an audio endpoint
type Device struct {
	ID             int
	Name           string
	IsDefault      bool
	InputChannels  int
	OutputChannels int
}

// LatencyMode selects which device latency the minimum buffer is derived from
type LatencyMode int

const (
	// LowLatency uses the device's low latency (small buffers)
	LowLatency LatencyMode = iota
	// HighStability uses the device's high latency (larger buffer)
	HighStability
)

// Config holds the stream configuration for one direction
type Config struct {
	DeviceID  int // -1 means use default device
	Format    Format
	ChunkSize int
	Latency   LatencyMode
}

// DefaultConfig returns the default stream configuration
func DefaultConfig() Config {
	return Config{
		DeviceID:  -1,
		Format:    DefaultFormat(),
		ChunkSize: ChunkSize,
		Latency:   LowLatency,
	}
}

// BufferSize returns max(minimum, chunk) rounded up to a whole frame
func BufferSize(minimum, chunk int, f Format) int {
	size := max(minimum, chunk)
	if fs := f.FrameSize(); fs > 0 && size%fs != 0 {
		size += fs - size%fs
	}
	return size
}

// CaptureStream is an open input stream. Read blocks until data is available.
type CaptureStream interface {
	Read(p []byte) (int, error)
	Close() error
}

// PlaybackStream is an open output stream. Write blocks until the device accepted p.
type PlaybackStream interface {
	Write(p []byte) (int, error)
	Close() error
}

// Driver is the interface for audio backends
// Implementations exist for PortAudio, miniaudio (malgo) and a dummy device
type Driver interface {
	// Name returns the backend name
	Name() string

	// ListDevices returns the available audio endpoints
	ListDevices() ([]Device, error)

	// MinBufferSize returns the platform minimum buffer in bytes for the direction
	MinBufferSize(dir Direction, cfg Config) (int, error)

	// OpenCapture opens and starts an input stream with the given buffer size in bytes
	OpenCapture(cfg Config, bufferSize int) (CaptureStream, error)

	// OpenPlayback opens and starts an output stream with the given buffer size in bytes
	OpenPlayback(cfg Config, bufferSize int) (PlaybackStream, error)

	// Close releases all backend resources
	Close() error
}

// Backend names accepted by NewDriver
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
	BackendDummy     = "dummy"
)

// NewDriver creates the driver for the named backend
func NewDriver(backend string) (Driver, error) {
	switch backend {
	case BackendPortAudio, "":
		d, err := NewPortAudioDriver()
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendMalgo:
		d, err := NewMalgoDriver()
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendDummy:
		return NewDummyDriver(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", backend)
	}
}
