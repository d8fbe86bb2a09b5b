package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDriver implements Driver using PortAudio blocking streams
type PortAudioDriver struct {
	mu          sync.Mutex
	initialized bool
}

// NewPortAudioDriver creates a new PortAudio driver
func NewPortAudioDriver() (*PortAudioDriver, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &PortAudioDriver{initialized: true}, nil
}

// Name returns the backend name
func (d *PortAudioDriver) Name() string {
	return BackendPortAudio
}

// ListDevices returns all devices with at least one input or output channel
func (d *PortAudioDriver) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	// Either default may be missing on headless hosts
	defaultInput, _ := portaudio.DefaultInputDevice()
	defaultOutput, _ := portaudio.DefaultOutputDevice()

	var result []Device
	for i, dev := range devices {
		if dev.MaxInputChannels <= 0 && dev.MaxOutputChannels <= 0 {
			continue
		}
		isDefault := (defaultInput != nil && dev.Name == defaultInput.Name) ||
			(defaultOutput != nil && dev.Name == defaultOutput.Name)

		result = append(result, Device{
			ID:             i,
			Name:           dev.Name,
			IsDefault:      isDefault,
			InputChannels:  dev.MaxInputChannels,
			OutputChannels: dev.MaxOutputChannels,
		})
	}

	return result, nil
}

// device resolves the configured device for the direction
func (d *PortAudioDriver) device(dir Direction, id int) (*portaudio.DeviceInfo, error) {
	var (
		dev *portaudio.DeviceInfo
		err error
	)

	if id == -1 {
		if dir == Capture {
			dev, err = portaudio.DefaultInputDevice()
		} else {
			dev, err = portaudio.DefaultOutputDevice()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get default %s device: %w", dir, err)
		}
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("failed to list devices: %w", err)
		}
		if id < 0 || id >= len(devices) {
			return nil, fmt.Errorf("%w: invalid device ID %d", ErrBadValue, id)
		}
		dev = devices[id]
	}

	if dir == Capture && dev.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("%w: device '%s' (ID: %d) has no input channels", ErrBadValue, dev.Name, id)
	}
	if dir == Playback && dev.MaxOutputChannels <= 0 {
		return nil, fmt.Errorf("%w: device '%s' (ID: %d) has no output channels", ErrBadValue, dev.Name, id)
	}
	return dev, nil
}

func latencyFor(dev *portaudio.DeviceInfo, dir Direction, mode LatencyMode) time.Duration {
	switch {
	case dir == Capture && mode == HighStability:
		return dev.DefaultHighInputLatency
	case dir == Capture:
		return dev.DefaultLowInputLatency
	case mode == HighStability:
		return dev.DefaultHighOutputLatency
	default:
		return dev.DefaultLowOutputLatency
	}
}

// MinBufferSize derives the minimum buffer from the device's default latency
func (d *PortAudioDriver) MinBufferSize(dir Direction, cfg Config) (int, error) {
	dev, err := d.device(dir, cfg.DeviceID)
	if err != nil {
		return 0, err
	}
	latency := latencyFor(dev, dir, cfg.Latency)
	frames := int(math.Ceil(latency.Seconds() * float64(cfg.Format.SampleRate)))
	return frames * cfg.Format.FrameSize(), nil
}

func (d *PortAudioDriver) open(dir Direction, cfg Config, bufferSize int) (*portaudio.Stream, []int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, nil, fmt.Errorf("%w: driver closed", ErrInvalidOperation)
	}

	dev, err := d.device(dir, cfg.DeviceID)
	if err != nil {
		return nil, nil, err
	}

	frames := bufferSize / cfg.Format.FrameSize()
	samples := make([]int16, frames*cfg.Format.Channels)

	params := portaudio.StreamParameters{
		SampleRate:      float64(cfg.Format.SampleRate),
		FramesPerBuffer: frames,
	}
	deviceParams := portaudio.StreamDeviceParameters{
		Device:   dev,
		Channels: cfg.Format.Channels,
		Latency:  latencyFor(dev, dir, cfg.Latency),
	}
	if dir == Capture {
		params.Input = deviceParams
	} else {
		params.Output = deviceParams
	}

	// Passing a buffer instead of a callback opens a blocking stream
	stream, err := portaudio.OpenStream(params, samples)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, nil, fmt.Errorf("failed to start stream: %w", err)
	}

	return stream, samples, nil
}

// OpenCapture opens a blocking input stream
func (d *PortAudioDriver) OpenCapture(cfg Config, bufferSize int) (CaptureStream, error) {
	stream, samples, err := d.open(Capture, cfg, bufferSize)
	if err != nil {
		return nil, err
	}
	return &paCapture{
		stream:  stream,
		samples: samples,
		staging: make([]byte, len(samples)*2),
	}, nil
}

// OpenPlayback opens a blocking output stream
func (d *PortAudioDriver) OpenPlayback(cfg Config, bufferSize int) (PlaybackStream, error) {
	stream, samples, err := d.open(Playback, cfg, bufferSize)
	if err != nil {
		return nil, err
	}
	return &paPlayback{stream: stream, samples: samples}, nil
}

// Close terminates PortAudio
func (d *PortAudioDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil
	}
	d.initialized = false

	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// paCapture adapts a blocking int16 stream to byte reads
type paCapture struct {
	stream  *portaudio.Stream
	samples []int16
	staging []byte
	pending []byte
}

func (c *paCapture) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		// An overflow still delivers a full buffer; only the dropped frames are lost
		if err := c.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return 0, err
		}
		for i, s := range c.samples {
			binary.LittleEndian.PutUint16(c.staging[i*2:], uint16(s))
		}
		c.pending = c.staging
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *paCapture) Close() error {
	return closeStream(c.stream)
}

// paPlayback adapts byte writes to a blocking int16 stream
type paPlayback struct {
	stream  *portaudio.Stream
	samples []int16
}

func (w *paPlayback) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		chunk := p[written:]
		n := min(len(chunk)/2, len(w.samples))
		if n == 0 {
			return written, fmt.Errorf("%w: trailing odd byte", ErrBadValue)
		}
		for i := 0; i < n; i++ {
			w.samples[i] = int16(binary.LittleEndian.Uint16(chunk[i*2:]))
		}
		// The stream always consumes a full buffer; pad the tail with silence
		clear(w.samples[n:])

		if err := w.stream.Write(); err != nil {
			if errors.Is(err, portaudio.OutputUnderflowed) {
				written += n * 2
				continue
			}
			return written, err
		}
		written += n * 2
	}
	return written, nil
}

func (w *paPlayback) Close() error {
	return closeStream(w.stream)
}

func closeStream(stream *portaudio.Stream) error {
	stopErr := stream.Stop()
	closeErr := stream.Close()
	if err := errors.Join(stopErr, closeErr); err != nil {
		return fmt.Errorf("failed to release stream: %w", err)
	}
	return nil
}
