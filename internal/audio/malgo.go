package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// malgoPeriodMillis is miniaudio's default period when none is requested
const malgoPeriodMillis = 10

// ringPeriods is how many device buffers the bridge between the callback
// and the blocking stream can hold
const ringPeriods = 8

// MalgoDriver implements Driver using miniaudio through malgo. Device
// callbacks are bridged to blocking Read/Write calls with a RingBuffer.
type MalgoDriver struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// NewMalgoDriver initializes a miniaudio context
func NewMalgoDriver() (*MalgoDriver, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &MalgoDriver{ctx: ctx}, nil
}

// Name returns the backend name
func (d *MalgoDriver) Name() string {
	return BackendMalgo
}

// ListDevices returns capture devices followed by playback devices
func (d *MalgoDriver) ListDevices() ([]Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return nil, fmt.Errorf("%w: driver closed", ErrInvalidOperation)
	}

	captures, err := d.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	playbacks, err := d.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	devices := make([]Device, 0, len(captures)+len(playbacks))
	for i, info := range captures {
		devices = append(devices, Device{
			ID:            i,
			Name:          info.Name(),
			IsDefault:     info.IsDefault > 0,
			InputChannels: 1,
		})
	}
	for i, info := range playbacks {
		devices = append(devices, Device{
			ID:             i,
			Name:           info.Name(),
			IsDefault:      info.IsDefault > 0,
			OutputChannels: 1,
		})
	}
	return devices, nil
}

// MinBufferSize returns one default miniaudio period
func (d *MalgoDriver) MinBufferSize(dir Direction, cfg Config) (int, error) {
	frames := cfg.Format.SampleRate * malgoPeriodMillis / 1000
	if cfg.Latency == HighStability {
		frames *= 4
	}
	return frames * cfg.Format.FrameSize(), nil
}

func (d *MalgoDriver) deviceConfig(dir Direction, cfg Config, bufferSize int) (malgo.DeviceConfig, error) {
	kind := malgo.Capture
	if dir == Playback {
		kind = malgo.Playback
	}

	dc := malgo.DefaultDeviceConfig(kind)
	dc.SampleRate = uint32(cfg.Format.SampleRate)
	dc.PeriodSizeInFrames = uint32(bufferSize / cfg.Format.FrameSize())

	sub := malgo.SubConfig{
		Format:   malgo.FormatS16,
		Channels: uint32(cfg.Format.Channels),
	}

	if cfg.DeviceID >= 0 {
		infos, err := d.ctx.Devices(kind)
		if err != nil {
			return dc, fmt.Errorf("failed to enumerate devices: %w", err)
		}
		if cfg.DeviceID >= len(infos) {
			return dc, fmt.Errorf("%w: invalid device ID %d", ErrBadValue, cfg.DeviceID)
		}
		sub.DeviceID = infos[cfg.DeviceID].ID.Pointer()
	}

	if dir == Capture {
		dc.Capture = sub
	} else {
		dc.Playback = sub
	}
	return dc, nil
}

func (d *MalgoDriver) start(dir Direction, cfg Config, bufferSize int, ring *RingBuffer, onData malgo.DataProc) (*malgoStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return nil, fmt.Errorf("%w: driver closed", ErrInvalidOperation)
	}

	dc, err := d.deviceConfig(dir, cfg, bufferSize)
	if err != nil {
		return nil, err
	}

	s := &malgoStream{ring: ring}
	callbacks := malgo.DeviceCallbacks{
		Data: onData,
		Stop: func() {
			// Stop fires for our own Close as well; only an unrequested stop is a lost device
			if !s.stopping.Load() {
				ring.CloseWithError(ErrDeadObject)
			}
		},
	}

	device, err := malgo.InitDevice(d.ctx.Context, dc, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	s.device = device
	return s, nil
}

// OpenCapture opens a capture device whose callback feeds a ring buffer
func (d *MalgoDriver) OpenCapture(cfg Config, bufferSize int) (CaptureStream, error) {
	ring := NewRingBuffer(bufferSize * ringPeriods)
	s, err := d.start(Capture, cfg, bufferSize, ring, func(_, input []byte, _ uint32) {
		ring.Offer(input)
	})
	if err != nil {
		return nil, err
	}
	return &malgoCapture{s}, nil
}

// OpenPlayback opens a playback device whose callback drains a ring buffer
func (d *MalgoDriver) OpenPlayback(cfg Config, bufferSize int) (PlaybackStream, error) {
	ring := NewRingBuffer(bufferSize * ringPeriods)
	s, err := d.start(Playback, cfg, bufferSize, ring, func(output, _ []byte, _ uint32) {
		n := ring.Poll(output)
		clear(output[n:])
	})
	if err != nil {
		return nil, err
	}
	return &malgoPlayback{s}, nil
}

// Close releases the miniaudio context
func (d *MalgoDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return nil
	}
	err := d.ctx.Uninit()
	d.ctx.Free()
	d.ctx = nil
	if err != nil {
		return fmt.Errorf("failed to uninitialize malgo context: %w", err)
	}
	return nil
}

type malgoStream struct {
	device   *malgo.Device
	ring     *RingBuffer
	stopping atomic.Bool
}

func (s *malgoStream) close() error {
	s.stopping.Store(true)
	err := s.device.Stop()
	s.device.Uninit()
	s.ring.Close()
	if err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

type malgoCapture struct{ *malgoStream }

func (c *malgoCapture) Read(p []byte) (int, error) {
	return c.ring.Read(p)
}

func (c *malgoCapture) Close() error {
	return c.close()
}

type malgoPlayback struct{ *malgoStream }

func (w *malgoPlayback) Write(p []byte) (int, error) {
	return w.ring.Write(p)
}

func (w *malgoPlayback) Close() error {
	// Let queued audio reach the device before stopping it
	w.ring.Drain()
	return w.close()
}
