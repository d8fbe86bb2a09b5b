package storage

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/session"
)

// ErrBadContainer is returned when a file cannot be decoded as the
// pipeline format
var ErrBadContainer = errors.New("unsupported or corrupt audio file")

// Sink receives little-endian PCM bytes. Close finalizes the container; it
// does not close the underlying file.
type Sink interface {
	io.Writer
	Close() error
}

// Container encodes and decodes PCM for one file type
type Container interface {
	Ext() string
	NewSink(w io.WriteSeeker, f audio.Format) (Sink, error)
	NewSource(r io.ReadSeeker, f audio.Format) (io.Reader, error)
	// HeaderSize is the number of bytes in front of the PCM data
	HeaderSize() int64
}

// ContainerFor returns the container used by a storage mode
func ContainerFor(m session.Mode) Container {
	if m == session.Container {
		return WAVContainer{}
	}
	return RawPCM{}
}

// ModeFor returns the storage mode implied by a file's extension
func ModeFor(path string) session.Mode {
	if strings.EqualFold(filepath.Ext(path), WAVContainer{}.Ext()) {
		return session.Container
	}
	return session.Byte
}

func containerForExt(ext string) (Container, bool) {
	switch ext {
	case RawPCM{}.Ext():
		return RawPCM{}, true
	case WAVContainer{}.Ext():
		return WAVContainer{}, true
	default:
		return nil, false
	}
}

// RawPCM stores headerless PCM
type RawPCM struct{}

// Ext returns the file extension
func (RawPCM) Ext() string { return ".pcm" }

// HeaderSize returns 0
func (RawPCM) HeaderSize() int64 { return 0 }

type rawSink struct{ io.Writer }

func (rawSink) Close() error { return nil }

// NewSink returns a pass-through sink
func (RawPCM) NewSink(w io.WriteSeeker, _ audio.Format) (Sink, error) {
	return rawSink{w}, nil
}

// NewSource returns r unchanged
func (RawPCM) NewSource(r io.ReadSeeker, _ audio.Format) (io.Reader, error) {
	return r, nil
}

// WAVContainer stores PCM in a RIFF/WAVE file
type WAVContainer struct{}

// Ext returns the file extension
func (WAVContainer) Ext() string { return ".wav" }

// HeaderSize returns the size of the canonical WAV header
func (WAVContainer) HeaderSize() int64 { return 44 }

// wavPCMFormat is the WAVE_FORMAT_PCM tag
const wavPCMFormat = 1

type wavSink struct {
	enc   *wav.Encoder
	buf   *goaudio.IntBuffer
	carry []byte
}

// NewSink writes the header immediately so even an empty recording is a
// valid file
func (WAVContainer) NewSink(w io.WriteSeeker, f audio.Format) (Sink, error) {
	enc := wav.NewEncoder(w, f.SampleRate, f.BitDepth, f.Channels, wavPCMFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: f.SampleRate, NumChannels: f.Channels},
		SourceBitDepth: f.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}
	return &wavSink{enc: enc, buf: buf}, nil
}

func (s *wavSink) Write(p []byte) (int, error) {
	total := len(p)
	if len(s.carry) > 0 {
		p = append(s.carry, p...)
		s.carry = nil
	}

	samples := len(p) / 2
	if cap(s.buf.Data) < samples {
		s.buf.Data = make([]int, samples)
	}
	s.buf.Data = s.buf.Data[:samples]
	for i := range s.buf.Data {
		s.buf.Data[i] = int(int16(uint16(p[2*i]) | uint16(p[2*i+1])<<8))
	}

	if len(p)%2 == 1 {
		s.carry = []byte{p[len(p)-1]}
	}

	if samples > 0 {
		if err := s.enc.Write(s.buf); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Close updates the header sizes. A dangling half sample is dropped.
func (s *wavSink) Close() error {
	return s.enc.Close()
}

type wavSource struct {
	dec *wav.Decoder
	buf *goaudio.IntBuffer
}

// dataThenEOF reports io.EOF only on a read that returned no data. The
// decoder drops samples that arrive together with io.EOF.
type dataThenEOF struct{ io.ReadSeeker }

func (r dataThenEOF) Read(p []byte) (int, error) {
	n, err := r.ReadSeeker.Read(p)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

// NewSource validates the header against f and returns a reader of the
// little-endian PCM payload
func (WAVContainer) NewSource(r io.ReadSeeker, f audio.Format) (io.Reader, error) {
	dec := wav.NewDecoder(dataThenEOF{r})
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, dec.Err())
	}
	if int(dec.SampleRate) != f.SampleRate || int(dec.NumChans) != f.Channels || int(dec.BitDepth) != f.BitDepth {
		return nil, fmt.Errorf("%w: %d Hz, %d channel(s), %d bit",
			audio.ErrUnsupportedFormat, dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	return &wavSource{dec: dec, buf: &goaudio.IntBuffer{}}, nil
}

func (s *wavSource) Read(p []byte) (int, error) {
	samples := len(p) / 2
	if samples == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < samples {
		s.buf.Data = make([]int, samples)
	}
	s.buf.Data = s.buf.Data[:samples]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		v := uint16(int16(s.buf.Data[i]))
		p[2*i] = byte(v)
		p[2*i+1] = byte(v >> 8)
	}
	return 2 * n, nil
}
