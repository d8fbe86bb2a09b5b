// Package pump moves fixed-size PCM buffers between a device and a file.
// Both loops run on the caller's goroutine and observe the active
// predicate once per chunk.
package pump

import (
	"errors"
	"fmt"
	"io"

	"github.com/yok-tottii/EzRec/internal/audio"
)

// Outcome is how a pump loop ended
type Outcome int

const (
	// Success means the loop ended on a stop request (capture) or end of file (playback)
	Success Outcome = iota
	// Failure means a device or file operation failed
	Failure
	// Aborted means playback was interrupted before end of file
	Aborted
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// ErrEmptyRead is returned when the capture source yields no bytes
var ErrEmptyRead = errors.New("capture source returned no data")

var frameSize = audio.DefaultFormat().FrameSize()

// Result summarizes a pump run
type Result struct {
	Outcome Outcome
	Bytes   int64
	Chunks  int
	// Trailing counts bytes left at the end of playback input that did not
	// fill a whole frame. They are not written.
	Trailing int
}

// Progress receives the running byte total after every chunk. May be nil.
type Progress func(total int64)

// Capture reads from src into buf and appends every block to dst while
// active reports true. A read that yields no data ends the loop with Failure.
func Capture(src io.Reader, dst io.Writer, buf []byte, active func() bool, progress Progress) (Result, error) {
	var res Result
	if len(buf) == 0 {
		res.Outcome = Failure
		return res, fmt.Errorf("capture: empty buffer")
	}

	for active() {
		n, err := src.Read(buf)
		if n <= 0 {
			res.Outcome = Failure
			if err == nil {
				err = ErrEmptyRead
			}
			return res, fmt.Errorf("capture read: %w", err)
		}

		if _, werr := dst.Write(buf[:n]); werr != nil {
			res.Outcome = Failure
			return res, fmt.Errorf("capture write: %w", werr)
		}

		res.Bytes += int64(n)
		res.Chunks++
		if progress != nil {
			progress(res.Bytes)
		}

		// A short read that also reports an error still delivered data
		if err != nil {
			res.Outcome = Failure
			return res, fmt.Errorf("capture read: %w", err)
		}
	}

	res.Outcome = Success
	return res, nil
}

// Playback reads chunks from src and writes them to dst until the source is
// exhausted. A device write error ends the loop immediately with Failure.
// When active turns false first the outcome is Aborted.
func Playback(src io.Reader, dst io.Writer, buf []byte, active func() bool, progress Progress) (Result, error) {
	var res Result
	if len(buf) == 0 {
		res.Outcome = Failure
		return res, fmt.Errorf("playback: empty buffer")
	}

	// carry holds a torn frame until the rest of it arrives
	carry := 0
	for {
		if !active() {
			res.Outcome = Aborted
			return res, nil
		}

		n, err := src.Read(buf[carry:])
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			res.Outcome = Failure
			return res, fmt.Errorf("playback read: %w", err)
		}

		avail := carry + n
		whole := avail - avail%frameSize
		if whole > 0 {
			if _, werr := dst.Write(buf[:whole]); werr != nil {
				res.Outcome = Failure
				return res, fmt.Errorf("playback write: %w", werr)
			}
			res.Bytes += int64(whole)
			res.Chunks++
			if progress != nil {
				progress(res.Bytes)
			}
		}
		carry = copy(buf, buf[whole:avail])

		if eof || n == 0 {
			res.Outcome = Success
			res.Trailing = carry
			return res, nil
		}
	}
}
