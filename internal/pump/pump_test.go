package pump

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource yields full buffers of a fixed byte and can fail on a given read
type countingSource struct {
	reads  int
	failAt int // 1-based read index that returns 0 bytes; 0 never fails
	err    error
}

func (s *countingSource) Read(p []byte) (int, error) {
	s.reads++
	if s.failAt > 0 && s.reads >= s.failAt {
		return 0, s.err
	}
	for i := range p {
		p[i] = byte(s.reads)
	}
	return len(p), nil
}

// failingWriter fails on the nth write
type failingWriter struct {
	bytes.Buffer
	writes int
	failAt int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.failAt > 0 && w.writes >= w.failAt {
		return 0, errors.New("dead object")
	}
	return w.Buffer.Write(p)
}

// untilChunks returns an active predicate that turns false after n checks
func untilChunks(n int) func() bool {
	calls := 0
	return func() bool {
		calls++
		return calls <= n
	}
}

func TestCaptureStopsOnRequest(t *testing.T) {
	src := &countingSource{}
	var dst bytes.Buffer
	var progress []int64

	res, err := Capture(src, &dst, make([]byte, 2048), untilChunks(3), func(total int64) {
		progress = append(progress, total)
	})

	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	assert.EqualValues(t, 3*2048, res.Bytes)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3*2048, dst.Len())
	assert.Equal(t, []int64{2048, 4096, 6144}, progress)
}

func TestCaptureNotActiveWritesNothing(t *testing.T) {
	var dst bytes.Buffer
	res, err := Capture(&countingSource{}, &dst, make([]byte, 2048), func() bool { return false }, nil)

	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	assert.Zero(t, dst.Len())
}

func TestCaptureEmptyReadFails(t *testing.T) {
	src := &countingSource{failAt: 3}
	var dst bytes.Buffer

	res, err := Capture(src, &dst, make([]byte, 2048), func() bool { return true }, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyRead)
	assert.Equal(t, Failure, res.Outcome)
	assert.Equal(t, 2, res.Chunks)
	// Data written before the failure stays in the sink
	assert.Equal(t, 2*2048, dst.Len())
}

func TestCaptureReadErrorFails(t *testing.T) {
	deviceErr := errors.New("device lost")
	src := &countingSource{failAt: 1, err: deviceErr}

	res, err := Capture(src, io.Discard, make([]byte, 64), func() bool { return true }, nil)

	assert.ErrorIs(t, err, deviceErr)
	assert.Equal(t, Failure, res.Outcome)
}

func TestCaptureSinkErrorFails(t *testing.T) {
	dst := &failingWriter{failAt: 2}

	res, err := Capture(&countingSource{}, dst, make([]byte, 64), func() bool { return true }, nil)

	require.Error(t, err)
	assert.Equal(t, Failure, res.Outcome)
	assert.Equal(t, 1, res.Chunks)
}

func TestPlaybackUntilEOF(t *testing.T) {
	data := bytes.Repeat([]byte{1, 2}, 2500) // 5000 bytes
	var dst failingWriter

	res, err := Playback(bytes.NewReader(data), &dst, make([]byte, 2048), func() bool { return true }, nil)

	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	assert.EqualValues(t, 5000, res.Bytes)
	assert.Zero(t, res.Trailing)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3, dst.writes)
	assert.Equal(t, data, dst.Bytes())
}

func TestPlaybackEmptySource(t *testing.T) {
	var dst failingWriter

	res, err := Playback(bytes.NewReader(nil), &dst, make([]byte, 2048), func() bool { return true }, nil)

	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	assert.Zero(t, dst.writes)
}

func TestPlaybackWriteErrorStopsImmediately(t *testing.T) {
	data := make([]byte, 10*2048)
	src := bytes.NewReader(data)
	dst := &failingWriter{failAt: 2}

	res, err := Playback(src, dst, make([]byte, 2048), func() bool { return true }, nil)

	require.Error(t, err)
	assert.Equal(t, Failure, res.Outcome)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 2, dst.writes)
	// Nothing is read past the failed chunk
	assert.Equal(t, 8*2048, src.Len())
}

func TestPlaybackReadErrorFails(t *testing.T) {
	readErr := errors.New("disk gone")

	res, err := Playback(iotest.ErrReader(readErr), io.Discard, make([]byte, 2048), func() bool { return true }, nil)

	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, Failure, res.Outcome)
}

func TestPlaybackAborted(t *testing.T) {
	data := make([]byte, 10*2048)
	var dst failingWriter

	res, err := Playback(bytes.NewReader(data), &dst, make([]byte, 2048), untilChunks(2), nil)

	require.NoError(t, err)
	assert.Equal(t, Aborted, res.Outcome)
	assert.Equal(t, 2, res.Chunks)
}

func TestPlaybackKeepsFramesWhole(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7}
	var dst failingWriter

	// One byte per read forces every frame to be split across reads
	res, err := Playback(iotest.OneByteReader(bytes.NewReader(data)), &dst, make([]byte, 2048), func() bool { return true }, nil)

	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, dst.Bytes())
	assert.Equal(t, 3, dst.writes)
	assert.Equal(t, 1, res.Trailing, "the torn last frame is reported")
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "Success", Success.String())
	assert.Equal(t, "Failure", Failure.String())
	assert.Equal(t, "Aborted", Aborted.String())
	assert.Equal(t, "Unknown", Outcome(42).String())
}
