package storage

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/session"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

// ramp returns n bytes of 16-bit little-endian samples counting up from -n/4
func ramp(n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n/2; i++ {
		v := uint16(int16(i - n/4))
		b[2*i] = byte(v)
		b[2*i+1] = byte(v >> 8)
	}
	return b
}

func TestCreateNamesFileByTimestamp(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/rec").WithClock(fixedClock(1700000000123))

	w, err := store.Create(session.Byte)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/rec", "1700000000123.pcm"), w.Path())
	require.NoError(t, w.Close())

	w2, err := store.Create(session.Container)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/rec", "1700000000123.wav"), w2.Path())
	require.NoError(t, w2.Close())
}

func TestCreateCollisionGetsSuffix(t *testing.T) {
	store := New(afero.NewMemMapFs(), "/rec").WithClock(fixedClock(42))

	first, err := store.Create(session.Byte)
	require.NoError(t, err)
	defer first.Close()

	second, err := store.Create(session.Byte)
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.Path(), second.Path())
	assert.Regexp(t, `^42-[0-9a-f]{8}\.pcm$`, filepath.Base(second.Path()))
}

func TestRawRoundTrip(t *testing.T) {
	store := New(afero.NewMemMapFs(), "/rec").WithClock(fixedClock(1))
	data := ramp(5000)

	w, err := store.Create(session.Byte)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), w.Bytes())
	require.NoError(t, w.Close())

	r, err := store.Open(w.Path())
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWAVRoundTrip(t *testing.T) {
	store := New(afero.NewMemMapFs(), "/rec").WithClock(fixedClock(1))
	data := ramp(audio.ChunkSize*3 + 100)

	w, err := store.Create(session.Container)
	require.NoError(t, err)

	// Split on an odd boundary so a sample straddles two writes
	_, err = w.Write(data[:1001])
	require.NoError(t, err)
	_, err = w.Write(data[1001:])
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := store.Fs().Stat(w.Path())
	require.NoError(t, err)
	assert.EqualValues(t, int64(len(data))+WAVContainer{}.HeaderSize(), info.Size())

	r, err := store.Open(w.Path())
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, audio.ChunkSize)
	var got []byte
	for {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.NotZero(t, n)
	}
	assert.Equal(t, data, got)
}

func TestOpenRejectsForeignFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/rec")

	require.NoError(t, afero.WriteFile(fs, "/rec/notes.txt", []byte("hi"), 0644))
	_, err := store.Open("/rec/notes.txt")
	assert.ErrorIs(t, err, ErrBadContainer)

	require.NoError(t, afero.WriteFile(fs, "/rec/broken.wav", []byte("not a riff file"), 0644))
	_, err = store.Open("/rec/broken.wav")
	assert.ErrorIs(t, err, ErrBadContainer)

	_, err = store.Open("/rec/missing.pcm")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsOtherFormats(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("/rec/stereo.wav")
	require.NoError(t, err)

	stereo := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}
	sink, err := WAVContainer{}.NewSink(f, stereo)
	require.NoError(t, err)
	_, err = sink.Write(ramp(400))
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	require.NoError(t, f.Close())

	_, err = New(fs, "/rec").Open("/rec/stereo.wav")
	assert.ErrorIs(t, err, audio.ErrUnsupportedFormat)
}

func TestListNewestFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := int64(1000)
	store := New(fs, "/rec").WithClock(func() time.Time { return time.UnixMilli(now) })

	list, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, list, "missing directory lists as empty")

	second := audio.DefaultFormat().BytesPerSecond()
	for i, mode := range []session.Mode{session.Byte, session.Container} {
		now = int64(1000 * (i + 1))
		w, err := store.Create(mode)
		require.NoError(t, err)
		_, err = w.Write(make([]byte, second*(i+1)))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	require.NoError(t, afero.WriteFile(fs, "/rec/readme.md", []byte("x"), 0644))

	list, err = store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "2000.wav", list[0].Name)
	assert.Equal(t, 2*time.Second, list[0].Duration)
	assert.Equal(t, time.UnixMilli(2000), list[0].Created)

	assert.Equal(t, "1000.pcm", list[1].Name)
	assert.Equal(t, time.Second, list[1].Duration)
}

func TestResolveAndRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/rec").WithClock(fixedClock(7))

	w, err := store.Create(session.Byte)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path, err := store.Resolve("7.pcm")
	require.NoError(t, err)
	assert.Equal(t, w.Path(), path)

	for _, bad := range []string{"", "..", "../etc/passwd", "sub/7.pcm", "8.pcm"} {
		_, err := store.Resolve(bad)
		assert.ErrorIs(t, err, ErrNotFound, bad)
	}

	require.NoError(t, store.Remove(path))
	assert.ErrorIs(t, store.Remove(path), ErrNotFound)
}
