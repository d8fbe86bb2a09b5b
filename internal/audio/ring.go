package audio

import (
	"io"
	"sync"
)

// RingBuffer is a circular byte buffer bridging a device callback and a
// blocking reader or writer. The callback side never blocks; the stream
// side waits on a condition variable.
type RingBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buffer   []byte
	size     int
	writePos int
	readPos  int
	count    int
	closed   bool
	err      error
	dropped  int
}

// NewRingBuffer creates a new ring buffer with the specified size in bytes
func NewRingBuffer(size int) *RingBuffer {
	rb := &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// put copies as much of data as fits; caller holds mu
func (rb *RingBuffer) put(data []byte) int {
	n := min(len(data), rb.size-rb.count)
	for i := 0; i < n; i++ {
		rb.buffer[rb.writePos] = data[i]
		rb.writePos = (rb.writePos + 1) % rb.size
	}
	rb.count += n
	return n
}

// take copies up to len(data) bytes out; caller holds mu
func (rb *RingBuffer) take(data []byte) int {
	n := min(len(data), rb.count)
	for i := 0; i < n; i++ {
		data[i] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
	}
	rb.count -= n
	return n
}

// Offer writes without blocking. Bytes that do not fit are dropped and counted.
func (rb *RingBuffer) Offer(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return 0
	}
	n := rb.put(data)
	rb.dropped += len(data) - n
	if n > 0 {
		rb.cond.Broadcast()
	}
	return n
}

// Poll reads without blocking and returns the number of bytes copied
func (rb *RingBuffer) Poll(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := rb.take(data)
	if n > 0 {
		rb.cond.Broadcast()
	}
	return n
}

// Read blocks until at least one byte is available or the buffer is closed
func (rb *RingBuffer) Read(data []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 && !rb.closed {
		rb.cond.Wait()
	}
	if rb.count == 0 {
		return 0, rb.closeErr()
	}
	n := rb.take(data)
	rb.cond.Broadcast()
	return n, nil
}

// Write blocks until all of data has been queued or the buffer is closed
func (rb *RingBuffer) Write(data []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(data) {
		for rb.count == rb.size && !rb.closed {
			rb.cond.Wait()
		}
		if rb.closed {
			return written, rb.closeErr()
		}
		written += rb.put(data[written:])
		rb.cond.Broadcast()
	}
	return written, nil
}

// Drain blocks until the consumer has emptied the buffer or it is closed
func (rb *RingBuffer) Drain() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count > 0 && !rb.closed {
		rb.cond.Wait()
	}
}

// CloseWithError wakes all waiters; subsequent blocking calls return err
func (rb *RingBuffer) CloseWithError(err error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return
	}
	rb.closed = true
	rb.err = err
	rb.cond.Broadcast()
}

// Close is CloseWithError(nil)
func (rb *RingBuffer) Close() error {
	rb.CloseWithError(nil)
	return nil
}

func (rb *RingBuffer) closeErr() error {
	if rb.err != nil {
		return rb.err
	}
	return io.EOF
}

// Available returns the number of bytes available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Dropped returns the number of bytes discarded by Offer
func (rb *RingBuffer) Dropped() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Size returns the total size of the buffer
func (rb *RingBuffer) Size() int {
	return rb.size
}
