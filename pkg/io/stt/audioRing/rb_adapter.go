package audioring

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/smallnest/ringbuffer"
)

// rb_impl stores frames as length-prefixed binary records inside one byte
// ring buffer. When full it evicts whole frames from the front rather than
// rejecting new audio. The mutex keeps whole records atomic so a producer
// and a consumer on different goroutines never interleave mid-record.
type rb_impl struct {
	mu   sync.Mutex
	size int
	rb   *ringbuffer.RingBuffer
}

// Capacity implements FrameRingBuffer.
func (r *rb_impl) Capacity() int {
	return r.size
}

// Len implements FrameRingBuffer.
func (r *rb_impl) Len() int {
	return r.rb.Length()
}

// Enqueue implements FrameRingBuffer.
func (r *rb_impl) Enqueue(f Frame) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	requiredSpace := len(data) + 4
	if requiredSpace > r.rb.Capacity() {
		return errors.New("audio frame too large for buffer")
	}

	// Evict oldest frames until the new one fits.
	for r.rb.Free() < requiredSpace {
		if !r.removeOldestFrame() {
			r.rb.Reset()
			break
		}
	}

	sizeBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBytes, uint32(len(data)))
	if _, err := r.rb.Write(sizeBytes); err != nil {
		return err
	}
	_, err = r.rb.Write(data)
	return err
}

// Dequeue implements FrameRingBuffer.
func (r *rb_impl) Dequeue() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dequeueLocked()
}

func (r *rb_impl) dequeueLocked() (Frame, bool) {
	if r.rb.IsEmpty() {
		return Frame{}, false
	}

	sizeBytes := make([]byte, 4)
	n, err := r.rb.Read(sizeBytes)
	if err != nil || n != 4 {
		return Frame{}, false
	}
	size := int(binary.LittleEndian.Uint32(sizeBytes))

	data := make([]byte, size)
	n, err = r.rb.Read(data)
	if err != nil || n != size {
		return Frame{}, false
	}

	var f Frame
	if err := f.UnmarshalBinary(data); err != nil {
		return Frame{}, false
	}
	return f, true
}

func (r *rb_impl) removeOldestFrame() bool {
	if r.rb.IsEmpty() {
		return false
	}

	sizeBytes := make([]byte, 4)
	n, err := r.rb.Read(sizeBytes)
	if err != nil || n != 4 {
		return false
	}
	size := int(binary.LittleEndian.Uint32(sizeBytes))

	if size > 0 {
		skip := make([]byte, size)
		n, err := r.rb.Read(skip)
		if err != nil || n != size {
			return false
		}
	}
	return true
}

// Flush implements FrameRingBuffer.
func (r *rb_impl) Flush(ch chan<- Frame) error {
	defer close(ch)

	r.mu.Lock()
	defer r.mu.Unlock()

	for !r.rb.IsEmpty() {
		f, ok := r.dequeueLocked()
		if !ok {
			break
		}
		select {
		case ch <- f:
		default:
			return errors.New("channel blocked during flush")
		}
	}
	return nil
}

func New(size int) FrameRingBuffer {
	return &rb_impl{
		size: size,
		rb:   ringbuffer.New(size).SetBlocking(false), // non-blocking, graceful overflow
	}
}
