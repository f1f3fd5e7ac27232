package audioring

import (
	"encoding/binary"
	"testing"
	"time"
)

func pcm(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

func TestFrameRingBuffer(t *testing.T) {
	buffer := New(1024)

	if buffer.Capacity() != 1024 {
		t.Errorf("Expected capacity 1024, got %d", buffer.Capacity())
	}
	if buffer.Len() != 0 {
		t.Errorf("Expected empty buffer, got length %d", buffer.Len())
	}

	frame := Frame{
		Data:       pcm(100, -200, 300),
		Timestamp:  time.Now(),
		SampleRate: 16000,
		Channels:   1,
	}

	if err := buffer.Enqueue(frame); err != nil {
		t.Errorf("Failed to enqueue: %v", err)
	}
	if buffer.Len() == 0 {
		t.Error("Buffer should not be empty after enqueue")
	}

	dequeued, ok := buffer.Dequeue()
	if !ok {
		t.Error("Failed to dequeue")
	}
	if len(dequeued.Data) != len(frame.Data) {
		t.Errorf("Expected data length %d, got %d", len(frame.Data), len(dequeued.Data))
	}
	for i, b := range dequeued.Data {
		if b != frame.Data[i] {
			t.Errorf("Data mismatch at index %d: expected %d, got %d", i, frame.Data[i], b)
		}
	}
	if dequeued.SampleRate != frame.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", frame.SampleRate, dequeued.SampleRate)
	}
	if dequeued.Channels != frame.Channels {
		t.Errorf("Expected channels %d, got %d", frame.Channels, dequeued.Channels)
	}
}

func TestFrameRingBufferFlush(t *testing.T) {
	buffer := New(1024)

	for i := 0; i < 3; i++ {
		f := Frame{
			Data:       pcm(int16(i), int16(i+1)),
			Timestamp:  time.Now().Add(time.Duration(i) * time.Millisecond),
			SampleRate: 16000,
			Channels:   1,
		}
		if err := buffer.Enqueue(f); err != nil {
			t.Errorf("Failed to enqueue item %d: %v", i, err)
		}
	}

	ch := make(chan Frame, 10)
	if err := buffer.Flush(ch); err != nil {
		t.Errorf("Failed to flush: %v", err)
	}

	flushedCount := 0
	for range ch {
		flushedCount++
	}
	if flushedCount != 3 {
		t.Errorf("Expected 3 flushed frames, got %d", flushedCount)
	}
	if buffer.Len() != 0 {
		t.Errorf("Buffer should be empty after flush, got length %d", buffer.Len())
	}
}

func TestFrameSerialization(t *testing.T) {
	original := Frame{
		Data:       pcm(10, 20, -30),
		Timestamp:  time.Now(),
		SampleRate: 16000,
		Channels:   1,
	}

	data, err := original.MarshalBinary()
	if err != nil {
		t.Errorf("Failed to marshal: %v", err)
	}

	var restored Frame
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Errorf("Failed to unmarshal: %v", err)
	}

	if len(restored.Data) != len(original.Data) {
		t.Errorf("Expected data length %d, got %d", len(original.Data), len(restored.Data))
	}
	if restored.SampleRate != original.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", original.SampleRate, restored.SampleRate)
	}

	timeDiff := restored.Timestamp.Sub(original.Timestamp)
	if timeDiff < 0 {
		timeDiff = -timeDiff
	}
	if timeDiff > time.Microsecond {
		t.Errorf("Timestamp difference too large: %v", timeDiff)
	}
}

func TestFrameUnmarshalRejectsTruncatedInput(t *testing.T) {
	var f Frame
	if err := f.UnmarshalBinary([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for record shorter than the fixed header")
	}

	full, err := (&Frame{
		Data:       pcm(1, 2, 3),
		Timestamp:  time.Now(),
		SampleRate: 16000,
		Channels:   1,
	}).MarshalBinary()
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var g Frame
	if err := g.UnmarshalBinary(full[:len(full)-1]); err == nil {
		t.Error("Expected error for record with truncated payload")
	}
}

func TestFrameMeanAbsAmplitude(t *testing.T) {
	f := Frame{Data: pcm(100, -100, 200, -200), SampleRate: 16000, Channels: 1}
	got := f.MeanAbsAmplitude()
	if got != 150 {
		t.Errorf("Expected mean abs amplitude 150, got %v", got)
	}

	empty := Frame{SampleRate: 16000}
	if empty.MeanAbsAmplitude() != 0 {
		t.Error("Empty frame should have zero amplitude")
	}
}

func TestFrameDuration(t *testing.T) {
	// 16000 samples at 16kHz = 1s
	f := Frame{Data: make([]byte, 32000), SampleRate: 16000, Channels: 1}
	if f.Duration() != time.Second {
		t.Errorf("Expected 1s duration, got %v", f.Duration())
	}
}
