package audioring

import (
	"encoding/binary"
	"errors"
	"time"
)

// Frame is one captured chunk of mono PCM16LE audio.
type Frame struct {
	Data       []byte
	Timestamp  time.Time
	SampleRate int32
	Channels   int16
}

// Samples decodes the PCM payload into int16 samples. A trailing odd byte is
// dropped.
func (f *Frame) Samples() []int16 {
	data := f.Data
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return out
}

// MeanAbsAmplitude is the average absolute sample value of the frame, the
// signal the local voice-activity heuristic thresholds on.
func (f *Frame) MeanAbsAmplitude() float64 {
	samples := f.Samples()
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return sum / float64(len(samples))
}

// Duration of audio carried by the frame.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	samples := len(f.Data) / 2
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

func (f *Frame) MarshalBinary() ([]byte, error) {
	// Format: timestamp(8) + sampleRate(4) + channels(2) + dataLen(4) + data
	buf := make([]byte, 8+4+2+4+len(f.Data))

	offset := 0
	binary.LittleEndian.PutUint64(buf[offset:], uint64(f.Timestamp.UnixNano()))
	offset += 8
	binary.LittleEndian.PutUint32(buf[offset:], uint32(f.SampleRate))
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], uint16(f.Channels))
	offset += 2
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(f.Data)))
	offset += 4
	copy(buf[offset:], f.Data)

	return buf, nil
}

func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < 18 { // minimum size: 8+4+2+4
		return errors.New("audio frame record truncated")
	}

	offset := 0
	f.Timestamp = time.Unix(0, int64(binary.LittleEndian.Uint64(data[offset:])))
	offset += 8
	f.SampleRate = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	f.Channels = int16(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	dataLen := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	if len(data[offset:]) < int(dataLen) {
		return errors.New("audio frame payload truncated")
	}
	f.Data = make([]byte, dataLen)
	copy(f.Data, data[offset:offset+int(dataLen)])

	return nil
}

type FrameRingBuffer interface {
	Enqueue(f Frame) error
	Dequeue() (Frame, bool)
	Len() int
	Capacity() int
	Flush(ch chan<- Frame) error
}
