// Package wav encodes captured PCM frames into a standard uncompressed
// RIFF/WAVE container for the speech-to-text boundary.
package wav

import (
	"fmt"

	audioring "github.com/gangnameyes/docent/pkg/io/stt/audioRing"
)

const (
	headerSize    = 44
	numChannels   = 1  // mono
	bitsPerSample = 16 // 16-bit PCM
)

// Encode concatenates all captured frames into one 16-bit mono WAV buffer.
// The first frame's sample rate is used for the header.
func Encode(frames []audioring.Frame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no audio frames")
	}

	sampleRate := frames[0].SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}

	totalDataSize := 0
	for _, f := range frames {
		totalDataSize += len(f.Data)
	}

	byteRate := int(sampleRate) * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	wavSize := headerSize + totalDataSize

	header := make([]byte, headerSize)

	// RIFF chunk descriptor
	copy(header[0:4], "RIFF")
	writeUint32LE(header[4:8], uint32(wavSize-8))
	copy(header[8:12], "WAVE")

	// fmt sub-chunk
	copy(header[12:16], "fmt ")
	writeUint32LE(header[16:20], 16) // PCM format chunk size
	writeUint16LE(header[20:22], 1)  // PCM format
	writeUint16LE(header[22:24], uint16(numChannels))
	writeUint32LE(header[24:28], uint32(sampleRate))
	writeUint32LE(header[28:32], uint32(byteRate))
	writeUint16LE(header[32:34], uint16(blockAlign))
	writeUint16LE(header[34:36], uint16(bitsPerSample))

	// data sub-chunk
	copy(header[36:40], "data")
	writeUint32LE(header[40:44], uint32(totalDataSize))

	out := make([]byte, 0, wavSize)
	out = append(out, header...)
	for _, f := range frames {
		out = append(out, f.Data...)
	}
	return out, nil
}

func writeUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func writeUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
