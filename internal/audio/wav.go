// Package audio implements the PCM buffer type passed to the separation
// service plus WAV probing and encoding for the 16-bit PCM files the
// platform stores.
package audio

import (
	"encoding/binary"
	"fmt"
)

// Buffer holds decoded PCM audio with interleaved 16-bit samples.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 || b.Channels == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate*b.Channels)
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	samples := make([]int16, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{SampleRate: b.SampleRate, Channels: b.Channels, Samples: samples}
}

// FrameIndex converts a time offset in seconds to an interleaved sample
// index, clamped to the buffer bounds and aligned to a frame boundary.
func (b *Buffer) FrameIndex(seconds float64) int {
	if seconds < 0 {
		return 0
	}
	idx := int(seconds*float64(b.SampleRate)) * b.Channels
	if idx > len(b.Samples) {
		idx = len(b.Samples)
	}
	return idx
}

// ProbeResult describes a WAV file without decoding its sample data.
type ProbeResult struct {
	Extension   string
	SampleRate  int
	Duration    float64
	Channels    int
	SampleWidth int
}

const wavHeaderMin = 12

// Probe reads the RIFF header and fmt/data chunks of a WAV file.
func Probe(data []byte) (*ProbeResult, error) {
	fmtChunk, dataLen, err := scanChunks(data)
	if err != nil {
		return nil, err
	}

	byteRate := fmtChunk.sampleRate * fmtChunk.channels * fmtChunk.sampleWidth
	var duration float64
	if byteRate > 0 {
		duration = float64(dataLen) / float64(byteRate)
	}

	return &ProbeResult{
		Extension:   "wav",
		SampleRate:  fmtChunk.sampleRate,
		Duration:    duration,
		Channels:    fmtChunk.channels,
		SampleWidth: fmtChunk.sampleWidth,
	}, nil
}

// Decode parses a 16-bit PCM WAV file into a Buffer.
func Decode(data []byte) (*Buffer, error) {
	fmtChunk, _, err := scanChunks(data)
	if err != nil {
		return nil, err
	}
	if fmtChunk.sampleWidth != 2 {
		return nil, fmt.Errorf("unsupported sample width %d bytes", fmtChunk.sampleWidth)
	}

	raw := fmtChunk.data
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	return &Buffer{
		SampleRate: fmtChunk.sampleRate,
		Channels:   fmtChunk.channels,
		Samples:    samples,
	}, nil
}

// Encode writes a Buffer as a canonical 16-bit PCM WAV file.
func Encode(b *Buffer) []byte {
	dataLen := len(b.Samples) * 2
	out := make([]byte, 44+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(b.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(b.SampleRate*b.Channels*2))
	binary.LittleEndian.PutUint16(out[32:34], uint16(b.Channels*2))
	binary.LittleEndian.PutUint16(out[34:36], 16)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(s))
	}

	return out
}

type wavFormat struct {
	channels    int
	sampleRate  int
	sampleWidth int
	data        []byte
}

func scanChunks(data []byte) (*wavFormat, int, error) {
	if len(data) < wavHeaderMin || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var f wavFormat
	haveFmt := false
	dataLen := -1

	off := wavHeaderMin
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return nil, 0, fmt.Errorf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, 0, fmt.Errorf("unsupported audio format %d (PCM only)", format)
			}
			f.channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			f.sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			f.sampleWidth = bits / 8
			haveFmt = true
		case "data":
			f.data = data[body : body+size]
			dataLen = size
		}

		// chunks are word-aligned
		off = body + size + size%2
	}

	if !haveFmt || dataLen < 0 {
		return nil, 0, fmt.Errorf("missing fmt or data chunk")
	}
	if f.channels == 0 || f.sampleRate == 0 || f.sampleWidth == 0 {
		return nil, 0, fmt.Errorf("invalid fmt chunk")
	}
	return &f, dataLen, nil
}
