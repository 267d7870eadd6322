// Package audio moves sound in and out of the device: microphone capture
// through miniaudio, utterance recording with silence detection, playback
// through oto with start and finish callbacks, and the WAV container both
// sides speak.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Format describes 16-bit linear PCM.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Formats used by the device.
var (
	// CaptureFormat is what the recorder produces and the STT service accepts.
	CaptureFormat = Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
	// PlaybackFormat is what the speech endpoint returns and the player expects.
	PlaybackFormat = Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
)

// ErrNotWAV is returned for data that is not a RIFF/WAVE container.
var ErrNotWAV = errors.New("not a valid WAV file")

const wavHeaderSize = 44

// EncodeWAV wraps raw PCM in a canonical 44-byte RIFF header.
func EncodeWAV(pcm []byte, f Format) []byte {
	blockAlign := f.Channels * f.BitsPerSample / 8
	out := make([]byte, wavHeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(f.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(f.BitsPerSample))

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}

// DecodeWAV walks the RIFF chunks and returns the format and PCM payload.
// The payload aliases wav.
func DecodeWAV(wav []byte) (Format, []byte, error) {
	var f Format
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return f, nil, ErrNotWAV
	}

	haveFmt := false
	pos := 12
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(wav) {
				return f, nil, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			f.Channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return f, nil, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			end := body + size
			// Streamed WAVs may carry a placeholder size.
			if end > len(wav) || size == 0 {
				end = len(wav)
			}
			return f, wav[body:end], nil
		}

		pos = body + size
		if size%2 != 0 {
			pos++
		}
	}
	return f, nil, fmt.Errorf("%w: data chunk not found", ErrNotWAV)
}
