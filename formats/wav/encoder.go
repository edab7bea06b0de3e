// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ik5/audmix/audio"
)

const encodeChunk = 8192

// bitDepthFor picks the stored width for depth. 8-bit data is widened to 16
// bits and float32 is stored as 16-bit PCM.
func bitDepthFor(depth audio.Depth) int {
	if depth.Signed() == audio.DepthInt24 {
		return 24
	}
	return 16
}

// value returns sample i of buf scaled to bits.
func value(buf audio.Buffer, i, bits int) int {
	if bits == 24 {
		switch buf.Depth() {
		case audio.DepthInt24:
			return int(buf.S24()[i])
		case audio.DepthUint24:
			return int(buf.U24()[i]) - 0x800000
		}
	}
	return int(buf.Int16(i))
}

// SaveSample writes data as an integer PCM WAV file through the go-audio
// encoder. The encoder seeks back to patch the header on close.
func SaveSample(w io.WriteSeeker, data *audio.SampleData) error {
	if data == nil || data.Length() == 0 {
		return ErrEmptySample
	}

	bits := bitDepthFor(data.Depth())
	channels := data.Channels().Count()
	enc := wav.NewEncoder(w, data.Frequency(), bits, channels, formatPCM)

	buf := data.Buffer()
	chunk := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: data.Frequency(), NumChannels: channels},
		Data:           make([]int, 0, encodeChunk),
		SourceBitDepth: bits,
	}

	for at := 0; at < buf.Len(); at += encodeChunk {
		end := min(at+encodeChunk, buf.Len())
		chunk.Data = chunk.Data[:end-at]
		for i := at; i < end; i++ {
			chunk.Data[i-at] = value(buf, i, bits)
		}
		if err := enc.Write(chunk); err != nil {
			return fmt.Errorf("encoding wav: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing wav encoder: %w", err)
	}
	return nil
}
