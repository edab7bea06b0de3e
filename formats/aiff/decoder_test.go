// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/bits"
	"testing"

	"github.com/ik5/audmix/audio"
)

// extended encodes rate as an 80-bit IEEE extended float.
func extended(rate uint32) []byte {
	e := bits.Len32(rate) - 1
	out := make([]byte, 10)
	binary.BigEndian.PutUint16(out[0:2], uint16(16383+e))
	binary.BigEndian.PutUint64(out[2:10], uint64(rate)<<(63-e))
	return out
}

// buildAIFF assembles an AIFF file around big-endian sample data.
func buildAIFF(rate uint32, channels, bitDepth int, data []byte) []byte {
	frames := len(data) / (channels * bitDepth / 8)

	comm := new(bytes.Buffer)
	binary.Write(comm, binary.BigEndian, int16(channels))
	binary.Write(comm, binary.BigEndian, uint32(frames))
	binary.Write(comm, binary.BigEndian, int16(bitDepth))
	comm.Write(extended(rate))

	ssnd := new(bytes.Buffer)
	binary.Write(ssnd, binary.BigEndian, uint32(0))
	binary.Write(ssnd, binary.BigEndian, uint32(0))
	ssnd.Write(data)

	body := new(bytes.Buffer)
	body.WriteString("AIFF")
	body.WriteString("COMM")
	binary.Write(body, binary.BigEndian, uint32(comm.Len()))
	body.Write(comm.Bytes())
	body.WriteString("SSND")
	binary.Write(body, binary.BigEndian, uint32(ssnd.Len()))
	body.Write(ssnd.Bytes())

	out := new(bytes.Buffer)
	out.WriteString("FORM")
	binary.Write(out, binary.BigEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func be16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.BigEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func readAll(t *testing.T, src audio.Source) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, 4)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestExtended(t *testing.T) {
	t.Parallel()

	want := []byte{0x40, 0x0E, 0xAC, 0x44, 0, 0, 0, 0, 0, 0}
	if got := extended(44100); !bytes.Equal(got, want) {
		t.Errorf("extended(44100) = % x, want % x", got, want)
	}
}

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	data := buildAIFF(44100, 2, 16, be16(16384, -16384, 0, 8192))
	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 44100 || src.Channels() != 2 {
		t.Errorf("format = %d Hz %d channels, want 44100 Hz 2 channels", src.SampleRate(), src.Channels())
	}

	got := readAll(t, src)
	want := []float32{0.5, -0.5, 0, 0.25}
	if len(got) != len(want) {
		t.Fatalf("decoded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecoder_SeekFrame(t *testing.T) {
	t.Parallel()

	data := buildAIFF(8000, 1, 16, be16(0, 4096, 8192, 16384))
	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	seekable := src.(audio.SeekableSource)
	if seekable.Frames() != 4 {
		t.Errorf("Frames() = %d, want 4", seekable.Frames())
	}
	readAll(t, src)

	if err := seekable.SeekFrame(3); err != nil {
		t.Fatalf("SeekFrame(3) error = %v", err)
	}
	if got := readAll(t, src); len(got) != 1 || got[0] != 0.5 {
		t.Errorf("after seek decoded %v, want [0.5]", got)
	}
}

func TestDecoder_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"text", []byte("This is not AIFF data")},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := (Decoder{}).Decode(bytes.NewReader(tt.data)); !errors.Is(err, ErrNotAiffFile) {
				t.Errorf("Decode() error = %v, want ErrNotAiffFile", err)
			}
		})
	}
}

func BenchmarkDecoder_ReadSamples(b *testing.B) {
	data := buildAIFF(44100, 2, 16, make([]byte, 44100*4))
	buf := make([]float32, 4096)

	for b.Loop() {
		src, err := Decoder{}.Decode(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := src.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
