// SPDX-License-Identifier: EPL-2.0

package intpcm

import (
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audmix/audio"
)

// mockReader simulates the go-audio decoders.
type mockReader struct {
	samples []int
	offset  int
	fail    bool
}

func (m *mockReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.fail {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"bit depth", Config{SampleRate: 8000, Channels: 1, BitDepth: 12}, ErrUnsupportedBitDepth},
		{"rate", Config{Channels: 1, BitDepth: 16}, audio.ErrInvalidFrequency},
		{"channels", Config{SampleRate: 8000, BitDepth: 16}, audio.ErrInvalidChannels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(&mockReader{}, tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	src, err := New(&mockReader{samples: []int{64, 192, 128}}, Config{SampleRate: 8000, Channels: 1, BitDepth: 8, Unsigned: true, Frames: 3})
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]float32, 8)
	n, err := src.ReadSamples(buf)
	if n != 3 || err != nil {
		t.Fatalf("ReadSamples() = %d, %v", n, err)
	}
	for i, want := range []float32{-0.5, 0.5, 0} {
		if buf[i] != want {
			t.Errorf("sample %d = %v, want %v", i, buf[i], want)
		}
	}
	if n, err := src.ReadSamples(buf); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("read past end = %d, %v, want EOF", n, err)
	}
}

func TestSource_ReadError(t *testing.T) {
	t.Parallel()

	src, err := New(&mockReader{fail: true}, Config{SampleRate: 8000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.ReadSamples(make([]float32, 4)); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() error = %v, want the reader error", err)
	}
}

func TestSource_SeekFrame(t *testing.T) {
	t.Parallel()

	samples := []int{0, 0, 8192, 8192, 16384, 16384}
	reopened := 0
	cfg := Config{
		SampleRate: 8000, Channels: 2, BitDepth: 16, Frames: 3,
		Reopen: func() (Reader, error) {
			reopened++
			return &mockReader{samples: samples}, nil
		},
	}
	src, err := New(&mockReader{samples: samples}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := src.SeekFrame(1); err != nil {
		t.Fatalf("SeekFrame(1) error = %v", err)
	}
	buf := make([]float32, 2)
	if n, _ := src.ReadSamples(buf); n != 2 || buf[0] != 0.25 || buf[1] != 0.25 {
		t.Errorf("after seek read %v", buf[:n])
	}
	if reopened != 1 {
		t.Errorf("reopened %d times, want 1", reopened)
	}
	if err := src.SeekFrame(4); !errors.Is(err, audio.ErrInvalidParam) {
		t.Errorf("SeekFrame(4) error = %v, want ErrInvalidParam", err)
	}

	cfg.Reopen = nil
	plain, _ := New(&mockReader{samples: samples}, cfg)
	if err := plain.SeekFrame(0); !errors.Is(err, audio.ErrNotSupported) {
		t.Errorf("SeekFrame() without Reopen error = %v, want ErrNotSupported", err)
	}
}

func TestDivisor(t *testing.T) {
	t.Parallel()

	for bits, want := range map[int]float32{8: 128, 16: 32768, 24: 8388608, 32: 2147483648} {
		if got, err := Divisor(bits); err != nil || got != want {
			t.Errorf("Divisor(%d) = %v, %v, want %v", bits, got, err, want)
		}
	}
}
