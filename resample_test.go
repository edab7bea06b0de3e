// SPDX-License-Identifier: EPL-2.0

package audmix_test

import (
	"errors"
	"testing"

	"github.com/ik5/audmix"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/internal/audiotest"
)

func within(got, want, tolerance int) bool {
	return got >= want-tolerance && got <= want+tolerance
}

func TestResampleToMono16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      audio.Source
		rate     int
		wantLen  int
		wantVal  int16
		tolerVal int
	}{
		{"stereo sine down", audiotest.NewSineSource(44100, 2, 44100, 440), 8000, 8000, 0, -1},
		{"mono constant down", audiotest.NewConstantSource(16000, 1, 16000, 0.5), 8000, 8000, 16383, 1000},
		{"stereo silence", audiotest.NewSilentSource(44100, 2, 44100), 8000, 8000, 0, 0},
		{"upsample", audiotest.NewConstantSource(8000, 1, 8000, -0.25), 48000, 48000, -8191, 1000},
		{"same rate", audiotest.NewConstantSource(16000, 2, 1600, 0.25), 16000, 1600, 8191, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pcm, rate, err := audmix.ResampleToMono16(tt.src, tt.rate, 4096)
			if err != nil {
				t.Fatalf("ResampleToMono16() error = %v", err)
			}
			if rate != tt.rate {
				t.Errorf("rate = %d, want %d", rate, tt.rate)
			}
			if !within(len(pcm), tt.wantLen, tt.wantLen/40) {
				t.Errorf("got %d values, want about %d", len(pcm), tt.wantLen)
			}
			if tt.tolerVal < 0 {
				return
			}
			// Skip the edges where the kernel reaches past the signal.
			for i := 4; i < len(pcm)-4; i++ {
				if !within(int(pcm[i]), int(tt.wantVal), tt.tolerVal) {
					t.Fatalf("pcm[%d] = %d, want about %d", i, pcm[i], tt.wantVal)
				}
			}
		})
	}
}

func TestResampleToMono16_Empty(t *testing.T) {
	t.Parallel()

	pcm, _, err := audmix.ResampleToMono16(audiotest.NewSilentSource(44100, 2, 0), 8000, 4096)
	if err != nil {
		t.Fatalf("ResampleToMono16() error = %v", err)
	}
	if len(pcm) != 0 {
		t.Errorf("got %d values from an empty source", len(pcm))
	}
}

func TestResampleToMono16_Clamps(t *testing.T) {
	t.Parallel()

	pcm, _, err := audmix.ResampleToMono16(audiotest.NewConstantSource(8000, 1, 800, 4), 8000, 256)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range pcm {
		if v != 32767 {
			t.Fatalf("pcm[%d] = %d, want 32767", i, v)
		}
	}
}

func TestResampleToMono16_Errors(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 1, 10)
	if _, _, err := audmix.ResampleToMono16(src, 0, 4096); !errors.Is(err, audio.ErrInvalidFrequency) {
		t.Errorf("rate 0 error = %v, want ErrInvalidFrequency", err)
	}
	if _, _, err := audmix.ResampleToMono16(src, 8000, 0); !errors.Is(err, audio.ErrInvalidParam) {
		t.Errorf("buffer 0 error = %v, want ErrInvalidParam", err)
	}
}

func BenchmarkResampleToMono16(b *testing.B) {
	for b.Loop() {
		src := audiotest.NewSineSource(44100, 2, 44100, 440)
		if _, _, err := audmix.ResampleToMono16(src, 8000, 4096); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResampleToMono16_Upsample(b *testing.B) {
	for b.Loop() {
		src := audiotest.NewSineSource(8000, 1, 8000, 440)
		if _, _, err := audmix.ResampleToMono16(src, 48000, 4096); err != nil {
			b.Fatal(err)
		}
	}
}
