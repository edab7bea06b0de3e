// SPDX-License-Identifier: EPL-2.0

package formats_test

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats"
	"github.com/ik5/audmix/formats/wav"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	r := formats.NewRegistry()
	got := r.Formats()
	slices.Sort(got)
	want := []string{"aif", "aiff", "flac", "mp3", "oga", "ogg", "wav"}
	if !slices.Equal(got, want) {
		t.Fatalf("Formats() = %v, want %v", got, want)
	}

	for _, path := range []string{"a/b/Song.WAV", "x.flac", "loop.ogg"} {
		if _, _, ok := r.ForPath(path); !ok {
			t.Errorf("ForPath(%q) found no decoder", path)
		}
	}
	if _, err := r.Decode("mod", bytes.NewReader(nil)); !errors.Is(err, audio.ErrNotSupported) {
		t.Errorf("Decode(mod) error = %v, want ErrNotSupported", err)
	}
}

func TestRegistry_DecodeWAV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := wav.WriteWAV16(&buf, 8000, 1, []int16{0, 16384, -16384}); err != nil {
		t.Fatal(err)
	}

	src, err := formats.NewRegistry().Decode("wav", bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	defer src.Close()

	data, err := audio.LoadSample(src, audio.DepthInt16)
	if err != nil {
		t.Fatalf("LoadSample() error = %v", err)
	}
	if data.Length() != 3 || data.Frequency() != 8000 {
		t.Errorf("decoded %d frames at %d Hz, want 3 at 8000", data.Length(), data.Frequency())
	}
}
