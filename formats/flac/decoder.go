// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/internal/intpcm"
	"github.com/tphakala/flac"
)

// ErrNotFlacFile is returned when the stream header cannot be parsed.
var ErrNotFlacFile = errors.New("not a FLAC file")

// frameReader is the part of flac.Decoder a source needs. Next returns one
// decoded block as interleaved little-endian samples.
type frameReader interface {
	Next() ([]byte, error)
}

type source struct {
	dec        frameReader
	sampleRate int
	channels   int
	width      int // bytes per sample
	scale      float32
	frames     int64

	pending []byte
	err     error
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }

// Frames is the stream length from the STREAMINFO block, -1 when the
// encoder did not record it.
func (s *source) Frames() int64 { return s.frames }

func (s *source) sample(p []byte) int32 {
	switch s.width {
	case 1:
		return int32(int8(p[0]))
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(p)))
	case 3:
		return int32(uint32(p[0])|uint32(p[1])<<8|uint32(p[2])<<16) << 8 >> 8
	}
	return int32(binary.LittleEndian.Uint32(p))
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%s.channels
	w := 0
	for w < want {
		if len(s.pending) == 0 {
			if s.err != nil {
				break
			}
			block, err := s.dec.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					s.err = io.EOF
				} else {
					s.err = fmt.Errorf("decoding flac: %w", err)
				}
				continue
			}
			s.pending = block
			continue
		}

		n := min(want-w, len(s.pending)/s.width)
		for i := range n {
			dst[w+i] = float32(s.sample(s.pending[i*s.width:])) / s.scale
		}
		w += n
		s.pending = s.pending[n*s.width:]
	}

	if w == 0 && s.err != nil {
		return 0, s.err
	}
	return w, nil
}

// Decoder reads FLAC through github.com/tphakala/flac. Sources decode block
// by block and cannot seek.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := flac.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFlacFile, err)
	}

	scale, err := intpcm.Divisor(dec.BitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}
	if dec.NChannels <= 0 || dec.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrNotFlacFile, dec.NChannels, dec.SampleRate)
	}

	frames := int64(dec.TotalSamples)
	if frames == 0 {
		frames = -1
	}
	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate,
		channels:   dec.NChannels,
		width:      dec.BitsPerSample / 8,
		scale:      scale,
		frames:     frames,
	}, nil
}
