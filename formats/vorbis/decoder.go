// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audmix/audio"
	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the part of oggvorbis.Reader a source needs.
type oggReader interface {
	SampleRate() int
	Channels() int
	// Read returns the number of values, not frames.
	Read([]float32) (int, error)
	SetPosition(pos int64) error
	Length() int64
}

type source struct {
	dec      oggReader
	channels int
	seekable bool
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }

func (s *source) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}

	n, err := s.dec.Read(dst[:want])
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("decoding vorbis: %w", err)
	}
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}

// Frames implements audio.SeekableSource.
func (s *source) Frames() int64 {
	if !s.seekable || s.dec.Length() <= 0 {
		return -1
	}
	return s.dec.Length()
}

// SeekFrame implements audio.SeekableSource.
func (s *source) SeekFrame(frame int64) error {
	if !s.seekable {
		return audio.ErrNotSupported
	}
	if total := s.Frames(); frame < 0 || (total >= 0 && frame > total) {
		return fmt.Errorf("%w: frame %d", audio.ErrInvalidParam, frame)
	}
	if err := s.dec.SetPosition(frame); err != nil {
		return fmt.Errorf("seeking vorbis: %w", err)
	}
	return nil
}

// Decoder reads Ogg Vorbis through github.com/jfreymuth/oggvorbis. Inputs
// that implement io.Seeker give a seekable source.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening vorbis: %w", err)
	}

	_, seekable := r.(io.Seeker)
	return &source{
		dec:      dec,
		channels: max(dec.Channels(), 1),
		seekable: seekable,
	}, nil
}
