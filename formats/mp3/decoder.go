// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audmix/audio"
)

// go-mp3 always produces 16-bit little-endian stereo.
const (
	channels      = 2
	bytesPerFrame = channels * 2
)

// mp3Reader is the part of gomp3.Decoder a source needs.
type mp3Reader interface {
	Read([]byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Length() int64
	SampleRate() int
}

type source struct {
	dec      mp3Reader
	seekable bool
	buf      []byte
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

func (s *source) ReadSamples(dst []float32) (int, error) {
	want := (len(dst) / channels) * bytesPerFrame
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	n, err := io.ReadFull(s.dec, s.buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decoding mp3: %w", err)
	}

	// Drop a trailing partial frame.
	n -= n % bytesPerFrame
	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[2*i:]))) / 32768
	}
	if samples == 0 && err == nil {
		err = io.EOF
	}
	return samples, err
}

// Frames implements audio.SeekableSource. It is -1 when the input cannot
// seek.
func (s *source) Frames() int64 {
	if !s.seekable {
		return -1
	}
	if l := s.dec.Length(); l >= 0 {
		return l / bytesPerFrame
	}
	return -1
}

// SeekFrame implements audio.SeekableSource.
func (s *source) SeekFrame(frame int64) error {
	if !s.seekable {
		return audio.ErrNotSupported
	}
	if frame < 0 || frame > s.Frames() {
		return fmt.Errorf("%w: frame %d", audio.ErrInvalidParam, frame)
	}
	if _, err := s.dec.Seek(frame*bytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("seeking mp3: %w", err)
	}
	return nil
}

// Decoder reads MP3 through github.com/hajimehoshi/go-mp3. Inputs that
// implement io.Seeker give a seekable source.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("opening mp3: %w", err)
	}

	_, seekable := r.(io.Seeker)
	return &source{
		dec:      dec,
		seekable: seekable,
		buf:      make([]byte, 8192),
	}, nil
}
