// SPDX-License-Identifier: EPL-2.0

// Package intpcm adapts the integer PCM readers of github.com/go-audio to
// audio.Source.
package intpcm

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audmix/audio"
)

// ErrUnsupportedBitDepth is returned for widths other than 8, 16, 24 and 32.
var ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

// Reader is the part of the go-audio decoders a Source needs.
type Reader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Config describes the stream behind a Reader.
type Config struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// Unsigned marks 8-bit data stored as 0..255.
	Unsigned bool
	// Frames is the stream length, -1 when unknown.
	Frames int64
	// Reopen returns a Reader positioned at the first frame. Sources
	// without it cannot seek.
	Reopen func() (Reader, error)
}

// Source reads a Reader as float32.
type Source struct {
	r      Reader
	cfg    Config
	scale  float32
	offset int

	buf *goaudio.IntBuffer
	pos int64
}

// Divisor is the value full scale maps to for bits wide samples.
func Divisor(bits int) (float32, error) {
	switch bits {
	case 8, 16, 24, 32:
		return float32(uint64(1) << (bits - 1)), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bits)
}

// New wraps r.
func New(r Reader, cfg Config) (*Source, error) {
	scale, err := Divisor(cfg.BitDepth)
	if err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		return nil, audio.ErrInvalidFrequency
	}
	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d", audio.ErrInvalidChannels, cfg.Channels)
	}

	s := &Source{r: r, cfg: cfg, scale: scale}
	if cfg.Unsigned && cfg.BitDepth == 8 {
		s.offset = 128
	}
	return s, nil
}

func (s *Source) SampleRate() int { return s.cfg.SampleRate }
func (s *Source) Channels() int   { return s.cfg.Channels }
func (s *Source) Close() error    { return nil }
func (s *Source) BufSize() int {
	if s.buf != nil {
		return cap(s.buf.Data)
	}
	return 4096
}

// BitDepth is the stored sample width.
func (s *Source) BitDepth() int { return s.cfg.BitDepth }

// Frames implements audio.SeekableSource.
func (s *Source) Frames() int64 { return s.cfg.Frames }

func (s *Source) read(n int) (int, error) {
	if s.buf == nil || cap(s.buf.Data) < n {
		s.buf = &goaudio.IntBuffer{
			Data:   make([]int, n),
			Format: &goaudio.Format{SampleRate: s.cfg.SampleRate, NumChannels: s.cfg.Channels},
		}
	}
	s.buf.Data = s.buf.Data[:n]

	got, err := s.r.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return got, fmt.Errorf("reading pcm: %w", err)
	}
	if got == 0 {
		return 0, io.EOF
	}
	return got, nil
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%s.cfg.Channels
	if want == 0 {
		return 0, nil
	}

	n, err := s.read(want)
	for i, v := range s.buf.Data[:n] {
		dst[i] = float32(v-s.offset) / s.scale
	}
	s.pos += int64(n / s.cfg.Channels)
	return n, err
}

// SeekFrame implements audio.SeekableSource by reopening the stream and
// skipping frame frames.
func (s *Source) SeekFrame(frame int64) error {
	if s.cfg.Reopen == nil {
		return audio.ErrNotSupported
	}
	if frame < 0 || (s.cfg.Frames >= 0 && frame > s.cfg.Frames) {
		return fmt.Errorf("%w: frame %d", audio.ErrInvalidParam, frame)
	}

	r, err := s.cfg.Reopen()
	if err != nil {
		return fmt.Errorf("reopening stream: %w", err)
	}
	s.r = r
	s.pos = 0

	skip := frame * int64(s.cfg.Channels)
	for skip > 0 {
		n, err := s.read(int(min(skip, 4096-4096%int64(s.cfg.Channels))))
		skip -= int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
	}
	s.pos = frame
	return nil
}
