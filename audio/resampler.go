// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audmix/utils"
)

// Resampler streams src at another sample rate. The source position advances
// with the same integer Bresenham stepping the mixer uses, and every output
// frame is a cubic Hermite interpolation of the four surrounding source
// frames. The channel count is preserved.
type Resampler struct {
	src      Source
	srcRate  int
	dstRate  int
	channels int

	delta    int // whole source frames per output frame
	deltaErr int // remainder, in units of 1/dstRate frames
	posErr   int

	// window holds the frames at pos-1, pos, pos+1 and pos+2. Missing frames
	// at either end repeat their neighbour.
	window [4][]float32
	have   [4]bool
	primed bool

	buf      []float32
	off, n   int
	eof      bool
	errAfter error
}

// NewResampler converts src to dstRate Hz.
func NewResampler(src Source, dstRate int) *Resampler {
	channels := max(src.Channels(), 1)
	size := src.BufSize()
	if size < channels {
		size = 4096
	}
	size -= size % channels

	r := &Resampler{
		src:      src,
		srcRate:  src.SampleRate(),
		dstRate:  max(dstRate, 1),
		channels: channels,
		buf:      make([]float32, size),
	}
	r.delta = r.srcRate / r.dstRate
	r.deltaErr = r.srcRate - r.delta*r.dstRate

	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}
	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("closing resampler source: %w", err)
	}
	return nil
}

// readFrame copies the next source frame into dst.
func (r *Resampler) readFrame(dst []float32) bool {
	for r.off+r.channels > r.n {
		if r.eof {
			return false
		}
		left := copy(r.buf, r.buf[r.off:r.n])
		r.off, r.n = 0, left

		n, err := r.src.ReadSamples(r.buf[left:])
		r.n += n
		switch {
		case err != nil:
			if !errors.Is(err, io.EOF) {
				r.errAfter = err
			}
			r.eof = true
		case n == 0:
			r.eof = true
		}
	}
	copy(dst, r.buf[r.off:r.off+r.channels])
	r.off += r.channels
	return true
}

func (r *Resampler) prime() {
	r.primed = true
	if !r.readFrame(r.window[1]) {
		return
	}
	r.have[1] = true
	copy(r.window[0], r.window[1])

	r.have[2] = r.readFrame(r.window[2])
	if !r.have[2] {
		copy(r.window[2], r.window[1])
	}
	r.have[3] = r.have[2] && r.readFrame(r.window[3])
	if !r.have[3] {
		copy(r.window[3], r.window[2])
	}
}

// shift advances the window by one source frame.
func (r *Resampler) shift() {
	w := r.window
	r.window = [4][]float32{w[1], w[2], w[3], w[0]}
	r.have = [4]bool{r.have[1], r.have[2], r.have[3], false}

	if r.have[2] && r.readFrame(r.window[3]) {
		r.have[3] = true
		return
	}
	copy(r.window[3], r.window[2])
}

// ReadSamples produces interleaved samples at the target rate. len(dst) must
// be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		r.prime()
	}

	want := len(dst) / r.channels
	written := 0
	denom := float32(r.dstRate)

	for written < want && r.have[1] {
		t := float32(r.posErr) / denom
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			out[c] = utils.CubicInterpolate(r.window[0][c], r.window[1][c], r.window[2][c], r.window[3][c], t)
		}
		written++

		adv := r.delta
		r.posErr += r.deltaErr
		if r.posErr >= r.dstRate {
			adv++
			r.posErr -= r.dstRate
		}
		for range adv {
			if !r.have[1] {
				break
			}
			r.shift()
		}
	}

	n := written * r.channels
	if !r.have[1] {
		if r.errAfter != nil {
			return n, r.errAfter
		}
		return n, io.EOF
	}
	return n, nil
}
