// SPDX-License-Identifier: EPL-2.0

package audio

import "github.com/ik5/audmix/utils"

// floatKernel reads the current frame of in into out, one value per source
// channel.
type floatKernel func(in *instance, out []float32)

// int16Kernel is the fixed point counterpart of floatKernel.
type int16Kernel func(in *instance, out []int16)

// frame returns the value index of frame p. Out of range frames are clamped
// to the stored range so a stray position can never index outside memory.
func (in *instance) frame(p, maxc int) int {
	p += in.origin
	if p < 0 {
		p = 0
	} else if last := in.data.buf.Len()/maxc - 1; p > last {
		p = last
	}
	return p * maxc
}

func pointFloat(in *instance, out []float32) {
	maxc := len(out)
	i0 := in.frame(in.pos, maxc)
	for i := range out {
		out[i] = in.data.buf.Float(i0 + i)
	}
}

func pointInt16(in *instance, out []int16) {
	maxc := len(out)
	i0 := in.frame(in.pos, maxc)
	for i := range out {
		out[i] = in.data.buf.Int16(i0 + i)
	}
}

// linearNeighbours returns the two frames to interpolate between.
func linearNeighbours(in *instance) (p0, p1 int) {
	p0 = in.pos
	p1 = in.pos + 1

	switch in.mode {
	case PlayOnce:
		if p1 >= in.data.length {
			p1 = p0
		}
	case PlayLoop:
		if p1 >= in.loopEnd {
			p1 = in.loopStart
		}
	case PlayBidir:
		if p1 >= in.loopEnd {
			p1 = in.loopEnd - 1
			if p1 < in.loopStart {
				p1 = in.loopStart
			}
		}
	case PlayLoopOnce:
		if p1 >= in.loopEnd {
			p1 = p0
		}
	case PlayStreamOnce, PlayStreamOneDir, PlayStreamLoopOnce:
		// One frame late, the previous fragment's tail is in the look-ahead.
		p0--
		p1--
	}
	return p0, p1
}

func linearFloat(in *instance, out []float32) {
	maxc := len(out)
	p0, p1 := linearNeighbours(in)
	i0 := in.frame(p0, maxc)
	i1 := in.frame(p1, maxc)
	t := float32(in.posErr) / float32(in.stepDenom)

	for i := range out {
		out[i] = utils.LinearInterpolate(in.data.buf.Float(i0+i), in.data.buf.Float(i1+i), t)
	}
}

func linearInt16(in *instance, out []int16) {
	maxc := len(out)
	p0, p1 := linearNeighbours(in)
	i0 := in.frame(p0, maxc)
	i1 := in.frame(p1, maxc)
	t := int32(256 * in.posErr / in.stepDenom)

	for i := range out {
		out[i] = utils.LinearInterpolate16(in.data.buf.Int16(i0+i), in.data.buf.Int16(i1+i), t)
	}
}

// cubicNeighbours returns the four taps around pos.
func cubicNeighbours(in *instance) (p0, p1, p2, p3 int) {
	p0 = in.pos - 1
	p1 = in.pos
	p2 = in.pos + 1
	p3 = in.pos + 2

	switch in.mode {
	case PlayOnce:
		last := in.data.length - 1
		if p0 < 0 {
			p0 = 0
		}
		if p2 > last {
			p2 = last
		}
		if p3 > last {
			p3 = last
		}
	case PlayLoopOnce:
		if p0 < in.loopStart {
			p0 = in.loopStart
		}
		if p2 >= in.loopEnd {
			p2 = in.loopEnd - 1
		}
		if p3 >= in.loopEnd {
			p3 = in.loopEnd - 1
		}
	case PlayLoop, PlayBidir:
		if p0 < in.loopStart {
			p0 = in.loopEnd - 1
		}
		if p2 >= in.loopEnd {
			p2 = in.loopStart
		}
		if p3 >= in.loopEnd {
			p3 = in.loopStart
		}
	case PlayStreamOnce, PlayStreamOneDir, PlayStreamLoopOnce:
		p0 -= 2
		p1 -= 2
		p2 -= 2
		p3 -= 2
	}
	return p0, p1, p2, p3
}

func cubicFloat(in *instance, out []float32) {
	maxc := len(out)
	p0, p1, p2, p3 := cubicNeighbours(in)
	i0 := in.frame(p0, maxc)
	i1 := in.frame(p1, maxc)
	i2 := in.frame(p2, maxc)
	i3 := in.frame(p3, maxc)
	t := float32(in.posErr) / float32(in.stepDenom)

	b := in.data.buf
	for i := range out {
		out[i] = utils.CubicInterpolate(b.Float(i0+i), b.Float(i1+i), b.Float(i2+i), b.Float(i3+i), t)
	}
}

func floatKernelFor(q Quality) floatKernel {
	switch q {
	case QualityPoint:
		return pointFloat
	case QualityCubic:
		return cubicFloat
	}
	return linearFloat
}

func int16KernelFor(q Quality) int16Kernel {
	if q == QualityPoint {
		return pointInt16
	}
	return linearInt16
}

// mixToFloat returns the read function of in for a float32 parent.
func (in *instance) mixToFloat(kernel floatKernel) mixFunc {
	return func(dst Buffer, frames, dstChannels int) {
		var samp [MaxChannels]float32

		buf := dst.F32()
		maxc := in.data.conf.Count()
		delta, deltaErr := in.bresenham()

		if !in.playing {
			return
		}

		o := 0
		for ; frames > 0; frames-- {
			oldStep := in.step
			if !fixLoopedPosition(in) || in.data.buf.Len() == 0 {
				return
			}
			if oldStep != in.step {
				delta, deltaErr = in.bresenham()
			}

			s := samp[:maxc]
			kernel(in, s)

			for c := range dstChannels {
				row := in.matrix[c*maxc : c*maxc+maxc]
				for j := maxc - 1; j >= 0; j-- {
					buf[o] += s[j] * row[j]
				}
				o++
			}

			in.advance(delta, deltaErr)
		}
		fixLoopedPosition(in)
	}
}

// mixToInt16 returns the read function of in for an int16 parent.
func (in *instance) mixToInt16(kernel int16Kernel) mixFunc {
	return func(dst Buffer, frames, dstChannels int) {
		var samp [MaxChannels]int16

		buf := dst.S16()
		maxc := in.data.conf.Count()
		delta, deltaErr := in.bresenham()

		if !in.playing {
			return
		}

		o := 0
		for ; frames > 0; frames-- {
			oldStep := in.step
			if !fixLoopedPosition(in) || in.data.buf.Len() == 0 {
				return
			}
			if oldStep != in.step {
				delta, deltaErr = in.bresenham()
			}

			s := samp[:maxc]
			kernel(in, s)

			for c := range dstChannels {
				row := in.matrix[c*maxc : c*maxc+maxc]
				acc := float32(buf[o])
				for j := maxc - 1; j >= 0; j-- {
					acc += float32(s[j]) * row[j]
				}
				buf[o] = utils.ClampInt16(int32(acc))
				o++
			}

			in.advance(delta, deltaErr)
		}
		fixLoopedPosition(in)
	}
}
