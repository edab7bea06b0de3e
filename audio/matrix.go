// SPDX-License-Identifier: EPL-2.0

package audio

import "math"

// PanNone disables panning. Any other pan value must be within [-1, 1].
const PanNone float32 = -1000.0

// rechannelMatrix builds the dst×src coefficient matrix, flattened row by
// row, that maps frames laid out as src onto frames laid out as dst.
func rechannelMatrix(src, dst ChannelConf, gain, pan float32) []float32 {
	srcChans := src.Count()
	dstChans := dst.Count()
	mat := make([]float32, srcChans*dstChans)
	at := func(d, s int) *float32 { return &mat[d*srcChans+s] }

	for i := 0; i < srcChans && i < dstChans; i++ {
		*at(i, i) = 1
	}

	invSqrt2 := float32(1.0 / math.Sqrt(2.0))

	switch {
	case dstChans == 1 && src.Main() > 1:
		// Rear and side channels are dropped.
		*at(0, 0) = invSqrt2
		*at(0, 1) = invSqrt2
		if src.HasCenter() {
			*at(0, src.Main()-1) = 1
		}
	case src.HasCenter() && !dst.HasCenter():
		c := src.Main() - 1
		*at(0, c) = invSqrt2
		*at(1, c) = invSqrt2
	}

	if src.Main() != dst.Main() && src.LFE() > 0 && dst.LFE() > 0 {
		*at(dstChans-1, srcChans-1) = 1
	}

	// Constant power: lgain² + rgain² = 1. Only the front pair is panned,
	// layouts wider than stereo keep their other rows untouched.
	if pan != PanNone {
		rgain := float32(math.Sqrt(float64(pan+1) / 2))
		lgain := float32(math.Sqrt(float64(1-pan) / 2))
		for j := range srcChans {
			*at(0, j) *= lgain
			if dstChans > 1 {
				*at(1, j) *= rgain
			}
		}
	}

	if gain != 1 {
		for i := range mat {
			mat[i] *= gain
		}
	}

	return mat
}
