// SPDX-License-Identifier: EPL-2.0

package utils

// LinearInterpolate blends x0 and x1 at t in [0, 1).
func LinearInterpolate(x0, x1, t float32) float32 {
	return (x0 * (1.0 - t)) + (x1 * t)
}

// LinearInterpolate16 blends two 16-bit values with an 8-bit fixed point
// weight t in [0, 256).
func LinearInterpolate16(x0, x1 int16, t int32) int16 {
	a := int32(x0)
	b := int32(x1)
	return int16(((a * (256 - t)) >> 8) + ((b * t) >> 8))
}
