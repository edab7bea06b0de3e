// SPDX-License-Identifier: EPL-2.0

package utils

// CubicInterpolate evaluates the 4-point cubic Hermite spline through
// y0..y3 at t, the fractional position between y1 and y2 (0 <= t < 1).
func CubicInterpolate(y0, y1, y2, y3, t float32) float32 {
	c0 := y1
	c1 := 0.5 * (y2 - y0)
	c2 := y0 - (2.5 * y1) + (2.0 * y2) - (0.5 * y3)
	c3 := (0.5 * (y3 - y0)) + (1.5 * (y1 - y2))

	return (((((c3 * t) + c2) * t) + c1) * t) + c0
}
