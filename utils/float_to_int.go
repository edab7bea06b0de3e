// SPDX-License-Identifier: EPL-2.0

package utils

// FloatToFixed scales x by limit+0.5 and clamps to [-limit-1, limit]. This is the
// conversion applied when mixed output is handed to a voice.
func FloatToFixed(x float32, limit int32) int32 {
	v := x * (float32(limit) + 0.5)
	if v >= float32(limit) {
		return limit
	}
	if v <= float32(^limit) {
		return ^limit
	}
	return int32(v)
}

// FloatToInt16Truncate scales x by 0x7FFF without rounding, clamping values
// outside the int16 range.
func FloatToInt16Truncate(x float32) int16 {
	v := x * 0x7FFF
	if v >= 0x7FFF {
		return 0x7FFF
	}
	if v <= -0x8000 {
		return -0x8000
	}
	return int16(v)
}

// ClampInt16 saturates v to the int16 range.
func ClampInt16(v int32) int16 {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int16(v)
}
