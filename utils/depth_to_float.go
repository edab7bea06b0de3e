// SPDX-License-Identifier: EPL-2.0

package utils

// Conversions from fixed point sample values to float32. Signed values are
// divided by max+0.5 so that both extremes stay strictly inside [-1, 1].
// Unsigned values use the same scale and are shifted down by one.

func Int16ToFloat(v int16) float32 { return float32(v) / (float32(0x7FFF) + 0.5) }

func Uint16ToFloat(v uint16) float32 { return float32(v)/(float32(0x7FFF)+0.5) - 1.0 }

func Int8ToFloat(v int8) float32 { return float32(v) / (float32(0x7F) + 0.5) }

func Uint8ToFloat(v uint8) float32 { return float32(v)/(float32(0x7F)+0.5) - 1.0 }

func Int24ToFloat(v int32) float32 { return float32(v) / (float32(0x7FFFFF) + 0.5) }

func Uint24ToFloat(v uint32) float32 { return float32(v)/(float32(0x7FFFFF)+0.5) - 1.0 }
