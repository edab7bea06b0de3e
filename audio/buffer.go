// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"unsafe"

	"github.com/ik5/audmix/utils"
)

// Buffer is a tagged slice of interleaved sample values. Exactly one of the
// typed slices is in use, selected by the depth. 24-bit values are kept in
// 32-bit containers.
//
// A Buffer is a small value; copies share the same backing memory.
type Buffer struct {
	depth Depth

	f32 []float32
	s16 []int16
	u16 []uint16
	s8  []int8
	u8  []uint8
	s24 []int32
	u24 []uint32
}

// NewBuffer allocates a buffer holding n sample values (not frames) of depth.
func NewBuffer(depth Depth, n int) Buffer {
	b := Buffer{depth: depth}
	switch depth {
	case DepthFloat32:
		b.f32 = make([]float32, n)
	case DepthInt16:
		b.s16 = make([]int16, n)
	case DepthUint16:
		b.u16 = make([]uint16, n)
	case DepthInt8:
		b.s8 = make([]int8, n)
	case DepthUint8:
		b.u8 = make([]uint8, n)
	case DepthInt24:
		b.s24 = make([]int32, n)
	case DepthUint24:
		b.u24 = make([]uint32, n)
	}
	b.FillSilence(0, n)
	return b
}

// Float32Buffer wraps s without copying.
func Float32Buffer(s []float32) Buffer { return Buffer{depth: DepthFloat32, f32: s} }

// Int16Buffer wraps s without copying.
func Int16Buffer(s []int16) Buffer { return Buffer{depth: DepthInt16, s16: s} }

// Uint16Buffer wraps s without copying.
func Uint16Buffer(s []uint16) Buffer { return Buffer{depth: DepthUint16, u16: s} }

// Int8Buffer wraps s without copying.
func Int8Buffer(s []int8) Buffer { return Buffer{depth: DepthInt8, s8: s} }

// Uint8Buffer wraps s without copying.
func Uint8Buffer(s []uint8) Buffer { return Buffer{depth: DepthUint8, u8: s} }

// Int24Buffer wraps s without copying. Values must fit in 24 bits.
func Int24Buffer(s []int32) Buffer { return Buffer{depth: DepthInt24, s24: s} }

// Uint24Buffer wraps s without copying. Values must fit in 24 bits.
func Uint24Buffer(s []uint32) Buffer { return Buffer{depth: DepthUint24, u24: s} }

func (b Buffer) Depth() Depth { return b.depth }

func (b Buffer) F32() []float32 { return b.f32 }
func (b Buffer) S16() []int16   { return b.s16 }
func (b Buffer) U16() []uint16  { return b.u16 }
func (b Buffer) S8() []int8     { return b.s8 }
func (b Buffer) U8() []uint8    { return b.u8 }
func (b Buffer) S24() []int32   { return b.s24 }
func (b Buffer) U24() []uint32  { return b.u24 }

// Len returns the number of sample values (frames times channels).
func (b Buffer) Len() int {
	switch b.depth {
	case DepthFloat32:
		return len(b.f32)
	case DepthInt16:
		return len(b.s16)
	case DepthUint16:
		return len(b.u16)
	case DepthInt8:
		return len(b.s8)
	case DepthUint8:
		return len(b.u8)
	case DepthInt24:
		return len(b.s24)
	case DepthUint24:
		return len(b.u24)
	}
	return 0
}

// IsZero reports whether the buffer has no backing storage at all.
func (b Buffer) IsZero() bool {
	return b.f32 == nil && b.s16 == nil && b.u16 == nil && b.s8 == nil &&
		b.u8 == nil && b.s24 == nil && b.u24 == nil
}

// Slice returns the sub-buffer [from, to) sharing memory with b.
func (b Buffer) Slice(from, to int) Buffer {
	out := Buffer{depth: b.depth}
	switch b.depth {
	case DepthFloat32:
		out.f32 = b.f32[from:to]
	case DepthInt16:
		out.s16 = b.s16[from:to]
	case DepthUint16:
		out.u16 = b.u16[from:to]
	case DepthInt8:
		out.s8 = b.s8[from:to]
	case DepthUint8:
		out.u8 = b.u8[from:to]
	case DepthInt24:
		out.s24 = b.s24[from:to]
	case DepthUint24:
		out.u24 = b.u24[from:to]
	}
	return out
}

// CopyFrom copies n values from src[from:] into b[at:]. Both buffers must
// share the same depth. It returns the number of values copied.
func (b Buffer) CopyFrom(at int, src Buffer, from, n int) int {
	if b.depth != src.depth {
		return 0
	}
	switch b.depth {
	case DepthFloat32:
		return copy(b.f32[at:at+n], src.f32[from:from+n])
	case DepthInt16:
		return copy(b.s16[at:at+n], src.s16[from:from+n])
	case DepthUint16:
		return copy(b.u16[at:at+n], src.u16[from:from+n])
	case DepthInt8:
		return copy(b.s8[at:at+n], src.s8[from:from+n])
	case DepthUint8:
		return copy(b.u8[at:at+n], src.u8[from:from+n])
	case DepthInt24:
		return copy(b.s24[at:at+n], src.s24[from:from+n])
	case DepthUint24:
		return copy(b.u24[at:at+n], src.u24[from:from+n])
	}
	return 0
}

// FillSilence writes n silent values starting at from. Silence is zero for
// signed depths and the mid point for unsigned ones.
func (b Buffer) FillSilence(from, n int) {
	switch b.depth {
	case DepthFloat32:
		clear(b.f32[from : from+n])
	case DepthInt16:
		clear(b.s16[from : from+n])
	case DepthInt8:
		clear(b.s8[from : from+n])
	case DepthInt24:
		clear(b.s24[from : from+n])
	case DepthUint16:
		fill(b.u16[from:from+n], 0x8000)
	case DepthUint8:
		fill(b.u8[from:from+n], 0x80)
	case DepthUint24:
		fill(b.u24[from:from+n], 0x800000)
	}
}

func fill[T any](s []T, v T) {
	for i := range s {
		s[i] = v
	}
}

// Float returns value i converted to float32 in [-1, 1).
func (b Buffer) Float(i int) float32 {
	switch b.depth {
	case DepthFloat32:
		return b.f32[i]
	case DepthInt16:
		return utils.Int16ToFloat(b.s16[i])
	case DepthUint16:
		return utils.Uint16ToFloat(b.u16[i])
	case DepthInt8:
		return utils.Int8ToFloat(b.s8[i])
	case DepthUint8:
		return utils.Uint8ToFloat(b.u8[i])
	case DepthInt24:
		return utils.Int24ToFloat(b.s24[i])
	case DepthUint24:
		return utils.Uint24ToFloat(b.u24[i])
	}
	return 0
}

// Int16 returns value i converted to a signed 16-bit value.
func (b Buffer) Int16(i int) int16 {
	switch b.depth {
	case DepthFloat32:
		return utils.FloatToInt16Truncate(b.f32[i])
	case DepthInt16:
		return b.s16[i]
	case DepthUint16:
		return int16(int32(b.u16[i]) - 0x8000)
	case DepthInt8:
		return int16(b.s8[i]) << 7
	case DepthUint8:
		return int16(int32(b.u8[i])-0x80) << 7
	case DepthInt24:
		return int16(b.s24[i] >> 9)
	case DepthUint24:
		return int16((int32(b.u24[i]) - 0x800000) >> 9)
	}
	return 0
}

// PutFloat stores v at i, converting and clamping to the buffer depth.
func (b Buffer) PutFloat(i int, v float32) {
	switch b.depth {
	case DepthFloat32:
		b.f32[i] = v
	case DepthInt16:
		b.s16[i] = int16(utils.FloatToFixed(v, 0x7FFF))
	case DepthUint16:
		b.u16[i] = uint16(utils.FloatToFixed(v, 0x7FFF) + 0x8000)
	case DepthInt8:
		b.s8[i] = int8(utils.FloatToFixed(v, 0x7F))
	case DepthUint8:
		b.u8[i] = uint8(utils.FloatToFixed(v, 0x7F) + 0x80)
	case DepthInt24:
		b.s24[i] = utils.FloatToFixed(v, 0x7FFFFF)
	case DepthUint24:
		b.u24[i] = uint32(utils.FloatToFixed(v, 0x7FFFFF) + 0x800000)
	}
}

// Bytes returns the native-endian memory of the buffer. The returned slice
// aliases the buffer.
func (b Buffer) Bytes() []byte {
	switch b.depth {
	case DepthFloat32:
		return asBytes(b.f32)
	case DepthInt16:
		return asBytes(b.s16)
	case DepthUint16:
		return asBytes(b.u16)
	case DepthInt8:
		return asBytes(b.s8)
	case DepthUint8:
		return b.u8
	case DepthInt24:
		return asBytes(b.s24)
	case DepthUint24:
		return asBytes(b.u24)
	}
	return nil
}

func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// BufferFromBytes copies raw native-endian sample memory into a new Buffer.
func BufferFromBytes(depth Depth, p []byte) (Buffer, error) {
	if !depth.Valid() {
		return Buffer{}, fmt.Errorf("%w: %v", ErrInvalidDepth, depth)
	}
	if len(p)%depth.Size() != 0 {
		return Buffer{}, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrInvalidParam, len(p), depth.Size())
	}
	b := NewBuffer(depth, len(p)/depth.Size())
	copy(b.Bytes(), p)
	return b, nil
}
