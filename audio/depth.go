// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Depth describes how a single sample value is stored.
// The low bits select the width, DepthUnsigned marks the unsigned variants.
type Depth int

const (
	DepthInt8    Depth = 0x00
	DepthInt16   Depth = 0x01
	DepthInt24   Depth = 0x02
	DepthFloat32 Depth = 0x03

	DepthUnsigned Depth = 0x08

	DepthUint8  = DepthInt8 | DepthUnsigned
	DepthUint16 = DepthInt16 | DepthUnsigned
	DepthUint24 = DepthInt24 | DepthUnsigned
)

// Size returns the number of bytes used to store one sample value.
// 24-bit samples live in a 32-bit container.
func (d Depth) Size() int {
	switch d.Signed() {
	case DepthInt8:
		return 1
	case DepthInt16:
		return 2
	case DepthInt24, DepthFloat32:
		return 4
	}
	return 0
}

// Signed strips the unsigned flag.
func (d Depth) Signed() Depth { return d &^ DepthUnsigned }

// Unsigned reports whether the depth carries the unsigned flag.
func (d Depth) Unsigned() bool { return d&DepthUnsigned != 0 }

// Valid reports whether d is one of the seven supported depths.
func (d Depth) Valid() bool {
	switch d {
	case DepthInt8, DepthInt16, DepthInt24, DepthFloat32,
		DepthUint8, DepthUint16, DepthUint24:
		return true
	}
	return false
}

func (d Depth) String() string {
	switch d {
	case DepthInt8:
		return "int8"
	case DepthUint8:
		return "uint8"
	case DepthInt16:
		return "int16"
	case DepthUint16:
		return "uint16"
	case DepthInt24:
		return "int24"
	case DepthUint24:
		return "uint24"
	case DepthFloat32:
		return "float32"
	}
	return fmt.Sprintf("Depth(%#x)", int(d))
}

// ParseDepth converts a name as produced by Depth.String back into a Depth.
func ParseDepth(s string) (Depth, error) {
	for _, d := range []Depth{DepthInt8, DepthUint8, DepthInt16, DepthUint16, DepthInt24, DepthUint24, DepthFloat32} {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDepth, s)
}

// Quality selects the interpolation kernel a mixer uses for its children.
type Quality int

const (
	QualityPoint Quality = iota
	QualityLinear
	QualityCubic
)

func (q Quality) String() string {
	switch q {
	case QualityPoint:
		return "point"
	case QualityLinear:
		return "linear"
	case QualityCubic:
		return "cubic"
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality converts "point", "linear" or "cubic" into a Quality.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "point":
		return QualityPoint, nil
	case "linear":
		return QualityLinear, nil
	case "cubic":
		return QualityCubic, nil
	}
	return 0, fmt.Errorf("%w: quality %q", ErrInvalidParam, s)
}
