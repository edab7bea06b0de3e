// SPDX-License-Identifier: EPL-2.0

package aiff

import "errors"

var (
	// ErrNotAiffFile indicates the input is not an AIFF or AIFF-C file.
	ErrNotAiffFile = errors.New("not an AIFF file")

	// ErrUnsupportedAiffLayout indicates a header the decoder cannot use.
	ErrUnsupportedAiffLayout = errors.New("unsupported AIFF layout")
)
