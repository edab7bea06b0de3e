// SPDX-License-Identifier: EPL-2.0

package driver

import "errors"

var (
	ErrNotOpen           = errors.New("driver is not open")
	ErrUnknownVoice      = errors.New("voice was not allocated by this driver")
	ErrVoiceClosed       = errors.New("voice has been deallocated")
	ErrUnsupportedFormat = errors.New("output format not supported by the backend")
)
