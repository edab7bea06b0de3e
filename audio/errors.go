// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	ErrInvalidParam     = errors.New("invalid parameter")
	ErrInvalidFrequency = errors.New("frequency must be greater than zero")
	ErrInvalidDepth     = errors.New("unsupported audio depth")
	ErrInvalidChannels  = errors.New("unsupported channel configuration")
	ErrInvalidSpeed     = errors.New("speed magnitude too small")
	ErrInvalidPan       = errors.New("pan must be within [-1, 1] or PanNone")
	ErrInvalidLoop      = errors.New("invalid loop range")
	ErrInvalidMatrix    = errors.New("channel matrix has the wrong size")
	ErrBufferTooSmall   = errors.New("buffer too small for the requested length")

	ErrAlreadyAttached  = errors.New("already attached")
	ErrNotAttached      = errors.New("not attached")
	ErrAttachedToVoice  = errors.New("not allowed while attached to a voice")
	ErrFormatMismatch   = errors.New("format does not match the parent")
	ErrMixerHasChildren = errors.New("mixer has attached children")
	ErrPlaying          = errors.New("not allowed while playing")
	ErrNoSample         = errors.New("no sample data")

	ErrPendingFull     = errors.New("stream pending fragment list is full")
	ErrForeignFragment = errors.New("fragment does not belong to this stream")
	ErrNoFeeder        = errors.New("stream has no feeder")
	ErrNotSupported    = errors.New("operation not supported by the feeder")
	ErrStreamClosed    = errors.New("stream is closed")

	ErrNoDriver = errors.New("voice has no driver")
)

// Code classifies an error the way a caller querying the last error would
// see it.
type Code int

const (
	CodeNone Code = iota
	CodeInvalidParam
	CodeInvalidObject
	CodeGeneric
)

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeInvalidParam:
		return "invalid parameter"
	case CodeInvalidObject:
		return "invalid object"
	}
	return "generic error"
}

var invalidParam = []error{
	ErrInvalidDstSize, ErrInvalidParam, ErrInvalidFrequency, ErrInvalidDepth,
	ErrInvalidChannels, ErrInvalidSpeed, ErrInvalidPan, ErrInvalidLoop,
	ErrInvalidMatrix, ErrBufferTooSmall, ErrFormatMismatch,
}

var invalidObject = []error{
	ErrAlreadyAttached, ErrNotAttached, ErrAttachedToVoice, ErrMixerHasChildren,
	ErrPlaying, ErrNoSample, ErrPendingFull, ErrForeignFragment, ErrNoFeeder,
	ErrStreamClosed, ErrNoDriver,
}

// CodeOf returns the class of err. A nil error is CodeNone.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	for _, e := range invalidParam {
		if errors.Is(err, e) {
			return CodeInvalidParam
		}
	}
	for _, e := range invalidObject {
		if errors.Is(err, e) {
			return CodeInvalidObject
		}
	}
	return CodeGeneric
}
