// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF files with github.com/go-audio/aiff.
//
// Uncompressed AIFF at 8, 16, 24 and 32 bits is supported with any channel
// count. Samples come out as float32 in [-1, 1), and the source can seek:
//
//	src, err := aiff.Decoder{}.Decode(file)
//	data, err := audio.LoadSample(src, audio.DepthInt16)
//
// Readers that are not io.ReadSeeker are read into memory first.
package aiff
