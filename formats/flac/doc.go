// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC files with github.com/tphakala/flac.
//
// 8, 16, 24 and 32-bit streams are supported with any channel count.
// Decoding is sequential; use audio.LoadSample for random access:
//
//	src, err := flac.Decoder{}.Decode(file)
//	data, err := audio.LoadSample(src, audio.DepthInt24)
package flac
