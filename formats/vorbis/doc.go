// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files with github.com/jfreymuth/oggvorbis.
//
// Samples are produced as float32 with the channel count of the file. When
// the input is an io.ReadSeeker the source seeks by frame, which lets
// streams loop and jump:
//
//	f, _ := os.Open("ambience.ogg")
//	src, err := vorbis.Decoder{}.Decode(f)
//	stream, err := audio.NewSourceStream(src, 4, 2048, audio.DepthFloat32)
package vorbis
