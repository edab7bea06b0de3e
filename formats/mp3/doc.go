// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 files with github.com/hajimehoshi/go-mp3.
//
// The decoder always produces stereo, whatever the channel mode of the
// file, as float32 in [-1, 1). When the input is an io.ReadSeeker the
// source implements seeking, so MP3 files can be streamed with loops:
//
//	f, _ := os.Open("music.mp3")
//	src, err := mp3.Decoder{}.Decode(f)
//	stream, err := audio.NewSourceStream(src, 4, 2048, audio.DepthFloat32)
//	stream.SetPlaymode(audio.PlayLoop)
package mp3
