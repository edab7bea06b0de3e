// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes WAV files.
//
// The Decoder accepts integer PCM at 8 (unsigned), 16, 24 and 32 bits with
// any channel count, parsed by github.com/go-audio/wav. Sources it returns
// implement audio.SeekableSource, so they can be streamed with looping and
// seeking:
//
//	src, err := wav.Decoder{}.Decode(file)
//	stream, err := audio.NewSourceStream(src, 4, 1024, audio.DepthFloat32)
//
// Readers that are not io.ReadSeeker are read into memory first.
//
// SaveSample stores any audio.SampleData through the go-audio encoder,
// keeping 24-bit data at 24 bits and writing everything else as 16-bit PCM.
// WriteWAV16 is a header-first writer for int16 data that works on plain
// io.Writer values such as pipes.
package wav
