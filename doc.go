// SPDX-License-Identifier: EPL-2.0

// Package audmix holds the high level helpers of the audmix mixing engine.
//
// ResampleToMono16 turns any decoded source into mono 16-bit PCM at a given
// rate, for speech and telephony pipelines:
//
//	src, _ := wav.Decoder{}.Decode(file)
//	pcm, rate, err := audmix.ResampleToMono16(src, 8000, 4096)
//
// Mixdown mixes whole samples offline through an audio.Mixer without
// opening a device:
//
//	mix, err := audmix.Mixdown([]*audio.SampleData{drums, bass}, audmix.MixdownOptions{
//		Frequency: 44100,
//		Channels:  audio.Channels2,
//		Depth:     audio.DepthInt16,
//	})
//	err = wav.SaveSample(out, mix)
//
// # Packages
//
//   - audio: sample data, instances, streams, mixers and voices
//   - driver: the voice loop shared by output backends, with the malgo, oto
//     and capture backends below it
//   - engine: default voice and mixer, reserved samples, configuration
//   - formats: decoders for wav, aiff, mp3, ogg vorbis and flac
//
// The audmix command in cmd/audmix plays, renders and inspects files.
package audmix
