// SPDX-License-Identifier: EPL-2.0

// Package driver plays audio.Voice objects on an output device.
//
// Driver implements audio.Driver over a small Backend capability. Each voice
// gets an Output from the backend and a goroutine that loops through four
// states: idle, playing, stopping and joining. While playing it produces one
// period of frames at a time and writes it to the output, whose blocking
// Write paces the loop:
//
//   - streaming voices (a mixer or a stream attached) are pulled with
//     Voice.Update; a voice with nothing to give is covered with silence;
//   - sample voices are copied from the loaded sample at a position held by
//     the driver, following the once, loop, bidir and loop-once playmodes.
//
// StartVoice and StopVoice only change the state and never wait for the
// loop, since the audio package calls them with the voice locked.
//
// Backends live in sub-packages:
//
//	driver/capture  in-memory output, for tests and offline rendering
//	driver/malgo    miniaudio playback device per voice (cgo)
//	driver/oto      oto player per voice (cgo)
//
// Device backends bridge the voice loop to their callbacks with a Pipe.
//
// Metrics exports period, underrun, pull latency and voice counts to
// Prometheus:
//
//	m, err := driver.NewMetrics(prometheus.DefaultRegisterer)
//	drv := driver.New(malgo.New(), driver.WithMetrics(m))
package driver
