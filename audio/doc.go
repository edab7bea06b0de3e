// SPDX-License-Identifier: EPL-2.0

// Package audio is a software mixing engine: sample data, playing instances
// of it, buffered streams, mixers that resample and remix their children,
// and voices that hand the result to an output driver.
//
// # Object graph
//
// Playback is a tree pulled from the root:
//
//	Voice  <-  Mixer  <-  Mixer        <-  SampleInstance
//	                  <-  Stream
//	                  <-  SampleInstance
//
// A Voice pulls its single attachment whenever the driver needs more frames.
// A Mixer pulls every playing child, converts it to its own rate with the
// interpolation kernel selected by its Quality, applies the child's channel
// matrix and adds the result into its buffer. Mixers nest.
//
// Every object starts detached. Attaching a child to a mixer fails when the
// child is already attached somewhere else or when the mixer would end up
// attached below itself.
//
// # Sample data
//
// SampleData is a block of interleaved PCM in one of seven depths (signed
// and unsigned 8, 16 and 24-bit, plus float32) and one of the predefined
// channel layouts from mono to 7.1:
//
//	data, err := audio.CreateSampleData(44100, 44100, audio.DepthInt16, audio.Channels2)
//	inst := audio.NewSampleInstance(data)
//	inst.SetPlaymode(audio.PlayLoop)
//
// LoadSample decodes a whole Source into SampleData.
//
// # Playmodes
//
// PlayOnce stops at the end. PlayLoop wraps between the loop points and
// PlayBidir bounces between them. Negative speeds play backwards.
//
// # Streams
//
// A Stream plays a queue of fixed size fragments. The application fills a
// fragment taken with GetFragment and queues it back with SetFragment; once a
// fragment has been played it is returned on the Events channel. A Stream
// can instead be driven by a StreamFeeder running on its own goroutine;
// NewSourceStream wires any Source this way:
//
//	s, err := audio.NewSourceStream(src, 4, 1024, audio.DepthFloat32)
//	defer s.Close()
//	mixer.Attach(s)
//	s.DrainContext(ctx)
//
// # Channel matrices
//
// Each instance carries a matrix with one row per output channel. It is
// derived from the source and destination layouts, the gain and the pan
// whenever any of them changes. Mono sources are spread with constant power
// panning; set the pan to PanNone to disable it.
//
// # Source adapters
//
// Decoders produce a Source, a pull based stream of float32 values. The
// Resampler and Remixer adapt a Source to another rate or layout without
// going through a mixer.
//
// # Errors
//
// Operations return errors wrapping the sentinels in errors.go. CodeOf maps
// any of them to the coarse error code of the engine.
//
// # Logging
//
// The package logs through charmbracelet/log with the "audio" prefix.
// SetLogger replaces the logger.
package audio
