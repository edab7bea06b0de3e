// SPDX-License-Identifier: EPL-2.0

package audio

// VoiceSample describes a sample instance attached directly to a voice. The
// driver plays it from its own position, with no resampling or mixing.
type VoiceSample struct {
	Data      Buffer
	Frames    int
	Mode      Playmode
	LoopStart int
	LoopEnd   int
	// Position is the frame playback starts from.
	Position int
	// Reverse is set when the instance had a negative speed.
	Reverse bool
}

// Driver is what a Voice needs from an output device. A driver plays
// streaming voices by calling Voice.Update from its own goroutine, and
// non-streaming voices from the sample handed to LoadVoice.
//
// Errors returned by the driver are passed back unchanged to the caller of
// the Voice operation.
type Driver interface {
	Open() error
	Close() error

	AllocateVoice(v *Voice) error
	DeallocateVoice(v *Voice)

	// LoadVoice prepares a non-streaming voice to play s.
	LoadVoice(v *Voice, s VoiceSample) error
	UnloadVoice(v *Voice)

	StartVoice(v *Voice) error
	StopVoice(v *Voice) error

	// The following apply to non-streaming voices only.
	VoiceIsPlaying(v *Voice) bool
	VoicePosition(v *Voice) int
	SetVoicePosition(v *Voice, pos int) error
}
