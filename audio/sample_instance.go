// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// SampleInstance plays one SampleData with its own position, speed, gain,
// pan and loop settings. Many instances may share the same sample memory.
type SampleInstance struct {
	instance
}

// NewSampleInstance creates a stopped instance playing data once. data may be
// nil and set later with SetSample.
func NewSampleInstance(data *SampleData) *SampleInstance {
	s := &SampleInstance{}
	var d SampleData
	if data != nil {
		d = *data
		d.owned = false
	}
	s.init(d)
	return s
}

// Sample returns the sample data the instance plays, or nil.
func (s *SampleInstance) Sample() *SampleData {
	if s.data.buf.IsZero() {
		return nil
	}
	d := s.data
	return &d
}

// SetSample changes the sample data. A playing instance is stopped first. If
// the new data has a different format, the instance is reattached so the
// parent can pick a matching mixing path. A nil data detaches the instance.
func (s *SampleInstance) SetSample(data *SampleData) error {
	if s.Playing() {
		if err := s.SetPlaying(false); err != nil {
			return err
		}
	}

	if data == nil {
		s.detach()
		s.data.buf = Buffer{}
		s.data.length = 0
		return nil
	}

	d := *data
	d.owned = false

	if !s.attached() || s.data.sameFormat(&d) {
		mu := lockMaybe(s.mu)
		s.data = d
		s.pos = 0
		s.posErr = 0
		s.loopStart = 0
		s.loopEnd = d.length
		unlockMaybe(mu)
		return nil
	}

	// Format changed while attached: detach and attach again.
	oldMixer, oldVoice := s.parentMixer, s.parentVoice
	s.detach()

	s.data = d
	s.pos = 0
	s.posErr = 0
	s.loopStart = 0
	s.loopEnd = d.length

	var err error
	if oldMixer != nil {
		err = oldMixer.Attach(s)
	} else {
		err = oldVoice.AttachSample(s)
	}
	if err != nil {
		s.data.buf = Buffer{}
		s.data.length = 0
		return fmt.Errorf("reattaching with the new sample: %w", err)
	}
	return nil
}

func (s *SampleInstance) Frequency() int        { return s.data.frequency }
func (s *SampleInstance) Channels() ChannelConf { return s.data.conf }
func (s *SampleInstance) Depth() Depth          { return s.data.buf.depth }
func (s *SampleInstance) Length() int           { return s.data.length }
func (s *SampleInstance) Speed() float32        { return s.speed }
func (s *SampleInstance) Gain() float32         { return s.gain }
func (s *SampleInstance) Pan() float32          { return s.pan }
func (s *SampleInstance) Playmode() Playmode    { return s.mode }
func (s *SampleInstance) Attached() bool        { return s.attached() }

// Loop returns the loop range in frames.
func (s *SampleInstance) Loop() (start, end int) { return s.loopStart, s.loopEnd }

// Duration is the playing time of the sample at the current speed.
func (s *SampleInstance) Duration() time.Duration {
	if s.data.frequency == 0 {
		return 0
	}
	secs := float64(s.data.length) / float64(s.data.frequency) / float64(s.speed)
	if secs < 0 {
		secs = -secs
	}
	return time.Duration(secs * float64(time.Second))
}

// Position returns the playback position in frames.
func (s *SampleInstance) Position() int {
	if s.parentVoice != nil {
		return s.parentVoice.Position()
	}
	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)
	return s.pos
}

// SetPosition moves the playback position to frame pos.
func (s *SampleInstance) SetPosition(pos int) error {
	if pos < 0 || pos >= max(s.data.length, 1) {
		return fmt.Errorf("%w: position %d outside [0, %d)", ErrInvalidParam, pos, s.data.length)
	}
	if s.parentVoice != nil {
		return s.parentVoice.SetPosition(pos)
	}

	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)
	s.pos = pos
	s.posErr = 0
	return nil
}

// SetLength shortens or restores the number of frames played. It fails while
// playing.
func (s *SampleInstance) SetLength(length int) error {
	if s.Playing() {
		return ErrPlaying
	}
	if length < 0 || length*s.data.conf.Count() > s.data.buf.Len() {
		return fmt.Errorf("%w: length %d", ErrBufferTooSmall, length)
	}

	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)
	s.data.length = length
	s.loopEnd = length
	if s.loopStart > length {
		s.loopStart = 0
	}
	return nil
}

// SetSpeed sets the relative playback speed. Negative speeds play backwards.
func (s *SampleInstance) SetSpeed(speed float32) error {
	if !validSpeed(speed) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	if s.parentVoice != nil {
		return ErrAttachedToVoice
	}

	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)
	s.speed = speed
	if s.parentMixer != nil {
		s.computeStep()
	}
	return nil
}

// SetGain sets the linear gain.
func (s *SampleInstance) SetGain(gain float32) error { return s.setGain(gain) }

// SetPan sets the stereo position, -1 is hard left and 1 hard right. PanNone
// disables panning.
func (s *SampleInstance) SetPan(pan float32) error { return s.setPan(pan) }

// SetChannelMatrix replaces the remix matrix of a mixer attached instance
// until gain or pan changes. mat has one row of Channels().Count()
// coefficients per mixer channel.
func (s *SampleInstance) SetChannelMatrix(mat []float32) error { return s.setChannelMatrix(mat) }

// ChannelMatrix returns the remix matrix in use, or nil while not attached
// to a mixer.
func (s *SampleInstance) ChannelMatrix() []float32 { return s.channelMatrix() }

// SetPlaymode selects what happens at the end of the sample or loop.
func (s *SampleInstance) SetPlaymode(mode Playmode) error {
	switch mode {
	case PlayOnce, PlayLoop, PlayBidir, PlayLoopOnce:
	default:
		return fmt.Errorf("%w: playmode %v", ErrInvalidParam, mode)
	}

	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)

	s.mode = mode
	if mode != PlayOnce && s.loopEnd > s.loopStart {
		s.pos = min(max(s.pos, s.loopStart), s.loopEnd-1)
	}
	return nil
}

// SetLoop sets the loop range [start, end) in frames.
func (s *SampleInstance) SetLoop(start, end int) error {
	if start < 0 || start >= end || end > s.data.length {
		return fmt.Errorf("%w: [%d, %d) with length %d", ErrInvalidLoop, start, end, s.data.length)
	}

	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)

	s.loopStart = start
	s.loopEnd = end
	if s.mode != PlayOnce {
		s.pos = min(max(s.pos, start), end-1)
	}
	return nil
}

// Playing reports whether the instance is playing.
func (s *SampleInstance) Playing() bool {
	if s.parentVoice != nil {
		return s.parentVoice.Playing()
	}
	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)
	return s.playing
}

// SetPlaying starts or stops playback. Stopping a mixer attached instance
// rewinds it.
func (s *SampleInstance) SetPlaying(playing bool) error {
	if s.parentVoice != nil && !s.data.buf.IsZero() {
		return s.parentVoice.SetPlaying(playing)
	}

	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)

	s.playing = playing
	if !playing && s.parentMixer != nil && !s.data.buf.IsZero() {
		s.pos = 0
		s.posErr = 0
	}
	return nil
}

// Play is SetPlaying(true).
func (s *SampleInstance) Play() error { return s.SetPlaying(true) }

// Stop is SetPlaying(false).
func (s *SampleInstance) Stop() error { return s.SetPlaying(false) }

// Detach removes the instance from its mixer or voice.
func (s *SampleInstance) Detach() { s.detach() }

// Destroy detaches the instance and drops its sample reference.
func (s *SampleInstance) Destroy() {
	s.detach()
	s.playing = false
	s.data = SampleData{}
}
