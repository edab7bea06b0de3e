// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"sync"
)

// Voice is the point where the mixing graph meets an output device. Exactly
// one sample instance, stream or mixer can be attached. The voice mutex is
// shared with everything attached below it and is held for the whole pull.
//
// Driver calls are made with the voice locked, so a driver must not wait in
// StartVoice or StopVoice for its pull goroutine to call Update.
type Voice struct {
	mu     sync.Mutex
	driver Driver

	frequency int
	depth     Depth
	conf      ChannelConf

	attached  *instance
	streaming bool
	running   bool

	backend any
}

// NewVoice allocates a voice on drv in the given output format.
func NewVoice(drv Driver, frequency int, depth Depth, conf ChannelConf) (*Voice, error) {
	if drv == nil {
		return nil, ErrNoDriver
	}
	if frequency <= 0 {
		return nil, ErrInvalidFrequency
	}
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDepth, depth)
	}
	if !conf.Valid() {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidChannels, int(conf))
	}

	v := &Voice{
		driver:    drv,
		frequency: frequency,
		depth:     depth,
		conf:      conf,
	}
	if err := drv.AllocateVoice(v); err != nil {
		return nil, fmt.Errorf("allocating voice: %w", err)
	}
	return v, nil
}

func (v *Voice) Frequency() int        { return v.frequency }
func (v *Voice) Depth() Depth          { return v.depth }
func (v *Voice) Channels() ChannelConf { return v.conf }

// Streaming reports whether the driver pulls the voice through Update.
func (v *Voice) Streaming() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached != nil && v.streaming
}

// HasAttachment reports whether anything is attached.
func (v *Voice) HasAttachment() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached != nil
}

// SetBackendData stores driver private state on the voice.
func (v *Voice) SetBackendData(d any) { v.backend = d }

// BackendData returns what the driver stored with SetBackendData.
func (v *Voice) BackendData() any { return v.backend }

// Attach attaches a *SampleInstance, *Stream or *Mixer.
func (v *Voice) Attach(a Attachable) error {
	switch t := a.(type) {
	case *SampleInstance:
		return v.AttachSample(t)
	case *Stream:
		return v.AttachStream(t)
	case *Mixer:
		return v.AttachMixer(t)
	}
	return fmt.Errorf("%w: cannot attach %T to a voice", ErrInvalidParam, a)
}

func (v *Voice) checkAttach(in *instance) error {
	if v.attached != nil {
		return fmt.Errorf("%w: voice already has an attachment", ErrAlreadyAttached)
	}
	if in.attached() {
		return ErrAlreadyAttached
	}
	return nil
}

func (v *Voice) sameFormat(in *instance) bool {
	return in.data.conf == v.conf && in.data.frequency == v.frequency && in.data.buf.depth == v.depth
}

// link installs in as the attachment. The caller holds v.mu.
func (v *Voice) link(in *instance, streaming bool) {
	v.attached = in
	v.streaming = streaming
	in.setMutex(&v.mu)
	in.parentVoice = v
}

// unlink reverses link. The caller holds v.mu.
func (v *Voice) unlink() {
	in := v.attached
	in.setMutex(nil)
	in.parentVoice = nil
	in.read = nil
	v.attached = nil
	v.running = false
}

// AttachSample hands the sample to the driver to play without mixing. The
// formats must match exactly.
func (v *Voice) AttachSample(s *SampleInstance) error {
	in := &s.instance

	attachMu.Lock()
	defer attachMu.Unlock()
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkAttach(in); err != nil {
		return err
	}
	if !v.sameFormat(in) {
		return fmt.Errorf("%w: sample is %v %v at %d Hz, voice is %v %v at %d Hz", ErrFormatMismatch,
			in.data.conf, in.data.buf.depth, in.data.frequency, v.conf, v.depth, v.frequency)
	}

	v.link(in, false)
	in.read = nil

	vs := VoiceSample{
		Data:      in.data.Buffer(),
		Frames:    in.data.length,
		Mode:      in.mode,
		LoopStart: in.loopStart,
		LoopEnd:   in.loopEnd,
		Position:  in.pos,
		Reverse:   in.speed < 0,
	}
	err := v.driver.LoadVoice(v, vs)
	if err == nil && in.playing {
		if err = v.driver.StartVoice(v); err != nil {
			v.driver.UnloadVoice(v)
		}
	}
	if err != nil {
		v.unlink()
		return fmt.Errorf("loading sample into voice: %w", err)
	}

	logger.Debug("sample attached to voice", "frames", in.data.length, "frequency", v.frequency)
	return nil
}

// AttachStream lets the driver consume the stream fragments directly. The
// formats must match exactly.
func (v *Voice) AttachStream(s *Stream) error {
	in := &s.instance

	attachMu.Lock()
	defer attachMu.Unlock()
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkAttach(in); err != nil {
		return err
	}
	if !v.sameFormat(in) {
		return fmt.Errorf("%w: stream is %v %v at %d Hz, voice is %v %v at %d Hz", ErrFormatMismatch,
			in.data.conf, in.data.buf.depth, in.data.frequency, v.conf, v.depth, v.frequency)
	}

	v.link(in, true)
	if err := v.driver.StartVoice(v); err != nil {
		v.unlink()
		return fmt.Errorf("starting stream voice: %w", err)
	}
	v.running = true

	logger.Debug("stream attached to voice", "fragments", len(s.all), "frames", s.data.length)
	return nil
}

// AttachMixer makes the mixer the source of the voice. Channels and
// frequency must match; the mix is converted to the voice depth.
func (v *Voice) AttachMixer(m *Mixer) error {
	in := &m.instance

	attachMu.Lock()
	defer attachMu.Unlock()
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkAttach(in); err != nil {
		return err
	}
	if in.data.conf != v.conf || in.data.frequency != v.frequency {
		return fmt.Errorf("%w: mixer is %v at %d Hz, voice is %v at %d Hz", ErrFormatMismatch,
			in.data.conf, in.data.frequency, v.conf, v.frequency)
	}
	if !mixerFeeds(in.data.buf.depth, v.depth) {
		return fmt.Errorf("%w: %v mixer cannot feed a %v voice", ErrFormatMismatch, in.data.buf.depth, v.depth)
	}

	v.link(in, true)
	if err := v.driver.StartVoice(v); err != nil {
		v.unlink()
		return fmt.Errorf("starting mixer voice: %w", err)
	}
	v.running = true

	logger.Debug("mixer attached to voice", "frequency", v.frequency, "channels", v.conf)
	return nil
}

// Detach stops the voice and releases whatever is attached. A sample instance
// takes over the position and playing state the driver reached.
func (v *Voice) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()

	in := v.attached
	if in == nil {
		return
	}

	if !v.streaming {
		in.pos = v.driver.VoicePosition(v)
		in.posErr = 0
		in.playing = v.driver.VoiceIsPlaying(v)
		if err := v.driver.StopVoice(v); err != nil {
			logger.Warn("stopping voice", "err", err)
		}
		v.driver.UnloadVoice(v)
	} else if err := v.driver.StopVoice(v); err != nil {
		logger.Warn("stopping voice", "err", err)
	}

	v.unlink()
}

// Position is the driver position of an attached sample instance, and zero
// for streaming voices.
func (v *Voice) Position() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.attached == nil || v.streaming {
		return 0
	}
	return v.driver.VoicePosition(v)
}

// SetPosition moves the driver position of an attached sample instance.
func (v *Voice) SetPosition(pos int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.attached == nil || v.streaming {
		return fmt.Errorf("%w: voice is not playing a sample", ErrNotAttached)
	}
	return v.driver.SetVoicePosition(v, pos)
}

// Playing reports whether the voice produces sound.
func (v *Voice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.attached == nil {
		return false
	}
	if !v.streaming {
		return v.driver.VoiceIsPlaying(v)
	}
	return v.running
}

// SetPlaying starts or stops the driver for the attached object.
func (v *Voice) SetPlaying(playing bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.attached == nil {
		return fmt.Errorf("%w: voice has nothing attached", ErrNotAttached)
	}

	if !v.streaming {
		if v.driver.VoiceIsPlaying(v) == playing {
			return nil
		}
		if playing {
			return v.driver.StartVoice(v)
		}
		return v.driver.StopVoice(v)
	}
	return v.setRunning(playing)
}

// setStreamingPlaying is used by an attached stream starting or stopping.
func (v *Voice) setStreamingPlaying(playing bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setRunning(playing)
}

func (v *Voice) setRunning(playing bool) error {
	if v.running == playing {
		return nil
	}
	var err error
	if playing {
		err = v.driver.StartVoice(v)
	} else {
		err = v.driver.StopVoice(v)
	}
	if err == nil {
		v.running = playing
	}
	return err
}

// Update is the pull called by the driver for streaming voices. It returns
// up to frames frames in the voice format; zero frames means silence. The
// buffer is only valid until the next call.
func (v *Voice) Update(frames int) (Buffer, int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	in := v.attached
	if in == nil || !v.streaming || frames <= 0 {
		return Buffer{}, 0
	}

	switch {
	case in.mixer != nil:
		buf := in.mixer.mixFor(frames, v.depth)
		if buf.IsZero() {
			return Buffer{}, 0
		}
		return buf, frames
	case in.stream != nil:
		return in.stream.readDirect(frames)
	}
	return Buffer{}, 0
}

// Destroy detaches the voice and returns it to the driver.
func (v *Voice) Destroy() {
	v.Detach()
	v.driver.DeallocateVoice(v)
}
