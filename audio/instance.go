// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"math"
	"slices"
	"sync"
)

// minSpeed is the smallest speed magnitude accepted. Anything slower could
// round the resampling step down to zero.
const minSpeed = 1.0 / 64.0

// Attachable is implemented by everything that can be attached to a Mixer
// or a Voice: *SampleInstance, *Stream and *Mixer.
type Attachable interface {
	core() *instance
}

// mixFunc mixes frames from the instance into dst, which has dstChannels
// interleaved channels and the depth of the parent mixer.
type mixFunc func(dst Buffer, frames, dstChannels int)

// instance is the playback cursor shared by samples, streams and mixers.
type instance struct {
	data SampleData
	// origin is the number of frames stored in data.buf before frame 0.
	// Streams keep their look-ahead region there.
	origin int

	playing bool
	mode    Playmode
	speed   float32
	gain    float32
	pan     float32

	pos       int
	posErr    int
	loopStart int
	loopEnd   int
	step      int
	stepDenom int

	matrix []float32
	read   mixFunc

	mu *sync.Mutex

	parentMixer *Mixer
	parentVoice *Voice

	stream *Stream
	mixer  *Mixer
}

func (in *instance) core() *instance { return in }

func (in *instance) init(data SampleData) {
	in.data = data
	in.mode = PlayOnce
	in.speed = 1
	in.gain = 1
	in.pan = 0
	in.loopStart = 0
	in.loopEnd = data.length
}

// attachMu serializes attaching, so a free instance is claimed by at most one
// mixer or voice.
var attachMu sync.Mutex

func lockMaybe(mu *sync.Mutex) *sync.Mutex {
	if mu != nil {
		mu.Lock()
	}
	return mu
}

func unlockMaybe(mu *sync.Mutex) {
	if mu != nil {
		mu.Unlock()
	}
}

// setMutex shares mu with in and, for mixers, with the whole subtree.
func (in *instance) setMutex(mu *sync.Mutex) {
	in.mu = mu
	if in.mixer != nil {
		for _, c := range in.mixer.children {
			c.setMutex(mu)
		}
	}
}

func (in *instance) attached() bool { return in.parentMixer != nil || in.parentVoice != nil }

// computeStep derives the Bresenham numerator from frequency and speed.
// A zero step would never advance, so it is forced to one sample.
func (in *instance) computeStep() {
	in.step = int(float32(in.data.frequency) * in.speed)
	if in.step == 0 {
		if in.speed > 0 {
			in.step = 1
		} else {
			in.step = -1
		}
	}
}

// bresenham splits the step into a whole number of source frames per output
// frame plus the remainder that accumulates in posErr.
func (in *instance) bresenham() (delta, deltaErr int) {
	if in.step > 0 {
		delta = in.step
	} else {
		delta = in.step - in.stepDenom + 1
	}
	delta /= in.stepDenom
	deltaErr = in.step - delta*in.stepDenom
	return delta, deltaErr
}

func (in *instance) advance(delta, deltaErr int) {
	in.pos += delta
	in.posErr += deltaErr
	if in.posErr >= in.stepDenom {
		in.pos++
		in.posErr -= in.stepDenom
	}
}

// rejig recomputes the matrix against the parent mixer's layout. The caller
// holds the shared mutex.
func (in *instance) rejig() {
	m := in.parentMixer
	if m == nil || in.mixer != nil {
		return
	}
	in.matrix = rechannelMatrix(in.data.conf, m.data.conf, in.gain, in.pan)
}

func validPan(pan float32) bool {
	return pan == PanNone || (pan >= -1 && pan <= 1)
}

func validSpeed(speed float32) bool {
	return math.Abs(float64(speed)) >= minSpeed
}

// detach is shared by every Attachable. It is a no-op when unattached.
func (in *instance) detach() {
	switch {
	case in.parentVoice != nil:
		in.parentVoice.Detach()
	case in.parentMixer != nil:
		in.parentMixer.removeChild(in)
	}
}

func (in *instance) setGain(gain float32) error {
	if in.parentVoice != nil {
		return ErrAttachedToVoice
	}
	mu := lockMaybe(in.mu)
	defer unlockMaybe(mu)

	if in.gain != gain {
		in.gain = gain
		in.rejig()
	}
	return nil
}

func (in *instance) setPan(pan float32) error {
	if in.parentVoice != nil {
		return ErrAttachedToVoice
	}
	if !validPan(pan) {
		return ErrInvalidPan
	}
	mu := lockMaybe(in.mu)
	defer unlockMaybe(mu)

	if in.pan != pan {
		in.pan = pan
		in.rejig()
	}
	return nil
}

// setChannelMatrix overrides the derived matrix until the next gain, pan or
// parent change recomputes it. It has no effect while unattached.
func (in *instance) setChannelMatrix(mat []float32) error {
	if in.parentVoice != nil {
		return ErrAttachedToVoice
	}
	m := in.parentMixer
	if m == nil {
		return nil
	}
	if want := in.data.conf.Count() * m.data.conf.Count(); len(mat) != want {
		return fmt.Errorf("%w: got %d coefficients, want %d", ErrInvalidMatrix, len(mat), want)
	}

	mu := lockMaybe(in.mu)
	defer unlockMaybe(mu)
	in.matrix = slices.Clone(mat)
	return nil
}

// channelMatrix returns a copy of the current remix matrix, flattened row
// by row with one row per output channel. It is nil unless mixer attached.
func (in *instance) channelMatrix() []float32 {
	mu := lockMaybe(in.mu)
	defer unlockMaybe(mu)
	return slices.Clone(in.matrix)
}
