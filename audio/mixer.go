// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"slices"

	"github.com/ik5/audmix/utils"
)

// PostprocessFunc is called with the mixed, interleaved buffer before the
// mixer gain is applied. It runs on the pull path and must not block.
type PostprocessFunc func(buf Buffer, frames int)

// Mixer combines any number of attached instances into one signal at its own
// frequency and channel layout. Its output is either added into a parent
// mixer or converted to the depth of a voice.
type Mixer struct {
	instance

	quality     Quality
	children    []*instance
	postprocess PostprocessFunc

	// out holds the depth converted result handed to a voice.
	out Buffer
}

// NewMixer creates a playing mixer. Only int16 and float32 depths are
// supported for mixing.
func NewMixer(frequency int, depth Depth, conf ChannelConf) (*Mixer, error) {
	if frequency <= 0 {
		return nil, ErrInvalidFrequency
	}
	if depth != DepthFloat32 && depth != DepthInt16 {
		return nil, fmt.Errorf("%w: mixer cannot mix %v", ErrInvalidDepth, depth)
	}
	if !conf.Valid() {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidChannels, int(conf))
	}

	m := &Mixer{quality: QualityLinear}
	m.init(SampleData{
		buf:       Buffer{depth: depth},
		frequency: frequency,
		conf:      conf,
	})
	m.mixer = m
	m.playing = true
	return m, nil
}

func (m *Mixer) Frequency() int        { return m.data.frequency }
func (m *Mixer) Channels() ChannelConf { return m.data.conf }
func (m *Mixer) Depth() Depth          { return m.data.buf.depth }
func (m *Mixer) Quality() Quality      { return m.quality }
func (m *Mixer) Gain() float32         { return m.gain }
func (m *Mixer) Playing() bool         { return m.playing }
func (m *Mixer) Attached() bool        { return m.attached() }

// HasAttachments reports whether anything is attached to the mixer.
func (m *Mixer) HasAttachments() bool {
	mu := lockMaybe(m.mu)
	defer unlockMaybe(mu)
	return len(m.children) > 0
}

// ancestorOf reports whether m is o or one of o's parents.
func (m *Mixer) ancestorOf(o *Mixer) bool {
	for p := o; p != nil; p = p.parentMixer {
		if p == m {
			return true
		}
	}
	return false
}

// Attach adds a sample instance, stream or mixer to the mixer. Sample
// instances and streams of any format are converted. A mixer child must
// share the frequency, depth and channel layout.
func (m *Mixer) Attach(a Attachable) error {
	child := a.core()

	attachMu.Lock()
	defer attachMu.Unlock()
	mu := lockMaybe(m.mu)
	defer unlockMaybe(mu)

	if child.attached() {
		return ErrAlreadyAttached
	}
	if cm := child.mixer; cm != nil {
		if cm.ancestorOf(m) {
			return fmt.Errorf("%w: mixer cannot be attached below itself", ErrInvalidParam)
		}
		if cm.data.frequency != m.data.frequency ||
			cm.data.buf.depth != m.data.buf.depth ||
			cm.data.conf != m.data.conf {
			return ErrFormatMismatch
		}
	}

	m.children = append(m.children, child)
	child.setMutex(m.mu)
	child.parentMixer = m

	child.stepDenom = m.data.frequency
	child.computeStep()

	if cm := child.mixer; cm != nil {
		child.read = cm.readInto
	} else {
		child.read = m.readerFor(child)
		child.rejig()
	}

	logger.Debug("attached to mixer", "mixer_frequency", m.data.frequency, "children", len(m.children))
	return nil
}

func (m *Mixer) readerFor(child *instance) mixFunc {
	if m.data.buf.depth == DepthInt16 {
		if m.quality == QualityCubic {
			logger.Warn("cubic interpolation is not supported by int16 mixers, falling back to linear")
		}
		return child.mixToInt16(int16KernelFor(m.quality))
	}
	return child.mixToFloat(floatKernelFor(m.quality))
}

// removeChild is the mixer side of detaching.
func (m *Mixer) removeChild(child *instance) {
	mu := lockMaybe(m.mu)
	defer unlockMaybe(mu)

	if i := slices.Index(m.children, child); i >= 0 {
		m.children = slices.Delete(m.children, i, i+1)
	}
	child.setMutex(nil)
	child.parentMixer = nil
	child.read = nil
	child.matrix = nil
}

// Detach removes the mixer from its parent.
func (m *Mixer) Detach() { m.detach() }

// SetFrequency changes the mixing frequency of an unattached mixer.
func (m *Mixer) SetFrequency(frequency int) error {
	if frequency <= 0 {
		return ErrInvalidFrequency
	}
	if m.attached() {
		return fmt.Errorf("%w: cannot change the frequency of an attached mixer", ErrAlreadyAttached)
	}

	mu := lockMaybe(m.mu)
	defer unlockMaybe(mu)

	m.data.frequency = frequency
	for _, c := range m.children {
		c.stepDenom = frequency
		c.computeStep()
	}
	return nil
}

// SetQuality selects the interpolation kernel. It cannot change while
// children are attached.
func (m *Mixer) SetQuality(q Quality) error {
	if q != QualityPoint && q != QualityLinear && q != QualityCubic {
		return fmt.Errorf("%w: quality %d", ErrInvalidParam, int(q))
	}

	mu := lockMaybe(m.mu)
	defer unlockMaybe(mu)

	if m.quality == q {
		return nil
	}
	if len(m.children) > 0 {
		return ErrMixerHasChildren
	}
	m.quality = q
	return nil
}

// SetGain sets the gain applied to the mix and re-rigs the matrix of every
// attached child.
func (m *Mixer) SetGain(gain float32) error {
	mu := lockMaybe(m.mu)
	defer unlockMaybe(mu)

	if m.gain == gain {
		return nil
	}
	m.gain = gain
	for _, c := range m.children {
		c.rejig()
	}
	return nil
}

// SetPlaying pauses or resumes the whole subtree.
func (m *Mixer) SetPlaying(playing bool) error {
	mu := lockMaybe(m.mu)
	defer unlockMaybe(mu)
	m.playing = playing
	return nil
}

// SetPostprocessCallback installs fn, or removes the callback when fn is nil.
func (m *Mixer) SetPostprocessCallback(fn PostprocessFunc) {
	mu := lockMaybe(m.mu)
	defer unlockMaybe(mu)
	m.postprocess = fn
}

// render mixes frames frames of every child into the scratch buffer.
// The caller holds the shared mutex.
func (m *Mixer) render(frames int) Buffer {
	maxc := m.data.conf.Count()
	n := frames * maxc

	if m.data.length < frames {
		m.data.buf = NewBuffer(m.data.buf.depth, n)
		m.data.length = frames
	}
	buf := m.data.buf.Slice(0, n)
	buf.FillSilence(0, n)

	for _, c := range m.children {
		if c.read != nil {
			c.read(buf, frames, maxc)
		}
	}

	if m.postprocess != nil {
		m.postprocess(buf, frames)
	}

	if m.gain != 1 {
		switch buf.depth {
		case DepthFloat32:
			for i, v := range buf.f32 {
				buf.f32[i] = v * m.gain
			}
		case DepthInt16:
			for i, v := range buf.s16 {
				buf.s16[i] = utils.ClampInt16(int32(float32(v) * m.gain))
			}
		}
	}
	return buf
}

// readInto is the read function of a mixer attached to another mixer.
func (m *Mixer) readInto(dst Buffer, frames, dstChannels int) {
	if !m.playing {
		return
	}
	buf := m.render(frames)

	switch buf.depth {
	case DepthFloat32:
		d := dst.F32()
		for i, v := range buf.f32 {
			d[i] += v
		}
	case DepthInt16:
		d := dst.S16()
		for i, v := range buf.s16 {
			d[i] = utils.ClampInt16(int32(d[i]) + int32(v))
		}
	default:
		assertf(false, "mixer depth %v", buf.depth)
	}
}

// mixFor renders frames frames converted to depth. A zero Buffer means the
// caller should emit silence. The caller holds the shared mutex.
func (m *Mixer) mixFor(frames int, depth Depth) Buffer {
	if !m.playing || frames <= 0 {
		return Buffer{}
	}
	buf := m.render(frames)
	if buf.depth == depth {
		return buf
	}

	n := buf.Len()
	if m.out.depth != depth || m.out.Len() < n {
		m.out = NewBuffer(depth, n)
	}
	out := m.out.Slice(0, n)

	switch buf.depth {
	case DepthFloat32:
		for i, v := range buf.f32 {
			out.PutFloat(i, v)
		}
	case DepthInt16:
		if depth != DepthUint16 {
			assertf(false, "int16 mixer cannot feed a %v voice", depth)
			return Buffer{}
		}
		for i, v := range buf.s16 {
			out.u16[i] = uint16(v) ^ 0x8000
		}
	}
	return out
}

// mixerFeeds reports whether a mixer of depth mix can be converted to out.
// Float mixers convert to any depth, int16 mixers only to 16-bit.
func mixerFeeds(mix, out Depth) bool {
	return mix == DepthFloat32 || out == DepthInt16 || out == DepthUint16
}

// Mix pulls frames frames from an unattached mixer and returns them in
// depth. The result is valid until the next call. It is the offline
// counterpart of a voice pulling the mixer.
func (m *Mixer) Mix(frames int, depth Depth) (Buffer, error) {
	if m.attached() {
		return Buffer{}, fmt.Errorf("%w: mixer is pulled by its parent", ErrAlreadyAttached)
	}
	if !depth.Valid() {
		return Buffer{}, fmt.Errorf("%w: %v", ErrInvalidDepth, depth)
	}
	if !mixerFeeds(m.data.buf.depth, depth) {
		return Buffer{}, fmt.Errorf("%w: %v mixer cannot produce %v", ErrFormatMismatch, m.data.buf.depth, depth)
	}
	return m.mixFor(frames, depth), nil
}

// Destroy detaches the mixer and every child.
func (m *Mixer) Destroy() {
	m.detach()

	for {
		mu := lockMaybe(m.mu)
		if len(m.children) == 0 {
			unlockMaybe(mu)
			return
		}
		c := m.children[0]
		unlockMaybe(mu)
		m.removeChild(c)
	}
}
