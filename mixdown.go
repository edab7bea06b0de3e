// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"fmt"
	"math"

	"github.com/ik5/audmix/audio"
)

// DefaultMixdownPeriod is the number of frames mixed per step.
const DefaultMixdownPeriod = 1024

// MixdownOptions describe the output of Mixdown. Zero Gain means 1 and zero
// Period means DefaultMixdownPeriod.
type MixdownOptions struct {
	Frequency int
	Channels  audio.ChannelConf
	Depth     audio.Depth
	Quality   audio.Quality
	Gain      float32
	Period    int
}

func (o *MixdownOptions) setDefaults() {
	if o.Gain == 0 {
		o.Gain = 1
	}
	if o.Period <= 0 {
		o.Period = DefaultMixdownPeriod
	}
}

// Mixdown plays every sample once from the start, mixed together at the
// rate and layout of opts, and returns the mix. The result lasts as long as
// the longest sample. Samples are played unpanned.
func Mixdown(samples []*audio.SampleData, opts MixdownOptions) (*audio.SampleData, error) {
	opts.setDefaults()
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: nothing to mix", audio.ErrNoSample)
	}
	if !opts.Depth.Valid() {
		return nil, fmt.Errorf("%w: %v", audio.ErrInvalidDepth, opts.Depth)
	}

	mixer, err := audio.NewMixer(opts.Frequency, audio.DepthFloat32, opts.Channels)
	if err != nil {
		return nil, err
	}
	defer mixer.Destroy()
	if err := mixer.SetQuality(opts.Quality); err != nil {
		return nil, err
	}

	frames := 0
	for i, data := range samples {
		if data == nil || data.Length() == 0 {
			return nil, fmt.Errorf("%w: sample %d is empty", audio.ErrNoSample, i)
		}
		inst := audio.NewSampleInstance(data)
		if err := mixer.Attach(inst); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if err := inst.SetGain(opts.Gain); err != nil {
			return nil, err
		}
		if err := inst.SetPan(audio.PanNone); err != nil {
			return nil, err
		}
		if err := inst.Play(); err != nil {
			return nil, err
		}
		frames = max(frames, MixedLength(data, opts.Frequency))
	}

	channels := opts.Channels.Count()
	out := audio.NewBuffer(opts.Depth, frames*channels)
	for at := 0; at < frames; at += opts.Period {
		n := min(opts.Period, frames-at)
		buf, err := mixer.Mix(n, opts.Depth)
		if err != nil {
			return nil, err
		}
		out.CopyFrom(at*channels, buf, 0, n*channels)
	}

	return audio.NewSampleData(out, frames, opts.Frequency, opts.Channels, true)
}

// MixedLength is the number of frames data lasts when played at frequency.
func MixedLength(data *audio.SampleData, frequency int) int {
	return int(math.Ceil(float64(data.Length()) * float64(frequency) / float64(data.Frequency())))
}
