// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"slices"

	"github.com/ik5/audmix/audio"
)

// ownedObject is something the engine destroys on Close.
type ownedObject struct {
	obj     any
	destroy func() error
}

func destroyFunc(obj any) func() error {
	switch o := obj.(type) {
	case *audio.Voice:
		return func() error { o.Destroy(); return nil }
	case *audio.Mixer:
		return func() error { o.Destroy(); return nil }
	case *audio.SampleInstance:
		return func() error { o.Destroy(); return nil }
	case *audio.Stream:
		return o.Close
	case *audio.SampleData:
		return func() error { o.Destroy(); return nil }
	}
	return nil
}

// own registers obj for destruction. The caller holds mu.
func (e *Engine) own(obj any) {
	e.owned = append(e.owned, ownedObject{obj: obj, destroy: destroyFunc(obj)})
}

// disown removes obj and reports whether it was registered. The caller
// holds mu.
func (e *Engine) disown(obj any) bool {
	i := slices.IndexFunc(e.owned, func(o ownedObject) bool { return o.obj == obj })
	if i < 0 {
		return false
	}
	e.owned = slices.Delete(e.owned, i, i+1)
	return true
}

// Owned is the number of objects the engine will destroy on Close.
func (e *Engine) Owned() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.owned)
}

// NewMixer creates a mixer owned by the engine.
func (e *Engine) NewMixer(frequency int, depth audio.Depth, conf audio.ChannelConf) (*audio.Mixer, error) {
	m, err := audio.NewMixer(frequency, depth, conf)
	if err != nil {
		return nil, err
	}
	if err := m.SetQuality(e.cfg.Quality); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	e.own(m)
	return m, nil
}

// NewSampleInstance creates an instance of data owned by the engine.
func (e *Engine) NewSampleInstance(data *audio.SampleData) (*audio.SampleInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	s := audio.NewSampleInstance(data)
	e.own(s)
	return s, nil
}

// NewStream creates a stream owned by the engine. Zero count or fragFrames
// take the configured defaults.
func (e *Engine) NewStream(count, fragFrames, frequency int, depth audio.Depth, conf audio.ChannelConf) (*audio.Stream, error) {
	count, fragFrames = e.streamShape(count, fragFrames)
	s, err := audio.NewStream(count, fragFrames, frequency, depth, conf)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		_ = s.Close()
		return nil, ErrClosed
	}
	e.own(s)
	return s, nil
}

func (e *Engine) streamShape(count, fragFrames int) (int, int) {
	if count <= 0 {
		count = e.cfg.StreamFragments
	}
	if fragFrames <= 0 {
		fragFrames = e.cfg.StreamFragmentFrames
	}
	return count, fragFrames
}

// NewVoice allocates a voice on the engine driver.
func (e *Engine) NewVoice(frequency int, depth audio.Depth, conf audio.ChannelConf) (*audio.Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	v, err := audio.NewVoice(e.drv, frequency, depth, conf)
	if err != nil {
		return nil, err
	}
	e.own(v)
	return v, nil
}

// Destroy destroys an object created by the engine ahead of Close. Sample
// data goes through DestroySample.
func (e *Engine) Destroy(obj any) error {
	if data, ok := obj.(*audio.SampleData); ok {
		return e.DestroySample(data)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.disown(obj) {
		return fmt.Errorf("%w: %T", ErrNotOwned, obj)
	}
	return destroyFunc(obj)()
}
