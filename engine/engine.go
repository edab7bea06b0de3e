// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats"
)

// Engine ties a driver to a default voice and mixer, keeps a pool of
// reserved sample instances for fire-and-forget playback and destroys
// everything it created when closed.
type Engine struct {
	cfg      Config
	drv      audio.Driver
	registry *audio.Registry
	samples  *cache.Cache

	mu      sync.Mutex
	closed  bool
	voice   *audio.Voice
	mixer   *audio.Mixer
	current *audio.Mixer
	slots   []*slot
	nextID  int
	owned   []ownedObject
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry decodes files with r instead of formats.NewRegistry().
func WithRegistry(r *audio.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// New opens drv and creates the default voice and mixer. cfg.ReservedSamples
// slots are reserved right away.
func New(cfg Config, drv audio.Driver, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if drv == nil {
		return nil, audio.ErrNoDriver
	}

	e := &Engine{cfg: cfg, drv: drv}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = formats.NewRegistry()
	}
	e.samples = cache.New(e.cacheTTL(), 0)

	if err := drv.Open(); err != nil {
		return nil, fmt.Errorf("opening driver: %w", err)
	}

	voice, err := audio.NewVoice(drv, cfg.VoiceFrequency, cfg.VoiceDepth, cfg.Channels)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating default voice: %w", err), drv.Close())
	}
	mixer, err := e.newDefaultMixer()
	if err != nil {
		voice.Destroy()
		return nil, errors.Join(err, drv.Close())
	}
	if err := voice.AttachMixer(mixer); err != nil {
		mixer.Destroy()
		voice.Destroy()
		return nil, errors.Join(fmt.Errorf("attaching default mixer: %w", err), drv.Close())
	}
	e.voice = voice
	e.mixer = mixer
	e.current = mixer

	if cfg.ReservedSamples > 0 {
		if err := e.ReserveSamples(cfg.ReservedSamples); err != nil {
			_ = e.Close()
			return nil, err
		}
	}

	logger.Debug("engine ready",
		"voice_frequency", cfg.VoiceFrequency,
		"mixer_frequency", cfg.MixerFrequency,
		"channels", cfg.Channels,
		"reserved", cfg.ReservedSamples)
	return e, nil
}

func (e *Engine) cacheTTL() time.Duration {
	if e.cfg.CacheTTL == 0 {
		return cache.NoExpiration
	}
	return e.cfg.CacheTTL
}

func (e *Engine) newDefaultMixer() (*audio.Mixer, error) {
	m, err := audio.NewMixer(e.cfg.MixerFrequency, e.cfg.MixerDepth, e.cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("creating default mixer: %w", err)
	}
	if err := m.SetQuality(e.cfg.Quality); err != nil {
		m.Destroy()
		return nil, fmt.Errorf("setting mixer quality: %w", err)
	}
	return m, nil
}

// Config returns the settings the engine was created with.
func (e *Engine) Config() Config { return e.cfg }

// Registry is the decoder registry used by LoadSample and LoadStream.
func (e *Engine) Registry() *audio.Registry { return e.registry }

// DefaultVoice is the voice the default mixer is attached to.
func (e *Engine) DefaultVoice() *audio.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voice
}

// DefaultMixer is the mixer reserved samples are attached to.
func (e *Engine) DefaultMixer() *audio.Mixer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// SetDefaultMixer makes m the mixer reserved samples play on. Playing
// reserved samples are stopped and the slots move to m.
func (e *Engine) SetDefaultMixer(m *audio.Mixer) error {
	if m == nil {
		return fmt.Errorf("%w: nil mixer", audio.ErrInvalidParam)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if m == e.current {
		return nil
	}

	n := len(e.slots)
	e.destroySlots()
	e.current = m
	if n > 0 {
		return e.reserve(n)
	}
	return nil
}

// RestoreDefaultMixer goes back to the mixer created by the engine.
func (e *Engine) RestoreDefaultMixer() error {
	e.mu.Lock()
	mixer := e.mixer
	e.mu.Unlock()
	return e.SetDefaultMixer(mixer)
}

// Close destroys every owned object in reverse creation order, then the
// reserved samples, the default mixer and voice, and closes the driver.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true

	var errs []error
	for _, o := range slices.Backward(e.owned) {
		if err := o.destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	e.owned = nil
	e.destroySlots()
	e.samples.Flush()

	e.mixer.Destroy()
	e.voice.Destroy()
	e.current = nil
	e.mu.Unlock()

	if err := e.drv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing driver: %w", err))
	}
	logger.Debug("engine closed")
	return errors.Join(errs...)
}
