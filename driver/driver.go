// SPDX-License-Identifier: EPL-2.0

package driver

import (
	"fmt"
	"io"
	"sync"

	"github.com/ik5/audmix/audio"
)

// DefaultPeriod is the number of frames a voice loop produces per write.
const DefaultPeriod = 1024

// Output receives the frames of one voice. Write blocks until the device
// has room, which is what paces the voice loop. Close must unblock a
// pending Write.
type Output interface {
	io.WriteCloser
}

// Backend is a device that can open one Output per voice.
type Backend interface {
	Name() string
	Open() error
	Close() error
	OpenOutput(f Format) (Output, error)
}

// Option configures a Driver.
type Option func(*Driver)

// WithPeriod sets the number of frames pulled per write.
func WithPeriod(frames int) Option {
	return func(d *Driver) {
		if frames > 0 {
			d.period = frames
		}
	}
}

// WithMetrics records the voice loops of the driver in m.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// Driver implements audio.Driver on top of a Backend. Every voice gets its
// own goroutine that produces one period at a time and writes it to the
// voice output.
type Driver struct {
	backend Backend
	period  int
	metrics *Metrics

	mu     sync.Mutex
	open   bool
	voices map[*audio.Voice]*voiceData
}

var _ audio.Driver = (*Driver)(nil)

// New creates a closed driver for backend.
func New(backend Backend, opts ...Option) *Driver {
	d := &Driver{
		backend: backend,
		period:  DefaultPeriod,
		voices:  make(map[*audio.Voice]*voiceData),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name is the backend name.
func (d *Driver) Name() string { return d.backend.Name() }

// Period is the number of frames produced per write.
func (d *Driver) Period() int { return d.period }

// Open opens the backend. Opening an open driver does nothing.
func (d *Driver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}
	if err := d.backend.Open(); err != nil {
		return fmt.Errorf("opening %s backend: %w", d.backend.Name(), err)
	}
	d.open = true
	logger.Debug("driver opened", "backend", d.backend.Name(), "period", d.period)
	return nil
}

// Close stops every voice loop still running and closes the backend.
func (d *Driver) Close() error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil
	}
	d.open = false
	voices := make([]*voiceData, 0, len(d.voices))
	for v, vd := range d.voices {
		voices = append(voices, vd)
		delete(d.voices, v)
	}
	d.mu.Unlock()

	for _, vd := range voices {
		vd.join()
	}
	d.metrics.addVoices(d.backend.Name(), -len(voices))

	if err := d.backend.Close(); err != nil {
		return fmt.Errorf("closing %s backend: %w", d.backend.Name(), err)
	}
	return nil
}

func (d *Driver) AllocateVoice(v *audio.Voice) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrNotOpen
	}

	f := FormatOf(v)
	out, err := d.backend.OpenOutput(f)
	if err != nil {
		return fmt.Errorf("opening %s output for %v: %w", d.backend.Name(), f, err)
	}

	vd := newVoiceData(v, f, out, d.period, d.backend.Name(), d.metrics)
	v.SetBackendData(vd)
	d.voices[v] = vd
	d.metrics.addVoices(d.backend.Name(), 1)
	go vd.run()

	logger.Debug("voice allocated", "backend", d.backend.Name(), "format", f)
	return nil
}

func (d *Driver) DeallocateVoice(v *audio.Voice) {
	d.mu.Lock()
	vd, ok := d.voices[v]
	delete(d.voices, v)
	d.mu.Unlock()

	if !ok {
		return
	}
	vd.join()
	d.metrics.addVoices(d.backend.Name(), -1)
}

func (d *Driver) LoadVoice(v *audio.Voice, s audio.VoiceSample) error {
	vd, err := voiceDataOf(v)
	if err != nil {
		return err
	}
	return vd.load(s)
}

func (d *Driver) UnloadVoice(v *audio.Voice) {
	if vd, err := voiceDataOf(v); err == nil {
		vd.unload()
	}
}

// StartVoice wakes the voice loop. It does not wait for the first period.
func (d *Driver) StartVoice(v *audio.Voice) error {
	vd, err := voiceDataOf(v)
	if err != nil {
		return err
	}
	return vd.start()
}

// StopVoice asks the voice loop to stop after the period in progress. It
// does not wait for it.
func (d *Driver) StopVoice(v *audio.Voice) error {
	vd, err := voiceDataOf(v)
	if err != nil {
		return err
	}
	vd.stop()
	return nil
}

func (d *Driver) VoiceIsPlaying(v *audio.Voice) bool {
	vd, err := voiceDataOf(v)
	if err != nil {
		return false
	}
	return vd.playing()
}

func (d *Driver) VoicePosition(v *audio.Voice) int {
	vd, err := voiceDataOf(v)
	if err != nil {
		return 0
	}
	return vd.position()
}

func (d *Driver) SetVoicePosition(v *audio.Voice, pos int) error {
	vd, err := voiceDataOf(v)
	if err != nil {
		return err
	}
	return vd.setPosition(pos)
}

func voiceDataOf(v *audio.Voice) (*voiceData, error) {
	vd, ok := v.BackendData().(*voiceData)
	if !ok {
		return nil, ErrUnknownVoice
	}
	return vd, nil
}
