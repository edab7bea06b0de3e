// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"

	"github.com/ik5/audmix/audio"
)

// SampleID names one playback started by PlaySample. It stays valid until
// the slot is reused for another playback.
type SampleID struct {
	index int
	id    int
}

// Index is the slot the playback runs in.
func (id SampleID) Index() int { return id.index }

type slot struct {
	inst   *audio.SampleInstance
	data   *audio.SampleData
	id     int
	locked bool
}

func (s *slot) busy() bool { return s.locked || s.inst.Playing() }

// ReserveSamples makes n instances available to PlaySample, attached to the
// default mixer. Existing slots are destroyed first; n == 0 only destroys
// them.
func (e *Engine) ReserveSamples(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d samples", audio.ErrInvalidParam, n)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.destroySlots()
	return e.reserve(n)
}

// ReservedSamples is the number of slots.
func (e *Engine) ReservedSamples() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.slots)
}

func (e *Engine) reserve(n int) error {
	for range n {
		inst := audio.NewSampleInstance(nil)
		if err := e.current.Attach(inst); err != nil {
			e.destroySlots()
			return fmt.Errorf("attaching reserved sample: %w", err)
		}
		e.slots = append(e.slots, &slot{inst: inst})
	}
	logger.Debug("samples reserved", "count", n)
	return nil
}

func (e *Engine) destroySlots() {
	for _, s := range e.slots {
		s.inst.Destroy()
	}
	e.slots = nil
}

// PlaySample plays data on the first slot that is neither playing nor
// locked. ErrNoFreeSlot is returned when every slot is taken.
func (e *Engine) PlaySample(data *audio.SampleData, gain, pan, speed float32, mode audio.Playmode) (SampleID, error) {
	if data == nil || data.Length() == 0 {
		return SampleID{}, fmt.Errorf("%w: empty sample", audio.ErrNoSample)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return SampleID{}, ErrClosed
	}

	for i, s := range e.slots {
		if s.busy() {
			continue
		}
		if err := e.start(s, data, gain, pan, speed, mode); err != nil {
			return SampleID{}, err
		}
		e.nextID++
		s.id = e.nextID
		return SampleID{index: i, id: s.id}, nil
	}
	return SampleID{}, ErrNoFreeSlot
}

func (e *Engine) start(s *slot, data *audio.SampleData, gain, pan, speed float32, mode audio.Playmode) error {
	inst := s.inst
	if err := inst.SetSample(data); err != nil {
		return fmt.Errorf("setting sample: %w", err)
	}
	s.data = data

	if err := inst.SetGain(gain); err != nil {
		return err
	}
	if err := inst.SetPan(pan); err != nil {
		return err
	}
	if err := inst.SetSpeed(speed); err != nil {
		return err
	}
	if err := inst.SetPlaymode(mode); err != nil {
		return err
	}
	return inst.Play()
}

func (e *Engine) slotFor(id SampleID) (*slot, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if id.index < 0 || id.index >= len(e.slots) || id.id == 0 || e.slots[id.index].id != id.id {
		return nil, ErrInvalidSampleID
	}
	return e.slots[id.index], nil
}

// StopSample stops the playback named by id.
func (e *Engine) StopSample(id SampleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotFor(id)
	if err != nil {
		return err
	}
	return s.inst.Stop()
}

// StopSamples stops every reserved slot.
func (e *Engine) StopSamples() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.slots {
		if err := s.inst.Stop(); err != nil {
			logger.Warn("stopping reserved sample", "err", err)
		}
	}
}

// SamplePlaying reports whether the playback named by id is still running.
func (e *Engine) SamplePlaying(id SampleID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotFor(id)
	return err == nil && s.inst.Playing()
}

// LockSampleID hands out the instance behind id so it can be adjusted while
// playing. The slot is not reused until UnlockSampleID.
func (e *Engine) LockSampleID(id SampleID) (*audio.SampleInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotFor(id)
	if err != nil {
		return nil, err
	}
	s.locked = true
	return s.inst, nil
}

// UnlockSampleID makes the slot of id available again once it stops.
func (e *Engine) UnlockSampleID(id SampleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotFor(id)
	if err != nil {
		return err
	}
	s.locked = false
	return nil
}
