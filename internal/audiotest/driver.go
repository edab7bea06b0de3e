// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"sync"

	"github.com/ik5/audmix/audio"
)

// ErrInjected is returned by MockDriver operations set up to fail.
var ErrInjected = errors.New("injected driver failure")

// VoiceState is what MockDriver knows about one voice.
type VoiceState struct {
	Loaded   bool
	Playing  bool
	Position int
	Sample   audio.VoiceSample
}

// MockDriver is an audio.Driver that keeps voice state in memory. Streaming
// voices are pulled explicitly with Pull; nothing runs in the background.
type MockDriver struct {
	mu     sync.Mutex
	open   bool
	voices map[*audio.Voice]*VoiceState

	// FailAllocate, FailLoad and FailStart make the matching call fail.
	FailAllocate bool
	FailLoad     bool
	FailStart    bool
}

// NewMockDriver returns an opened driver.
func NewMockDriver() *MockDriver {
	return &MockDriver{open: true, voices: make(map[*audio.Voice]*VoiceState)}
}

func (d *MockDriver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return nil
}

func (d *MockDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

// IsOpen reports whether Close has not been called.
func (d *MockDriver) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *MockDriver) AllocateVoice(v *audio.Voice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailAllocate {
		return ErrInjected
	}
	d.voices[v] = &VoiceState{}
	return nil
}

func (d *MockDriver) DeallocateVoice(v *audio.Voice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.voices, v)
}

func (d *MockDriver) LoadVoice(v *audio.Voice, s audio.VoiceSample) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailLoad {
		return ErrInjected
	}
	st := d.state(v)
	st.Loaded = true
	st.Sample = s
	st.Position = s.Position
	return nil
}

func (d *MockDriver) UnloadVoice(v *audio.Voice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.state(v)
	st.Loaded = false
	st.Sample = audio.VoiceSample{}
}

func (d *MockDriver) StartVoice(v *audio.Voice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailStart {
		return ErrInjected
	}
	d.state(v).Playing = true
	return nil
}

func (d *MockDriver) StopVoice(v *audio.Voice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state(v).Playing = false
	return nil
}

func (d *MockDriver) VoiceIsPlaying(v *audio.Voice) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state(v).Playing
}

func (d *MockDriver) VoicePosition(v *audio.Voice) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state(v).Position
}

func (d *MockDriver) SetVoicePosition(v *audio.Voice, pos int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state(v).Position = pos
	return nil
}

// State returns a copy of the state of v.
func (d *MockDriver) State(v *audio.Voice) VoiceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.state(v)
}

// Voices is the number of allocated voices.
func (d *MockDriver) Voices() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.voices)
}

// Pull asks a streaming voice for frames frames, the way a driver goroutine
// would, and returns a copy of what it got.
func (d *MockDriver) Pull(v *audio.Voice, frames int) (audio.Buffer, int) {
	buf, n := v.Update(frames)
	if n == 0 {
		return audio.Buffer{}, 0
	}
	out := audio.NewBuffer(buf.Depth(), buf.Len())
	out.CopyFrom(0, buf, 0, buf.Len())
	return out, n
}

func (d *MockDriver) state(v *audio.Voice) *VoiceState {
	st, ok := d.voices[v]
	if !ok {
		st = &VoiceState{}
		d.voices[v] = st
	}
	return st
}
