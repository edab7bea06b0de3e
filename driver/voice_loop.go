// SPDX-License-Identifier: EPL-2.0

package driver

import (
	"fmt"
	"sync"
	"time"

	"github.com/ik5/audmix/audio"
)

type voiceState int

const (
	stateIdle voiceState = iota
	statePlaying
	// stateStopping is left by the loop once the period in progress is
	// written.
	stateStopping
	stateJoining
)

func (s voiceState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePlaying:
		return "playing"
	case stateStopping:
		return "stopping"
	case stateJoining:
		return "joining"
	}
	return fmt.Sprintf("voiceState(%d)", int(s))
}

// voiceData is the driver side of one voice. The loop goroutine is the only
// writer of buf and underrun.
type voiceData struct {
	voice   *audio.Voice
	format  Format
	out     Output
	period  int
	backend string
	metrics *Metrics

	mu     sync.Mutex
	cond   *sync.Cond
	state  voiceState
	loaded bool
	sample audio.VoiceSample
	pos    int
	dir    int

	buf      audio.Buffer
	silence  []byte
	underrun bool

	joinOnce sync.Once
	done     chan struct{}
}

func newVoiceData(v *audio.Voice, f Format, out Output, period int, backend string, m *Metrics) *voiceData {
	chans := f.Channels.Count()
	vd := &voiceData{
		voice:   v,
		format:  f,
		out:     out,
		period:  period,
		backend: backend,
		metrics: m,
		dir:     1,
		buf:     audio.NewBuffer(f.Depth, period*chans),
		silence: audio.NewBuffer(f.Depth, period*chans).Bytes(),
		done:    make(chan struct{}),
	}
	vd.cond = sync.NewCond(&vd.mu)
	return vd
}

func (vd *voiceData) run() {
	defer close(vd.done)

	for {
		vd.mu.Lock()
		for {
			if vd.state == stateStopping {
				vd.state = stateIdle
			}
			if vd.state != stateIdle {
				break
			}
			vd.cond.Wait()
		}
		if vd.state == stateJoining {
			vd.mu.Unlock()
			return
		}

		var p []byte
		if vd.loaded {
			p = vd.fillStatic()
			vd.mu.Unlock()
		} else {
			vd.mu.Unlock()
			p = vd.pull()
		}
		if len(p) == 0 {
			continue
		}

		if _, err := vd.out.Write(p); err != nil {
			vd.mu.Lock()
			joining := vd.state == stateJoining
			if !joining {
				vd.state = stateIdle
			}
			vd.mu.Unlock()
			if joining {
				return
			}
			logger.Error("writing period", "backend", vd.backend, "err", err)
			continue
		}
		vd.metrics.recordPeriod(vd.backend)
	}
}

// pull asks a streaming voice for one period. A voice with nothing to give
// is covered with silence.
func (vd *voiceData) pull() []byte {
	start := time.Now()
	buf, n := vd.voice.Update(vd.period)
	vd.metrics.recordPull(vd.backend, time.Since(start))

	if n == 0 {
		if !vd.underrun {
			vd.underrun = true
			logger.Debug("voice underrun, writing silence", "backend", vd.backend)
		}
		vd.metrics.recordUnderrun(vd.backend)
		return vd.silence
	}
	if vd.underrun {
		vd.underrun = false
		logger.Debug("voice recovered", "backend", vd.backend)
	}

	chans := vd.format.Channels.Count()
	return buf.Slice(0, min(n, vd.period)*chans).Bytes()
}

// fillStatic copies the next period of the loaded sample into buf. The
// voice goes idle when a one-shot sample ends; the rest of that period is
// silence. Must be called with mu held.
func (vd *voiceData) fillStatic() []byte {
	chans := vd.format.Channels.Count()
	s := &vd.sample

	n := 0
	for n < vd.period {
		if vd.pos < 0 || vd.pos >= s.Frames {
			vd.state = stateIdle
			break
		}
		vd.buf.CopyFrom(n*chans, s.Data, vd.pos*chans, chans)
		n++
		if !vd.advance() {
			vd.state = stateIdle
			break
		}
	}
	if n == 0 {
		return nil
	}
	vd.buf.FillSilence(n*chans, (vd.period-n)*chans)
	return vd.buf.Bytes()
}

// advance moves pos one frame in the current direction and applies the
// playmode. It returns false when a one-shot sample has ended, leaving pos
// where the next play starts from.
func (vd *voiceData) advance() bool {
	s := &vd.sample
	vd.pos += vd.dir

	switch s.Mode {
	case audio.PlayLoop:
		if vd.dir > 0 && vd.pos >= s.LoopEnd {
			vd.pos = s.LoopStart
		} else if vd.dir < 0 && vd.pos < s.LoopStart {
			vd.pos = s.LoopEnd - 1
		}
		return true

	case audio.PlayBidir:
		if vd.dir > 0 && vd.pos >= s.LoopEnd {
			vd.pos = max(s.LoopEnd-(vd.pos-s.LoopEnd)-1, s.LoopStart)
			vd.dir = -1
		} else if vd.dir < 0 && vd.pos < s.LoopStart {
			vd.pos = min(s.LoopStart+(s.LoopStart-vd.pos), s.LoopEnd-1)
			vd.dir = 1
		}
		return true

	case audio.PlayLoopOnce:
		if vd.pos >= s.LoopStart && vd.pos < s.LoopEnd {
			return true
		}
		if vd.dir > 0 {
			vd.pos = s.LoopStart
		} else {
			vd.pos = s.LoopEnd - 1
		}
		return false
	}

	if vd.pos >= 0 && vd.pos < s.Frames {
		return true
	}
	if vd.dir > 0 {
		vd.pos = 0
	} else {
		vd.pos = s.Frames - 1
	}
	return false
}

func (vd *voiceData) load(s audio.VoiceSample) error {
	vd.mu.Lock()
	defer vd.mu.Unlock()

	if vd.state == stateJoining {
		return ErrVoiceClosed
	}
	if s.Frames <= 0 || s.Data.Len() < s.Frames*vd.format.Channels.Count() {
		return fmt.Errorf("%w: sample of %d frames", audio.ErrBufferTooSmall, s.Frames)
	}
	if s.Data.Depth() != vd.format.Depth {
		return fmt.Errorf("%w: sample is %v, output is %v", audio.ErrFormatMismatch, s.Data.Depth(), vd.format.Depth)
	}

	vd.sample = s
	vd.loaded = true
	vd.pos = s.Position
	vd.dir = 1
	if s.Reverse {
		vd.dir = -1
	}
	return nil
}

func (vd *voiceData) unload() {
	vd.mu.Lock()
	defer vd.mu.Unlock()

	vd.loaded = false
	vd.sample = audio.VoiceSample{}
	if vd.state == statePlaying {
		vd.state = stateStopping
	}
}

func (vd *voiceData) start() error {
	vd.mu.Lock()
	defer vd.mu.Unlock()

	switch vd.state {
	case stateJoining:
		return ErrVoiceClosed
	case statePlaying:
		return nil
	}
	vd.state = statePlaying
	vd.cond.Broadcast()
	return nil
}

func (vd *voiceData) stop() {
	vd.mu.Lock()
	defer vd.mu.Unlock()

	if vd.state == statePlaying {
		vd.state = stateStopping
	}
}

func (vd *voiceData) playing() bool {
	vd.mu.Lock()
	defer vd.mu.Unlock()
	return vd.state == statePlaying
}

func (vd *voiceData) position() int {
	vd.mu.Lock()
	defer vd.mu.Unlock()
	return vd.pos
}

func (vd *voiceData) setPosition(pos int) error {
	vd.mu.Lock()
	defer vd.mu.Unlock()

	if !vd.loaded {
		return fmt.Errorf("%w: no sample loaded", audio.ErrNotAttached)
	}
	if pos < 0 || pos >= vd.sample.Frames {
		return fmt.Errorf("%w: position %d outside [0, %d)", audio.ErrInvalidParam, pos, vd.sample.Frames)
	}
	vd.pos = pos
	return nil
}

// join stops the loop for good and waits for it to exit. Closing the
// output releases a loop blocked in Write.
func (vd *voiceData) join() {
	vd.joinOnce.Do(func() {
		vd.mu.Lock()
		vd.state = stateJoining
		vd.cond.Broadcast()
		vd.mu.Unlock()

		if err := vd.out.Close(); err != nil {
			logger.Warn("closing output", "backend", vd.backend, "err", err)
		}
		<-vd.done
	})
}
