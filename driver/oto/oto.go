// SPDX-License-Identifier: EPL-2.0

//go:build !nocgo

package oto

import (
	"errors"
	"fmt"
	"sync"
	"time"

	otov3 "github.com/ebitengine/oto/v3"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/driver"
)

const (
	// DefaultBufferFrames is the default size of the pipe feeding each player.
	DefaultBufferFrames = 4096

	readyTimeout = 5 * time.Second
)

var ErrContextTimeout = errors.New("oto context did not become ready")

// Backend owns the oto context. oto allows a single context per process,
// so its format is fixed when the backend is created and every voice must
// match it.
type Backend struct {
	format       driver.Format
	bufferSize   time.Duration
	bufferFrames int

	mu     sync.Mutex
	ctx    *otov3.Context
	active bool
}

var _ driver.Backend = (*Backend)(nil)

// New returns a backend playing format. Only int16 and float32 are
// supported.
func New(format driver.Format, bufferSize time.Duration) *Backend {
	return &Backend{format: format, bufferSize: bufferSize, bufferFrames: DefaultBufferFrames}
}

func (b *Backend) Name() string { return "oto" }

func contextFormat(d audio.Depth) (otov3.Format, bool) {
	switch d {
	case audio.DepthInt16:
		return otov3.FormatSignedInt16LE, true
	case audio.DepthFloat32:
		return otov3.FormatFloat32LE, true
	}
	return 0, false
}

func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return nil
	}
	if b.ctx != nil {
		if err := b.ctx.Resume(); err != nil {
			return fmt.Errorf("resuming oto context: %w", err)
		}
		b.active = true
		return nil
	}

	format, ok := contextFormat(b.format.Depth)
	if !ok {
		return fmt.Errorf("%w: oto cannot play %v", driver.ErrUnsupportedFormat, b.format.Depth)
	}
	ctx, ready, err := otov3.NewContext(&otov3.NewContextOptions{
		SampleRate:   b.format.SampleRate,
		ChannelCount: b.format.Channels.Count(),
		Format:       format,
		BufferSize:   b.bufferSize,
	})
	if err != nil {
		return fmt.Errorf("creating oto context: %w", err)
	}

	select {
	case <-ready:
	case <-time.After(readyTimeout):
		return ErrContextTimeout
	}
	b.ctx = ctx
	b.active = true
	return nil
}

// Close suspends the context. oto contexts cannot be destroyed, so a later
// Open resumes it.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return nil
	}
	b.active = false
	return b.ctx.Suspend()
}

func (b *Backend) OpenOutput(f driver.Format) (driver.Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return nil, driver.ErrNotOpen
	}
	if f != b.format {
		return nil, fmt.Errorf("%w: context plays %v, voice wants %v", driver.ErrUnsupportedFormat, b.format, f)
	}

	out := &output{
		pipe:    driver.NewPipe(b.bufferFrames * f.FrameSize()),
		silence: f.Silence(),
	}
	out.player = b.ctx.NewPlayer(out)
	out.player.Play()
	return out, nil
}

// output is both the driver.Output and the reader of its player. The
// player never runs dry: missing frames are read as silence.
type output struct {
	pipe    *driver.Pipe
	silence []byte
	player  *otov3.Player
	once    sync.Once
}

func (o *output) Write(p []byte) (int, error) { return o.pipe.Write(p) }

func (o *output) Read(p []byte) (int, error) {
	o.pipe.ReadFrames(p, o.silence)
	return len(p), nil
}

func (o *output) Close() error {
	var err error
	o.once.Do(func() {
		_ = o.pipe.Close()
		err = o.player.Close()
	})
	return err
}
