// SPDX-License-Identifier: EPL-2.0

//go:build !nocgo

package malgo

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	ma "github.com/gen2brain/malgo"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/driver"
)

// DefaultBufferFrames is the default size of the pipe feeding each device.
const DefaultBufferFrames = 4096

var logger = log.WithPrefix("malgo")

var deviceFormats = map[audio.Depth]ma.FormatType{
	audio.DepthUint8:   ma.FormatU8,
	audio.DepthInt16:   ma.FormatS16,
	audio.DepthFloat32: ma.FormatF32,
}

// Backend plays through miniaudio. Backends lists the miniaudio backends
// to try; nil lets miniaudio pick.
type Backend struct {
	Backends     []ma.Backend
	BufferFrames int

	mu  sync.Mutex
	ctx *ma.AllocatedContext
}

var _ driver.Backend = (*Backend)(nil)

// New returns a backend using the default miniaudio backend.
func New() *Backend {
	return &Backend{BufferFrames: DefaultBufferFrames}
}

func (b *Backend) Name() string { return "malgo" }

func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		return nil
	}
	ctx, err := ma.InitContext(b.Backends, ma.ContextConfig{}, func(message string) {
		logger.Debug(strings.TrimSpace(message))
	})
	if err != nil {
		return fmt.Errorf("initializing miniaudio context: %w", err)
	}
	b.ctx = ctx
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	return err
}

func (b *Backend) OpenOutput(f driver.Format) (driver.Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil, driver.ErrNotOpen
	}
	format, ok := deviceFormats[f.Depth]
	if !ok {
		return nil, fmt.Errorf("%w: miniaudio cannot play %v", driver.ErrUnsupportedFormat, f.Depth)
	}

	cfg := ma.DefaultDeviceConfig(ma.Playback)
	cfg.Playback.Format = format
	cfg.Playback.Channels = uint32(f.Channels.Count())
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.Alsa.NoMMap = 1

	pipe := driver.NewPipe(max(b.BufferFrames, 1) * f.FrameSize())
	silence := f.Silence()

	onSamples := func(pOutput, _ []byte, _ uint32) {
		pipe.ReadFrames(pOutput, silence)
	}
	dev, err := ma.InitDevice(b.ctx.Context, cfg, ma.DeviceCallbacks{Data: onSamples})
	if err != nil {
		return nil, fmt.Errorf("initializing playback device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("starting playback device: %w", err)
	}

	logger.Debug("playback device started", "format", f)
	return &output{pipe: pipe, dev: dev}, nil
}

type output struct {
	pipe *driver.Pipe
	dev  *ma.Device
	once sync.Once
}

func (o *output) Write(p []byte) (int, error) { return o.pipe.Write(p) }

func (o *output) Close() error {
	o.once.Do(func() {
		_ = o.pipe.Close()
		o.dev.Uninit()
	})
	return nil
}
