// SPDX-License-Identifier: EPL-2.0

// Package capture is a driver backend that keeps everything written to it
// in memory.
package capture

import (
	"io"
	"sync"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/driver"
)

// Backend hands out in-memory outputs. Outputs accept up to Limit frames;
// once full, Write blocks until the output is closed. A zero Limit accepts
// everything without blocking.
type Backend struct {
	Limit int

	mu      sync.Mutex
	open    bool
	outputs []*Output
}

var _ driver.Backend = (*Backend)(nil)

// New returns a backend whose outputs hold up to limit frames.
func New(limit int) *Backend {
	return &Backend{Limit: limit}
}

func (b *Backend) Name() string { return "capture" }

func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = true
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	return nil
}

func (b *Backend) OpenOutput(f driver.Format) (driver.Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil, driver.ErrNotOpen
	}
	out := &Output{
		format: f,
		limit:  b.Limit * f.FrameSize(),
		full:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	b.outputs = append(b.outputs, out)
	return out, nil
}

// Outputs returns every output opened so far, in order.
func (b *Backend) Outputs() []*Output {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Output(nil), b.outputs...)
}

// Output records the bytes of one voice.
type Output struct {
	format driver.Format
	limit  int

	mu       sync.Mutex
	data     []byte
	full     chan struct{}
	closed   chan struct{}
	fullOnce sync.Once
	doneOnce sync.Once
}

func (o *Output) Format() driver.Format { return o.format }

func (o *Output) Write(p []byte) (int, error) {
	o.mu.Lock()
	n := len(p)
	if o.limit > 0 {
		n = min(n, o.limit-len(o.data))
	}
	o.data = append(o.data, p[:n]...)
	reached := o.limit > 0 && len(o.data) >= o.limit
	o.mu.Unlock()

	select {
	case <-o.closed:
		return n, io.ErrClosedPipe
	default:
	}
	if !reached {
		return n, nil
	}

	o.fullOnce.Do(func() { close(o.full) })
	<-o.closed
	return n, io.ErrClosedPipe
}

func (o *Output) Close() error {
	o.doneOnce.Do(func() { close(o.closed) })
	return nil
}

// Full is closed once the output holds Limit frames.
func (o *Output) Full() <-chan struct{} { return o.full }

// Frames is the number of whole frames captured.
func (o *Output) Frames() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.data) / o.format.FrameSize()
}

// Bytes returns a copy of the captured data.
func (o *Output) Bytes() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]byte(nil), o.data...)
}

// Buffer returns the captured whole frames as a buffer in the output depth.
func (o *Output) Buffer() (audio.Buffer, error) {
	p := o.Bytes()
	p = p[:len(p)-len(p)%o.format.FrameSize()]
	return audio.BufferFromBytes(o.format.Depth, p)
}
