// SPDX-License-Identifier: EPL-2.0

package driver

import (
	"errors"
	"io"
	"sync"

	"github.com/smallnest/ringbuffer"
)

// Pipe is a bounded byte FIFO between a voice loop and a device. Write
// blocks while the pipe is full, which paces the loop to the rate the
// device consumes data.
type Pipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	rb     *ringbuffer.RingBuffer
	closed bool
}

// NewPipe creates a pipe holding up to size bytes.
func NewPipe(size int) *Pipe {
	p := &Pipe{rb: ringbuffer.New(max(size, 1))}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Write queues all of b, waiting for room as needed. It fails with
// io.ErrClosedPipe once the pipe is closed.
func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	written := 0
	for written < len(b) {
		if p.closed {
			return written, io.ErrClosedPipe
		}
		free := p.rb.Free()
		if free == 0 {
			p.cond.Wait()
			continue
		}
		n, err := p.rb.Write(b[written : written+min(free, len(b)-written)])
		written += n
		if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
			return written, err
		}
		p.cond.Broadcast()
	}
	return written, nil
}

// Read waits until data is queued and reads up to len(b) bytes. It returns
// io.EOF once the pipe is closed and empty.
func (p *Pipe) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for p.rb.Length() == 0 {
		if p.closed {
			return 0, io.EOF
		}
		p.cond.Wait()
	}
	return p.read(b), nil
}

// ReadFrames reads the whole frames queued, up to len(b) bytes, and pads
// the rest of b with copies of silence, whose length is the frame size. It
// never blocks and returns the number of bytes taken from the pipe.
func (p *Pipe) ReadFrames(b, silence []byte) int {
	frame := max(len(silence), 1)

	p.mu.Lock()
	avail := min(len(b), p.rb.Length())
	avail -= avail % frame
	n := 0
	if avail > 0 {
		n = p.read(b[:avail])
	}
	p.mu.Unlock()

	i := n
	if len(silence) > 0 {
		for ; i+len(silence) <= len(b); i += len(silence) {
			copy(b[i:], silence)
		}
	}
	clear(b[i:])
	return n
}

func (p *Pipe) read(b []byte) int {
	n, err := p.rb.Read(b)
	if err != nil {
		return 0
	}
	p.cond.Broadcast()
	return n
}

// Buffered is the number of bytes waiting to be read.
func (p *Pipe) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rb.Length()
}

// Cap is the capacity of the pipe in bytes.
func (p *Pipe) Cap() int { return p.rb.Capacity() }

// Reset drops everything queued.
func (p *Pipe) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rb.Reset()
	p.cond.Broadcast()
}

// Close wakes every waiting reader and writer. Data already queued can
// still be read.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}
