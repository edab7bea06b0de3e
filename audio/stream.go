// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"
)

// MaxLag is the number of frames kept in front of every fragment so the
// interpolation kernels can look back across a fragment boundary.
const MaxLag = 3

// StreamEventType tells what happened to a stream.
type StreamEventType int

const (
	// EventFragment means a fragment is available to be refilled.
	EventFragment StreamEventType = iota + 1
	// EventFinished means a draining stream ran out of fragments and stopped.
	EventFinished
)

func (t StreamEventType) String() string {
	switch t {
	case EventFragment:
		return "fragment"
	case EventFinished:
		return "finished"
	}
	return fmt.Sprintf("StreamEventType(%d)", int(t))
}

// StreamEvent is delivered on the channel returned by Stream.Events.
type StreamEvent struct {
	Type   StreamEventType
	Stream *Stream
	Time   time.Time
}

// Fragment is one of the fixed size buffers a stream cycles through. It is
// owned by the stream and only valid for the stream it came from.
type Fragment struct {
	stream *Stream
	full   Buffer
	lag    int
}

// Buffer is the writable part of the fragment, Stream.Length frames long.
func (f *Fragment) Buffer() Buffer { return f.full.Slice(f.lag, f.full.Len()) }

// Bytes is the native-endian view of Buffer.
func (f *Fragment) Bytes() []byte { return f.Buffer().Bytes() }

// Stream plays audio supplied incrementally in fragments. The producer takes
// free fragments with GetFragment, fills them and queues them with
// SetFragment. The pull consumes queued fragments in order and recycles them.
type Stream struct {
	instance

	all     []*Fragment
	cur     *Fragment
	quit    chan struct{}
	wake    chan struct{}
	events  chan StreamEvent
	wg      sync.WaitGroup
	closing sync.Once

	// qmu guards the fragment queues and the fields below. It nests inside
	// the shared mutex.
	qmu          sync.Mutex
	pending      []*Fragment
	used         []*Fragment
	draining     bool
	finishedSent bool
	consumed     uint64
	closed       bool
	underrun     bool
	feeder       StreamFeeder

	// feedMu serializes calls into the feeder.
	feedMu sync.Mutex
}

// NewStream creates a playing stream of count fragments of fragFrames frames.
// All fragments start out available to the producer.
func NewStream(count, fragFrames, frequency int, depth Depth, conf ChannelConf) (*Stream, error) {
	if count <= 0 || fragFrames <= 0 {
		return nil, fmt.Errorf("%w: %d fragments of %d frames", ErrInvalidParam, count, fragFrames)
	}
	if frequency <= 0 {
		return nil, ErrInvalidFrequency
	}
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDepth, depth)
	}
	if !conf.Valid() {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidChannels, int(conf))
	}

	ch := conf.Count()
	size := (fragFrames + MaxLag) * ch

	s := &Stream{
		quit:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
		events: make(chan StreamEvent, count+1),
	}
	s.init(SampleData{
		buf:       Buffer{depth: depth},
		frequency: frequency,
		conf:      conf,
		length:    fragFrames,
	})
	s.stream = s
	s.origin = MaxLag
	s.mode = PlayStreamOnce
	s.playing = true
	s.pos = fragFrames

	mem := NewBuffer(depth, count*size)
	for i := range count {
		f := &Fragment{stream: s, full: mem.Slice(i*size, (i+1)*size), lag: MaxLag * ch}
		s.all = append(s.all, f)
	}
	s.used = slices.Clone(s.all)
	return s, nil
}

func (s *Stream) Frequency() int        { return s.data.frequency }
func (s *Stream) Channels() ChannelConf { return s.data.conf }
func (s *Stream) Depth() Depth          { return s.data.buf.depth }
func (s *Stream) Speed() float32        { return s.speed }
func (s *Stream) Gain() float32         { return s.gain }
func (s *Stream) Pan() float32          { return s.pan }
func (s *Stream) Attached() bool        { return s.attached() }

// Length is the number of frames per fragment.
func (s *Stream) Length() int { return s.data.length }

// Fragments is the total number of fragments.
func (s *Stream) Fragments() int { return len(s.all) }

// Events returns the channel stream events are delivered on. Fragment events
// are only delivered here when no feeder is running. The channel is closed by
// Close.
func (s *Stream) Events() <-chan StreamEvent { return s.events }

// Playmode returns the public play mode of the stream.
func (s *Stream) Playmode() Playmode {
	switch s.mode {
	case PlayStreamOneDir:
		return PlayLoop
	case PlayStreamLoopOnce:
		return PlayLoopOnce
	}
	return PlayOnce
}

// Playing reports whether the stream is playing.
func (s *Stream) Playing() bool {
	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)
	return s.playing
}

// AvailableFragments is the number of fragments GetFragment can hand out.
func (s *Stream) AvailableFragments() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return len(s.used)
}

// GetFragment takes a free fragment for the producer to fill.
func (s *Stream) GetFragment() (*Fragment, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	if len(s.used) == 0 {
		return nil, false
	}
	f := s.used[0]
	s.used = slices.Delete(s.used, 0, 1)
	return f, true
}

// SetFragment queues a filled fragment for playback.
func (s *Stream) SetFragment(f *Fragment) error {
	if f == nil || f.stream != s {
		return ErrForeignFragment
	}

	s.qmu.Lock()
	defer s.qmu.Unlock()

	if len(s.pending) >= len(s.all) {
		return ErrPendingFull
	}
	s.pending = append(s.pending, f)
	return nil
}

// PlayedSamples is the number of frames played since the stream last
// started.
func (s *Stream) PlayedSamples() uint64 {
	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)

	if s.cur == nil {
		return 0
	}
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return s.consumed*uint64(s.data.length) + uint64(s.pos)
}

// SetSpeed sets the relative playback speed. Streams only play forward.
func (s *Stream) SetSpeed(speed float32) error {
	if speed <= 0 {
		return fmt.Errorf("%w: stream speed must be positive, got %v", ErrInvalidSpeed, speed)
	}
	if s.parentVoice != nil {
		return ErrAttachedToVoice
	}

	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)

	s.speed = speed
	if s.parentMixer != nil {
		s.computeStep()
	}
	return nil
}

// SetGain sets the linear gain.
func (s *Stream) SetGain(gain float32) error { return s.setGain(gain) }

// SetPan sets the stereo position, or PanNone.
func (s *Stream) SetPan(pan float32) error { return s.setPan(pan) }

// SetChannelMatrix replaces the remix matrix of a mixer attached stream.
func (s *Stream) SetChannelMatrix(mat []float32) error { return s.setChannelMatrix(mat) }

// ChannelMatrix returns the remix matrix in use.
func (s *Stream) ChannelMatrix() []float32 { return s.channelMatrix() }

// SetPlaymode accepts PlayOnce, PlayLoopOnce and, for streams with a feeder,
// PlayLoop. It cancels draining.
func (s *Stream) SetPlaymode(mode Playmode) error {
	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)
	s.qmu.Lock()
	defer s.qmu.Unlock()

	switch mode {
	case PlayOnce:
		s.mode = PlayStreamOnce
	case PlayLoopOnce:
		s.mode = PlayStreamLoopOnce
	case PlayLoop:
		if s.feeder == nil {
			return fmt.Errorf("%w: looping needs a feeder", ErrNoFeeder)
		}
		s.mode = PlayStreamOneDir
	default:
		return fmt.Errorf("%w: playmode %v", ErrInvalidParam, mode)
	}
	s.draining = false
	s.finishedSent = false
	return nil
}

// SetPlaying starts or stops the stream. Stopping discards every queued
// fragment and makes it available again.
func (s *Stream) SetPlaying(playing bool) error {
	var err error
	if v := s.parentVoice; v != nil && playing != s.Playing() {
		err = v.setStreamingPlaying(playing)
	}

	mu := lockMaybe(s.mu)
	defer unlockMaybe(mu)

	s.playing = err == nil && playing
	switch {
	case s.playing:
		s.qmu.Lock()
		s.finishedSent = false
		s.qmu.Unlock()
		s.emitFragmentEvents()
	case !playing:
		s.resetStopped()
	}
	return err
}

// Play is SetPlaying(true).
func (s *Stream) Play() error { return s.SetPlaying(true) }

// Stop is SetPlaying(false).
func (s *Stream) Stop() error { return s.SetPlaying(false) }

// resetStopped returns every queued fragment to the producer. The caller
// holds the shared mutex.
func (s *Stream) resetStopped() {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	// Only the look-ahead part is touched, fragments held by the producer
	// may be in the middle of being filled.
	for _, f := range s.all {
		f.full.FillSilence(0, f.lag)
	}

	s.used = append(s.used, s.pending...)
	s.pending = s.pending[:0]

	s.cur = nil
	s.data.buf = Buffer{depth: s.data.buf.depth}
	s.pos = s.data.length
	s.posErr = 0
	s.consumed = 0
}

// Drain blocks until every queued fragment has been played. An unattached
// stream is stopped right away.
func (s *Stream) Drain() { _ = s.DrainContext(context.Background()) }

// DrainContext is Drain bounded by ctx.
func (s *Stream) DrainContext(ctx context.Context) error {
	if !s.attached() {
		return s.SetPlaying(false)
	}
	s.FinishFeeding()

	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for s.Playing() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// FinishFeeding marks the stream as draining without waiting: once the
// queued fragments are played it stops and emits EventFinished.
func (s *Stream) FinishFeeding() {
	s.qmu.Lock()
	s.draining = true
	s.qmu.Unlock()
}

// Detach removes the stream from its mixer or voice.
func (s *Stream) Detach() { s.detach() }

// refill moves on to the next pending fragment. It returns false on an
// underrun. The caller holds the shared mutex.
func (s *Stream) refill() bool {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	old := s.cur
	newPos := s.pos - s.data.length

	if old != nil {
		s.pending = slices.Delete(s.pending, 0, 1)
		s.used = append(s.used, old)
	}

	if len(s.pending) == 0 {
		s.cur = nil
		s.data.buf = Buffer{depth: s.data.buf.depth}
		if !s.underrun && !s.draining {
			logger.Warn("out of buffers", "fragments", len(s.all), "frames", s.data.length)
		}
		s.underrun = true
		return false
	}
	s.underrun = false

	next := s.pending[0]
	s.cur = next
	s.data.buf = next.full

	if old != nil {
		// The tail of the previous fragment becomes the look-ahead.
		n := next.lag
		next.full.CopyFrom(0, old.full, old.full.Len()-n, n)
		s.consumed++
	}

	s.pos = newPos
	return true
}

// fixPosition advances through pending fragments while pos is past the
// current one. The caller holds the shared mutex.
func (s *Stream) fixPosition() bool {
	empty := false
	for s.pos >= s.data.length && s.playing && !empty {
		empty = !s.refill()
		if empty && s.isDraining() {
			s.playing = false
			s.emitFinished()
		}
		s.emitFragmentEvents()
	}
	return !empty
}

func (s *Stream) isDraining() bool {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return s.draining
}

// readDirect hands out the queued fragments unconverted. It is the pull of a
// stream attached straight to a voice. The caller holds the shared mutex.
func (s *Stream) readDirect(frames int) (Buffer, int) {
	if !s.playing {
		return Buffer{}, 0
	}

	length := s.data.length
	ch := s.data.conf.Count()
	frames = min(frames, length)

	if s.pos >= length {
		s.refill()
		if s.cur == nil {
			if s.isDraining() {
				s.playing = false
				s.emitFinished()
			}
			return Buffer{}, 0
		}
		s.pos = frames
		s.emitFragmentEvents()
		return s.cur.Buffer().Slice(0, frames*ch), frames
	}

	if s.cur == nil {
		return Buffer{}, 0
	}
	if s.pos+frames > length {
		frames = length - s.pos
	}
	out := s.cur.Buffer().Slice(s.pos*ch, (s.pos+frames)*ch)
	s.pos += frames
	return out, frames
}

// emitFragmentEvents announces every free fragment. With a feeder running the
// feeder is woken instead.
func (s *Stream) emitFragmentEvents() {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	n := len(s.used)
	if s.closed || n == 0 {
		return
	}
	if s.feeder != nil {
		select {
		case s.wake <- struct{}{}:
		default:
		}
		return
	}

	now := time.Now()
	for range n {
		select {
		case s.events <- StreamEvent{Type: EventFragment, Stream: s, Time: now}:
		default:
			return
		}
	}
}

// emitFinished sends EventFinished once per drain. A stale event is dropped
// to make room if the channel is full.
func (s *Stream) emitFinished() {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	if s.closed || s.finishedSent {
		return
	}
	s.finishedSent = true

	ev := StreamEvent{Type: EventFinished, Stream: s, Time: time.Now()}
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case <-s.events:
	default:
	}
	select {
	case s.events <- ev:
	default:
	}
}

// Close stops the feeder, detaches the stream and closes the event channel.
// A feeder implementing io.Closer is closed too.
func (s *Stream) Close() error {
	var err error
	s.closing.Do(func() {
		close(s.quit)
		s.wg.Wait()
		s.detach()

		s.qmu.Lock()
		s.closed = true
		close(s.events)
		f := s.feeder
		s.qmu.Unlock()

		if c, ok := f.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
