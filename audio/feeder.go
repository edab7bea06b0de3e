// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// StreamFeeder produces audio for a stream. Fill writes up to dst.Len()
// values, in the stream depth and layout, and returns the number of frames
// written. Returning fewer frames than fit means the source is exhausted.
type StreamFeeder interface {
	Fill(dst Buffer) int
}

// Rewinder is implemented by feeders that can restart from the beginning of
// their loop.
type Rewinder interface {
	Rewind() error
}

// Seeker is implemented by feeders that can jump to a time.
type Seeker interface {
	Seek(pos time.Duration) error
}

// Looper is implemented by feeders that can restrict playback to a range.
type Looper interface {
	SetLoop(start, end time.Duration) error
}

// Positioner is implemented by feeders that know their position.
type Positioner interface {
	Position() time.Duration
}

// Lengther is implemented by feeders that know their total length.
type Lengther interface {
	Length() time.Duration
}

// feederPoll bounds how long the feeder goroutine sleeps without a wake-up.
const feederPoll = 50 * time.Millisecond

// NewFeederStream creates a stream and starts a goroutine that keeps its
// fragments filled from f. Close stops the goroutine.
func NewFeederStream(count, fragFrames, frequency int, depth Depth, conf ChannelConf, f StreamFeeder) (*Stream, error) {
	s, err := NewStream(count, fragFrames, frequency, depth, conf)
	if err != nil {
		return nil, err
	}
	if err := s.StartFeeder(f); err != nil {
		return nil, err
	}
	return s, nil
}

// StartFeeder starts filling the stream from f in a separate goroutine.
func (s *Stream) StartFeeder(f StreamFeeder) error {
	if f == nil {
		return fmt.Errorf("%w: nil feeder", ErrInvalidParam)
	}

	s.qmu.Lock()
	defer s.qmu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if s.feeder != nil {
		return fmt.Errorf("%w: stream already has a feeder", ErrInvalidParam)
	}
	s.feeder = f

	s.wg.Add(1)
	go s.feed()
	return nil
}

func (s *Stream) feed() {
	defer s.wg.Done()

	logger.Debug("stream feeder started", "fragments", len(s.all), "frames", s.data.length)
	defer logger.Debug("stream feeder finished")

	t := time.NewTicker(feederPoll)
	defer t.Stop()

	for {
		s.fillAvailable()

		select {
		case <-s.quit:
			return
		case <-s.wake:
		case <-t.C:
		}
	}
}

// fillAvailable fills and queues every free fragment until the stream starts
// draining.
func (s *Stream) fillAvailable() {
	for {
		select {
		case <-s.quit:
			return
		default:
		}
		if s.isDraining() {
			return
		}

		frag, ok := s.GetFragment()
		if !ok {
			return
		}

		full := s.fillFragment(frag)
		if err := s.SetFragment(frag); err != nil {
			logger.Error("queueing stream fragment", "err", err)
			return
		}

		s.qmu.Lock()
		if !full && (s.mode == PlayStreamOnce || s.mode == PlayStreamLoopOnce) {
			s.draining = true
		}
		s.qmu.Unlock()
	}
}

// fillFragment runs the feeder over f and pads a short result with silence,
// or keeps rewinding in loop mode. It reports whether the feeder filled the
// whole fragment.
func (s *Stream) fillFragment(f *Fragment) bool {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	s.qmu.Lock()
	feeder := s.feeder
	mode := s.mode
	s.qmu.Unlock()

	dst := f.Buffer()
	ch := s.data.conf.Count()
	frames := s.data.length

	n := feeder.Fill(dst)

	if mode == PlayStreamOneDir {
		r, canRewind := feeder.(Rewinder)
		for n < frames && canRewind {
			if err := r.Rewind(); err != nil {
				logger.Error("rewinding stream feeder", "err", err)
				break
			}
			m := feeder.Fill(dst.Slice(n*ch, frames*ch))
			if m == 0 {
				break
			}
			n += m
		}
	}

	if n < frames {
		dst.FillSilence(n*ch, (frames-n)*ch)
	}
	return n >= frames
}

// feederAs returns the feeder as T, or the matching error.
func feederAs[T any](s *Stream) (T, error) {
	var zero T

	s.qmu.Lock()
	f := s.feeder
	s.qmu.Unlock()

	if f == nil {
		return zero, ErrNoFeeder
	}
	t, ok := f.(T)
	if !ok {
		return zero, ErrNotSupported
	}
	return t, nil
}

// rearm cancels draining so the feeder resumes after a reposition.
func (s *Stream) rearm() {
	s.qmu.Lock()
	s.draining = false
	s.finishedSent = false
	s.qmu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Rewind restarts the feeder from the beginning of its loop.
func (s *Stream) Rewind() error {
	r, err := feederAs[Rewinder](s)
	if err != nil {
		return err
	}

	s.feedMu.Lock()
	err = r.Rewind()
	s.feedMu.Unlock()

	s.rearm()
	return err
}

// Seek moves the feeder to pos. Already queued fragments still play.
func (s *Stream) Seek(pos time.Duration) error {
	sk, err := feederAs[Seeker](s)
	if err != nil {
		return err
	}

	s.feedMu.Lock()
	err = sk.Seek(pos)
	s.feedMu.Unlock()

	s.rearm()
	return err
}

// SetLoop restricts the feeder to [start, end).
func (s *Stream) SetLoop(start, end time.Duration) error {
	if start >= end {
		return fmt.Errorf("%w: %v >= %v", ErrInvalidLoop, start, end)
	}
	l, err := feederAs[Looper](s)
	if err != nil {
		return err
	}

	s.feedMu.Lock()
	err = l.SetLoop(start, end)
	s.feedMu.Unlock()

	s.rearm()
	return err
}

// Position is the feeder position. It runs ahead of what is audible by the
// queued fragments.
func (s *Stream) Position() time.Duration {
	p, err := feederAs[Positioner](s)
	if err != nil {
		return 0
	}
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	return p.Position()
}

// Duration is the total length reported by the feeder.
func (s *Stream) Duration() time.Duration {
	l, err := feederAs[Lengther](s)
	if err != nil {
		return 0
	}
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	return l.Length()
}

// SeekableSource is a Source that can reposition by frame.
type SeekableSource interface {
	Source
	// SeekFrame moves the read position to frame.
	SeekFrame(frame int64) error
	// Frames is the total number of frames, or -1 when unknown.
	Frames() int64
}

// SourceFeeder adapts a Source into a StreamFeeder. Samples are converted to
// the depth of the fragment being filled; the source must have the stream's
// rate and channel count.
type SourceFeeder struct {
	src      Source
	scratch  []float32
	channels int

	pos       int64
	loopStart int64
	loopEnd   int64 // 0 means the end of the source
}

// NewSourceFeeder wraps src.
func NewSourceFeeder(src Source) *SourceFeeder {
	size := src.BufSize()
	if size <= 0 {
		size = 4096
	}
	return &SourceFeeder{
		src:      src,
		scratch:  make([]float32, size),
		channels: max(src.Channels(), 1),
	}
}

// Fill implements StreamFeeder.
func (f *SourceFeeder) Fill(dst Buffer) int {
	want := dst.Len() / f.channels
	if f.loopEnd > 0 {
		want = int(min(int64(want), max(f.loopEnd-f.pos, 0)))
	}
	want *= f.channels

	w := 0
	for w < want {
		n, err := f.src.ReadSamples(f.scratch[:min(len(f.scratch), want-w)])
		for i, v := range f.scratch[:n] {
			dst.PutFloat(w+i, v)
		}
		w += n

		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error("reading stream source", "err", err)
			}
			break
		}
		if n == 0 {
			break
		}
	}

	frames := w / f.channels
	f.pos += int64(frames)
	return frames
}

func (f *SourceFeeder) seekable() (SeekableSource, error) {
	s, ok := f.src.(SeekableSource)
	if !ok {
		return nil, ErrNotSupported
	}
	return s, nil
}

// Rewind implements Rewinder.
func (f *SourceFeeder) Rewind() error {
	s, err := f.seekable()
	if err != nil {
		return err
	}
	if err := s.SeekFrame(f.loopStart); err != nil {
		return fmt.Errorf("rewinding source: %w", err)
	}
	f.pos = f.loopStart
	return nil
}

func (f *SourceFeeder) toFrame(d time.Duration) int64 {
	return int64(d.Seconds() * float64(f.src.SampleRate()))
}

func (f *SourceFeeder) toDuration(frames int64) time.Duration {
	return time.Duration(float64(frames) / float64(f.src.SampleRate()) * float64(time.Second))
}

// Seek implements Seeker.
func (f *SourceFeeder) Seek(pos time.Duration) error {
	s, err := f.seekable()
	if err != nil {
		return err
	}
	frame := f.toFrame(pos)
	if total := s.Frames(); frame < 0 || (total >= 0 && frame > total) {
		return fmt.Errorf("%w: seek to %v", ErrInvalidParam, pos)
	}
	if err := s.SeekFrame(frame); err != nil {
		return fmt.Errorf("seeking source: %w", err)
	}
	f.pos = frame
	return nil
}

// SetLoop implements Looper.
func (f *SourceFeeder) SetLoop(start, end time.Duration) error {
	s, err := f.seekable()
	if err != nil {
		return err
	}
	from, to := f.toFrame(start), f.toFrame(end)
	if total := s.Frames(); from < 0 || (total >= 0 && to > total) {
		return fmt.Errorf("%w: [%v, %v)", ErrInvalidLoop, start, end)
	}
	f.loopStart, f.loopEnd = from, to
	return nil
}

// Position implements Positioner.
func (f *SourceFeeder) Position() time.Duration { return f.toDuration(f.pos) }

// Length implements Lengther. It is zero for sources of unknown length.
func (f *SourceFeeder) Length() time.Duration {
	s, err := f.seekable()
	if err != nil || s.Frames() < 0 {
		return 0
	}
	return f.toDuration(s.Frames())
}

// Close closes the source.
func (f *SourceFeeder) Close() error { return f.src.Close() }

// NewSourceStream streams src through a feeder goroutine. The stream takes
// the rate and channel count of src. Closing the stream closes src.
func NewSourceStream(src Source, count, fragFrames int, depth Depth) (*Stream, error) {
	conf, err := ChannelConfFromCount(src.Channels())
	if err != nil {
		return nil, err
	}
	s, err := NewFeederStream(count, fragFrames, src.SampleRate(), depth, conf, NewSourceFeeder(src))
	if err != nil {
		return nil, err
	}
	return s, nil
}
