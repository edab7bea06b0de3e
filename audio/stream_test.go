// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/internal/audiotest"
)

func newStream(t testing.TB, count, frames, freq int, conf audio.ChannelConf) *audio.Stream {
	t.Helper()

	s, err := audio.NewStream(count, frames, freq, audio.DepthFloat32, conf)
	if err != nil {
		t.Fatalf("NewStream() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// queue fills a free fragment with v and queues it.
func queue(t testing.TB, s *audio.Stream, v float32) {
	t.Helper()

	f, ok := s.GetFragment()
	if !ok {
		t.Fatal("GetFragment() found no free fragment")
	}
	for i := range f.Buffer().F32() {
		f.Buffer().F32()[i] = v
	}
	if err := s.SetFragment(f); err != nil {
		t.Fatalf("SetFragment() error = %v", err)
	}
}

// attachStream puts s on a point sampling mono mixer of the same rate.
func attachStream(t testing.TB, s *audio.Stream) *audio.Mixer {
	t.Helper()

	m := newMixer(t, s.Frequency(), audio.DepthFloat32, s.Channels(), audio.QualityPoint)
	if err := s.SetPan(audio.PanNone); err != nil {
		t.Fatal(err)
	}
	if err := m.Attach(s); err != nil {
		t.Fatalf("Attach(stream) error = %v", err)
	}
	return m
}

func countEvents(s *audio.Stream) (fragments, finished int) {
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return fragments, finished
			}
			switch ev.Type {
			case audio.EventFragment:
				fragments++
			case audio.EventFinished:
				finished++
			}
		default:
			return fragments, finished
		}
	}
}

func TestNewStream_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                string
		count, frames, freq int
		depth               audio.Depth
		conf                audio.ChannelConf
		wantErr             error
	}{
		{"no fragments", 0, 512, 44100, audio.DepthFloat32, audio.Channels2, audio.ErrInvalidParam},
		{"empty fragments", 4, 0, 44100, audio.DepthFloat32, audio.Channels2, audio.ErrInvalidParam},
		{"zero frequency", 4, 512, 0, audio.DepthFloat32, audio.Channels2, audio.ErrInvalidFrequency},
		{"bad depth", 4, 512, 44100, audio.Depth(0x42), audio.Channels2, audio.ErrInvalidDepth},
		{"bad layout", 4, 512, 44100, audio.DepthInt16, audio.ChannelConf(0x11), audio.ErrInvalidChannels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := audio.NewStream(tt.count, tt.frames, tt.freq, tt.depth, tt.conf); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewStream() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStream_InitialState(t *testing.T) {
	t.Parallel()

	s := newStream(t, 4, 512, 44100, audio.Channels2)

	if !s.Playing() {
		t.Error("new stream is not playing")
	}
	if s.AvailableFragments() != 4 || s.Fragments() != 4 || s.Length() != 512 {
		t.Errorf("available=%d fragments=%d length=%d, want 4/4/512", s.AvailableFragments(), s.Fragments(), s.Length())
	}
	if s.Playmode() != audio.PlayOnce {
		t.Errorf("Playmode() = %v, want once", s.Playmode())
	}
	if s.PlayedSamples() != 0 {
		t.Errorf("PlayedSamples() = %d, want 0", s.PlayedSamples())
	}
	f, _ := s.GetFragment()
	if got := f.Buffer().Len(); got != 1024 {
		t.Errorf("fragment holds %d values, want 1024", got)
	}
	if got := len(f.Bytes()); got != 4096 {
		t.Errorf("fragment holds %d bytes, want 4096", got)
	}
}

func TestStream_FragmentQueue(t *testing.T) {
	t.Parallel()

	s := newStream(t, 2, 16, 1000, audio.Channels1)
	other := newStream(t, 2, 16, 1000, audio.Channels1)

	a, _ := s.GetFragment()
	b, _ := s.GetFragment()
	if _, ok := s.GetFragment(); ok {
		t.Fatal("GetFragment() handed out more fragments than exist")
	}

	foreign, _ := other.GetFragment()
	if err := s.SetFragment(foreign); !errors.Is(err, audio.ErrForeignFragment) {
		t.Errorf("SetFragment(foreign) error = %v, want ErrForeignFragment", err)
	}
	if err := s.SetFragment(nil); !errors.Is(err, audio.ErrForeignFragment) {
		t.Errorf("SetFragment(nil) error = %v, want ErrForeignFragment", err)
	}
	if err := s.SetFragment(a); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFragment(b); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFragment(a); !errors.Is(err, audio.ErrPendingFull) {
		t.Errorf("SetFragment() on a full queue error = %v, want ErrPendingFull", err)
	}
}

// Four fragments of 512 frames play in order, and draining stops the stream
// with exactly one finished event.
func TestStream_DrainFinishesOnce(t *testing.T) {
	t.Parallel()

	s := newStream(t, 4, 512, 1000, audio.Channels1)
	m := attachStream(t, s)

	for i := range 4 {
		queue(t, s, float32(i+1)/10)
	}
	s.FinishFeeding()

	for i := range 4 {
		got := mixFloat(t, m, 512)
		want := float32(i+1) / 10
		for j, v := range got {
			if v != want {
				t.Fatalf("fragment %d frame %d = %v, want %v", i, j, v, want)
			}
		}
		if i == 1 {
			if played := s.PlayedSamples(); played != 1024 {
				t.Errorf("PlayedSamples() = %d, want 1024", played)
			}
		}
	}

	if s.Playing() {
		t.Fatal("drained stream still playing")
	}
	for range 3 {
		mixFloat(t, m, 512)
	}
	if _, finished := countEvents(s); finished != 1 {
		t.Errorf("got %d finished events, want 1", finished)
	}
	if s.AvailableFragments() != 4 {
		t.Errorf("AvailableFragments() = %d, want 4", s.AvailableFragments())
	}
}

func TestStream_UnderrunRecovers(t *testing.T) {
	t.Parallel()

	s := newStream(t, 2, 8, 1000, audio.Channels1)
	m := attachStream(t, s)

	queue(t, s, 0.5)
	got := mixFloat(t, m, 16)
	for i, v := range got {
		want := float32(0.5)
		if i >= 8 {
			want = 0
		}
		if v != want {
			t.Fatalf("frame %d = %v, want %v", i, v, want)
		}
	}
	if !s.Playing() {
		t.Fatal("underrun stopped the stream")
	}

	fragments, finished := countEvents(s)
	if fragments == 0 || finished != 0 {
		t.Errorf("events: %d fragment, %d finished, want some fragment and no finished", fragments, finished)
	}

	queue(t, s, 0.25)
	for i, v := range mixFloat(t, m, 8) {
		if v != 0.25 {
			t.Fatalf("frame %d after refill = %v, want 0.25", i, v)
		}
	}
}

func TestStream_StopResets(t *testing.T) {
	t.Parallel()

	s := newStream(t, 3, 8, 1000, audio.Channels1)
	m := attachStream(t, s)
	queue(t, s, 0.5)
	queue(t, s, 0.5)
	mixFloat(t, m, 4)

	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if s.Playing() || s.AvailableFragments() != 3 || s.PlayedSamples() != 0 {
		t.Errorf("after Stop: playing=%v available=%d played=%d", s.Playing(), s.AvailableFragments(), s.PlayedSamples())
	}

	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	fragments, _ := countEvents(s)
	if fragments < 3 {
		t.Errorf("Play() announced %d fragments, want at least 3", fragments)
	}
}

func TestStream_Setters(t *testing.T) {
	t.Parallel()

	s := newStream(t, 2, 8, 1000, audio.Channels1)

	if err := s.SetSpeed(0); !errors.Is(err, audio.ErrInvalidSpeed) {
		t.Errorf("SetSpeed(0) error = %v, want ErrInvalidSpeed", err)
	}
	if err := s.SetSpeed(-1); !errors.Is(err, audio.ErrInvalidSpeed) {
		t.Errorf("SetSpeed(-1) error = %v, want ErrInvalidSpeed", err)
	}
	if err := s.SetSpeed(1.5); err != nil || s.Speed() != 1.5 {
		t.Errorf("SetSpeed(1.5) = %v, speed %v", err, s.Speed())
	}
	if err := s.SetPlaymode(audio.PlayLoop); !errors.Is(err, audio.ErrNoFeeder) {
		t.Errorf("SetPlaymode(loop) error = %v, want ErrNoFeeder", err)
	}
	if err := s.SetPlaymode(audio.PlayBidir); !errors.Is(err, audio.ErrInvalidParam) {
		t.Errorf("SetPlaymode(bidir) error = %v, want ErrInvalidParam", err)
	}
	if err := s.SetPlaymode(audio.PlayLoopOnce); err != nil || s.Playmode() != audio.PlayLoopOnce {
		t.Errorf("SetPlaymode(loop once) = %v, mode %v", err, s.Playmode())
	}
	if err := s.Rewind(); !errors.Is(err, audio.ErrNoFeeder) {
		t.Errorf("Rewind() error = %v, want ErrNoFeeder", err)
	}
	if s.Duration() != 0 || s.Position() != 0 {
		t.Error("a stream without feeder reports a position")
	}
}

func TestStream_DrainUnattachedStops(t *testing.T) {
	t.Parallel()

	s := newStream(t, 2, 8, 1000, audio.Channels1)
	queue(t, s, 0.5)
	s.Drain()

	if s.Playing() || s.AvailableFragments() != 2 {
		t.Errorf("after Drain: playing=%v available=%d", s.Playing(), s.AvailableFragments())
	}
}

func TestStream_DrainContextCanceled(t *testing.T) {
	t.Parallel()

	s := newStream(t, 2, 8, 1000, audio.Channels1)
	attachStream(t, s)
	queue(t, s, 0.5)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Nothing pulls the mixer, so the stream never drains.
	if err := s.DrainContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("DrainContext() error = %v, want DeadlineExceeded", err)
	}
}

func TestSourceStream_PlaysWholeSource(t *testing.T) {
	t.Parallel()

	src := audiotest.NewRampSource(1000, 1, 1000, 1000)
	s, err := audio.NewSourceStream(src, 4, 256, audio.DepthFloat32)
	if err != nil {
		t.Fatalf("NewSourceStream() error = %v", err)
	}
	m := attachStream(t, s)

	var got []float32
	deadline := time.Now().Add(5 * time.Second)
	for s.Playing() && time.Now().Before(deadline) {
		for _, v := range mixFloat(t, m, 100) {
			if v != 0 {
				got = append(got, v)
			}
		}
		time.Sleep(time.Millisecond)
	}

	if s.Playing() {
		t.Fatal("source stream did not finish")
	}
	if len(got) != 1000 {
		t.Fatalf("played %d frames, want 1000", len(got))
	}
	for i, v := range got {
		if want := float32(i+1) / 1000; v != want {
			t.Fatalf("frame %d = %v, want %v", i, v, want)
		}
	}
	if s.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", s.Duration())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.Closed() {
		t.Error("Close() did not close the source")
	}

	finished := 0
	for ev := range s.Events() {
		if ev.Type == audio.EventFinished {
			finished++
		}
	}
	if finished != 1 {
		t.Errorf("got %d finished events, want 1", finished)
	}
}

func TestSourceStream_SeekRearms(t *testing.T) {
	t.Parallel()

	src := audiotest.NewRampSource(1000, 1, 100, 1000)
	s, err := audio.NewSourceStream(src, 2, 64, audio.DepthFloat32)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Seek(2 * time.Second); !errors.Is(err, audio.ErrInvalidParam) {
		t.Errorf("Seek(past end) error = %v, want ErrInvalidParam", err)
	}
	if err := s.Seek(50 * time.Millisecond); err != nil {
		t.Errorf("Seek() error = %v", err)
	}
	if err := s.SetLoop(20*time.Millisecond, 10*time.Millisecond); !errors.Is(err, audio.ErrInvalidLoop) {
		t.Errorf("SetLoop(reversed) error = %v, want ErrInvalidLoop", err)
	}
	if err := s.SetPlaymode(audio.PlayLoop); err != nil {
		t.Errorf("SetPlaymode(loop) with feeder error = %v", err)
	}
	if s.Playmode() != audio.PlayLoop {
		t.Errorf("Playmode() = %v, want loop", s.Playmode())
	}
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	s, err := audio.NewFeederStream(2, 8, 1000, audio.DepthFloat32, audio.Channels1,
		audio.NewSourceFeeder(audiotest.NewSilentSource(1000, 1, 10)))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartFeeder(audio.NewSourceFeeder(audiotest.NewSilentSource(1000, 1, 10))); !errors.Is(err, audio.ErrStreamClosed) {
		t.Errorf("StartFeeder() after Close error = %v, want ErrStreamClosed", err)
	}
}
