// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/ik5/audmix/audio"
)

// newSample builds float32 sample data from interleaved values.
func newSample(t testing.TB, values []float32, freq int, conf audio.ChannelConf) *audio.SampleData {
	t.Helper()

	data, err := audio.NewSampleData(audio.Float32Buffer(values), len(values)/conf.Count(), freq, conf, true)
	if err != nil {
		t.Fatalf("NewSampleData() error = %v", err)
	}
	return data
}

// ramp returns n values 1/n, 2/n, ... n/n.
func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i+1) / float32(n)
	}
	return out
}

func newMixer(t testing.TB, freq int, depth audio.Depth, conf audio.ChannelConf, q audio.Quality) *audio.Mixer {
	t.Helper()

	m, err := audio.NewMixer(freq, depth, conf)
	if err != nil {
		t.Fatalf("NewMixer() error = %v", err)
	}
	if err := m.SetQuality(q); err != nil {
		t.Fatalf("SetQuality() error = %v", err)
	}
	return m
}

// playOn attaches a playing, unpanned instance of data to m.
func playOn(t testing.TB, m *audio.Mixer, data *audio.SampleData) *audio.SampleInstance {
	t.Helper()

	s := audio.NewSampleInstance(data)
	if err := s.SetPan(audio.PanNone); err != nil {
		t.Fatalf("SetPan() error = %v", err)
	}
	if err := s.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := m.Attach(s); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	return s
}

func mixFloat(t testing.TB, m *audio.Mixer, frames int) []float32 {
	t.Helper()

	buf, err := m.Mix(frames, audio.DepthFloat32)
	if err != nil {
		t.Fatalf("Mix() error = %v", err)
	}
	if buf.IsZero() {
		return make([]float32, frames*m.Channels().Count())
	}
	return append([]float32(nil), buf.F32()...)
}

func TestNewMixer_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		freq    int
		depth   audio.Depth
		conf    audio.ChannelConf
		wantErr error
	}{
		{"zero frequency", 0, audio.DepthFloat32, audio.Channels2, audio.ErrInvalidFrequency},
		{"int24 depth", 44100, audio.DepthInt24, audio.Channels2, audio.ErrInvalidDepth},
		{"uint16 depth", 44100, audio.DepthUint16, audio.Channels2, audio.ErrInvalidDepth},
		{"bad layout", 44100, audio.DepthInt16, audio.ChannelConf(0x90), audio.ErrInvalidChannels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := audio.NewMixer(tt.freq, tt.depth, tt.conf); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewMixer() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMixer_PointSameRate(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityPoint)
	values := ramp(8)
	s := playOn(t, m, newSample(t, values, 1000, audio.Channels1))

	got := mixFloat(t, m, 8)
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("frame %d = %v, want %v", i, got[i], values[i])
		}
	}

	// A ONCE instance stops and rewinds at the end.
	if s.Playing() {
		t.Error("instance still playing after its last frame")
	}
	if s.Position() != 0 {
		t.Errorf("Position() = %d, want 0", s.Position())
	}
	for i, v := range mixFloat(t, m, 4) {
		if v != 0 {
			t.Fatalf("frame %d after end = %v, want silence", i, v)
		}
	}
}

func TestMixer_BresenhamResampling(t *testing.T) {
	t.Parallel()

	const srcRate, dstRate = 44100, 48000
	values := ramp(srcRate)
	m := newMixer(t, dstRate, audio.DepthFloat32, audio.Channels1, audio.QualityPoint)
	playOn(t, m, newSample(t, values, srcRate, audio.Channels1))

	got := mixFloat(t, m, 4800)
	for k, v := range got {
		if want := values[k*srcRate/dstRate]; v != want {
			t.Fatalf("frame %d = %v, want source frame %d = %v", k, v, k*srcRate/dstRate, want)
		}
	}
}

func TestMixer_Additivity(t *testing.T) {
	t.Parallel()

	a := make([]float32, 300)
	b := make([]float32, 300)
	for i := range a {
		a[i] = float32(math.Sin(float64(i) / 7))
		b[i] = float32(math.Cos(float64(i) / 3))
	}

	for _, q := range []audio.Quality{audio.QualityPoint, audio.QualityLinear, audio.QualityCubic} {
		both := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, q)
		onlyA := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, q)
		onlyB := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, q)

		playOn(t, both, newSample(t, a, 800, audio.Channels1))
		playOn(t, both, newSample(t, b, 1100, audio.Channels2))
		playOn(t, onlyA, newSample(t, a, 800, audio.Channels1))
		playOn(t, onlyB, newSample(t, b, 1100, audio.Channels2))

		sum := mixFloat(t, both, 200)
		ga := mixFloat(t, onlyA, 200)
		gb := mixFloat(t, onlyB, 200)

		for i := range sum {
			if math.Abs(float64(sum[i]-(ga[i]+gb[i]))) > 1e-5 {
				t.Fatalf("%v: value %d = %v, want %v + %v", q, i, sum[i], ga[i], gb[i])
			}
		}
	}
}

// The 1/√2 spread holds with panning disabled, which playOn sets.
func TestMixer_MonoInt16IntoStereoFloat(t *testing.T) {
	t.Parallel()

	data, err := audio.CreateSampleData(64, 22050, audio.DepthInt16, audio.Channels1)
	if err != nil {
		t.Fatalf("CreateSampleData() error = %v", err)
	}
	m := newMixer(t, 44100, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	s := playOn(t, m, data)

	got := s.ChannelMatrix()
	want := float32(1 / math.Sqrt2)
	if len(got) != 2 || math.Abs(float64(got[0]-want)) > 1e-3 || math.Abs(float64(got[1]-want)) > 1e-3 {
		t.Errorf("ChannelMatrix() = %v, want [%v %v]", got, want, want)
	}
}

func TestMixer_DefaultPan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		conf  audio.ChannelConf
		want  []float32
		mixed float32
	}{
		{"mono to stereo", audio.Channels2, []float32{0.5, 0.5}, 0.25},
		{"mono to mono", audio.Channels1, []float32{float32(1 / math.Sqrt2)}, float32(0.5 / math.Sqrt2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newMixer(t, 1000, audio.DepthFloat32, tt.conf, audio.QualityPoint)
			s := audio.NewSampleInstance(newSample(t, []float32{0.5, 0.5}, 1000, audio.Channels1))
			if s.Pan() != 0 {
				t.Fatalf("Pan() = %v, want 0", s.Pan())
			}
			if err := s.Play(); err != nil {
				t.Fatal(err)
			}
			if err := m.Attach(s); err != nil {
				t.Fatal(err)
			}

			got := s.ChannelMatrix()
			if len(got) != len(tt.want) {
				t.Fatalf("ChannelMatrix() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-5 {
					t.Fatalf("ChannelMatrix() = %v, want %v", got, tt.want)
				}
			}
			for i, v := range mixFloat(t, m, 1) {
				if math.Abs(float64(v-tt.mixed)) > 1e-5 {
					t.Errorf("value %d = %v, want %v", i, v, tt.mixed)
				}
			}
		})
	}
}

func TestMixer_ConcurrentAttach(t *testing.T) {
	t.Parallel()

	for range 50 {
		mixers := []*audio.Mixer{
			newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityPoint),
			newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityPoint),
		}
		mixers = append(mixers, mixers[0])
		s := audio.NewSampleInstance(newSample(t, ramp(4), 1000, audio.Channels1))

		var (
			wg   sync.WaitGroup
			errs = make([]error, len(mixers))
		)
		for i, m := range mixers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = m.Attach(s)
			}()
		}
		wg.Wait()

		won := 0
		for _, err := range errs {
			switch {
			case err == nil:
				won++
			case !errors.Is(err, audio.ErrAlreadyAttached):
				t.Fatalf("Attach() error = %v, want ErrAlreadyAttached", err)
			}
		}
		if won != 1 {
			t.Fatalf("%d attaches succeeded, want 1", won)
		}
		s.Detach()
		if s.Attached() {
			t.Fatal("Detach() left the instance attached")
		}
	}
}

func TestMixer_AttachDetachRoundTrip(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	values := ramp(16)
	data := newSample(t, values, 1000, audio.Channels1)
	s := playOn(t, m, data)

	if !s.Attached() || !m.HasAttachments() {
		t.Fatal("instance not attached after Attach")
	}
	if err := m.Attach(s); !errors.Is(err, audio.ErrAlreadyAttached) {
		t.Errorf("second Attach() error = %v, want ErrAlreadyAttached", err)
	}

	s.Detach()
	if s.Attached() || m.HasAttachments() {
		t.Fatal("instance still attached after Detach")
	}
	if s.ChannelMatrix() != nil {
		t.Error("matrix kept after Detach")
	}
	s.Detach()

	// Detached instances keep their settings and play the same way again.
	fresh := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	if err := fresh.Attach(s); err != nil {
		t.Fatalf("Attach() after Detach error = %v", err)
	}
	ref := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	playOn(t, ref, data)

	got, want := mixFloat(t, fresh, 16), mixFloat(t, ref, 16)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("value %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMixer_SetQualityWithChildren(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	playOn(t, m, newSample(t, ramp(4), 1000, audio.Channels2))

	if err := m.SetQuality(audio.QualityLinear); err != nil {
		t.Errorf("SetQuality(same) error = %v", err)
	}
	if err := m.SetQuality(audio.QualityCubic); !errors.Is(err, audio.ErrMixerHasChildren) {
		t.Errorf("SetQuality(cubic) error = %v, want ErrMixerHasChildren", err)
	}
	if m.Quality() != audio.QualityLinear {
		t.Errorf("Quality() = %v, want linear", m.Quality())
	}
}

func TestMixer_Gain(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityPoint)
	s := playOn(t, m, newSample(t, []float32{0.5, 0.5, 0.5, 0.5}, 1000, audio.Channels1))

	if err := s.SetGain(0.5); err != nil {
		t.Fatalf("SetGain() error = %v", err)
	}
	if err := m.SetGain(2); err != nil {
		t.Fatalf("Mixer.SetGain() error = %v", err)
	}
	if m.Gain() != 2 {
		t.Errorf("Gain() = %v, want 2", m.Gain())
	}

	for i, v := range mixFloat(t, m, 4) {
		if math.Abs(float64(v-0.5)) > 1e-6 {
			t.Fatalf("frame %d = %v, want 0.5", i, v)
		}
	}
}

func TestMixer_SetFrequency(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityPoint)
	values := ramp(8)
	playOn(t, m, newSample(t, values, 1000, audio.Channels1))

	if err := m.SetFrequency(500); err != nil {
		t.Fatalf("SetFrequency() error = %v", err)
	}
	if m.Frequency() != 500 {
		t.Errorf("Frequency() = %d, want 500", m.Frequency())
	}

	got := mixFloat(t, m, 4)
	for i, want := range []float32{values[0], values[2], values[4], values[6]} {
		if got[i] != want {
			t.Fatalf("frame %d = %v, want %v", i, got[i], want)
		}
	}

	parent := newMixer(t, 500, audio.DepthFloat32, audio.Channels1, audio.QualityPoint)
	if err := parent.Attach(m); err != nil {
		t.Fatalf("Attach(mixer) error = %v", err)
	}
	if err := m.SetFrequency(1000); !errors.Is(err, audio.ErrAlreadyAttached) {
		t.Errorf("SetFrequency() while attached error = %v, want ErrAlreadyAttached", err)
	}
	if _, err := m.Mix(4, audio.DepthFloat32); !errors.Is(err, audio.ErrAlreadyAttached) {
		t.Errorf("Mix() while attached error = %v, want ErrAlreadyAttached", err)
	}
}

func TestMixer_Nested(t *testing.T) {
	t.Parallel()

	values := ramp(32)
	data := newSample(t, values, 1000, audio.Channels2)

	top := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	sub := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	playOn(t, sub, data)
	if err := top.Attach(sub); err != nil {
		t.Fatalf("Attach(sub) error = %v", err)
	}

	direct := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	playOn(t, direct, data)

	got, want := mixFloat(t, top, 16), mixFloat(t, direct, 16)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("value %d = %v, want %v", i, got[i], want[i])
		}
	}

	if err := sub.Attach(top); !errors.Is(err, audio.ErrInvalidParam) {
		t.Errorf("cyclic Attach() error = %v, want ErrInvalidParam", err)
	}

	other := newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityLinear)
	if err := top.Attach(other); !errors.Is(err, audio.ErrFormatMismatch) {
		t.Errorf("Attach(mono mixer) error = %v, want ErrFormatMismatch", err)
	}

	if err := sub.SetPlaying(false); err != nil {
		t.Fatalf("SetPlaying() error = %v", err)
	}
	for i, v := range mixFloat(t, top, 4) {
		if v != 0 {
			t.Fatalf("paused sub mixer produced %v at %d", v, i)
		}
	}
}

func TestMixer_Loop(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityPoint)
	values := []float32{0.1, 0.2, 0.3, 0.4}
	s := playOn(t, m, newSample(t, values, 1000, audio.Channels1))
	if err := s.SetPlaymode(audio.PlayLoop); err != nil {
		t.Fatalf("SetPlaymode() error = %v", err)
	}

	got := mixFloat(t, m, 10)
	for i, v := range got {
		if want := values[i%4]; v != want {
			t.Fatalf("frame %d = %v, want %v", i, v, want)
		}
	}
	if !s.Playing() {
		t.Error("looping instance stopped")
	}
}

func TestMixer_Reverse(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityPoint)
	values := []float32{0.1, 0.2, 0.3, 0.4}
	s := audio.NewSampleInstance(newSample(t, values, 1000, audio.Channels1))
	if err := s.SetPan(audio.PanNone); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSpeed(-1); err != nil {
		t.Fatalf("SetSpeed(-1) error = %v", err)
	}
	if err := s.SetPosition(3); err != nil {
		t.Fatalf("SetPosition() error = %v", err)
	}
	if err := m.Attach(s); err != nil {
		t.Fatal(err)
	}
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}

	got := mixFloat(t, m, 6)
	want := []float32{0.4, 0.3, 0.2, 0.1, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reverse playback = %v, want %v", got, want)
		}
	}
}

func TestMixer_Int16(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthInt16, audio.Channels1, audio.QualityLinear)
	for range 3 {
		playOn(t, m, newSample(t, []float32{0.9, 0.9}, 1000, audio.Channels1))
	}

	buf, err := m.Mix(2, audio.DepthInt16)
	if err != nil {
		t.Fatalf("Mix() error = %v", err)
	}
	for i, v := range buf.S16() {
		if v != 32767 {
			t.Errorf("value %d = %d, want clamped 32767", i, v)
		}
	}

	quiet := newMixer(t, 1000, audio.DepthInt16, audio.Channels1, audio.QualityPoint)
	playOn(t, quiet, newSample(t, []float32{0}, 1000, audio.Channels1))
	u, err := quiet.Mix(1, audio.DepthUint16)
	if err != nil {
		t.Fatalf("Mix(uint16) error = %v", err)
	}
	if got := u.U16()[0]; got != 0x8000 {
		t.Errorf("silence as uint16 = %#x, want 0x8000", got)
	}
}

func TestMixer_MixConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		depth audio.Depth
		check func(audio.Buffer) bool
	}{
		{audio.DepthInt16, func(b audio.Buffer) bool { return b.S16()[0] == 16383 }},
		{audio.DepthUint16, func(b audio.Buffer) bool { return b.U16()[0] == 16383+0x8000 }},
		{audio.DepthInt8, func(b audio.Buffer) bool { return b.S8()[0] == 63 }},
		{audio.DepthUint8, func(b audio.Buffer) bool { return b.U8()[0] == 63+0x80 }},
		{audio.DepthInt24, func(b audio.Buffer) bool { return b.S24()[0] == 4194303 }},
	}

	for _, tt := range tests {
		t.Run(tt.depth.String(), func(t *testing.T) {
			t.Parallel()

			m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels1, audio.QualityPoint)
			playOn(t, m, newSample(t, []float32{0.5}, 1000, audio.Channels1))

			buf, err := m.Mix(1, tt.depth)
			if err != nil {
				t.Fatalf("Mix() error = %v", err)
			}
			if buf.Depth() != tt.depth || !tt.check(buf) {
				t.Errorf("Mix(%v) = %v", tt.depth, buf.Float(0))
			}
		})
	}
}

func TestMixer_Postprocess(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityPoint)
	playOn(t, m, newSample(t, []float32{0.25, 0.25, 0.25, 0.25}, 1000, audio.Channels2))

	var calls, frames int
	m.SetPostprocessCallback(func(buf audio.Buffer, n int) {
		calls++
		frames = n
		for i := range buf.F32() {
			buf.F32()[i] *= -1
		}
	})

	got := mixFloat(t, m, 2)
	if calls != 1 || frames != 2 {
		t.Errorf("callback called %d times with %d frames, want once with 2", calls, frames)
	}
	for i, v := range got {
		if v != -0.25 {
			t.Fatalf("value %d = %v, want -0.25", i, v)
		}
	}

	m.SetPostprocessCallback(nil)
	mixFloat(t, m, 2)
	if calls != 1 {
		t.Error("callback still called after removal")
	}
}

func TestMixer_Destroy(t *testing.T) {
	t.Parallel()

	m := newMixer(t, 1000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	a := playOn(t, m, newSample(t, ramp(4), 1000, audio.Channels2))
	b := playOn(t, m, newSample(t, ramp(4), 1000, audio.Channels2))

	m.Destroy()
	if a.Attached() || b.Attached() || m.HasAttachments() {
		t.Error("children still attached after Destroy")
	}
}

func BenchmarkMixer_Linear(b *testing.B) {
	m := newMixer(b, 48000, audio.DepthFloat32, audio.Channels2, audio.QualityLinear)
	for range 8 {
		s := playOn(b, m, newSample(b, ramp(44100*2), 44100, audio.Channels2))
		if err := s.SetPlaymode(audio.PlayLoop); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()

	for b.Loop() {
		if _, err := m.Mix(1024, audio.DepthInt16); err != nil {
			b.Fatal(err)
		}
	}
}
