// SPDX-License-Identifier: EPL-2.0

package audio

import "testing"

// cycleFeeder plays values once per pass and can rewind.
type cycleFeeder struct {
	values  []float32
	pos     int
	rewinds int
}

func (f *cycleFeeder) Fill(dst Buffer) int {
	n := copy(dst.F32(), f.values[f.pos:])
	f.pos += n
	return n
}

func (f *cycleFeeder) Rewind() error {
	f.pos = 0
	f.rewinds++
	return nil
}

// newFedStream sets up a stream with f installed but no goroutine, so fills
// can be driven by hand.
func newFedStream(t *testing.T, count, frames int, mode Playmode, f StreamFeeder) *Stream {
	t.Helper()

	s, err := NewStream(count, frames, 1000, DepthFloat32, Channels1)
	if err != nil {
		t.Fatal(err)
	}
	s.feeder = f
	s.mode = mode
	return s
}

func pendingValues(s *Stream) [][]float32 {
	var out [][]float32
	for _, f := range s.pending {
		out = append(out, append([]float32(nil), f.Buffer().F32()...))
	}
	return out
}

func TestFillAvailable_LoopRewinds(t *testing.T) {
	t.Parallel()

	f := &cycleFeeder{values: []float32{1, 2, 3, 4, 5}}
	s := newFedStream(t, 2, 8, PlayStreamOneDir, f)

	s.fillAvailable()

	got := pendingValues(s)
	want := [][]float32{
		{1, 2, 3, 4, 5, 1, 2, 3},
		{4, 5, 1, 2, 3, 4, 5, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("queued %d fragments, want %d", len(got), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("fragment %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
	if s.draining {
		t.Error("looping stream started draining")
	}
	if f.rewinds != 3 {
		t.Errorf("rewound %d times, want 3", f.rewinds)
	}
}

func TestFillAvailable_ShortFillDrains(t *testing.T) {
	t.Parallel()

	for _, mode := range []Playmode{PlayStreamOnce, PlayStreamLoopOnce} {
		f := &cycleFeeder{values: []float32{1, 2, 3}}
		s := newFedStream(t, 3, 8, mode, f)

		s.fillAvailable()

		if !s.draining {
			t.Errorf("%v: short fill did not start draining", mode)
		}
		got := pendingValues(s)
		if len(got) != 1 {
			t.Fatalf("%v: queued %d fragments, want 1", mode, len(got))
		}
		for j, v := range []float32{1, 2, 3, 0, 0, 0, 0, 0} {
			if got[0][j] != v {
				t.Fatalf("%v: fragment = %v, want padding with silence", mode, got[0])
			}
		}
		if s.AvailableFragments() != 2 {
			t.Errorf("%v: AvailableFragments() = %d, want 2", mode, s.AvailableFragments())
		}
	}
}

func TestFillAvailable_StopsOnQuit(t *testing.T) {
	t.Parallel()

	s := newFedStream(t, 2, 4, PlayStreamOnce, &cycleFeeder{values: make([]float32, 100)})
	close(s.quit)
	s.fillAvailable()

	if len(s.pending) != 0 {
		t.Errorf("filled %d fragments after quit", len(s.pending))
	}
}

func TestRefill_CopiesLookAhead(t *testing.T) {
	t.Parallel()

	s := newFedStream(t, 2, 4, PlayStreamOnce, &cycleFeeder{values: []float32{1, 2, 3, 4, 5, 6, 7, 8}})
	s.fillAvailable()

	if !s.refill() {
		t.Fatal("first refill failed")
	}
	s.pos = s.data.length
	if !s.refill() {
		t.Fatal("second refill failed")
	}

	// The three frames in front of the second fragment are the tail of the
	// first one.
	full := s.cur.full.F32()
	for i, want := range []float32{2, 3, 4, 5, 6, 7, 8} {
		if full[i] != want {
			t.Fatalf("fragment memory = %v, want look-ahead [2 3 4] then [5 6 7 8]", full)
		}
	}
	if s.pos != 0 || s.consumed != 1 {
		t.Errorf("pos=%d consumed=%d, want 0 and 1", s.pos, s.consumed)
	}
}
