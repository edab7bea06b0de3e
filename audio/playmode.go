// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Playmode selects what happens when the playback position leaves the
// playable range.
type Playmode int

const (
	PlayOnce Playmode = iota + 0x100
	PlayLoop
	PlayBidir
	// Stream-only modes. Streams translate the public modes into these.
	PlayStreamOnce
	PlayStreamOneDir
	PlayLoopOnce
	PlayStreamLoopOnce
)

func (p Playmode) String() string {
	switch p {
	case PlayOnce:
		return "once"
	case PlayLoop:
		return "loop"
	case PlayBidir:
		return "bidir"
	case PlayLoopOnce:
		return "loop-once"
	case PlayStreamOnce:
		return "stream-once"
	case PlayStreamOneDir:
		return "stream-onedir"
	case PlayStreamLoopOnce:
		return "stream-loop-once"
	}
	return fmt.Sprintf("Playmode(%#x)", int(p))
}

// ParsePlaymode converts "once", "loop", "bidir" or "loop-once".
func ParsePlaymode(s string) (Playmode, error) {
	for _, p := range []Playmode{PlayOnce, PlayLoop, PlayBidir, PlayLoopOnce} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: playmode %q", ErrInvalidParam, s)
}

func (p Playmode) streaming() bool {
	return p == PlayStreamOnce || p == PlayStreamOneDir || p == PlayStreamLoopOnce
}

// fixLoopedPosition brings pos back into the playable range according to
// the mode. It returns false when the instance has nothing more to give in
// this pass.
func fixLoopedPosition(in *instance) bool {
	switch in.mode {
	case PlayLoop:
		span := in.loopEnd - in.loopStart
		if span == 0 {
			return true
		}
		if in.step > 0 {
			for in.pos >= in.loopEnd {
				in.pos -= span
			}
		} else if in.step < 0 {
			for in.pos < in.loopStart {
				in.pos += span
			}
		}
		return true

	case PlayBidir:
		if in.loopEnd == in.loopStart {
			return true
		}
		// A reflection may overshoot the opposite bound on short loops with
		// large steps, so keep bouncing until the position settles.
		forward := in.step >= 0
		for {
			if forward {
				if in.pos < in.loopEnd {
					return true
				}
				in.step = -in.step
				in.pos = in.loopEnd - (in.pos - in.loopEnd) - 1
				forward = false
				continue
			}
			if in.pos >= in.loopStart && in.pos < in.loopEnd {
				return true
			}
			in.step = -in.step
			in.pos = in.loopStart + (in.loopStart - in.pos)
			forward = true
		}

	case PlayLoopOnce:
		if in.pos >= in.loopStart && in.pos < in.loopEnd {
			return true
		}
		if in.step >= 0 {
			in.pos = in.loopStart
		} else {
			in.pos = in.loopEnd - 1
		}
		in.playing = false
		return false

	case PlayOnce:
		if in.pos >= 0 && in.pos < in.data.length {
			return true
		}
		if in.step >= 0 {
			in.pos = 0
		} else {
			in.pos = in.data.length - 1
		}
		in.playing = false
		return false

	case PlayStreamOnce, PlayStreamOneDir, PlayStreamLoopOnce:
		return in.stream.fixPosition()
	}

	assertf(false, "unknown playmode %v", in.mode)
	return false
}
