// SPDX-License-Identifier: EPL-2.0

package driver

import (
	"fmt"

	"github.com/ik5/audmix/audio"
)

// Format is the layout of the bytes written to an Output: interleaved
// frames in native byte order.
type Format struct {
	SampleRate int
	Channels   audio.ChannelConf
	Depth      audio.Depth
}

// FormatOf returns the output format of v.
func FormatOf(v *audio.Voice) Format {
	return Format{SampleRate: v.Frequency(), Channels: v.Channels(), Depth: v.Depth()}
}

// FrameSize is the number of bytes in one frame.
func (f Format) FrameSize() int { return f.Channels.Count() * f.Depth.Size() }

// Silence returns one frame of silence.
func (f Format) Silence() []byte {
	return audio.NewBuffer(f.Depth, f.Channels.Count()).Bytes()
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz %v %v", f.SampleRate, f.Channels, f.Depth)
}
