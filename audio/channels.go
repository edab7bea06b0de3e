// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"strconv"
)

// MaxChannels is the widest layout supported (7.1).
const MaxChannels = 8

// ChannelConf packs the number of main channels in the high nibble and the
// number of low frequency channels in the low nibble.
type ChannelConf int

const (
	Channels1  ChannelConf = 0x10
	Channels2  ChannelConf = 0x20
	Channels3  ChannelConf = 0x30
	Channels4  ChannelConf = 0x40
	Channels51 ChannelConf = 0x51
	Channels61 ChannelConf = 0x61
	Channels71 ChannelConf = 0x71
)

// Count returns the total number of interleaved channels.
func (c ChannelConf) Count() int { return c.Main() + c.LFE() }

// Main returns the number of full range channels.
func (c ChannelConf) Main() int { return int(c >> 4) }

// LFE returns the number of low frequency channels.
func (c ChannelConf) LFE() int { return int(c & 0xF) }

// HasCenter reports whether the layout has a centre (or mono) channel,
// which is always the last of the main channels.
func (c ChannelConf) HasCenter() bool { return c.Main()&1 == 1 }

// Valid reports whether the layout is one of the predefined ones.
func (c ChannelConf) Valid() bool {
	switch c {
	case Channels1, Channels2, Channels3, Channels4, Channels51, Channels61, Channels71:
		return true
	}
	return false
}

func (c ChannelConf) String() string {
	if c.LFE() > 0 {
		return fmt.Sprintf("%d.%d", c.Main(), c.LFE())
	}
	return fmt.Sprintf("%d", c.Main())
}

// ChannelConfFromCount maps a plain channel count, as reported by decoders,
// to a layout. Six or more channels are assumed to carry one LFE channel.
func ChannelConfFromCount(n int) (ChannelConf, error) {
	switch n {
	case 1:
		return Channels1, nil
	case 2:
		return Channels2, nil
	case 3:
		return Channels3, nil
	case 4:
		return Channels4, nil
	case 6:
		return Channels51, nil
	case 7:
		return Channels61, nil
	case 8:
		return Channels71, nil
	}
	return 0, fmt.Errorf("%w: %d channels", ErrInvalidChannels, n)
}

// ParseChannelConf accepts a layout name as printed by String ("2", "5.1")
// or a plain channel count ("6").
func ParseChannelConf(s string) (ChannelConf, error) {
	for _, c := range []ChannelConf{Channels1, Channels2, Channels3, Channels4, Channels51, Channels61, Channels71} {
		if c.String() == s {
			return c, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChannels, s)
	}
	return ChannelConfFromCount(n)
}
