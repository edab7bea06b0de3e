// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// SampleData is a block of interleaved PCM together with its format.
// Instances take a copy of the value, so the format and length they see
// stay fixed even if the SampleData is later destroyed.
type SampleData struct {
	buf       Buffer
	frequency int
	conf      ChannelConf
	length    int // frames
	owned     bool
}

// NewSampleData wraps an existing buffer. The buffer must hold at least
// length frames. owned records whether Destroy may release the memory.
func NewSampleData(buf Buffer, length, frequency int, conf ChannelConf, owned bool) (*SampleData, error) {
	if frequency <= 0 {
		return nil, ErrInvalidFrequency
	}
	if !buf.Depth().Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDepth, buf.Depth())
	}
	if !conf.Valid() {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidChannels, int(conf))
	}
	if length < 0 || buf.Len() < length*conf.Count() {
		return nil, fmt.Errorf("%w: have %d values, need %d", ErrBufferTooSmall, buf.Len(), length*conf.Count())
	}

	return &SampleData{
		buf:       buf,
		frequency: frequency,
		conf:      conf,
		length:    length,
		owned:     owned,
	}, nil
}

// CreateSampleData allocates silent sample data of the given format.
func CreateSampleData(length, frequency int, depth Depth, conf ChannelConf) (*SampleData, error) {
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDepth, depth)
	}
	if !conf.Valid() {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidChannels, int(conf))
	}
	return NewSampleData(NewBuffer(depth, length*conf.Count()), length, frequency, conf, true)
}

func (s *SampleData) Frequency() int        { return s.frequency }
func (s *SampleData) Channels() ChannelConf { return s.conf }
func (s *SampleData) Depth() Depth          { return s.buf.Depth() }
func (s *SampleData) Length() int           { return s.length }
func (s *SampleData) Owned() bool           { return s.owned }

// Buffer returns the sample memory, limited to Length frames.
func (s *SampleData) Buffer() Buffer {
	if s.buf.IsZero() {
		return s.buf
	}
	return s.buf.Slice(0, s.length*s.conf.Count())
}

// Bytes returns the native-endian bytes of Buffer.
func (s *SampleData) Bytes() []byte { return s.Buffer().Bytes() }

// Duration is the playing time at normal speed.
func (s *SampleData) Duration() time.Duration {
	return time.Duration(s.length) * time.Second / time.Duration(s.frequency)
}

// Destroy drops the reference to the sample memory. Instances that still hold
// a copy keep it alive; callers are expected to stop them first.
func (s *SampleData) Destroy() {
	s.buf = Buffer{depth: s.buf.depth}
	s.length = 0
}

// SharesMemory reports whether s and o start at the same sample memory.
func (s *SampleData) SharesMemory(o *SampleData) bool {
	if o == nil {
		return false
	}
	a, b := s.Bytes(), o.Bytes()
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

func (s *SampleData) sameFormat(o *SampleData) bool {
	return s.frequency == o.frequency && s.conf == o.conf && s.buf.depth == o.buf.depth
}
