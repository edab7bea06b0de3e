// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/internal/intpcm"
)

// Decoder reads uncompressed AIFF files of 8, 16, 24 or 32 bits through
// github.com/go-audio/aiff. The returned source is an audio.SeekableSource.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	// go-audio requires io.ReadSeeker
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading aiff data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec, err := open(rs)
	if err != nil {
		return nil, err
	}

	src, err := intpcm.New(dec, intpcm.Config{
		SampleRate: dec.SampleRate,
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Frames:     int64(dec.NumSampleFrames),
		Reopen: func() (intpcm.Reader, error) {
			if _, err := rs.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
			return open(rs)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedAiffLayout, err)
	}
	return src, nil
}

func open(rs io.ReadSeeker) (*aiff.Decoder, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()
	if dec.Format() == nil || dec.NumChans == 0 {
		return nil, ErrUnsupportedAiffLayout
	}
	return dec, nil
}
