// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/internal/intpcm"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// Decoder reads integer PCM WAV files of 8, 16, 24 or 32 bits. The returned
// source is an audio.SeekableSource.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading wav data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec, err := open(rs)
	if err != nil {
		return nil, err
	}

	bits := int(dec.BitDepth)
	frames := int64(-1)
	if block := int64(dec.NumChans) * int64(bits/8); block > 0 {
		frames = int64(dec.PCMSize) / block
	}

	src, err := intpcm.New(dec, intpcm.Config{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   bits,
		Unsigned:   bits == 8,
		Frames:     frames,
		Reopen: func() (intpcm.Reader, error) {
			if _, err := rs.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
			return open(rs)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return src, nil
}

// open parses the header of rs and moves to the first PCM frame.
func open(rs io.ReadSeeker) (*wav.Decoder, error) {
	dec := wav.NewDecoder(rs)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: format tag %#x", ErrOnlyPCMSupported, dec.WavAudioFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}
	return dec, nil
}
