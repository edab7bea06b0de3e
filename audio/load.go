// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// LoadSample reads src to the end and stores it as SampleData of depth. The
// source is not closed.
func LoadSample(src Source, depth Depth) (*SampleData, error) {
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDepth, depth)
	}
	conf, err := ChannelConfFromCount(src.Channels())
	if err != nil {
		return nil, err
	}

	size := src.BufSize()
	if size <= 0 {
		size = 4096
	}
	chunk := make([]float32, size)
	var all []float32

	for {
		n, err := src.ReadSamples(chunk)
		all = append(all, chunk[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading sample: %w", err)
		}
		if n == 0 {
			break
		}
	}

	ch := conf.Count()
	frames := len(all) / ch

	buf := NewBuffer(depth, frames*ch)
	if depth == DepthFloat32 {
		copy(buf.f32, all)
	} else {
		for i, v := range all[:frames*ch] {
			buf.PutFloat(i, v)
		}
	}

	return NewSampleData(buf, frames, src.SampleRate(), conf, true)
}
