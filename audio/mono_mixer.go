// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Remixer is a Source that maps the channels of src onto another layout
// through a remix matrix, the same matrix the mixer uses for attached
// instances.
type Remixer struct {
	src    Source
	in     int
	out    int
	matrix []float32
	tmp    []float32
}

// NewRemixer remixes src to conf with the default matrix: centre channels
// are spread at -3 dB, stereo folds down to mono at -3 dB and LFE is kept
// when both layouts have one.
func NewRemixer(src Source, conf ChannelConf) (*Remixer, error) {
	srcConf, err := ChannelConfFromCount(src.Channels())
	if err != nil {
		return nil, err
	}
	if !conf.Valid() {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidChannels, int(conf))
	}
	return NewRemixerMatrix(src, conf.Count(), rechannelMatrix(srcConf, conf, 1, PanNone))
}

// NewRemixerMatrix remixes src to outChannels channels with a caller supplied
// matrix holding one row of src.Channels() coefficients per output channel.
func NewRemixerMatrix(src Source, outChannels int, matrix []float32) (*Remixer, error) {
	in := src.Channels()
	if in <= 0 || outChannels <= 0 {
		return nil, fmt.Errorf("%w: %d to %d channels", ErrInvalidChannels, in, outChannels)
	}
	if len(matrix) != in*outChannels {
		return nil, fmt.Errorf("%w: got %d coefficients, want %d", ErrInvalidMatrix, len(matrix), in*outChannels)
	}
	return &Remixer{
		src:    src,
		in:     in,
		out:    outChannels,
		matrix: matrix,
		tmp:    make([]float32, 4096),
	}, nil
}

// NewMonoMixer folds every channel of src into one by averaging.
func NewMonoMixer(src Source) *Remixer {
	in := max(src.Channels(), 1)
	mat := make([]float32, in)
	for i := range mat {
		mat[i] = 1 / float32(in)
	}
	return &Remixer{src: src, in: in, out: 1, matrix: mat, tmp: make([]float32, 4096)}
}

func (m *Remixer) SampleRate() int { return m.src.SampleRate() }
func (m *Remixer) Channels() int   { return m.out }
func (m *Remixer) BufSize() int    { return m.src.BufSize() }

func (m *Remixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("closing remixer source: %w", err)
	}
	return nil
}

func (m *Remixer) passthrough() bool {
	if m.in != m.out {
		return false
	}
	for d := range m.out {
		for s := range m.in {
			want := float32(0)
			if d == s {
				want = 1
			}
			if m.matrix[d*m.in+s] != want {
				return false
			}
		}
	}
	return true
}

// ReadSamples fills dst with whole output frames.
func (m *Remixer) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / m.out
	if frames == 0 {
		return 0, nil
	}
	if m.passthrough() {
		return m.src.ReadSamples(dst[:frames*m.out])
	}

	need := frames * m.in
	if cap(m.tmp) < need {
		m.tmp = make([]float32, max(need, 8192))
	}
	m.tmp = m.tmp[:need]

	n, err := m.src.ReadSamples(m.tmp)
	got := n / m.in

	for f := range got {
		s := m.tmp[f*m.in : (f+1)*m.in]
		for d := range m.out {
			row := m.matrix[d*m.in : (d+1)*m.in]
			var sum float32
			for j, v := range s {
				sum += v * row[j]
			}
			dst[f*m.out+d] = sum
		}
	}
	return got * m.out, err
}
