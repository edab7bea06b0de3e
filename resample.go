// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audmix/audio"
)

// ResampleToMono16 reads src to the end through a cubic resampler and a mono
// downmix and returns the result as 16-bit PCM at targetRate. bufferSize is
// the number of values read per call.
func ResampleToMono16(src audio.Source, targetRate int, bufferSize int) ([]int16, int, error) {
	if targetRate <= 0 {
		return nil, 0, fmt.Errorf("%w: %d Hz", audio.ErrInvalidFrequency, targetRate)
	}
	if bufferSize <= 0 {
		return nil, 0, fmt.Errorf("%w: buffer of %d values", audio.ErrInvalidParam, bufferSize)
	}

	mono := audio.NewMonoMixer(audio.NewResampler(src, targetRate))
	buf := make([]float32, bufferSize)
	pcm := make([]int16, 0, targetRate)

	for {
		n, err := mono.ReadSamples(buf)
		if n > 0 {
			at := len(pcm)
			pcm = append(pcm, make([]int16, n)...)
			out := audio.Int16Buffer(pcm[at:])
			for i, v := range buf[:n] {
				out.PutFloat(i, v)
			}
		}
		if errors.Is(err, io.EOF) {
			return pcm, targetRate, nil
		}
		if err != nil {
			return nil, targetRate, fmt.Errorf("resampling: %w", err)
		}
	}
}
