// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ik5/audmix"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
	"github.com/ik5/audmix/formats/wav"
)

type renderOptions struct {
	output string
	gain   float32
	depth  string
}

func renderCommand(a *app) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render -o OUT.wav FILE...",
		Short: "Mix files down into a WAV file",
		Long: "Mix every file with the configured mixer rate, layout and quality and\n" +
			"write the result as integer PCM. No audio device is opened.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(opts.output)
			if err != nil {
				return err
			}
			frames, err := render(a.cfg, a.registry, args, f, opts)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", frames, opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "WAV file to write")
	cmd.Flags().Float32VarP(&opts.gain, "gain", "g", 1, "gain applied to every file")
	cmd.Flags().StringVar(&opts.depth, "depth", "int16", "sample depth of the file, int16 or int24")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// render mixes paths offline and writes the mix to w. It returns the number
// of frames written.
func render(cfg engine.Config, reg *audio.Registry, paths []string, w io.WriteSeeker, opts renderOptions) (int, error) {
	depth, err := audio.ParseDepth(opts.depth)
	if err != nil {
		return 0, err
	}
	if depth.Signed() != audio.DepthInt16 && depth.Signed() != audio.DepthInt24 {
		return 0, fmt.Errorf("%w: wav files hold int16 or int24, not %v", audio.ErrInvalidDepth, depth)
	}

	samples := make([]*audio.SampleData, 0, len(paths))
	for _, path := range paths {
		data, err := decodeFile(reg, path)
		if err != nil {
			return 0, err
		}
		samples = append(samples, data)
		log.Debug("mixing", "file", path, "frames", data.Length(), "frequency", data.Frequency())
	}

	mix, err := audmix.Mixdown(samples, audmix.MixdownOptions{
		Frequency: cfg.MixerFrequency,
		Channels:  cfg.Channels,
		Depth:     depth,
		Quality:   cfg.Quality,
		Gain:      opts.gain,
		Period:    cfg.PeriodFrames,
	})
	if err != nil {
		return 0, err
	}
	if err := wav.SaveSample(w, mix); err != nil {
		return 0, err
	}
	return mix.Length(), nil
}

// decodeFile loads the whole file at path as float32 sample data.
func decodeFile(reg *audio.Registry, path string) (*audio.SampleData, error) {
	dec, format, ok := reg.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s as %s: %w", path, format, err)
	}
	defer src.Close()

	data, err := audio.LoadSample(src, audio.DepthFloat32)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return data, nil
}
