// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
)

func infoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Show the format of audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return info(cmd.OutOrStdout(), a.registry, args)
		},
	}
}

// fileInfo is what info reports about one file. Frames is -1 when the
// decoder cannot tell the length without reading the whole file.
type fileInfo struct {
	Format     string
	SampleRate int
	Channels   int
	Frames     int64
}

func (fi fileInfo) duration() time.Duration {
	if fi.Frames < 0 || fi.SampleRate <= 0 {
		return -1
	}
	return time.Duration(fi.Frames) * time.Second / time.Duration(fi.SampleRate)
}

func info(w io.Writer, reg *audio.Registry, paths []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tFORMAT\tRATE\tCHANNELS\tFRAMES\tDURATION")

	for _, path := range paths {
		fi, err := inspect(reg, path)
		if err != nil {
			return err
		}

		frames, dur := "?", "?"
		if fi.Frames >= 0 {
			frames = fmt.Sprint(fi.Frames)
			dur = fi.duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", path, fi.Format, fi.SampleRate, fi.Channels, frames, dur)
	}
	return tw.Flush()
}

func inspect(reg *audio.Registry, path string) (fileInfo, error) {
	dec, format, ok := reg.ForPath(path)
	if !ok {
		return fileInfo{}, fmt.Errorf("%w: %q", engine.ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fileInfo{}, err
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return fileInfo{}, fmt.Errorf("decoding %s as %s: %w", path, format, err)
	}
	defer src.Close()

	fi := fileInfo{Format: format, SampleRate: src.SampleRate(), Channels: src.Channels(), Frames: -1}
	if s, ok := src.(audio.SeekableSource); ok {
		fi.Frames = s.Frames()
	}
	return fi, nil
}
