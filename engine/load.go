// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/audmix/audio"
)

// LoadSample decodes the file at path into sample data owned by the engine.
// Decoded files are cached by path for the configured TTL, so loading the
// same path again returns the same data.
func (e *Engine) LoadSample(path string) (*audio.SampleData, error) {
	if data, ok := e.cachedSample(path); ok {
		return data, nil
	}

	data, err := e.decodeSample(path)
	if err != nil {
		return nil, err
	}
	return e.keepSample(path, data)
}

// LoadSamples decodes paths concurrently. The result is in the order of
// paths. On error nothing is kept.
func (e *Engine) LoadSamples(ctx context.Context, paths ...string) ([]*audio.SampleData, error) {
	out := make([]*audio.SampleData, len(paths))
	fresh := make([]bool, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		if data, ok := e.cachedSample(path); ok {
			out[i] = data
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := e.decodeSample(path)
			if err != nil {
				return err
			}
			out[i] = data
			fresh[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, path := range paths {
		if !fresh[i] {
			continue
		}
		data, err := e.keepSample(path, out[i])
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

// LoadStream opens path as a stream fed from the decoder. Zero count or
// fragFrames take the configured defaults. The stream is owned by the
// engine and closes the file when closed.
func (e *Engine) LoadStream(path string, count, fragFrames int) (*audio.Stream, error) {
	src, err := e.openSource(path)
	if err != nil {
		return nil, err
	}

	count, fragFrames = e.streamShape(count, fragFrames)
	s, err := audio.NewSourceStream(src, count, fragFrames, e.cfg.MixerDepth)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("streaming %s: %w", path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		_ = s.Close()
		return nil, ErrClosed
	}
	e.own(s)
	logger.Debug("stream loaded", "path", path, "fragments", count, "frames", fragFrames)
	return s, nil
}

// DestroySample stops every instance the engine knows of that plays data,
// then destroys data.
func (e *Engine) DestroySample(data *audio.SampleData) error {
	if data == nil {
		return fmt.Errorf("%w: nil sample", audio.ErrInvalidParam)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.slots {
		if s.data == data || data.SharesMemory(s.inst.Sample()) {
			if err := s.inst.SetSample(nil); err != nil {
				return err
			}
			s.data = nil
			if err := e.current.Attach(s.inst); err != nil {
				return fmt.Errorf("reattaching reserved sample: %w", err)
			}
		}
	}
	for _, o := range e.owned {
		if inst, ok := o.obj.(*audio.SampleInstance); ok && data.SharesMemory(inst.Sample()) {
			if err := inst.Stop(); err != nil {
				return err
			}
			inst.Detach()
		}
	}

	for key, item := range e.samples.Items() {
		if item.Object == data {
			e.samples.Delete(key)
		}
	}
	e.disown(data)
	data.Destroy()
	return nil
}

func (e *Engine) cachedSample(path string) (*audio.SampleData, bool) {
	v, ok := e.samples.Get(path)
	if !ok {
		return nil, false
	}
	data, ok := v.(*audio.SampleData)
	return data, ok
}

// keepSample caches and owns data unless another load of path won the race,
// in which case that one is returned.
func (e *Engine) keepSample(path string, data *audio.SampleData) (*audio.SampleData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if prev, ok := e.cachedSample(path); ok {
		return prev, nil
	}
	e.samples.SetDefault(path, data)
	e.own(data)
	logger.Debug("sample loaded", "path", path, "frames", data.Length(), "frequency", data.Frequency())
	return data, nil
}

func (e *Engine) openSource(path string) (audio.Source, error) {
	dec, format, ok := e.registry.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := dec.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("decoding %s as %s: %w", path, format, err)
	}
	return withFile(src, f), nil
}

func (e *Engine) decodeSample(path string) (*audio.SampleData, error) {
	src, err := e.openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := audio.LoadSample(src, e.cfg.SampleDepth)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return data, nil
}

// withFile ties the lifetime of f to src, keeping src seekable if it was.
func withFile(src audio.Source, f *os.File) audio.Source {
	fs := fileSource{Source: src, file: f}
	if s, ok := src.(audio.SeekableSource); ok {
		return &seekableFileSource{fileSource: fs, seeker: s}
	}
	return &fs
}

// fileSource closes the file under a decoded source.
type fileSource struct {
	audio.Source
	file *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if ferr := s.file.Close(); err == nil {
		err = ferr
	}
	return err
}

type seekableFileSource struct {
	fileSource
	seeker audio.SeekableSource
}

func (s *seekableFileSource) SeekFrame(frame int64) error { return s.seeker.SeekFrame(frame) }
func (s *seekableFileSource) Frames() int64               { return s.seeker.Frames() }
