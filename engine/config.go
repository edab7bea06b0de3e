// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/ik5/audmix/audio"
)

// EnvPrefix is prepended to the env tag of every Config field.
const EnvPrefix = "AUDMIX_"

// Config holds the settings of an Engine. Files and flags reach it through
// viper under the "audio." keys; AUDMIX_* environment variables override
// both.
type Config struct {
	VoiceFrequency int         `env:"VOICE_FREQUENCY"`
	MixerFrequency int         `env:"MIXER_FREQUENCY"`
	VoiceDepth     audio.Depth `env:"VOICE_DEPTH"`
	MixerDepth     audio.Depth `env:"MIXER_DEPTH"`
	// SampleDepth is what LoadSample converts decoded files to.
	SampleDepth audio.Depth       `env:"SAMPLE_DEPTH"`
	Quality     audio.Quality     `env:"QUALITY"`
	Channels    audio.ChannelConf `env:"CHANNELS"`

	Driver       string `env:"DRIVER"`
	PeriodFrames int    `env:"PERIOD_FRAMES"`

	StreamFragments      int `env:"STREAM_FRAGMENTS"`
	StreamFragmentFrames int `env:"STREAM_FRAGMENT_FRAMES"`

	ReservedSamples int           `env:"RESERVED_SAMPLES"`
	CacheTTL        time.Duration `env:"CACHE_TTL"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		VoiceFrequency:       44100,
		MixerFrequency:       44100,
		VoiceDepth:           audio.DepthInt16,
		MixerDepth:           audio.DepthFloat32,
		SampleDepth:          audio.DepthInt16,
		Quality:              audio.QualityLinear,
		Channels:             audio.Channels2,
		Driver:               "malgo",
		PeriodFrames:         1024,
		StreamFragments:      4,
		StreamFragmentFrames: 2048,
		ReservedSamples:      0,
		CacheTTL:             10 * time.Minute,
	}
}

// SetDefaults registers the defaults of every key in v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("audio.primary_voice_frequency", d.VoiceFrequency)
	v.SetDefault("audio.primary_mixer_frequency", d.MixerFrequency)
	v.SetDefault("audio.primary_voice_depth", d.VoiceDepth.String())
	v.SetDefault("audio.primary_mixer_depth", d.MixerDepth.String())
	v.SetDefault("audio.sample_depth", d.SampleDepth.String())
	v.SetDefault("audio.default_mixer_quality", d.Quality.String())
	v.SetDefault("audio.channels", d.Channels.String())
	v.SetDefault("audio.driver", d.Driver)
	v.SetDefault("audio.period_frames", d.PeriodFrames)
	v.SetDefault("audio.stream_fragments", d.StreamFragments)
	v.SetDefault("audio.stream_fragment_frames", d.StreamFragmentFrames)
	v.SetDefault("audio.reserved_samples", d.ReservedSamples)
	v.SetDefault("audio.cache_ttl", d.CacheTTL)
}

// LoadConfig reads the "audio." keys of v, applies the environment
// overrides and validates the result. A nil v reads the global viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	cfg := DefaultConfig()

	if v.IsSet("audio.primary_voice_frequency") {
		cfg.VoiceFrequency = v.GetInt("audio.primary_voice_frequency")
	}
	if v.IsSet("audio.primary_mixer_frequency") {
		cfg.MixerFrequency = v.GetInt("audio.primary_mixer_frequency")
	}

	depths := []struct {
		key string
		dst *audio.Depth
	}{
		{"audio.primary_voice_depth", &cfg.VoiceDepth},
		{"audio.primary_mixer_depth", &cfg.MixerDepth},
		{"audio.sample_depth", &cfg.SampleDepth},
	}
	for _, d := range depths {
		if !v.IsSet(d.key) {
			continue
		}
		depth, err := audio.ParseDepth(v.GetString(d.key))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = depth
	}

	if v.IsSet("audio.default_mixer_quality") {
		q, err := audio.ParseQuality(v.GetString("audio.default_mixer_quality"))
		if err != nil {
			return cfg, fmt.Errorf("audio.default_mixer_quality: %w", err)
		}
		cfg.Quality = q
	}
	if v.IsSet("audio.channels") {
		c, err := audio.ParseChannelConf(v.GetString("audio.channels"))
		if err != nil {
			return cfg, fmt.Errorf("audio.channels: %w", err)
		}
		cfg.Channels = c
	}
	if v.IsSet("audio.driver") {
		cfg.Driver = v.GetString("audio.driver")
	}
	if v.IsSet("audio.period_frames") {
		cfg.PeriodFrames = v.GetInt("audio.period_frames")
	}
	if v.IsSet("audio.stream_fragments") {
		cfg.StreamFragments = v.GetInt("audio.stream_fragments")
	}
	if v.IsSet("audio.stream_fragment_frames") {
		cfg.StreamFragmentFrames = v.GetInt("audio.stream_fragment_frames")
	}
	if v.IsSet("audio.reserved_samples") {
		cfg.ReservedSamples = v.GetInt("audio.reserved_samples")
	}
	if v.IsSet("audio.cache_ttl") {
		cfg.CacheTTL = v.GetDuration("audio.cache_ttl")
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid audio configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides the fields whose AUDMIX_* variable is set.
func (c *Config) ApplyEnv() error {
	opts := env.Options{
		Prefix: EnvPrefix,
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(audio.Depth(0)): func(s string) (any, error) {
				return audio.ParseDepth(s)
			},
			reflect.TypeOf(audio.Quality(0)): func(s string) (any, error) {
				return audio.ParseQuality(s)
			},
			reflect.TypeOf(audio.ChannelConf(0)): func(s string) (any, error) {
				return audio.ParseChannelConf(s)
			},
		},
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parsing environment: %w", parseCauses(err))
	}
	return nil
}

// parseCauses rewraps the field errors of env so the audio sentinels stay
// reachable with errors.Is.
func parseCauses(err error) error {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return err
	}
	errs := make([]error, 0, len(agg.Errors))
	for _, e := range agg.Errors {
		var pe env.ParseError
		if errors.As(e, &pe) {
			e = fmt.Errorf("%s: %w", pe.Name, pe.Err)
		}
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Validate checks every field.
func (c *Config) Validate() error {
	switch {
	case c.VoiceFrequency <= 0 || c.MixerFrequency <= 0:
		return fmt.Errorf("%w: voice %d Hz, mixer %d Hz", audio.ErrInvalidFrequency, c.VoiceFrequency, c.MixerFrequency)
	case !c.VoiceDepth.Valid() || !c.SampleDepth.Valid():
		return fmt.Errorf("%w: voice %v, samples %v", audio.ErrInvalidDepth, c.VoiceDepth, c.SampleDepth)
	case c.MixerDepth != audio.DepthFloat32 && c.MixerDepth != audio.DepthInt16:
		return fmt.Errorf("%w: mixers cannot mix %v", audio.ErrInvalidDepth, c.MixerDepth)
	case c.MixerDepth == audio.DepthInt16 && c.VoiceDepth != audio.DepthInt16 && c.VoiceDepth != audio.DepthUint16:
		return fmt.Errorf("%w: int16 mixer cannot feed a %v voice", audio.ErrFormatMismatch, c.VoiceDepth)
	case c.Quality < audio.QualityPoint || c.Quality > audio.QualityCubic:
		return fmt.Errorf("%w: quality %v", audio.ErrInvalidParam, c.Quality)
	case !c.Channels.Valid():
		return fmt.Errorf("%w: %#x", audio.ErrInvalidChannels, int(c.Channels))
	case c.PeriodFrames <= 0:
		return fmt.Errorf("%w: period of %d frames", audio.ErrInvalidParam, c.PeriodFrames)
	case c.StreamFragments < 2 || c.StreamFragmentFrames <= 0:
		return fmt.Errorf("%w: %d stream fragments of %d frames", audio.ErrInvalidParam, c.StreamFragments, c.StreamFragmentFrames)
	case c.ReservedSamples < 0:
		return fmt.Errorf("%w: %d reserved samples", audio.ErrInvalidParam, c.ReservedSamples)
	case c.CacheTTL < 0:
		return fmt.Errorf("%w: cache ttl %v", audio.ErrInvalidParam, c.CacheTTL)
	}
	return nil
}
