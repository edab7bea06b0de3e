// SPDX-License-Identifier: EPL-2.0

package engine_test

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
)

func yamlViper(t *testing.T, doc string) *viper.Viper {
	t.Helper()

	v := viper.New()
	engine.SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := engine.LoadConfig(yamlViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	v := yamlViper(t, `
audio:
  primary_voice_frequency: 48000
  primary_mixer_frequency: 22050
  primary_voice_depth: uint16
  primary_mixer_depth: int16
  sample_depth: uint8
  default_mixer_quality: cubic
  channels: "5.1"
  driver: oto
  period_frames: 256
  stream_fragments: 8
  stream_fragment_frames: 512
  reserved_samples: 16
  cache_ttl: 30s
`)

	cfg, err := engine.LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 48000, cfg.VoiceFrequency)
	assert.Equal(t, 22050, cfg.MixerFrequency)
	assert.Equal(t, audio.DepthUint16, cfg.VoiceDepth)
	assert.Equal(t, audio.DepthInt16, cfg.MixerDepth)
	assert.Equal(t, audio.DepthUint8, cfg.SampleDepth)
	assert.Equal(t, audio.QualityCubic, cfg.Quality)
	assert.Equal(t, audio.Channels51, cfg.Channels)
	assert.Equal(t, "oto", cfg.Driver)
	assert.Equal(t, 256, cfg.PeriodFrames)
	assert.Equal(t, 8, cfg.StreamFragments)
	assert.Equal(t, 512, cfg.StreamFragmentFrames)
	assert.Equal(t, 16, cfg.ReservedSamples)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AUDMIX_MIXER_FREQUENCY", "8000")
	t.Setenv("AUDMIX_MIXER_DEPTH", "int16")
	t.Setenv("AUDMIX_CHANNELS", "1")
	t.Setenv("AUDMIX_QUALITY", "point")
	t.Setenv("AUDMIX_CACHE_TTL", "1m")

	v := yamlViper(t, `
audio:
  primary_mixer_frequency: 22050
  channels: "2"
`)
	cfg, err := engine.LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.MixerFrequency)
	assert.Equal(t, audio.DepthInt16, cfg.MixerDepth)
	assert.Equal(t, audio.Channels1, cfg.Channels)
	assert.Equal(t, audio.QualityPoint, cfg.Quality)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"depth", "audio:\n  primary_voice_depth: int12\n", audio.ErrInvalidDepth},
		{"quality", "audio:\n  default_mixer_quality: sinc\n", audio.ErrInvalidParam},
		{"channels", "audio:\n  channels: stereo\n", audio.ErrInvalidChannels},
		{"frequency", "audio:\n  primary_mixer_frequency: 0\n", audio.ErrInvalidFrequency},
		{"mixer depth", "audio:\n  primary_mixer_depth: int24\n", audio.ErrInvalidDepth},
		{"mixer feeds voice", "audio:\n  primary_voice_depth: float32\n  primary_mixer_depth: int16\n", audio.ErrFormatMismatch},
		{"fragments", "audio:\n  stream_fragments: 1\n", audio.ErrInvalidParam},
		{"reserved", "audio:\n  reserved_samples: -1\n", audio.ErrInvalidParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.LoadConfig(yamlViper(t, tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfig_ApplyEnvError(t *testing.T) {
	t.Setenv("AUDMIX_VOICE_DEPTH", "int12")

	cfg := engine.DefaultConfig()
	assert.ErrorIs(t, cfg.ApplyEnv(), audio.ErrInvalidDepth)
}
