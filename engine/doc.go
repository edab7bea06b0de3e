// SPDX-License-Identifier: EPL-2.0

// Package engine is the convenience layer over the audio package: one
// driver, a default voice with a default mixer attached, and a pool of
// reserved sample instances for playing sounds without managing instances.
//
//	cfg, err := engine.LoadConfig(viper.GetViper())
//	e, err := engine.New(cfg, driver.New(malgo.New()))
//	defer e.Close()
//
//	if err := e.ReserveSamples(8); err != nil { ... }
//	boom, err := e.LoadSample("boom.wav")
//	id, err := e.PlaySample(boom, 1, 0, 1, audio.PlayOnce)
//
// A SampleID stays valid until its slot is reused, so stale IDs are
// rejected with ErrInvalidSampleID. LockSampleID keeps a slot from being
// reused while its instance is being adjusted.
//
// Everything created through the engine (mixers, instances, streams,
// voices and loaded samples) is destroyed by Close in reverse creation
// order. Loaded samples are cached by path for the configured TTL.
//
// Configuration comes from viper under the "audio." keys, with AUDMIX_*
// environment variables taking precedence:
//
//	audio.primary_voice_frequency   AUDMIX_VOICE_FREQUENCY
//	audio.primary_mixer_frequency   AUDMIX_MIXER_FREQUENCY
//	audio.primary_voice_depth       AUDMIX_VOICE_DEPTH
//	audio.primary_mixer_depth       AUDMIX_MIXER_DEPTH
//	audio.sample_depth              AUDMIX_SAMPLE_DEPTH
//	audio.default_mixer_quality     AUDMIX_QUALITY
//	audio.channels                  AUDMIX_CHANNELS
//	audio.driver                    AUDMIX_DRIVER
//	audio.period_frames             AUDMIX_PERIOD_FRAMES
//	audio.stream_fragments          AUDMIX_STREAM_FRAGMENTS
//	audio.stream_fragment_frames    AUDMIX_STREAM_FRAGMENT_FRAMES
//	audio.reserved_samples          AUDMIX_RESERVED_SAMPLES
//	audio.cache_ttl                 AUDMIX_CACHE_TTL
package engine
