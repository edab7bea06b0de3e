// SPDX-License-Identifier: EPL-2.0

// Package formats collects the decoders of its sub-packages into one
// registry keyed by file extension.
package formats

import (
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/aiff"
	"github.com/ik5/audmix/formats/flac"
	"github.com/ik5/audmix/formats/mp3"
	"github.com/ik5/audmix/formats/vorbis"
	"github.com/ik5/audmix/formats/wav"
)

// NewRegistry returns a registry with every supported format:
// wav, aiff, aif, mp3, ogg, oga and flac.
func NewRegistry() *audio.Registry {
	r := audio.NewRegistry()
	Register(r)
	return r
}

// Register adds every supported format to r.
func Register(r *audio.Registry) {
	r.Register("wav", wav.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	r.Register("flac", flac.Decoder{})
}
