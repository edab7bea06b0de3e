// SPDX-License-Identifier: EPL-2.0

//go:build !nocgo

package main

import (
	"github.com/ik5/audmix/driver"
	"github.com/ik5/audmix/driver/malgo"
	"github.com/ik5/audmix/driver/oto"
	"github.com/ik5/audmix/engine"
)

func init() {
	backends["malgo"] = func(engine.Config) (driver.Backend, error) {
		return malgo.New(), nil
	}
	backends["oto"] = func(cfg engine.Config) (driver.Backend, error) {
		format := driver.Format{
			SampleRate: cfg.VoiceFrequency,
			Channels:   cfg.Channels,
			Depth:      cfg.VoiceDepth,
		}
		return oto.New(format, 0), nil
	}
}
