// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ik5/audmix/driver"
	"github.com/ik5/audmix/driver/capture"
	"github.com/ik5/audmix/engine"
)

// backendFactory builds the driver backend named in the configuration.
type backendFactory func(cfg engine.Config) (driver.Backend, error)

// backends is filled by the build specific files.
var backends = map[string]backendFactory{
	"capture": func(engine.Config) (driver.Backend, error) {
		return capture.New(0), nil
	},
}

func driverNames() string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func newBackend(cfg engine.Config) (driver.Backend, error) {
	f, ok := backends[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q, available: %s", cfg.Driver, driverNames())
	}
	return f(cfg)
}
