// SPDX-License-Identifier: EPL-2.0

package audio

import "github.com/charmbracelet/log"

var logger = log.WithPrefix("audio")

// SetLogger replaces the package logger. It should be called before any
// voice starts pulling.
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}
