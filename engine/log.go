// SPDX-License-Identifier: EPL-2.0

package engine

import "github.com/charmbracelet/log"

var logger = log.WithPrefix("engine")

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}
