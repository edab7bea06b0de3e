// SPDX-License-Identifier: EPL-2.0

package driver

import "github.com/charmbracelet/log"

var logger = log.WithPrefix("driver")

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}
