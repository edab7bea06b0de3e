// SPDX-License-Identifier: EPL-2.0

// Package malgo is a driver backend opening one miniaudio playback device
// per voice. It needs cgo and is left out of builds with the nocgo tag.
package malgo
