// SPDX-License-Identifier: EPL-2.0

// Package oto is a driver backend playing every voice as an oto player on a
// single shared context. It needs cgo on most platforms and is left out of
// builds with the nocgo tag.
package oto
