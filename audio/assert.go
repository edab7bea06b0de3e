// SPDX-License-Identifier: EPL-2.0

//go:build !audiodebug

package audio

// assertf reports internal invariant violations. Release builds ignore them.
func assertf(cond bool, format string, args ...any) {}
