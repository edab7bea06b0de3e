// SPDX-License-Identifier: EPL-2.0

//go:build audiodebug

package audio

import "fmt"

// assertf panics on internal invariant violations in builds tagged
// audiodebug.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("audio: assertion failed: "+format, args...))
	}
}
