// SPDX-License-Identifier: EPL-2.0

//go:build nocgo

package main

// Without cgo only the capture backend is available.
