// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrClosed          = errors.New("engine is closed")
	ErrNoFreeSlot      = errors.New("no free reserved sample slot")
	ErrInvalidSampleID = errors.New("sample id is stale or out of range")
	ErrNotOwned        = errors.New("object was not created by this engine")
	ErrUnknownFormat   = errors.New("no decoder for file extension")
)
