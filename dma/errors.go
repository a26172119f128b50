// SPDX-License-Identifier: EPL-2.0

package dma

import "errors"

var (
	ErrBusy        = errors.New("dma: engine queue full")
	ErrNoChannel   = errors.New("dma: no free channel")
	ErrReleased    = errors.New("dma: channel released")
	ErrOutOfMemory = errors.New("dma: out of memory")
	ErrBadAddress  = errors.New("dma: address outside any region")
)
