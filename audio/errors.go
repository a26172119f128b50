// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize    = errors.New("dst size must be a multiple of the frame or sample size")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	ErrUnknownFormat     = errors.New("no decoder registered for format")
)
