// SPDX-License-Identifier: EPL-2.0

package pcmring

import "errors"

var (
	// ErrWrongDirection is returned when a Player is given a capture
	// stream or a Recorder a playback stream.
	ErrWrongDirection = errors.New("stream has the wrong direction")
	// ErrNotConfigured is returned for a stream without hardware parameters.
	ErrNotConfigured = errors.New("stream is not configured")
	// ErrInterrupted is returned when the stream leaves the running state
	// while a Player or Recorder is driving it.
	ErrInterrupted = errors.New("stream stopped while running")
)
