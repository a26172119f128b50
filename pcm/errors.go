// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter = errors.New("pcm: invalid parameter")
	ErrAllocationFailed = errors.New("pcm: allocation failed")
	ErrInvalidState     = errors.New("pcm: invalid state")
	// ErrTransferAborted is never returned to callers. It labels aborted
	// completions in logs and metrics.
	ErrTransferAborted = errors.New("pcm: transfer aborted")

	ErrInvalidGeometry = fmt.Errorf("%w: ring geometry", ErrInvalidParameter)
)

func stateError(op string, st State) error {
	return fmt.Errorf("%w: %s not allowed in state %s", ErrInvalidState, op, st)
}
