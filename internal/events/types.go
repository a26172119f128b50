// SPDX-License-Identifier: EPL-2.0

package events

import (
	"time"

	"github.com/ik5/pcmring/pcm"
)

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypePeriodElapsed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published on every stream state transition.
type StateChangedEvent struct {
	Stream string
	From   pcm.State
	To     pcm.State
	At     time.Time
}

func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// PeriodElapsedEvent is published after each completed period.
type PeriodElapsedEvent struct {
	Stream string
	Status pcm.Status
	At     time.Time
}

func (e PeriodElapsedEvent) Type() uint32 { return TypePeriodElapsed }
