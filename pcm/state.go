// SPDX-License-Identifier: EPL-2.0

package pcm

import "github.com/ik5/pcmring/dma"

// Direction of a stream.
type Direction int

const (
	Playback Direction = iota
	Capture
)

func (d Direction) String() string {
	if d == Capture {
		return "capture"
	}
	return "playback"
}

func (d Direction) transfer() dma.Direction {
	if d == Capture {
		return dma.DevToMem
	}
	return dma.MemToDev
}

// State of a stream.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateConfigured
	StatePrepared
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateConfigured:
		return "configured"
	case StatePrepared:
		return "prepared"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TriggerCmd is the command set of the framework trigger callback.
type TriggerCmd int

const (
	TriggerStart TriggerCmd = iota
	TriggerStop
	TriggerPausePush
	TriggerPauseRelease
	TriggerSuspend
	TriggerResume
)

func (c TriggerCmd) String() string {
	switch c {
	case TriggerStart:
		return "start"
	case TriggerStop:
		return "stop"
	case TriggerPausePush:
		return "pause-push"
	case TriggerPauseRelease:
		return "pause-release"
	case TriggerSuspend:
		return "suspend"
	case TriggerResume:
		return "resume"
	default:
		return "unknown"
	}
}
