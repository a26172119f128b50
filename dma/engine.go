// SPDX-License-Identifier: EPL-2.0

package dma

import "context"

// Direction of a transfer relative to system memory.
type Direction int

const (
	// MemToDev moves bytes from memory into a device FIFO (playback).
	MemToDev Direction = iota
	// DevToMem moves bytes from a device FIFO into memory (capture).
	DevToMem
)

func (d Direction) String() string {
	switch d {
	case MemToDev:
		return "mem-to-dev"
	case DevToMem:
		return "dev-to-mem"
	default:
		return "unknown"
	}
}

// Command is a channel control operation.
type Command int

const (
	CmdStart Command = iota
	CmdStop
	CmdFlush
)

func (c Command) String() string {
	switch c {
	case CmdStart:
		return "start"
	case CmdStop:
		return "stop"
	case CmdFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// Result of a single finished transfer.
type Result int

const (
	ResultDone Result = iota
	ResultAbort
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultDone:
		return "done"
	case ResultAbort:
		return "abort"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Descriptor is one chunk handed to the engine. Src and Dst are bus addresses.
type Descriptor struct {
	Src uint64
	Dst uint64
	Len int
	Dir Direction
	// Tag is opaque to the engine and echoed back in the Completion.
	Tag uint64
}

// Completion reports a finished transfer back to the channel owner.
type Completion struct {
	Desc   Descriptor
	Result Result
}

// CompletionFunc is invoked once per submitted descriptor, in submission order.
// It runs on an engine goroutine and must not block.
type CompletionFunc func(Completion)

// Request selects a channel when reserving one.
type Request struct {
	Name   string
	Client string
	Dir    Direction
}

// ChannelConfig is applied before the first submission of a run.
type ChannelConfig struct {
	Dir Direction
	// Endpoint is the device side address: the FIFO register for playback
	// destinations and capture sources.
	Endpoint uint64
	// Width is the bus width of one beat in bytes.
	Width int
	// BytesPerSecond paces engines that emulate a real device clock. Zero
	// means unpaced.
	BytesPerSecond int
}

// Channel is a reserved transfer channel. It is exclusively owned by whoever
// reserved it until Release.
type Channel interface {
	// Submit queues d. It returns ErrBusy when the engine cannot take more
	// work right now; nothing is queued in that case. Submit never invokes
	// the completion callback synchronously.
	Submit(d Descriptor) error
	SetCompletion(fn CompletionFunc)
	Configure(cfg ChannelConfig) error
	// Control issues cmd without waiting for its effect. Flush aborts every
	// queued descriptor; the aborts are reported through the callback.
	Control(cmd Command) error
	// Release flushes and returns the channel to the engine. Safe to call
	// more than once. It may wait for the engine goroutine, so callers must
	// not hold locks the completion callback takes.
	Release() error
}

// PositionReporter is implemented by channels that can read back the current
// hardware source and destination addresses.
type PositionReporter interface {
	CurrentPosition() (src, dst uint64)
}

// Engine reserves channels.
type Engine interface {
	Reserve(ctx context.Context, req Request) (Channel, error)
}
