// SPDX-License-Identifier: EPL-2.0

package pcmtest

import (
	"context"
	"slices"
	"sync"

	"github.com/ik5/pcmring/dma"
)

// FakeEngine hands out FakeChannels and records them.
type FakeEngine struct {
	mu       sync.Mutex
	err      error
	capacity int
	channels []*FakeChannel
}

// NewFakeEngine returns an engine whose channels accept at most capacity
// pending descriptors (zero means unlimited).
func NewFakeEngine(capacity int) *FakeEngine {
	return &FakeEngine{capacity: capacity}
}

// FailReserve makes every following Reserve return err.
func (e *FakeEngine) FailReserve(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *FakeEngine) Reserve(_ context.Context, req dma.Request) (dma.Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	ch := &FakeChannel{req: req, capacity: e.capacity}
	e.channels = append(e.channels, ch)
	return ch, nil
}

// Last returns the most recently reserved channel, or nil.
func (e *FakeEngine) Last() *FakeChannel {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.channels) == 0 {
		return nil
	}
	return e.channels[len(e.channels)-1]
}

// Reserved is the number of Reserve calls that succeeded.
func (e *FakeEngine) Reserved() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.channels)
}

// FakeChannel records everything done to it. Completions only happen when a
// test calls Complete, on the test goroutine, which stands in for the
// engine's interrupt context.
type FakeChannel struct {
	mu        sync.Mutex
	req       dma.Request
	capacity  int
	busy      bool
	cb        dma.CompletionFunc
	cfg       dma.ChannelConfig
	pending   []dma.Descriptor
	flushed   []dma.Descriptor
	submitted []dma.Descriptor
	commands  []dma.Command
	releases  int
	pos       [2]uint64
}

func (c *FakeChannel) Submit(d dma.Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.releases > 0 {
		return dma.ErrReleased
	}
	if c.busy || (c.capacity > 0 && len(c.pending) >= c.capacity) {
		return dma.ErrBusy
	}
	c.pending = append(c.pending, d)
	c.submitted = append(c.submitted, d)
	return nil
}

func (c *FakeChannel) SetCompletion(fn dma.CompletionFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = fn
}

func (c *FakeChannel) Configure(cfg dma.ChannelConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return nil
}

func (c *FakeChannel) Control(cmd dma.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.releases > 0 {
		return dma.ErrReleased
	}
	c.commands = append(c.commands, cmd)
	if cmd == dma.CmdFlush {
		c.flushed = append(c.flushed, c.pending...)
		c.pending = nil
	}
	return nil
}

func (c *FakeChannel) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases++
	c.flushed = append(c.flushed, c.pending...)
	c.pending = nil
	return nil
}

// SetBusy makes Submit refuse everything while b is true.
func (c *FakeChannel) SetBusy(b bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = b
}

// Complete finishes the oldest pending descriptor with result and invokes
// the callback. It reports false when nothing was pending.
func (c *FakeChannel) Complete(result dma.Result) bool {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return false
	}
	d := c.pending[0]
	c.pending = c.pending[1:]
	cb := c.cb
	c.mu.Unlock()

	if cb != nil {
		cb(dma.Completion{Desc: d, Result: result})
	}
	return true
}

// DeliverAborts reports every flushed descriptor as aborted and returns how
// many there were.
func (c *FakeChannel) DeliverAborts() int {
	c.mu.Lock()
	flushed := c.flushed
	c.flushed = nil
	cb := c.cb
	c.mu.Unlock()

	for _, d := range flushed {
		if cb != nil {
			cb(dma.Completion{Desc: d, Result: dma.ResultAbort})
		}
	}
	return len(flushed)
}

// SetPosition sets what CurrentPosition reports.
func (c *FakeChannel) SetPosition(src, dst uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = [2]uint64{src, dst}
}

func (c *FakeChannel) Request() dma.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

func (c *FakeChannel) Config() dma.ChannelConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *FakeChannel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *FakeChannel) Submitted() []dma.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.submitted)
}

func (c *FakeChannel) Commands() []dma.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.commands)
}

func (c *FakeChannel) Releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}

// ReportingChannel wraps a FakeChannel and adds hardware position readback.
type ReportingChannel struct {
	*FakeChannel
}

func (c ReportingChannel) CurrentPosition() (src, dst uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos[0], c.pos[1]
}

// ReportingEngine reserves ReportingChannels.
type ReportingEngine struct {
	*FakeEngine
}

func (e ReportingEngine) Reserve(ctx context.Context, req dma.Request) (dma.Channel, error) {
	ch, err := e.FakeEngine.Reserve(ctx, req)
	if err != nil {
		return nil, err
	}
	return ReportingChannel{ch.(*FakeChannel)}, nil
}
