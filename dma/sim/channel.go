// SPDX-License-Identifier: EPL-2.0

package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ik5/pcmring/dma"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBurst bounds a single paced transfer.
const maxBurst = 1 << 20

type entry struct {
	desc    dma.Descriptor
	aborted bool
}

type channel struct {
	eng *Engine
	req dma.Request
	ep  Endpoint
	log *zap.Logger

	wake chan struct{}
	done chan struct{}

	mu        sync.Mutex
	cb        dma.CompletionFunc
	cfg       dma.ChannelConfig
	limiter   *rate.Limiter
	queue     []entry
	running   bool
	released  bool
	cur       dma.Descriptor
	cancelCur context.CancelFunc
}

func newChannel(e *Engine, req dma.Request, ep Endpoint) *channel {
	return &channel{
		eng:  e,
		req:  req,
		ep:   ep,
		log:  e.log.With(zap.String("channel", req.Name)),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (c *channel) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *channel) SetCompletion(fn dma.CompletionFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = fn
}

func (c *channel) Configure(cfg dma.ChannelConfig) error {
	if cfg.Width <= 0 {
		return fmt.Errorf("sim: bus width %d", cfg.Width)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return dma.ErrReleased
	}
	c.cfg = cfg
	c.limiter = nil
	if c.eng.cfg.Speed > 0 && cfg.BytesPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.BytesPerSecond)*c.eng.cfg.Speed), maxBurst)
	}
	return nil
}

func (c *channel) Submit(d dma.Descriptor) error {
	if d.Len <= 0 || d.Len > maxBurst {
		return fmt.Errorf("sim: descriptor length %d", d.Len)
	}
	addr := d.Src
	if d.Dir == dma.DevToMem {
		addr = d.Dst
	}
	if _, err := c.eng.mem.Resolve(addr, d.Len); err != nil {
		return err
	}

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return dma.ErrReleased
	}
	if len(c.queue) >= c.eng.cfg.QueueDepth {
		c.mu.Unlock()
		return dma.ErrBusy
	}
	c.queue = append(c.queue, entry{desc: d})
	c.mu.Unlock()

	c.signal()
	return nil
}

func (c *channel) Control(cmd dma.Command) error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return dma.ErrReleased
	}
	switch cmd {
	case dma.CmdStart:
		c.running = true
		if c.limiter != nil {
			// Start from an empty bucket so the first transfer already
			// takes real time.
			c.limiter.ReserveN(time.Now(), maxBurst)
		}
	case dma.CmdStop:
		c.running = false
	case dma.CmdFlush:
		c.abortLocked()
	default:
		c.mu.Unlock()
		return fmt.Errorf("sim: unknown command %d", int(cmd))
	}
	c.mu.Unlock()

	c.signal()
	return nil
}

// abortLocked marks every queued transfer aborted and interrupts the one in
// progress. The worker reports them in order. The position readback is
// cleared until the next transfer starts.
func (c *channel) abortLocked() {
	c.cur = dma.Descriptor{}
	for i := range c.queue {
		c.queue[i].aborted = true
	}
	if c.cancelCur != nil {
		c.cancelCur()
	}
}

func (c *channel) Release() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	c.running = false
	c.abortLocked()
	c.mu.Unlock()

	c.signal()
	<-c.done
	c.eng.releaseSlot()
	c.log.Debug("channel released")
	return nil
}

// CurrentPosition reports the addresses of the transfer most recently started.
func (c *channel) CurrentPosition() (src, dst uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.Src, c.cur.Dst
}

// next pops the front entry when it may be processed now. Aborted entries
// are always processed; live ones only while running.
func (c *channel) next(ctx context.Context) (entry, context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return entry{}, nil, false
	}
	front := c.queue[0]
	if !front.aborted && !c.running {
		return entry{}, nil, false
	}
	c.queue = c.queue[1:]
	if front.aborted {
		return front, nil, true
	}
	c.cur = front.desc
	tctx, cancel := context.WithCancel(ctx)
	c.cancelCur = cancel
	return front, tctx, true
}

func (c *channel) finish(e entry, result dma.Result) {
	c.mu.Lock()
	if c.cancelCur != nil && !e.aborted {
		c.cancelCur()
		c.cancelCur = nil
	}
	cb := c.cb
	c.mu.Unlock()

	if cb != nil {
		cb(dma.Completion{Desc: e.desc, Result: result})
	}
}

func (c *channel) run(ctx context.Context) error {
	defer close(c.done)

	for {
		for {
			e, tctx, ok := c.next(ctx)
			if !ok {
				break
			}
			if e.aborted {
				c.finish(e, dma.ResultAbort)
				continue
			}
			c.finish(e, c.transfer(tctx, e.desc))
		}

		c.mu.Lock()
		done := c.released && len(c.queue) == 0
		c.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-c.wake:
		}
	}
}

// transfer moves one descriptor's bytes between memory and the endpoint.
func (c *channel) transfer(ctx context.Context, d dma.Descriptor) dma.Result {
	c.mu.Lock()
	lim := c.limiter
	c.mu.Unlock()

	if lim != nil {
		if err := lim.WaitN(ctx, d.Len); err != nil {
			return dma.ResultAbort
		}
	} else if ctx.Err() != nil {
		return dma.ResultAbort
	}

	switch d.Dir {
	case dma.MemToDev:
		buf, err := c.eng.mem.Resolve(d.Src, d.Len)
		if err != nil {
			c.log.Warn("playback transfer", zap.Error(err))
			return dma.ResultError
		}
		if c.ep.Sink != nil {
			if _, err := c.ep.Sink.Write(buf); err != nil {
				c.log.Warn("endpoint write", zap.Error(err))
				return dma.ResultError
			}
		}
	case dma.DevToMem:
		buf, err := c.eng.mem.Resolve(d.Dst, d.Len)
		if err != nil {
			c.log.Warn("capture transfer", zap.Error(err))
			return dma.ResultError
		}
		n := 0
		if c.ep.Source != nil {
			n, err = io.ReadFull(c.ep.Source, buf)
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				c.log.Warn("endpoint read", zap.Error(err))
				return dma.ResultError
			}
		}
		clear(buf[n:])
	}
	return dma.ResultDone
}
