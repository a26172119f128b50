// SPDX-License-Identifier: EPL-2.0

package sim

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ik5/pcmring/dma"
	"github.com/ik5/pcmring/internal/observe"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Endpoint is the device side of a channel.
type Endpoint struct {
	// Sink receives the bytes of every completed playback transfer.
	Sink io.Writer
	// Source fills capture transfers. A short read is padded with silence.
	Source io.Reader
}

// Config sizes an Engine.
type Config struct {
	// Channels is the number of channels that can be reserved at once.
	Channels int
	// QueueDepth is how many descriptors a channel accepts before Submit
	// returns dma.ErrBusy.
	QueueDepth int
	// Speed scales the byte rate set through Channel.Configure: 1 plays in
	// real time, 4 four times faster. Zero disables pacing and completes
	// transfers as fast as the worker runs.
	Speed float64

	Logger *zap.Logger
}

// Engine is a software DMA engine. Each reserved channel runs one worker
// goroutine that performs transfers in order and reports completions.
type Engine struct {
	mem   *Memory
	cfg   Config
	log   *zap.Logger
	ctx   context.Context
	stop  context.CancelFunc
	group *errgroup.Group

	mu        sync.Mutex
	inUse     int
	endpoints map[string]Endpoint
}

// New returns an engine moving data in and out of mem.
func New(mem *Memory, cfg Config) *Engine {
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 8
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	return &Engine{
		mem:       mem,
		cfg:       cfg,
		log:       observe.Component(cfg.Logger, "dma-sim"),
		ctx:       ctx,
		stop:      cancel,
		group:     g,
		endpoints: make(map[string]Endpoint),
	}
}

// Attach binds the endpoint used by channels reserved under name. Channels
// without an endpoint discard playback data and capture silence.
func (e *Engine) Attach(name string, ep Endpoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endpoints[name] = ep
}

func (e *Engine) Reserve(ctx context.Context, req dma.Request) (dma.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.ctx.Err() != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("sim: engine closed: %w", dma.ErrNoChannel)
	}
	if e.inUse >= e.cfg.Channels {
		e.mu.Unlock()
		return nil, fmt.Errorf("sim: %d of %d channels in use: %w", e.inUse, e.cfg.Channels, dma.ErrNoChannel)
	}
	e.inUse++
	ep := e.endpoints[req.Name]
	e.mu.Unlock()

	c := newChannel(e, req, ep)
	e.group.Go(func() error { return c.run(e.ctx) })
	e.log.Debug("channel reserved", zap.String("name", req.Name), zap.Stringer("dir", req.Dir))
	return c, nil
}

func (e *Engine) releaseSlot() {
	e.mu.Lock()
	e.inUse--
	e.mu.Unlock()
}

// Close stops every worker and waits for them.
func (e *Engine) Close() error {
	e.stop()
	return e.group.Wait()
}
