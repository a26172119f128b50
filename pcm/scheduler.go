// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"context"
	"errors"

	"github.com/ik5/pcmring/dma"
	"github.com/ik5/pcmring/internal/observe"
	"go.uber.org/zap"
)

// scheduler keeps the engine fed from the ring. Every method expects the
// stream lock to be held.
type scheduler struct {
	ring     *RingBuffer
	ch       dma.Channel
	dir      Direction
	endpoint uint64
	tag      uint64

	name    string
	log     *zap.Logger
	metrics *observe.Metrics
}

func (sc *scheduler) descriptor(c Chunk) dma.Descriptor {
	d := dma.Descriptor{Len: c.Len, Dir: sc.dir.transfer(), Tag: sc.tag}
	if sc.dir == Capture {
		d.Src, d.Dst = sc.endpoint, c.Addr
	} else {
		d.Src, d.Dst = c.Addr, sc.endpoint
	}
	return d
}

// fill submits chunks until the in-flight limit is reached or the engine
// refuses one. A refused chunk stays at the cursor and is retried on the next
// call. It returns the number of chunks submitted.
func (sc *scheduler) fill() int {
	if sc.ch == nil || !sc.ring.Configured() {
		return 0
	}

	n := 0
	for !sc.ring.Full() {
		c := sc.ring.NextChunk()
		if err := sc.ch.Submit(sc.descriptor(c)); err != nil {
			if errors.Is(err, dma.ErrBusy) {
				sc.metrics.RecordBusy(context.Background(), sc.name, sc.dir.String())
			}
			sc.log.Debug("submit refused",
				zap.Uint64("addr", c.Addr),
				zap.Int("len", c.Len),
				zap.Int("outstanding", sc.ring.Outstanding()),
				zap.Error(err))
			break
		}
		sc.ring.Commit(c)
		sc.metrics.RecordSubmit(context.Background(), sc.name, sc.dir.String())
		n++
	}
	return n
}
