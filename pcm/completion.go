// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"context"

	"github.com/ik5/pcmring/dma"
	"go.uber.org/zap"
)

// onComplete is the channel completion callback. It runs on the engine
// goroutine: short critical section, no blocking.
func (s *Stream) onComplete(c dma.Completion) {
	ctx := context.Background()
	dir := s.dir.String()

	if c.Result != dma.ResultDone {
		// Part of a stop or flush already in progress.
		s.metrics.RecordCompletion(ctx, s.name, dir, c.Result.String(), false)
		s.log.Debug("transfer ended early",
			zap.Stringer("result", c.Result),
			zap.Uint64("tag", c.Desc.Tag),
			zap.Error(ErrTransferAborted))
		return
	}

	s.mu.Lock()
	if c.Desc.Tag != s.sched.tag || s.state == StateClosed {
		s.mu.Unlock()
		s.metrics.RecordCompletion(ctx, s.name, dir, "stale", false)
		s.log.Debug("stale completion", zap.Uint64("tag", c.Desc.Tag))
		return
	}
	if s.ring.AdvanceOnCompletion() == 0 {
		s.mu.Unlock()
		return
	}
	if s.state == StateRunning {
		s.sched.fill()
	}
	st := s.statusLocked()
	s.mu.Unlock()

	s.metrics.RecordCompletion(ctx, s.name, dir, c.Result.String(), true)
	s.metrics.RecordElapsed(ctx, s.name, dir)

	s.wake()
	if s.listener != nil {
		s.listener.PeriodElapsed(s.name, st)
	}
}
