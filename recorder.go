// SPDX-License-Identifier: EPL-2.0

package pcmring

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/pcmring/internal/observe"
	"github.com/ik5/pcmring/pcm"
	"go.uber.org/zap"
)

// Recorder copies captured periods from a stream's ring to a writer.
type Recorder struct {
	stream *pcm.Stream
	w      io.Writer
	limit  uint64
	params pcm.HwParams
	log    *zap.Logger

	// pos is the capture byte count consumed from the ring, written what
	// reached w. They differ after an overrun.
	pos      uint64
	written  uint64
	overruns int
}

// NewRecorder drains s into w. limit caps the number of bytes written; zero
// records until the context is done. The limit is rounded down to whole
// frames, but never below one frame.
func NewRecorder(s *pcm.Stream, w io.Writer, limit uint64, logger *zap.Logger) (*Recorder, error) {
	if s.Direction() != pcm.Capture {
		return nil, fmt.Errorf("recorder: %w: %s", ErrWrongDirection, s.Direction())
	}
	p := s.Status().Params
	if p.BufferBytes == 0 {
		return nil, fmt.Errorf("recorder: %w", ErrNotConfigured)
	}
	fb := uint64(p.FrameBytes())
	if limit > 0 {
		limit = max(limit/fb*fb, fb)
	}
	return &Recorder{
		stream: s,
		w:      w,
		limit:  limit,
		params: p,
		log:    observe.Component(logger, "recorder").With(zap.String("stream", s.Name())),
	}, nil
}

// Written is the number of bytes handed to the writer so far.
func (r *Recorder) Written() uint64 { return r.written }

// Overruns counts the times the hardware lapped the recorder. The lost
// audio is skipped.
func (r *Recorder) Overruns() int { return r.overruns }

// Run prepares and starts the stream and copies every completed period to
// the writer. It returns nil once the limit is reached and ctx.Err() when
// ctx is done first. The stream is stopped on return.
func (r *Recorder) Run(ctx context.Context) error {
	r.pos, r.written, r.overruns = 0, 0, 0
	if err := r.stream.Prepare(); err != nil {
		return err
	}
	if err := r.stream.Start(); err != nil {
		return err
	}
	defer r.halt()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stream.Elapsed():
		}

		st := r.stream.Status()
		if err := r.drain(st.Completed); err != nil {
			return err
		}
		if r.limit > 0 && r.written >= r.limit {
			r.log.Debug("capture limit reached", zap.Uint64("bytes", r.written))
			return nil
		}
		if st.State != pcm.StateRunning {
			return fmt.Errorf("recorder: %w: %s", ErrInterrupted, st.State)
		}
	}
}

func (r *Recorder) halt() {
	if err := r.stream.Stop(); err != nil && !errors.Is(err, pcm.ErrInvalidState) {
		r.log.Warn("stop failed", zap.Error(err))
	}
}

// drain writes the ring between the last consumed position and completed.
func (r *Recorder) drain(completed uint64) error {
	// A close or re-prepare by someone else resets the count.
	if completed <= r.pos {
		return nil
	}
	length := uint64(r.params.BufferBytes)
	if behind := completed - r.pos; behind > length {
		// Everything older than one buffer has been overwritten.
		r.overruns++
		r.log.Warn("capture overrun", zap.Uint64("lost_bytes", behind-length))
		r.pos = completed - length
	}

	ring := r.stream.Region().Buf[:length]
	for r.pos < completed {
		off := r.pos % length
		n := min(completed-r.pos, length-off)
		if r.limit > 0 {
			n = min(n, r.limit-r.written)
		}
		if n == 0 {
			return nil
		}
		if _, err := r.w.Write(ring[off : off+n]); err != nil {
			return fmt.Errorf("recorder: write: %w", err)
		}
		r.pos += n
		r.written += n
	}
	return nil
}
