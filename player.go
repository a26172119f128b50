// SPDX-License-Identifier: EPL-2.0

package pcmring

import (
	"context"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/pcmring/audio"
	"github.com/ik5/pcmring/internal/observe"
	"github.com/ik5/pcmring/pcm"
	"go.uber.org/zap"
)

// Player plays one source through a configured playback stream.
//
// The whole ring is kept filled: every byte between the hardware's completed
// position and one buffer length ahead of it holds audio (or silence once
// the source ends) before the transfer covering it is queued.
type Player struct {
	stream *pcm.Stream
	src    audio.Source
	packer *audio.Packer
	params pcm.HwParams
	log    *zap.Logger

	buf *goaudio.IntBuffer
	// written counts bytes placed in the ring since prepare.
	written uint64
	// end is the byte count at which the source ran out; valid once eof.
	end uint64
	eof bool
}

// NewPlayer converts src to the stream's rate and channel count. The stream
// must be configured for playback; Run prepares and starts it.
func NewPlayer(s *pcm.Stream, src audio.Source, logger *zap.Logger) (*Player, error) {
	if s.Direction() != pcm.Playback {
		return nil, fmt.Errorf("player: %w: %s", ErrWrongDirection, s.Direction())
	}
	p := s.Status().Params
	if p.BufferBytes == 0 {
		return nil, fmt.Errorf("player: %w", ErrNotConfigured)
	}

	src = audio.Convert(src, p.Rate, p.Channels)
	packer, err := audio.NewPacker(p.Format, src.BitDepth())
	if err != nil {
		return nil, fmt.Errorf("player: %w", err)
	}

	return &Player{
		stream: s,
		src:    src,
		packer: packer,
		params: p,
		log:    observe.Component(logger, "player").With(zap.String("stream", s.Name())),
		buf: &goaudio.IntBuffer{
			Format:         src.Format(),
			Data:           make([]int, p.PeriodBytes/p.Format.Width()),
			SourceBitDepth: src.BitDepth(),
		},
	}, nil
}

// Written is the number of source bytes placed in the ring, excluding the
// silence padding after the end of the source.
func (p *Player) Written() uint64 {
	if p.eof {
		return p.end
	}
	return p.written
}

// Run fills the ring, starts the stream and keeps the ring filled until the
// source has been played out, ctx is done, or the stream is halted by
// someone else. The stream is stopped on return; the source is not closed.
func (p *Player) Run(ctx context.Context) error {
	// Prepare resets the ring to its start, so fill from offset zero first.
	p.written, p.end, p.eof = 0, 0, false
	if err := p.fill(0); err != nil {
		return err
	}
	if err := p.stream.Prepare(); err != nil {
		return err
	}
	if err := p.stream.Start(); err != nil {
		return err
	}
	p.log.Debug("playback started",
		zap.Int("rate", p.params.Rate),
		zap.Int("channels", p.params.Channels),
		zap.Stringer("format", p.params.Format))

	for {
		select {
		case <-ctx.Done():
			p.halt()
			return ctx.Err()
		case <-p.stream.Elapsed():
		}

		st := p.stream.Status()
		if st.State != pcm.StateRunning {
			return fmt.Errorf("player: %w: %s", ErrInterrupted, st.State)
		}
		if p.eof && st.Completed >= p.end {
			p.log.Debug("playback drained", zap.Uint64("bytes", p.end))
			p.halt()
			return nil
		}
		if err := p.fill(st.Completed); err != nil {
			p.halt()
			return err
		}
		// Taking the stream lock orders the writes above before the
		// completion that queues them.
		p.stream.Status()
	}
}

func (p *Player) halt() {
	if err := p.stream.Stop(); err != nil && !errors.Is(err, pcm.ErrInvalidState) {
		p.log.Warn("stop failed", zap.Error(err))
	}
}

// fill writes the ring up to one buffer length past completed.
func (p *Player) fill(completed uint64) error {
	length := uint64(p.params.BufferBytes)
	target := completed + length
	ring := p.stream.Region().Buf[:length]

	for p.written < target {
		off := p.written % length
		n := min(target-p.written, length-off, uint64(p.params.PeriodBytes))
		dst := ring[off : off+n]

		packed, err := p.pack(dst)
		if err != nil {
			return err
		}
		clear(dst[packed:])
		p.written += n
	}
	return nil
}

// pack reads samples until dst is full or the source ends and returns the
// number of bytes written.
func (p *Player) pack(dst []byte) (int, error) {
	w := p.packer.Width()
	total := 0
	for total < len(dst) && !p.eof {
		p.buf.Data = p.buf.Data[:(len(dst)-total)/w]
		n, err := p.src.PCMBuffer(p.buf)
		samples, perr := p.packer.Pack(dst[total:], p.buf.Data[:n])
		if perr != nil {
			return total, fmt.Errorf("player: %w", perr)
		}
		total += samples * w

		switch {
		case errors.Is(err, io.EOF):
			p.eof = true
			p.end = p.written + uint64(total)
			p.log.Debug("source ended", zap.Uint64("bytes", p.end))
		case err != nil:
			return total, fmt.Errorf("player: read source: %w", err)
		case n == 0:
			// Nothing available yet; the gap is played as silence.
			return total, nil
		}
	}
	return total, nil
}
