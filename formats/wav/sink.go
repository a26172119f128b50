// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/pcmring/audio"
	"github.com/ik5/pcmring/pcm"
)

// Sink writes ring buffer bytes of one sample format to a PCM WAV file.
// Bytes may arrive in any split; a trailing partial frame at Close is
// dropped. 20-bit samples are stored in 24-bit containers.
type Sink struct {
	enc     *gowav.Encoder
	unpack  *audio.Unpacker
	shift   int
	frame   int
	buf     *goaudio.IntBuffer
	pending []byte
	closed  bool
	written int
}

// NewSink starts a WAV file on w. The header is rewritten with the final
// sizes on Close, which is why w must be seekable.
func NewSink(w io.WriteSeeker, f pcm.SampleFormat, rate, channels int) (*Sink, error) {
	u, err := audio.NewUnpacker(f)
	if err != nil {
		return nil, err
	}
	if rate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("wav: rate %d, channels %d", rate, channels)
	}

	depth := f.Bits()
	if depth == 20 {
		depth = 24
	}
	return &Sink{
		enc:    gowav.NewEncoder(w, rate, depth, channels, formatPCM),
		unpack: u,
		shift:  depth - f.Bits(),
		frame:  u.Width() * channels,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
			SourceBitDepth: depth,
		},
	}, nil
}

// Write encodes every whole frame available so far.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrSinkClosed
	}

	s.pending = append(s.pending, p...)
	whole := len(s.pending) - len(s.pending)%s.frame
	if whole == 0 {
		return len(p), nil
	}

	samples := whole / s.unpack.Width()
	if cap(s.buf.Data) < samples {
		s.buf.Data = make([]int, samples)
	}
	s.buf.Data = s.buf.Data[:samples]
	if _, err := s.unpack.Unpack(s.buf.Data, s.pending[:whole]); err != nil {
		return 0, err
	}
	if s.shift > 0 {
		for i := range s.buf.Data {
			s.buf.Data[i] <<= s.shift
		}
	}
	if err := s.enc.Write(s.buf); err != nil {
		return 0, fmt.Errorf("wav: encode: %w", err)
	}

	s.written += whole / s.frame
	s.pending = append(s.pending[:0], s.pending[whole:]...)
	return len(p), nil
}

// Frames is the number of frames encoded so far.
func (s *Sink) Frames() int { return s.written }

// Close finalises the header. It does not close the underlying writer.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("wav: finalise: %w", err)
	}
	return nil
}
