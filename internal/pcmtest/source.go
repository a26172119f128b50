// SPDX-License-Identifier: EPL-2.0

package pcmtest

import (
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
)

// Source generates integer PCM for tests. It implements audio.Source without
// importing it so the audio package can use it in its own tests.
type Source struct {
	format   *goaudio.Format
	bits     int
	frames   int // total frames to generate
	pos      int // frames generated so far
	waveform func(frame, channel int) int
	closed   bool
}

// NewSource creates a source of frames frames whose samples come from
// waveform.
func NewSource(rate, channels, bits, frames int, waveform func(frame, channel int) int) *Source {
	return &Source{
		format:   &goaudio.Format{NumChannels: channels, SampleRate: rate},
		bits:     bits,
		frames:   frames,
		waveform: waveform,
	}
}

// NewSilentSource creates a 16-bit source of zeros.
func NewSilentSource(rate, channels, frames int) *Source {
	return NewSource(rate, channels, 16, frames, func(int, int) int { return 0 })
}

// NewConstantSource creates a 16-bit source holding value on every channel.
func NewConstantSource(rate, channels, frames, value int) *Source {
	return NewSource(rate, channels, 16, frames, func(int, int) int { return value })
}

// NewRampSource creates a 16-bit source whose sample is the frame index
// (wrapped into int16) plus the channel number, so ordering mistakes show up.
func NewRampSource(rate, channels, frames int) *Source {
	return NewSource(rate, channels, 16, frames, func(frame, channel int) int {
		return int(int16(frame + channel))
	})
}

// NewSineSource creates a 16-bit sine wave at frequency Hz, at half scale.
func NewSineSource(rate, channels, frames int, frequency float64) *Source {
	return NewSource(rate, channels, 16, frames, func(frame, _ int) int {
		t := float64(frame) / float64(rate)
		return int(math.Sin(2*math.Pi*frequency*t) * 16384)
	})
}

func (s *Source) Format() *goaudio.Format { return s.format }
func (s *Source) BitDepth() int           { return s.bits }
func (s *Source) Closed() bool            { return s.closed }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Reset starts the source over.
func (s *Source) Reset() { s.pos = 0 }

func (s *Source) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	buf.Format = s.format
	buf.SourceBitDepth = s.bits
	if s.pos >= s.frames {
		return 0, io.EOF
	}

	ch := s.format.NumChannels
	n := min(len(buf.Data)/ch, s.frames-s.pos)
	for f := range n {
		for c := range ch {
			buf.Data[f*ch+c] = s.waveform(s.pos+f, c)
		}
	}
	s.pos += n

	if s.pos >= s.frames {
		return n * ch, io.EOF
	}
	return n * ch, nil
}
