// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

// Mixer converts a source to another channel count. Downmixing to mono
// averages the input channels, a mono input is copied to every output
// channel, and any other combination maps output channel c to input channel
// c modulo the input count.
type Mixer struct {
	src    Source
	in     int
	out    int
	format *goaudio.Format
	tmp    *goaudio.IntBuffer
}

func NewMixer(src Source, channels int) *Mixer {
	f := src.Format()
	return &Mixer{
		src:    src,
		in:     max(f.NumChannels, 1),
		out:    channels,
		format: &goaudio.Format{NumChannels: channels, SampleRate: f.SampleRate},
		tmp:    &goaudio.IntBuffer{Format: f, Data: make([]int, 4096)},
	}
}

func (m *Mixer) Format() *goaudio.Format { return m.format }
func (m *Mixer) BitDepth() int           { return m.src.BitDepth() }

func (m *Mixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (m *Mixer) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.out <= 0 || len(buf.Data)%m.out != 0 {
		return 0, ErrInvalidDstSize
	}
	buf.Format = m.format
	buf.SourceBitDepth = m.src.BitDepth()

	if m.in == m.out {
		// Pass-through
		return m.src.PCMBuffer(buf)
	}

	frames := len(buf.Data) / m.out
	samplesNeeded := frames * m.in

	// Grow tmp buffer if needed (but don't shrink to avoid thrashing)
	if cap(m.tmp.Data) < samplesNeeded {
		m.tmp.Data = make([]int, max(samplesNeeded, 8192))
	}
	m.tmp.Data = m.tmp.Data[:samplesNeeded]

	n, err := m.src.PCMBuffer(m.tmp)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w", err)
	}
	frames = n / m.in
	in := m.tmp.Data

	switch {
	case m.out == 1:
		for f := range frames {
			sum := 0
			base := f * m.in
			for c := range m.in {
				sum += in[base+c]
			}
			buf.Data[f] = sum / m.in
		}
	case m.in == 1:
		for f := range frames {
			for c := range m.out {
				buf.Data[f*m.out+c] = in[f]
			}
		}
	default:
		for f := range frames {
			for c := range m.out {
				buf.Data[f*m.out+c] = in[f*m.in+c%m.in]
			}
		}
	}

	return frames * m.out, err
}
