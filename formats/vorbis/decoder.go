// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/pcmring/audio"
	"github.com/ik5/pcmring/utils"
	"github.com/jfreymuth/oggvorbis"
)

// Decoded float samples are quantised to this depth.
const bitDepth = 16

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type source struct {
	dec      oggReader
	format   *goaudio.Format
	frameBuf []float32 // buffer for reading from decoder
	closer   io.Closer
}

func (s *source) Format() *goaudio.Format { return s.format }
func (s *source) BitDepth() int           { return bitDepth }

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *source) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	buf.Format = s.format
	buf.SourceBitDepth = bitDepth

	channels := s.format.NumChannels
	want := len(buf.Data) - len(buf.Data)%channels
	if want == 0 {
		return 0, nil
	}

	if cap(s.frameBuf) < want {
		s.frameBuf = make([]float32, want)
	}
	s.frameBuf = s.frameBuf[:want]

	// oggvorbis fills interleaved samples and returns how many it wrote; it
	// may return fewer than asked for before the end of stream.
	n := 0
	var err error
	for n < want && err == nil {
		var m int
		m, err = s.dec.Read(s.frameBuf[n:])
		n += m
		if m == 0 && err == nil {
			break
		}
	}
	n -= n % channels

	for i := range n {
		buf.Data[i] = utils.FloatToInt(s.frameBuf[i], bitDepth)
	}

	if errors.Is(err, io.EOF) {
		return n, io.EOF
	}
	if err != nil {
		return n, fmt.Errorf("%w", err)
	}
	return n, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}
	return &source{
		dec:      dec,
		format:   &goaudio.Format{NumChannels: dec.Channels(), SampleRate: dec.SampleRate()},
		frameBuf: make([]float32, 4096),
		closer:   closer,
	}, nil
}
