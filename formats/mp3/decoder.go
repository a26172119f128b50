// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/pcmring/audio"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const (
	channels = 2
	bitDepth = 16
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec    mp3Reader
	format *goaudio.Format
	buf    []byte
	closer io.Closer
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

	want := len(buf.Data) - len(buf.Data)%channels
	if want == 0 {
		return 0, nil
	}

	bytesNeeded := want * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := io.ReadFull(s.dec, s.buf)
	samples := n / (2 * channels) * channels
	for i := range samples {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(s.buf[2*i:])))
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return samples, io.EOF
	}
	if err != nil {
		return samples, fmt.Errorf("%w", err)
	}
	return samples, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}
	return &source{
		dec:    dec,
		format: &goaudio.Format{NumChannels: channels, SampleRate: dec.SampleRate()},
		buf:    make([]byte, 8192),
		closer: closer,
	}, nil
}
