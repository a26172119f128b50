// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/pcmring/audio"
)

const (
	formatPCM        = 1
	formatExtensible = 0xfffe
)

// pcmReader is the part of wav.Decoder the source uses, to allow testing
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec      pcmReader
	format   *goaudio.Format
	bitDepth int
	closer   io.Closer
}

func (s *source) Format() *goaudio.Format { return s.format }
func (s *source) BitDepth() int           { return s.bitDepth }

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *source) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if len(buf.Data) == 0 {
		return 0, nil
	}

	want := len(buf.Data) - len(buf.Data)%s.format.NumChannels
	data := buf.Data
	buf.Data = data[:want]
	n, err := s.dec.PCMBuffer(buf)
	buf.Data = data
	buf.Format = s.format
	buf.SourceBitDepth = s.bitDepth

	if s.bitDepth == 8 {
		// 8-bit WAV samples are unsigned.
		for i := range n {
			buf.Data[i] -= 128
		}
	}

	switch {
	case errors.Is(err, io.EOF):
		return n, io.EOF
	case err != nil:
		return n, fmt.Errorf("%w", err)
	case n < want:
		return n, io.EOF
	}
	return n, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	// go-audio requires io.ReadSeeker
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading wav data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := gowav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, dec.BitDepth)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}

	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}

	return &source{
		dec:      dec,
		format:   dec.Format(),
		bitDepth: int(dec.BitDepth),
		closer:   closer,
	}, nil
}
