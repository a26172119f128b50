// SPDX-License-Identifier: EPL-2.0

package pcmring

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/pcmring/audio"
	"github.com/ik5/pcmring/pcm"
)

// PackedReader serves a source as ring buffer bytes: converted to the rate
// and channel count of p and packed in its sample format. It is what a
// capture device would deliver when fed that source.
type PackedReader struct {
	src     audio.Source
	packer  *audio.Packer
	buf     *goaudio.IntBuffer
	out     []byte
	pending []byte
	eof     bool
}

const readerBlock = 1024 // frames

func NewPackedReader(src audio.Source, p pcm.HwParams) (*PackedReader, error) {
	if p.Rate <= 0 || p.Channels <= 0 {
		return nil, fmt.Errorf("packed reader: rate %d, channels %d", p.Rate, p.Channels)
	}
	src = audio.Convert(src, p.Rate, p.Channels)
	packer, err := audio.NewPacker(p.Format, src.BitDepth())
	if err != nil {
		return nil, fmt.Errorf("packed reader: %w", err)
	}
	samples := readerBlock * p.Channels
	return &PackedReader{
		src:    src,
		packer: packer,
		buf: &goaudio.IntBuffer{
			Format:         src.Format(),
			Data:           make([]int, samples),
			SourceBitDepth: src.BitDepth(),
		},
		out: make([]byte, samples*packer.Width()),
	}, nil
}

func (r *PackedReader) Read(b []byte) (int, error) {
	if len(r.pending) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		r.buf.Data = r.buf.Data[:cap(r.buf.Data)]
		n, err := r.src.PCMBuffer(r.buf)
		switch {
		case errors.Is(err, io.EOF):
			r.eof = true
		case err != nil:
			return 0, err
		}
		samples, err := r.packer.Pack(r.out, r.buf.Data[:n])
		if err != nil {
			return 0, err
		}
		r.pending = r.out[:samples*r.packer.Width()]
		if len(r.pending) == 0 && r.eof {
			return 0, io.EOF
		}
	}
	n := copy(b, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Close closes the source.
func (r *PackedReader) Close() error { return r.src.Close() }
