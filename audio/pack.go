// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/ik5/pcmring/pcm"
)

// Packer writes integer samples into ring buffer bytes of one sample format,
// rescaling them from the source bit depth.
type Packer struct {
	format pcm.SampleFormat
	width  int
	bits   int
	shift  int
}

// NewPacker returns a packer from sourceBits samples to f.
func NewPacker(f pcm.SampleFormat, sourceBits int) (*Packer, error) {
	if f.Width() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if sourceBits < 8 || sourceBits > 32 {
		return nil, fmt.Errorf("%w: %d bit source", ErrUnsupportedFormat, sourceBits)
	}
	return &Packer{format: f, width: f.Width(), bits: f.Bits(), shift: f.Bits() - sourceBits}, nil
}

// Width is the size of one packed sample in bytes.
func (p *Packer) Width() int { return p.width }

// Pack encodes as many samples of src as fit into dst and returns how many
// it wrote. dst must hold a whole number of samples.
func (p *Packer) Pack(dst []byte, src []int) (int, error) {
	if len(dst)%p.width != 0 {
		return 0, ErrInvalidDstSize
	}

	n := min(len(src), len(dst)/p.width)
	for i, v := range src[:n] {
		if p.shift > 0 {
			v <<= p.shift
		} else if p.shift < 0 {
			v >>= -p.shift
		}
		put(dst[i*p.width:], p.format, clampBits(v, p.bits))
	}
	return n, nil
}

// Unpacker reads ring buffer bytes of one sample format back into integer
// samples at the format's own resolution.
type Unpacker struct {
	format pcm.SampleFormat
	width  int
}

func NewUnpacker(f pcm.SampleFormat) (*Unpacker, error) {
	if f.Width() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return &Unpacker{format: f, width: f.Width()}, nil
}

func (u *Unpacker) Width() int    { return u.width }
func (u *Unpacker) BitDepth() int { return u.format.Bits() }

// Unpack decodes the samples in src into dst and returns how many it wrote.
// A trailing partial sample is an error.
func (u *Unpacker) Unpack(dst []int, src []byte) (int, error) {
	if len(src)%u.width != 0 {
		return 0, ErrInvalidDstSize
	}

	n := min(len(dst), len(src)/u.width)
	for i := range n {
		dst[i] = get(src[i*u.width:], u.format)
	}
	return n, nil
}

func put(b []byte, f pcm.SampleFormat, v int) {
	switch f {
	case pcm.FormatS16LE:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case pcm.FormatS20_3LE:
		b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
	case pcm.FormatS24LE, pcm.FormatS32LE:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	}
}

func get(b []byte, f pcm.SampleFormat) int {
	switch f {
	case pcm.FormatS16LE:
		return int(int16(binary.LittleEndian.Uint16(b)))
	case pcm.FormatS20_3LE:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		return int(v << 12 >> 12)
	case pcm.FormatS24LE:
		return int(int32(binary.LittleEndian.Uint32(b)) << 8 >> 8)
	case pcm.FormatS32LE:
		return int(int32(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}

func clampBits(v, bits int) int {
	hi := 1<<(bits-1) - 1
	lo := -1 << (bits - 1)
	return max(lo, min(hi, v))
}
