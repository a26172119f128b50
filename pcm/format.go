// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"fmt"
	"strings"

	goaudio "github.com/go-audio/audio"
)

// SampleFormat is the in-memory layout of one sample in the ring buffer.
// All formats are signed little endian.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatS16LE
	// FormatS20_3LE packs 20 significant bits in a 3 byte container.
	FormatS20_3LE
	// FormatS24LE carries 24 significant bits in a 4 byte container.
	FormatS24LE
	FormatS32LE
)

var formatNames = map[SampleFormat]string{
	FormatS16LE:   "S16_LE",
	FormatS20_3LE: "S20_3LE",
	FormatS24LE:   "S24_LE",
	FormatS32LE:   "S32_LE",
}

func (f SampleFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

// Width is the container size of one sample in bytes.
func (f SampleFormat) Width() int {
	switch f {
	case FormatS16LE:
		return 2
	case FormatS20_3LE:
		return 3
	case FormatS24LE, FormatS32LE:
		return 4
	default:
		return 0
	}
}

// Bits is the number of significant bits per sample.
func (f SampleFormat) Bits() int {
	switch f {
	case FormatS16LE:
		return 16
	case FormatS20_3LE:
		return 20
	case FormatS24LE:
		return 24
	case FormatS32LE:
		return 32
	default:
		return 0
	}
}

// ParseSampleFormat accepts the ALSA style names, case insensitive.
func ParseSampleFormat(s string) (SampleFormat, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: unknown sample format %q", ErrInvalidParameter, s)
}

// FormatForBits picks the narrowest container holding bits significant bits.
func FormatForBits(bits int) (SampleFormat, error) {
	switch {
	case bits <= 0:
	case bits <= 16:
		return FormatS16LE, nil
	case bits <= 20:
		return FormatS20_3LE, nil
	case bits <= 24:
		return FormatS24LE, nil
	case bits <= 32:
		return FormatS32LE, nil
	}
	return FormatUnknown, fmt.Errorf("%w: no sample format for %d bits", ErrInvalidParameter, bits)
}

func (f SampleFormat) MarshalText() ([]byte, error) {
	if f.Width() == 0 {
		return nil, fmt.Errorf("%w: cannot marshal format %d", ErrInvalidParameter, int(f))
	}
	return []byte(f.String()), nil
}

func (f *SampleFormat) UnmarshalText(b []byte) error {
	v, err := ParseSampleFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// HwParams is the hardware configuration requested for a stream.
type HwParams struct {
	Format      SampleFormat
	Rate        int
	Channels    int
	PeriodBytes int
	BufferBytes int
}

// FrameBytes is the size of one frame: one sample for every channel.
func (p HwParams) FrameBytes() int { return p.Format.Width() * p.Channels }

// BytesToFrames converts a byte count into whole frames.
func (p HwParams) BytesToFrames(n int) int {
	fb := p.FrameBytes()
	if fb == 0 {
		return 0
	}
	return n / fb
}

// FramesToBytes converts a frame count into bytes.
func (p HwParams) FramesToBytes(n int) int { return n * p.FrameBytes() }

// Periods is the number of periods in the buffer.
func (p HwParams) Periods() int {
	if p.PeriodBytes == 0 {
		return 0
	}
	return p.BufferBytes / p.PeriodBytes
}

// BufferFrames is the buffer size in frames.
func (p HwParams) BufferFrames() int { return p.BytesToFrames(p.BufferBytes) }

// BytesPerSecond is the data rate of the stream.
func (p HwParams) BytesPerSecond() int { return p.Rate * p.FrameBytes() }

// AudioFormat describes the stream for go-audio encoders and decoders.
func (p HwParams) AudioFormat() *goaudio.Format {
	return &goaudio.Format{NumChannels: p.Channels, SampleRate: p.Rate}
}
