// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/pcmring/utils"
)

// resampleBlock is how many source frames the resampler reads at a time.
const resampleBlock = 1024

// Resampler streams from src to target sample rate using cubic interpolation.
// Works on interleaved samples; preserves channel count and bit depth.
// Includes basic anti-aliasing filtering when downsampling.
type Resampler struct {
	src      Source
	format   *goaudio.Format
	ratio    float64 // source frames per output frame
	channels int
	bits     int

	// frames[1] and frames[2] bracket the output position; frames[0] and
	// frames[3] are the outer taps.
	frames   [4][]float64
	hasFrame [4]bool
	primed   bool
	pos      float64

	in     *goaudio.IntBuffer
	off, n int
	eof    bool

	useFilter   bool
	filterAlpha float64
	filterState []float64
}

func NewResampler(src Source, dstRate int) *Resampler {
	f := src.Format()
	channels := max(f.NumChannels, 1)
	ratio := float64(f.SampleRate) / float64(dstRate)
	bits := src.BitDepth()
	if bits <= 0 {
		bits = 16
	}

	r := &Resampler{
		src:      src,
		format:   &goaudio.Format{NumChannels: channels, SampleRate: dstRate},
		ratio:    ratio,
		channels: channels,
		bits:     bits,
		in: &goaudio.IntBuffer{
			Format: f,
			Data:   make([]int, resampleBlock*channels),
		},
		// One-pole low-pass when downsampling.
		useFilter:   ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float64, channels),
	}
	for i := range r.frames {
		r.frames[i] = make([]float64, channels)
	}
	return r
}

func (r *Resampler) Format() *goaudio.Format { return r.format }
func (r *Resampler) BitDepth() int           { return r.bits }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// readFrame copies the next source frame into dst. It reports false once the
// source is exhausted.
func (r *Resampler) readFrame(dst []float64) (bool, error) {
	if r.off >= r.n {
		if r.eof {
			return false, nil
		}
		r.in.Data = r.in.Data[:cap(r.in.Data)]
		n, err := r.src.PCMBuffer(r.in)
		if errors.Is(err, io.EOF) {
			r.eof = true
		} else if err != nil {
			return false, fmt.Errorf("%w", err)
		}
		r.off, r.n = 0, n-n%r.channels
		if r.n == 0 {
			r.eof = true
			return false, nil
		}
	}

	for c := range r.channels {
		dst[c] = float64(r.in.Data[r.off+c])
	}
	r.off += r.channels

	if r.useFilter {
		for c := range r.channels {
			// y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}
	return true, nil
}

func (r *Resampler) prime() error {
	r.primed = true
	if r.useFilter {
		// Seed the filter with the first frame to avoid a fade in.
		if _, err := r.peekFirst(); err != nil {
			return err
		}
	}
	for i := 1; i < 4; i++ {
		ok, err := r.readFrame(r.frames[i])
		if err != nil {
			return err
		}
		r.hasFrame[i] = ok
		if !ok {
			break
		}
	}
	return nil
}

// peekFirst loads the first block and copies its first frame into the
// filter state without consuming it.
func (r *Resampler) peekFirst() (bool, error) {
	saved := r.useFilter
	r.useFilter = false
	ok, err := r.readFrame(r.filterState)
	r.useFilter = saved
	if ok {
		r.off -= r.channels
	}
	return ok, err
}

// shift moves the interpolation window one source frame forward.
func (r *Resampler) shift() error {
	r.frames[0], r.frames[1], r.frames[2], r.frames[3] = r.frames[1], r.frames[2], r.frames[3], r.frames[0]
	r.hasFrame[0], r.hasFrame[1], r.hasFrame[2] = r.hasFrame[1], r.hasFrame[2], r.hasFrame[3]

	ok, err := r.readFrame(r.frames[3])
	r.hasFrame[3] = ok
	return err
}

// PCMBuffer produces samples at the target rate.
// len(buf.Data) must be a multiple of the channel count.
func (r *Resampler) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if len(buf.Data)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	buf.Format = r.format
	buf.SourceBitDepth = r.bits

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(buf.Data) {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.shift(); err != nil {
				return written, err
			}
		}
		if !r.hasFrame[1] {
			return written, io.EOF
		}

		x := r.pos
		for c := range r.channels {
			y1 := r.frames[1][c]
			y2 := y1
			if r.hasFrame[2] {
				y2 = r.frames[2][c]
			}
			y0 := y1
			if r.hasFrame[0] {
				y0 = r.frames[0][c]
			}
			y3 := y2
			if r.hasFrame[3] {
				y3 = r.frames[3][c]
			}
			v := utils.CubicInterpolate(y0, y1, y2, y3, x)
			buf.Data[written+c] = clampBits(int(math.Round(v)), r.bits)
		}
		written += r.channels
		r.pos += r.ratio
	}
	return written, nil
}
