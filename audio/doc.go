// SPDX-License-Identifier: EPL-2.0

// Package audio provides the application side of a PCM stream: decoded
// sample sources and the conversion of their samples to and from ring buffer
// bytes.
//
// This package contains:
//   - Source interface for integer PCM input
//   - Resampler for sample rate conversion
//   - Mixer for channel count conversion
//   - Packer and Unpacker for ring buffer sample formats
//   - Format registry for decoder registration
//
// # Source Interface
//
// Sources follow the go-audio buffer convention:
//
//	type Source interface {
//	    Format() *goaudio.Format
//	    BitDepth() int
//	    PCMBuffer(buf *goaudio.IntBuffer) (int, error)
//	    Close() error
//	}
//
// PCMBuffer returns io.EOF once the stream is exhausted, possibly together
// with a final partial buffer.
//
// # Conversion
//
// A stream is configured with one rate and channel count; Convert adapts a
// source to it:
//
//	src = audio.Convert(src, 48000, 2)
//
// The Resampler uses cubic interpolation and works for both upsampling and
// downsampling. The Mixer averages to mono and duplicates mono to every
// output channel.
//
// # Packing
//
// Ring buffers hold little-endian samples in one of the pcm sample formats.
// A Packer rescales from the source bit depth:
//
//	p, _ := audio.NewPacker(pcm.FormatS24LE, src.BitDepth())
//	n, err := p.Pack(period, buf.Data)
//
// and an Unpacker reads captured bytes back into integers.
//
// # Format Registry
//
// The registry maps format names and file extensions to decoders:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{}, ".wav", ".wave")
//	dec, format, ok := registry.ForPath("song.wav")
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Sources, Resampler, Mixer,
// Packer and Unpacker are not.
package audio
