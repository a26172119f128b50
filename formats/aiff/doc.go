// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF files into audio sources a Player can feed to a
// playback stream. RIFF-style chunk parsing is done by
// github.com/go-audio/aiff.
//
// Integer PCM at 8, 16, 24 or 32 bits is accepted at any rate and channel
// count. Samples keep the file's bit depth, and BitDepth reports it so the
// packer can rescale them to the stream's sample format. AIFF-C is rejected
// with ErrUnsupportedAiffLayout.
//
// go-audio needs an io.ReadSeeker; other readers are buffered in memory
// first. Closing the source closes the reader when it is an io.Closer.
package aiff
