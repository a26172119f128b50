// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files with the pure Go
// github.com/jfreymuth/oggvorbis reader.
//
// Vorbis decodes to float; each sample is quantised to 16 bits on the way
// out, which is the bit depth the source reports. Rate and channel count
// come from the stream header.
package vorbis
