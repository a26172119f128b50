// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III files with
// github.com/hajimehoshi/go-mp3.
//
// go-mp3 always emits 16-bit interleaved stereo, so every source reports two
// channels at 16 bits whatever the file holds; audio.Convert downmixes when
// the stream is mono. PCMBuffer returns whole frames only and drops a
// truncated final frame.
package mp3
