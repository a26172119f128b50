// SPDX-License-Identifier: EPL-2.0

// Package pcmring moves audio between decoded sources and the ring buffer of
// a PCM stream.
//
// A pcm.Stream keeps a fixed number of period sized transfers queued on a DMA
// channel and signals every completed period. The helpers here are the other
// half of that loop:
//
//   - Player writes decoded audio into a playback ring ahead of the
//     hardware and stops the stream once the source has been played out.
//   - Recorder copies completed capture periods to an io.Writer.
//
// # Quick Start
//
//	src, _ := pcmring.OpenFile("tone.wav")
//	player, _ := pcmring.NewPlayer(stream, src, logger)
//	err := player.Run(ctx)
//
// Decoders for WAV, AIFF, MP3 and Ogg Vorbis are registered by extension in
// Decoders. Sources are resampled and remixed to the stream's configured rate
// and channel count before they are packed into the ring.
package pcmring
