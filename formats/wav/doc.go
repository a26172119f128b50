// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes PCM WAV files on top of
// github.com/go-audio/wav.
//
// Decoder turns a file into an audio source for playback. 8-bit files are
// recentred around zero; wider integer PCM is passed through at its own
// depth.
//
// Sink goes the other way, turning ring buffer bytes from a capture stream
// back into a file:
//
//	out, _ := os.Create("capture.wav")
//	sink, _ := wav.NewSink(out, pcm.FormatS16LE, 48000, 2)
//	rec, _ := pcmring.NewRecorder(stream, sink, 0, logger)
//	err := rec.Run(ctx)
//	sink.Close()
//
// S20_3LE captures are stored in 24-bit containers.
package wav
