// SPDX-License-Identifier: EPL-2.0

// Package pcm implements the periodic streaming core of a PCM platform
// driver: a circular buffer split into periods that are handed one at a time
// to an asynchronous DMA engine, with a bounded number of transfers in flight.
//
// # Lifecycle
//
// A [Stream] follows the usual PCM operations table:
//
//	s, _ := pcm.NewStream(pcm.Config{Direction: pcm.Playback, Engine: eng, Region: region})
//	_ = s.Open(ctx)                      // reserve a DMA channel
//	_ = s.Configure(pcm.HwParams{...})   // hw_params
//	_ = s.Prepare()                      // reset and pre-fill the pipeline
//	_ = s.Start()                        // trigger start
//	<-s.Elapsed()                        // a period completed, or the stream halted
//	frames := s.Position()               // pointer
//	_ = s.Stop()
//	_ = s.Close()
//
// # Transfers
//
// While running, every completion retires one period, moves the read position
// and immediately queues the next chunk, so the engine holds
// min([Config.InFlight], periods) transfers unless it reports [dma.ErrBusy].
// A refused submission is not an error: the next completion retries it.
//
// Aborted or failed transfers change nothing. They are expected while a stop
// or flush is in progress; [Stream.Prepare] resets the bookkeeping.
//
// # Concurrency
//
// Completions are delivered on an engine goroutine and share a short mutex
// with the control path; nothing blocks while holding it. Control operations
// are additionally serialised by their own lock. Engines must not call the
// completion callback from inside Submit or Control.
//
// # Errors
//
// Control methods return errors wrapping [ErrInvalidParameter],
// [ErrInvalidGeometry], [ErrAllocationFailed] or [ErrInvalidState]; test them
// with errors.Is. [ErrTransferAborted] only labels log lines.
package pcm
