// SPDX-License-Identifier: EPL-2.0

// Package dma describes the collaborators a PCM stream talks to but does not
// own: the asynchronous transfer engine and the platform allocator that hands
// out DMA-capable memory.
//
// # Transfer Engine
//
// An [Engine] hands out [Channel] values. A channel accepts [Descriptor]
// submissions and reports each finished transfer through the [CompletionFunc]
// registered with [Channel.SetCompletion]:
//
//	ch, err := engine.Reserve(ctx, dma.Request{Name: "i2s-tx", Dir: dma.MemToDev})
//	ch.SetCompletion(func(c dma.Completion) { ... })
//	err = ch.Submit(dma.Descriptor{Src: addr, Dst: fifo, Len: 16384, Dir: dma.MemToDev})
//	err = ch.Control(dma.CmdStart)
//
// Completions arrive in submission order, on a goroutine owned by the engine.
// The callback may call [Channel.Submit] again but must not block.
//
// # Memory
//
// An [Allocator] returns a [Region]: the bus address used in descriptors and
// the CPU view of the same bytes. Streams only reference regions; freeing them
// is the allocator owner's job.
package dma
