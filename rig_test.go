// SPDX-License-Identifier: EPL-2.0

package pcmring_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/ik5/pcmring/dma"
	"github.com/ik5/pcmring/dma/sim"
	"github.com/ik5/pcmring/pcm"
	"github.com/stretchr/testify/require"
)

const fifoAddr = 0x01c2_2410

// smallHardware allows tiny periods so a few seconds of audio span many
// ring revolutions.
func smallHardware() pcm.Hardware {
	return pcm.Hardware{
		Formats:        []pcm.SampleFormat{pcm.FormatS16LE, pcm.FormatS24LE},
		RateMin:        8000,
		RateMax:        48000,
		ChannelsMin:    1,
		ChannelsMax:    2,
		BufferBytesMax: 4096,
		PeriodBytesMin: 256,
		PeriodBytesMax: 1024,
		PeriodsMin:     2,
		PeriodsMax:     8,
		FIFOSize:       16,
	}
}

// monoParams is 8 kHz mono S16: 16 ms periods, four to the buffer.
func monoParams() pcm.HwParams {
	return pcm.HwParams{
		Format:      pcm.FormatS16LE,
		Rate:        8000,
		Channels:    1,
		PeriodBytes: 256,
		BufferBytes: 1024,
	}
}

// simStream opens and configures a stream on a paced simulator wired to ep.
func simStream(t *testing.T, dir pcm.Direction, ep sim.Endpoint, p pcm.HwParams) *pcm.Stream {
	t.Helper()

	mem := sim.NewMemory(0x4000_0000, 0)
	eng := sim.New(mem, sim.Config{Speed: 2})
	t.Cleanup(func() { _ = eng.Close() })

	name := "i2s-" + dir.String()
	eng.Attach(name, ep)
	region, err := mem.Allocate(p.BufferBytes)
	require.NoError(t, err)

	s, err := pcm.NewStream(pcm.Config{
		Name:      name,
		Direction: dir,
		Hardware:  smallHardware(),
		InFlight:  2,
		Engine:    eng,
		Region:    region,
		Endpoint:  fifoAddr,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(p))
	return s
}

// fakeStream is a running-capable stream on a caller driven channel.
func fakeStream(t *testing.T, eng dma.Engine, dir pcm.Direction, p pcm.HwParams) *pcm.Stream {
	t.Helper()
	s, err := pcm.NewStream(pcm.Config{
		Direction: dir,
		Hardware:  smallHardware(),
		InFlight:  2,
		Engine:    eng,
		Region:    dma.Region{Addr: 0x4000_0000, Buf: make([]byte, p.BufferBytes)},
		Endpoint:  fifoAddr,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(p))
	return s
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// s16 packs samples as little endian 16 bit values.
func s16(samples ...int) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
