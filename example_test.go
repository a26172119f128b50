// SPDX-License-Identifier: EPL-2.0

package pcmring_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ik5/pcmring"
	"github.com/ik5/pcmring/dma/sim"
	"github.com/ik5/pcmring/internal/pcmtest"
	"github.com/ik5/pcmring/pcm"
)

// Example plays a short ramp through the simulated controller.
func Example() {
	mem := sim.NewMemory(0x4000_0000, 0)
	eng := sim.New(mem, sim.Config{Speed: 4})
	defer eng.Close()

	var sink bytes.Buffer
	eng.Attach("i2s", sim.Endpoint{Sink: &sink})

	region, _ := mem.Allocate(1024)
	stream, err := pcm.NewStream(pcm.Config{
		Name:      "i2s",
		Direction: pcm.Playback,
		Hardware:  smallHardware(),
		InFlight:  2,
		Engine:    eng,
		Region:    region,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	_ = stream.Open(context.Background())
	_ = stream.Configure(pcm.HwParams{
		Format:      pcm.FormatS16LE,
		Rate:        8000,
		Channels:    1,
		PeriodBytes: 256,
		BufferBytes: 1024,
	})

	player, _ := pcmring.NewPlayer(stream, pcmtest.NewRampSource(8000, 1, 1000), nil)
	if err := player.Run(context.Background()); err != nil {
		fmt.Println(err)
		return
	}
	_ = stream.Close()

	first := make([]int16, 4)
	_ = binary.Read(bytes.NewReader(sink.Bytes()), binary.LittleEndian, first)
	fmt.Printf("played %d bytes\n", player.Written())
	fmt.Println("first samples", first)
	// Output:
	// played 2000 bytes
	// first samples [0 1 2 3]
}
