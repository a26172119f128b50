// SPDX-License-Identifier: EPL-2.0

// Command pcmsim plays and records audio through the PCM stream driver
// running on a simulated DMA engine.
package main

import (
	"fmt"
	"os"

	"github.com/ik5/pcmring/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pcmsim:", err)
		os.Exit(1)
	}
}
