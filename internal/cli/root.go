// SPDX-License-Identifier: EPL-2.0

// Package cli implements the pcmsim command: playback and capture through
// the PCM stream driver on a simulated DMA engine.
package cli

import (
	"fmt"

	"github.com/ik5/pcmring"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewRootCmd creates the pcmsim command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "pcmsim",
		Short:         "Drive a PCM ring buffer through a simulated DMA engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	o.register(root)

	root.AddCommand(
		newPlayCmd(o),
		newRecordCmd(o),
		newFormatsCmd(),
		newConfigCmd(o),
	)
	return root
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the audio formats play can decode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range pcmring.Decoders().Formats() {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
}

func newConfigCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
