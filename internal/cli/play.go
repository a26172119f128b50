// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ik5/pcmring"
	"github.com/ik5/pcmring/dma/sim"
	"github.com/ik5/pcmring/formats/wav"
	"github.com/ik5/pcmring/pcm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPlayCmd(o *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play an audio file through a playback stream",
		Long: `Decodes the file, converts it to the configured stream format and keeps ` +
			`the playback ring filled until the file has been played out. With --out the ` +
			`bytes the simulated device receives are written to a WAV file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, cmd, o, args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write what the device receives to this WAV file")
	return cmd
}

func runPlay(ctx context.Context, cmd *cobra.Command, o *options, in, out string) (err error) {
	e, err := newEnv(ctx, cmd, o)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, e.close()) }()

	src, err := pcmring.OpenFile(in)
	if err != nil {
		return err
	}
	defer src.Close()

	p := e.cfg.Stream.Params()
	var ep sim.Endpoint
	var sink *wav.Sink
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		if sink, err = wav.NewSink(f, p.Format, p.Rate, p.Channels); err != nil {
			return err
		}
		ep.Sink = sink
	} else {
		ep.Sink = io.Discard
	}

	s, release, err := e.openStream(ctx, "pcm0p", pcm.Playback, ep)
	if err != nil {
		return err
	}

	player, err := pcmring.NewPlayer(s, src, e.log)
	if err != nil {
		return errors.Join(err, release())
	}

	e.log.Info("playing",
		zap.String("file", in),
		zap.Int("rate", p.Rate),
		zap.Int("channels", p.Channels),
		zap.Stringer("format", p.Format))
	began := time.Now()
	runErr := player.Run(ctx)

	// The sink belongs to the engine until the stream lets go of its channel.
	err = release()
	if sink != nil {
		err = errors.Join(err, sink.Close())
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return errors.Join(runErr, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "played %s: %d bytes in %s, %d periods\n",
		in, player.Written(), time.Since(began).Round(time.Millisecond), e.periods.Load())
	return err
}
