// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
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

func newRecordCmd(o *options) *cobra.Command {
	var (
		input    string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record <out.wav>",
		Short: "Record from a capture stream into a WAV file",
		Long: `Runs a capture stream and writes every completed period to a WAV file in ` +
			`the configured stream format. The simulated device captures silence, or the ` +
			`decoded --input file when one is given. Recording ends after --duration or ` +
			`on interrupt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRecord(ctx, cmd, o, args[0], input, duration)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "audio file the simulated device captures")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this much audio; 0 records until interrupted")
	return cmd
}

func runRecord(ctx context.Context, cmd *cobra.Command, o *options, out, input string, duration time.Duration) (err error) {
	if duration < 0 {
		return fmt.Errorf("negative duration %s", duration)
	}
	e, err := newEnv(ctx, cmd, o)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, e.close()) }()

	p := e.cfg.Stream.Params()
	var ep sim.Endpoint
	if input != "" {
		src, err := pcmring.OpenFile(input)
		if err != nil {
			return err
		}
		r, err := pcmring.NewPackedReader(src, p)
		if err != nil {
			src.Close()
			return err
		}
		defer r.Close()
		ep.Source = r
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	sink, err := wav.NewSink(f, p.Format, p.Rate, p.Channels)
	if err != nil {
		return err
	}

	s, release, err := e.openStream(ctx, "pcm0c", pcm.Capture, ep)
	if err != nil {
		return errors.Join(err, sink.Close())
	}

	limit := uint64(duration.Seconds() * float64(p.BytesPerSecond()))
	rec, err := pcmring.NewRecorder(s, sink, limit, e.log)
	if err != nil {
		return errors.Join(err, release(), sink.Close())
	}

	e.log.Info("recording",
		zap.String("file", out),
		zap.Duration("duration", duration),
		zap.Stringer("format", p.Format))
	runErr := rec.Run(ctx)

	err = errors.Join(release(), sink.Close())
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return errors.Join(runErr, err)
	}
	if n := rec.Overruns(); n > 0 {
		e.log.Warn("capture overruns", zap.Int("count", n))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recorded %s: %d frames\n", out, sink.Frames())
	return err
}
