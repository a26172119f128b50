// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ik5/pcmring/dma"
	"github.com/ik5/pcmring/dma/sim"
	"github.com/ik5/pcmring/internal/config"
	"github.com/ik5/pcmring/internal/events"
	"github.com/ik5/pcmring/internal/observe"
	"github.com/ik5/pcmring/pcm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath    string
	logLevel      string
	logJSON       bool
	metricsListen string
	speed         float64
}

func (o *options) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")
	f.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.BoolVar(&o.logJSON, "log-json", false, "log in JSON")
	f.StringVar(&o.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	f.Float64Var(&o.speed, "speed", 1, "simulated device clock multiplier; 0 runs unpaced")
}

// loadConfig reads the configuration file, if any, and applies the flags
// the user set explicitly.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = config.LogLevel(o.logLevel)
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}
	if flags.Changed("metrics-listen") {
		cfg.Metrics.Listen = o.metricsListen
	}
	if flags.Changed("speed") {
		cfg.Sim.Speed = o.speed
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// env is everything a command needs to drive streams on the simulator.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *observe.Metrics
	bus     *events.Bus
	mem     *sim.Memory
	engine  *sim.Engine
	periods atomic.Int64

	closers []func(context.Context) error
}

func newEnv(ctx context.Context, cmd *cobra.Command, o *options) (*env, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := observe.NewLogger(string(cfg.Log.Level), cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log}

	mp, shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ListenAddr: cfg.Metrics.Listen,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	e.closers = append(e.closers, shutdown)
	if e.metrics, err = observe.NewMetrics(mp); err != nil {
		_ = e.close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	e.bus = events.New()
	unsubState := e.bus.Subscribe(func(ev events.StateChangedEvent) {
		log.Debug("stream state",
			zap.String("stream", ev.Stream),
			zap.Stringer("from", ev.From),
			zap.Stringer("to", ev.To))
	})
	unsubPeriod := e.bus.Subscribe(func(events.PeriodElapsedEvent) { e.periods.Add(1) })
	e.closers = append(e.closers, func(context.Context) error {
		unsubState()
		unsubPeriod()
		return nil
	})

	e.mem = sim.NewMemory(cfg.Sim.MemoryBase, cfg.Sim.MemoryLimit)
	e.engine = sim.New(e.mem, sim.Config{
		Channels:   cfg.Sim.Channels,
		QueueDepth: cfg.Sim.QueueDepth,
		Speed:      cfg.Sim.Speed,
		Logger:     log,
	})
	e.closers = append(e.closers, func(context.Context) error { return e.engine.Close() })
	return e, nil
}

// openStream allocates a buffer, opens a stream named name on the simulator
// with ep as its device side, and configures it. The returned function
// closes the stream and frees the buffer.
func (e *env) openStream(ctx context.Context, name string, dir pcm.Direction, ep sim.Endpoint) (*pcm.Stream, func() error, error) {
	p := e.cfg.Stream.Params()
	region, err := e.mem.Allocate(p.BufferBytes)
	if err != nil {
		return nil, nil, err
	}
	e.engine.Attach(name, ep)

	s, err := pcm.NewStream(pcm.Config{
		Name:      name,
		Direction: dir,
		Hardware:  e.cfg.Hardware,
		InFlight:  e.cfg.Stream.InFlight,
		Engine:    e.engine,
		Request:   dma.Request{Client: "pcmsim"},
		Region:    region,
		Endpoint:  e.cfg.Stream.Endpoint,
		Logger:    e.log,
		Metrics:   e.metrics,
		Listener:  e.bus,
	})
	if err != nil {
		_ = e.mem.Free(region)
		return nil, nil, err
	}

	release := func() error {
		return errors.Join(s.Close(), e.mem.Free(region))
	}
	if err := s.Open(ctx); err != nil {
		_ = release()
		return nil, nil, err
	}
	if err := s.Configure(p); err != nil {
		_ = release()
		return nil, nil, err
	}
	return s, release, nil
}

// close runs the cleanups in reverse order of registration.
func (e *env) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_ = e.log.Sync()
	return errors.Join(errs...)
}
