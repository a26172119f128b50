// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ik5/pcmring/dma"
	"github.com/ik5/pcmring/internal/observe"
	"go.uber.org/zap"
)

// Listener observes a stream. Calls are made without the stream lock held,
// from the control goroutine for state changes and from the engine goroutine
// for elapsed periods, so implementations must not block.
type Listener interface {
	StateChanged(stream string, from, to State)
	PeriodElapsed(stream string, st Status)
}

// Config describes one stream and the collaborators it uses.
type Config struct {
	Name      string
	Direction Direction
	// Hardware defaults to DefaultHardware when it lists no formats.
	Hardware Hardware
	// InFlight is the number of transfers kept queued while running.
	// Zero means Hardware.PeriodsMin.
	InFlight int

	// Engine may be nil: the stream then has no channel to drive and
	// prepare/start only move the state machine.
	Engine  dma.Engine
	Request dma.Request
	// Region is the preallocated buffer memory. The stream references it and
	// never frees it.
	Region dma.Region
	// Endpoint is the bus address of the device FIFO.
	Endpoint uint64

	Logger   *zap.Logger
	Metrics  *observe.Metrics
	Listener Listener
}

// Status is a consistent snapshot of a stream.
type Status struct {
	State       State
	Params      HwParams
	Outstanding int
	Limit       int
	// ReadOffset is the byte offset from the buffer start up to which
	// transfers have completed.
	ReadOffset int
	// Completed and Submitted count bytes since the last prepare.
	Completed uint64
	Submitted uint64
}

// Stream drives one direction of a PCM device through its lifecycle.
//
// Control methods may be called from any goroutine; they are serialised
// against each other. Completions from the engine take the same short lock as
// the control path, which is safe because the engine delivers them on an
// ordinary goroutine.
type Stream struct {
	name     string
	dir      Direction
	hw       Hardware
	inFlight int
	engine   dma.Engine
	request  dma.Request
	region   dma.Region

	log      *zap.Logger
	metrics  *observe.Metrics
	listener Listener

	elapsed chan struct{}

	// ctl serialises control operations, including the ones that must run
	// without mu held (reserve and release).
	ctl sync.Mutex

	mu     sync.Mutex
	state  State
	params HwParams
	ring   *RingBuffer
	sched  scheduler
}

// NewStream returns a closed stream.
func NewStream(cfg Config) (*Stream, error) {
	if len(cfg.Hardware.Formats) == 0 {
		cfg.Hardware = DefaultHardware()
	}
	if err := cfg.Hardware.Check(); err != nil {
		return nil, err
	}
	if cfg.InFlight == 0 {
		cfg.InFlight = cfg.Hardware.PeriodsMin
	}
	if cfg.InFlight < cfg.Hardware.PeriodsMin || cfg.InFlight > cfg.Hardware.PeriodsMax {
		return nil, fmt.Errorf("%w: in-flight limit %d outside %d-%d",
			ErrInvalidParameter, cfg.InFlight, cfg.Hardware.PeriodsMin, cfg.Hardware.PeriodsMax)
	}
	if cfg.Region.Len() == 0 {
		return nil, fmt.Errorf("%w: empty buffer region", ErrInvalidParameter)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Direction.String()
	}
	if cfg.Request.Name == "" {
		cfg.Request.Name = cfg.Name
	}
	cfg.Request.Dir = cfg.Direction.transfer()

	log := observe.Component(cfg.Logger, "pcm").With(
		zap.String("stream", cfg.Name),
		zap.Stringer("direction", cfg.Direction))

	ring := NewRingBuffer(cfg.Hardware.PeriodsMin, cfg.Hardware.PeriodsMax)
	return &Stream{
		name:     cfg.Name,
		dir:      cfg.Direction,
		hw:       cfg.Hardware,
		inFlight: cfg.InFlight,
		engine:   cfg.Engine,
		request:  cfg.Request,
		region:   cfg.Region,
		log:      log,
		metrics:  cfg.Metrics,
		listener: cfg.Listener,
		elapsed:  make(chan struct{}, 1),
		ring:     ring,
		sched: scheduler{
			ring:     ring,
			dir:      cfg.Direction,
			endpoint: cfg.Endpoint,
			name:     cfg.Name,
			log:      log,
			metrics:  cfg.Metrics,
		},
	}, nil
}

func (s *Stream) Name() string         { return s.name }
func (s *Stream) Direction() Direction { return s.dir }
func (s *Stream) Hardware() Hardware   { return s.hw }
func (s *Stream) Region() dma.Region   { return s.region }

// Elapsed is signalled after every completed period and when the stream
// stops running. It holds at most one pending signal, so a slow reader sees
// one wakeup for several periods and should consult Status.
func (s *Stream) Elapsed() <-chan struct{} { return s.elapsed }

func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot taken under the stream lock.
func (s *Stream) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Stream) statusLocked() Status {
	return Status{
		State:       s.state,
		Params:      s.params,
		Outstanding: s.ring.Outstanding(),
		Limit:       s.ring.Limit(),
		ReadOffset:  s.ring.ReadOffset(),
		Completed:   s.ring.Completed(),
		Submitted:   s.ring.Submitted(),
	}
}

// Open reserves a transfer channel and moves Closed -> Open.
func (s *Stream) Open(ctx context.Context) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if st := s.State(); st != StateClosed {
		return stateError("open", st)
	}

	var ch dma.Channel
	if s.engine != nil {
		var err error
		ch, err = s.engine.Reserve(ctx, s.request)
		if err != nil {
			return fmt.Errorf("%w: reserve channel %q: %w", ErrAllocationFailed, s.request.Name, err)
		}
		ch.SetCompletion(s.onComplete)
	}

	s.mu.Lock()
	s.sched.ch = ch
	s.state = StateOpen
	s.mu.Unlock()

	s.changed(StateClosed, StateOpen)
	return nil
}

// Configure validates p and lays the ring out over the region.
func (s *Stream) Configure(p HwParams) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	from := s.state
	switch from {
	case StateOpen, StateConfigured, StatePrepared, StateStopped:
	default:
		s.mu.Unlock()
		return stateError("configure", from)
	}

	if err := s.hw.Validate(p); err != nil {
		s.mu.Unlock()
		return err
	}
	if p.BufferBytes > s.region.Len() {
		s.mu.Unlock()
		return fmt.Errorf("%w: buffer %d bytes exceeds region of %d", ErrInvalidParameter, p.BufferBytes, s.region.Len())
	}

	// Never keep more transfers queued than the buffer has periods.
	limit := min(s.inFlight, p.Periods())
	dropped := s.ring.Outstanding()
	if err := s.ring.Configure(s.region.Addr, p.BufferBytes, p.PeriodBytes, limit); err != nil {
		s.mu.Unlock()
		return err
	}
	s.flushLocked()
	s.params = p
	s.state = StateConfigured
	s.mu.Unlock()

	s.metrics.ResetOutstanding(context.Background(), s.name, s.dir.String(), dropped)
	s.log.Debug("configured",
		zap.Stringer("format", p.Format),
		zap.Int("rate", p.Rate),
		zap.Int("channels", p.Channels),
		zap.Int("period_bytes", p.PeriodBytes),
		zap.Int("buffer_bytes", p.BufferBytes),
		zap.Int("in_flight", limit))
	s.changed(from, StateConfigured)
	return nil
}

// Free drops the hardware configuration and returns to Open.
func (s *Stream) Free() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	from := s.state
	switch from {
	case StateConfigured, StatePrepared, StateStopped:
	default:
		s.mu.Unlock()
		return stateError("free", from)
	}
	dropped := s.ring.Outstanding()
	s.flushLocked()
	s.ring.Clear()
	s.params = HwParams{}
	s.state = StateOpen
	s.mu.Unlock()

	s.metrics.ResetOutstanding(context.Background(), s.name, s.dir.String(), dropped)
	s.changed(from, StateOpen)
	return nil
}

// Prepare resets the ring and queues the first transfers.
func (s *Stream) Prepare() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	from := s.state
	switch from {
	case StateConfigured, StatePrepared, StateStopped:
	default:
		s.mu.Unlock()
		return stateError("prepare", from)
	}

	dropped := s.ring.Outstanding()
	queued := 0
	if ch := s.sched.ch; ch != nil {
		err := ch.Configure(dma.ChannelConfig{
			Dir:            s.dir.transfer(),
			Endpoint:       s.sched.endpoint,
			Width:          s.params.Format.Width(),
			BytesPerSecond: s.params.BytesPerSecond(),
		})
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("pcm: configure channel: %w", err)
		}
		s.flushLocked()
		s.ring.Reset()
		queued = s.sched.fill()
	} else {
		s.ring.Reset()
	}
	s.state = StatePrepared
	s.mu.Unlock()

	s.metrics.ResetOutstanding(context.Background(), s.name, s.dir.String(), dropped)
	s.log.Debug("prepared", zap.Int("queued", queued))
	s.changed(from, StatePrepared)
	return nil
}

// Start begins transfers from Prepared, or resumes them from Paused.
func (s *Stream) Start() error { return s.start("start") }

// Resume is Start under the name the framework uses after a pause or suspend.
func (s *Stream) Resume() error { return s.start("resume") }

func (s *Stream) start(op string) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	from := s.state
	if from != StatePrepared && from != StatePaused {
		s.mu.Unlock()
		return stateError(op, from)
	}
	if ch := s.sched.ch; ch != nil {
		if from == StatePaused {
			s.sched.fill()
		}
		if err := ch.Control(dma.CmdStart); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("pcm: %s: %w", op, err)
		}
	}
	s.state = StateRunning
	s.mu.Unlock()

	s.changed(from, StateRunning)
	return nil
}

// Pause halts the engine without touching queued transfers.
func (s *Stream) Pause() error { return s.halt("pause", StatePaused) }

// Stop halts the engine. Queued transfers are left to complete or abort on
// their own. Stopping a stopped stream does nothing.
func (s *Stream) Stop() error { return s.halt("stop", StateStopped) }

func (s *Stream) halt(op string, to State) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	from := s.state
	switch {
	case from == to:
		s.mu.Unlock()
		return nil
	case from == StateRunning:
		if ch := s.sched.ch; ch != nil {
			if err := ch.Control(dma.CmdStop); err != nil {
				s.mu.Unlock()
				return fmt.Errorf("pcm: %s: %w", op, err)
			}
		}
	case from == StatePaused && to == StateStopped:
	default:
		s.mu.Unlock()
		return stateError(op, from)
	}
	s.state = to
	s.mu.Unlock()

	s.changed(from, to)
	s.wake()
	return nil
}

// Trigger dispatches a framework trigger command.
func (s *Stream) Trigger(cmd TriggerCmd) error {
	switch cmd {
	case TriggerStart:
		return s.Start()
	case TriggerResume, TriggerPauseRelease:
		return s.Resume()
	case TriggerStop, TriggerSuspend:
		return s.Stop()
	case TriggerPausePush:
		return s.Pause()
	default:
		return fmt.Errorf("%w: trigger %d", ErrInvalidParameter, int(cmd))
	}
}

// Close releases the channel and returns to Closed from any state. The region
// stays with its allocator.
func (s *Stream) Close() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	from := s.state
	if from == StateClosed {
		s.mu.Unlock()
		return nil
	}
	ch := s.sched.ch
	dropped := s.ring.Outstanding()
	s.sched.ch = nil
	s.sched.tag++
	s.ring.Clear()
	s.params = HwParams{}
	s.state = StateClosed
	s.mu.Unlock()

	s.metrics.ResetOutstanding(context.Background(), s.name, s.dir.String(), dropped)

	var err error
	if ch != nil {
		if err = ch.Release(); err != nil {
			err = fmt.Errorf("pcm: release channel: %w", err)
			s.log.Warn("release failed", zap.Error(err))
		}
	}
	s.changed(from, StateClosed)
	s.wake()
	return err
}

// Position returns the hardware position in frames, in [0, buffer frames).
func (s *Stream) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ring.Configured() {
		return 0
	}

	off := int64(s.ring.ReadOffset())
	// A paused or stopped engine keeps its last readback, which stays ahead
	// of the read offset.
	rep, ok := s.sched.ch.(dma.PositionReporter)
	if ok && (s.state == StateRunning || s.state == StatePaused || s.state == StateStopped) {
		src, dst := rep.CurrentPosition()
		base := int64(s.ring.Base())
		if s.dir == Capture {
			off = int64(dst) - base
		} else {
			off = int64(src) + int64(s.ring.Period()) - base
		}
	}
	// The readback can land on the buffer end before the hardware wraps.
	if off < 0 || off >= int64(s.ring.Length()) {
		return 0
	}
	return s.params.BytesToFrames(int(off))
}

// flushLocked aborts whatever the engine still holds and invalidates the tag
// carried by those transfers, so late completions are ignored.
func (s *Stream) flushLocked() {
	s.sched.tag++
	if ch := s.sched.ch; ch != nil {
		if err := ch.Control(dma.CmdFlush); err != nil {
			s.log.Warn("flush failed", zap.Error(err))
		}
	}
}

func (s *Stream) wake() {
	select {
	case s.elapsed <- struct{}{}:
	default:
	}
}

func (s *Stream) changed(from, to State) {
	s.metrics.RecordTransition(context.Background(), s.name, from.String(), to.String())
	s.log.Debug("state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if s.listener != nil {
		s.listener.StateChanged(s.name, from, to)
	}
}
