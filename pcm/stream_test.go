// SPDX-License-Identifier: EPL-2.0

package pcm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ik5/pcmring/dma"
	"github.com/ik5/pcmring/internal/pcmtest"
	"github.com/ik5/pcmring/pcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	kib        = 1024
	regionAddr = 0x4000_0000
	fifoAddr   = 0x01c2_2410
)

func testParams() pcm.HwParams {
	return pcm.HwParams{
		Format:      pcm.FormatS16LE,
		Rate:        48000,
		Channels:    2,
		PeriodBytes: 16 * kib,
		BufferBytes: 128 * kib,
	}
}

func newStream(t *testing.T, eng dma.Engine, dir pcm.Direction, opts ...func(*pcm.Config)) *pcm.Stream {
	t.Helper()
	cfg := pcm.Config{
		Name:      "i2s",
		Direction: dir,
		Engine:    eng,
		Region:    dma.Region{Addr: regionAddr, Buf: make([]byte, 128*kib)},
		Endpoint:  fifoAddr,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := pcm.NewStream(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// running brings a stream to Running and returns the channel it reserved.
func running(t *testing.T, s *pcm.Stream, eng *pcmtest.FakeEngine) *pcmtest.FakeChannel {
	t.Helper()
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(testParams()))
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Start())
	return eng.Last()
}

func elapsed(s *pcm.Stream) bool {
	select {
	case <-s.Elapsed():
		return true
	default:
		return false
	}
}

func TestStream_PrefillsToLimit(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	subs := ch.Submitted()
	require.Len(t, subs, 4)
	for i, d := range subs {
		assert.Equal(t, uint64(regionAddr+i*16*kib), d.Src, "descriptor %d source", i)
		assert.Equal(t, uint64(fifoAddr), d.Dst, "descriptor %d destination", i)
		assert.Equal(t, 16*kib, d.Len)
		assert.Equal(t, dma.MemToDev, d.Dir)
	}
	assert.Equal(t, 4, s.Status().Outstanding)
	assert.Equal(t, []dma.Command{dma.CmdFlush, dma.CmdFlush, dma.CmdStart}, ch.Commands())

	cfg := ch.Config()
	assert.Equal(t, dma.MemToDev, cfg.Dir)
	assert.Equal(t, uint64(fifoAddr), cfg.Endpoint)
	assert.Equal(t, 2, cfg.Width)
	assert.Equal(t, 48000*4, cfg.BytesPerSecond)
}

func TestStream_CompletionBackfillsOnce(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	require.True(t, ch.Complete(dma.ResultDone))

	subs := ch.Submitted()
	require.Len(t, subs, 5, "exactly one backfill")
	assert.Equal(t, uint64(regionAddr+4*16*kib), subs[4].Src)

	st := s.Status()
	assert.Equal(t, 4, st.Outstanding)
	assert.Equal(t, 16*kib, st.ReadOffset)
	assert.Equal(t, uint64(16*kib), st.Completed)
	assert.True(t, elapsed(s), "elapsed signalled")
}

func TestStream_WrapsAroundBuffer(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	for range 8 {
		require.True(t, ch.Complete(dma.ResultDone))
	}

	subs := ch.Submitted()
	require.Len(t, subs, 12)
	for i, d := range subs {
		assert.Equal(t, uint64(regionAddr+(i%8)*16*kib), d.Src, "descriptor %d", i)
	}
	assert.Equal(t, 0, s.Status().ReadOffset)
	assert.Equal(t, 0, s.Position())
}

func TestStream_CaptureDescriptors(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Capture)
	ch := running(t, s, eng)

	d := ch.Submitted()[1]
	assert.Equal(t, uint64(fifoAddr), d.Src)
	assert.Equal(t, uint64(regionAddr+16*kib), d.Dst)
	assert.Equal(t, dma.DevToMem, d.Dir)
	assert.Equal(t, dma.DevToMem, ch.Request().Dir)
}

func TestStream_BusyDuringBackfill(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	ch.SetBusy(true)
	require.True(t, ch.Complete(dma.ResultDone))
	assert.Equal(t, 3, s.Status().Outstanding)
	require.True(t, ch.Complete(dma.ResultDone))
	assert.Equal(t, 2, s.Status().Outstanding)
	assert.Len(t, ch.Submitted(), 4, "nothing submitted while busy")

	ch.SetBusy(false)
	require.True(t, ch.Complete(dma.ResultDone))
	assert.Equal(t, 4, s.Status().Outstanding, "next completion refills to the limit")

	subs := ch.Submitted()
	require.Len(t, subs, 7)
	// The refused chunk was retried, not skipped.
	assert.Equal(t, uint64(regionAddr+4*16*kib), subs[4].Src)
}

func TestStream_EngineCapacityLimitsPrefill(t *testing.T) {
	eng := pcmtest.NewFakeEngine(2)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	assert.Equal(t, 2, s.Status().Outstanding)
	require.True(t, ch.Complete(dma.ResultDone))
	assert.Equal(t, 2, s.Status().Outstanding)
	assert.Len(t, ch.Submitted(), 3)
}

func TestStream_AbortIsAbsorbed(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	require.NoError(t, s.Stop())
	assert.True(t, elapsed(s), "stop wakes waiters")
	require.True(t, ch.Complete(dma.ResultAbort))
	require.True(t, ch.Complete(dma.ResultError))

	st := s.Status()
	assert.Equal(t, pcm.StateStopped, st.State)
	assert.Equal(t, 4, st.Outstanding)
	assert.Equal(t, 0, st.ReadOffset)
	assert.False(t, elapsed(s))
	assert.Len(t, ch.Submitted(), 4)
}

func TestStream_NoSubmitWhileStopped(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	require.NoError(t, s.Stop())
	require.True(t, ch.Complete(dma.ResultDone))

	assert.Len(t, ch.Submitted(), 4)
	assert.Equal(t, 3, s.Status().Outstanding)
	assert.True(t, elapsed(s), "the finished period still counts")
}

func TestStream_StopTwice(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	assert.Equal(t, pcm.StateStopped, s.State())
	assert.Equal(t, 0, ch.Releases())
	assert.Equal(t, []dma.Command{dma.CmdFlush, dma.CmdFlush, dma.CmdStart, dma.CmdStop}, ch.Commands())
}

func TestStream_PauseResumeTopsUp(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	require.NoError(t, s.Pause())
	require.True(t, ch.Complete(dma.ResultDone))
	require.True(t, ch.Complete(dma.ResultDone))
	assert.Equal(t, 2, s.Status().Outstanding)

	require.NoError(t, s.Resume())
	assert.Equal(t, pcm.StateRunning, s.State())
	assert.Equal(t, 4, s.Status().Outstanding)
	assert.Equal(t, []dma.Command{dma.CmdFlush, dma.CmdFlush, dma.CmdStart, dma.CmdStop, dma.CmdStart}, ch.Commands())
}

func TestStream_Trigger(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(testParams()))
	require.NoError(t, s.Prepare())

	steps := []struct {
		cmd  pcm.TriggerCmd
		want pcm.State
	}{
		{pcm.TriggerStart, pcm.StateRunning},
		{pcm.TriggerPausePush, pcm.StatePaused},
		{pcm.TriggerPauseRelease, pcm.StateRunning},
		{pcm.TriggerSuspend, pcm.StateStopped},
	}
	for _, step := range steps {
		require.NoError(t, s.Trigger(step.cmd), step.cmd.String())
		assert.Equal(t, step.want, s.State(), step.cmd.String())
	}

	assert.ErrorIs(t, s.Trigger(pcm.TriggerCmd(99)), pcm.ErrInvalidParameter)
}

func TestStream_InvalidTransitions(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)

	assert.ErrorIs(t, s.Configure(testParams()), pcm.ErrInvalidState, "configure before open")
	assert.ErrorIs(t, s.Prepare(), pcm.ErrInvalidState, "prepare before open")

	require.NoError(t, s.Open(context.Background()))
	assert.ErrorIs(t, s.Open(context.Background()), pcm.ErrInvalidState, "open twice")
	assert.ErrorIs(t, s.Start(), pcm.ErrInvalidState, "start before prepare")
	assert.ErrorIs(t, s.Prepare(), pcm.ErrInvalidState, "prepare before configure")
	assert.ErrorIs(t, s.Stop(), pcm.ErrInvalidState, "stop while open")

	require.NoError(t, s.Configure(testParams()))
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), pcm.ErrInvalidState, "double start")
	assert.ErrorIs(t, s.Configure(testParams()), pcm.ErrInvalidState, "configure while running")

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Start(), pcm.ErrInvalidState, "start after stop needs prepare")
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Start())
}

func TestStream_OpenReserveFailure(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	eng.FailReserve(dma.ErrNoChannel)
	s := newStream(t, eng, pcm.Playback)

	err := s.Open(context.Background())
	assert.ErrorIs(t, err, pcm.ErrAllocationFailed)
	assert.ErrorIs(t, err, dma.ErrNoChannel)
	assert.Equal(t, pcm.StateClosed, s.State())
}

func TestStream_ConfigureRejectsWithoutChange(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(testParams()))

	bad := testParams()
	bad.PeriodBytes = 24 * kib
	err := s.Configure(bad)
	assert.ErrorIs(t, err, pcm.ErrInvalidParameter)

	st := s.Status()
	assert.Equal(t, pcm.StateConfigured, st.State)
	assert.Equal(t, testParams(), st.Params)
}

func TestStream_ConfigureRejectsOversizedBuffer(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback, func(c *pcm.Config) {
		c.Region = dma.Region{Addr: regionAddr, Buf: make([]byte, 64*kib)}
	})
	require.NoError(t, s.Open(context.Background()))

	assert.ErrorIs(t, s.Configure(testParams()), pcm.ErrInvalidParameter)
	assert.Equal(t, pcm.StateOpen, s.State())
}

func TestStream_CloseReleasesOnce(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, 1, ch.Releases())
	assert.Equal(t, pcm.StateClosed, s.State())
	assert.Equal(t, 0, s.Position())
	assert.True(t, elapsed(s), "close wakes waiters")

	// Late completions after close are ignored.
	assert.Equal(t, 4, ch.DeliverAborts())
	assert.False(t, elapsed(s))

	// A closed stream can be opened again on a fresh channel.
	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, 2, eng.Reserved())
}

func TestStream_Free(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	assert.ErrorIs(t, s.Free(), pcm.ErrInvalidState, "free while running")
	require.NoError(t, s.Stop())
	require.NoError(t, s.Free())

	st := s.Status()
	assert.Equal(t, pcm.StateOpen, st.State)
	assert.Equal(t, pcm.HwParams{}, st.Params)
	assert.Equal(t, 0, st.Outstanding)
	assert.Equal(t, 0, ch.Pending())
	assert.Equal(t, 0, ch.Releases())
}

func TestStream_PrepareAfterStopIgnoresStaleCompletions(t *testing.T) {
	eng := pcmtest.NewFakeEngine(0)
	s := newStream(t, eng, pcm.Playback)
	ch := running(t, s, eng)

	require.True(t, ch.Complete(dma.ResultDone))
	require.NoError(t, s.Stop())
	require.NoError(t, s.Prepare())
	elapsed(s)

	st := s.Status()
	assert.Equal(t, pcm.StatePrepared, st.State)
	assert.Equal(t, 4, st.Outstanding)
	assert.Equal(t, 0, st.ReadOffset)
	assert.Equal(t, uint64(0), st.Completed)

	assert.Equal(t, 4, ch.DeliverAborts())
	assert.Equal(t, 4, s.Status().Outstanding)
	assert.False(t, elapsed(s))

	subs := ch.Submitted()
	require.Len(t, subs, 9)
	assert.Equal(t, uint64(regionAddr), subs[5].Src, "prepare starts again from the buffer base")
}

func TestStream_LazyBinding(t *testing.T) {
	s := newStream(t, nil, pcm.Playback)

	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(testParams()))
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Start())
	assert.Equal(t, pcm.StateRunning, s.State())
	assert.Equal(t, 0, s.Status().Outstanding)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Close())
}

func TestStream_PositionFromReadback(t *testing.T) {
	fe := pcmtest.NewFakeEngine(0)
	eng := pcmtest.ReportingEngine{FakeEngine: fe}
	s := newStream(t, eng, pcm.Playback)
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(testParams()))
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Start())
	ch := fe.Last()

	ch.SetPosition(regionAddr+16*kib, fifoAddr)
	assert.Equal(t, 32*kib/4, s.Position(), "source register plus one period")

	ch.SetPosition(regionAddr+112*kib, fifoAddr)
	assert.Equal(t, 0, s.Position(), "readback at the buffer end clamps to zero")

	ch.SetPosition(0, 0)
	assert.Equal(t, 0, s.Position(), "readback below the buffer clamps to zero")
}

func TestStream_PositionHoldsAcrossPauseAndStop(t *testing.T) {
	fe := pcmtest.NewFakeEngine(0)
	eng := pcmtest.ReportingEngine{FakeEngine: fe}
	s := newStream(t, eng, pcm.Playback)
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(testParams()))
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Start())

	fe.Last().SetPosition(regionAddr+32*kib, fifoAddr)
	running := s.Position()
	require.Equal(t, 48*kib/4, running)

	require.NoError(t, s.Pause())
	assert.GreaterOrEqual(t, s.Position(), running, "pause")

	require.NoError(t, s.Stop())
	assert.GreaterOrEqual(t, s.Position(), running, "stop")

	require.NoError(t, s.Prepare())
	assert.Equal(t, 0, s.Position(), "prepare starts over")
}

func TestStream_CapturePositionFromReadback(t *testing.T) {
	fe := pcmtest.NewFakeEngine(0)
	eng := pcmtest.ReportingEngine{FakeEngine: fe}
	s := newStream(t, eng, pcm.Capture)
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Configure(testParams()))
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Start())

	fe.Last().SetPosition(fifoAddr, regionAddr+48*kib)
	assert.Equal(t, 48*kib/4, s.Position())
}

func TestNewStream_Validation(t *testing.T) {
	_, err := pcm.NewStream(pcm.Config{})
	assert.ErrorIs(t, err, pcm.ErrInvalidParameter, "empty region")

	_, err = pcm.NewStream(pcm.Config{
		Region:   dma.Region{Addr: regionAddr, Buf: make([]byte, kib)},
		InFlight: 9,
	})
	assert.ErrorIs(t, err, pcm.ErrInvalidParameter, "in-flight above periods max")
}

type mockListener struct {
	mock.Mock
}

func (m *mockListener) StateChanged(stream string, from, to pcm.State) {
	m.Called(stream, from, to)
}

func (m *mockListener) PeriodElapsed(stream string, st pcm.Status) {
	m.Called(stream, st)
}

func TestStream_Listener(t *testing.T) {
	l := new(mockListener)
	l.On("StateChanged", "i2s", pcm.StateClosed, pcm.StateOpen).Once()
	l.On("StateChanged", "i2s", pcm.StateOpen, pcm.StateConfigured).Once()
	l.On("StateChanged", "i2s", pcm.StateConfigured, pcm.StatePrepared).Once()
	l.On("StateChanged", "i2s", pcm.StatePrepared, pcm.StateRunning).Once()
	l.On("PeriodElapsed", "i2s", mock.MatchedBy(func(st pcm.Status) bool {
		return st.Outstanding == 4 && st.Completed == 16*kib
	})).Once()

	eng := pcmtest.NewFakeEngine(0)
	s, err := pcm.NewStream(pcm.Config{
		Name:     "i2s",
		Engine:   eng,
		Region:   dma.Region{Addr: regionAddr, Buf: make([]byte, 128*kib)},
		Listener: l,
	})
	require.NoError(t, err)
	ch := running(t, s, eng)
	require.True(t, ch.Complete(dma.ResultDone))
	require.True(t, ch.Complete(dma.ResultAbort))

	l.AssertExpectations(t)
}

func TestStream_ErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(pcm.ErrInvalidState, pcm.ErrInvalidParameter))
	assert.True(t, errors.Is(pcm.ErrInvalidGeometry, pcm.ErrInvalidParameter))
	assert.False(t, errors.Is(pcm.ErrAllocationFailed, pcm.ErrInvalidParameter))
}
