// SPDX-License-Identifier: EPL-2.0

// Package observe builds the logger and the OpenTelemetry instruments used by
// PCM streams, plus the Prometheus bridge that exposes them over HTTP.
//
// Tests should create their own [Metrics] with [NewMetrics] and a
// [sdkmetric.ManualReader] backed provider instead of the global one.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ik5/pcmring"

// Metrics holds the stream instruments. A nil *Metrics records nothing, so
// callers never need to guard.
type Metrics struct {
	// TransfersSubmitted counts descriptors accepted by the engine.
	TransfersSubmitted metric.Int64Counter

	// SubmitBusy counts submissions refused because the engine was saturated.
	SubmitBusy metric.Int64Counter

	// TransfersCompleted counts completions. Attribute "result" is done,
	// abort or error.
	TransfersCompleted metric.Int64Counter

	PeriodsElapsed metric.Int64Counter

	// Outstanding tracks transfers submitted and not yet completed.
	Outstanding metric.Int64UpDownCounter

	// Transitions counts state machine moves, with "from" and "to".
	Transitions metric.Int64Counter
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TransfersSubmitted, err = m.Int64Counter("pcm.transfers.submitted",
		metric.WithDescription("Transfer descriptors accepted by the DMA engine."),
		metric.WithUnit("{transfer}"),
	); err != nil {
		return nil, err
	}
	if met.SubmitBusy, err = m.Int64Counter("pcm.transfers.busy",
		metric.WithDescription("Submissions refused because the DMA engine was saturated."),
		metric.WithUnit("{transfer}"),
	); err != nil {
		return nil, err
	}
	if met.TransfersCompleted, err = m.Int64Counter("pcm.transfers.completed",
		metric.WithDescription("Transfer completions by result."),
		metric.WithUnit("{transfer}"),
	); err != nil {
		return nil, err
	}
	if met.PeriodsElapsed, err = m.Int64Counter("pcm.periods.elapsed",
		metric.WithDescription("Elapsed-period notifications delivered to consumers."),
		metric.WithUnit("{period}"),
	); err != nil {
		return nil, err
	}
	if met.Outstanding, err = m.Int64UpDownCounter("pcm.transfers.outstanding",
		metric.WithDescription("Transfers submitted and not yet completed."),
		metric.WithUnit("{transfer}"),
	); err != nil {
		return nil, err
	}
	if met.Transitions, err = m.Int64Counter("pcm.stream.transitions",
		metric.WithDescription("Stream state machine transitions."),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns instruments bound to the global meter provider,
// created on first use.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			otel.Handle(err)
			return
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

func dirAttr(stream, dir string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("stream", stream),
		attribute.String("direction", dir),
	)
}

func (m *Metrics) RecordSubmit(ctx context.Context, stream, dir string) {
	if m == nil {
		return
	}
	m.TransfersSubmitted.Add(ctx, 1, dirAttr(stream, dir))
	m.Outstanding.Add(ctx, 1, dirAttr(stream, dir))
}

func (m *Metrics) RecordBusy(ctx context.Context, stream, dir string) {
	if m == nil {
		return
	}
	m.SubmitBusy.Add(ctx, 1, dirAttr(stream, dir))
}

// RecordCompletion counts a completion. retired is true when it released an
// outstanding slot.
func (m *Metrics) RecordCompletion(ctx context.Context, stream, dir, result string, retired bool) {
	if m == nil {
		return
	}
	m.TransfersCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stream", stream),
		attribute.String("direction", dir),
		attribute.String("result", result),
	))
	if retired {
		m.Outstanding.Add(ctx, -1, dirAttr(stream, dir))
	}
}

// ResetOutstanding drops n slots that were forgotten without completing, as
// happens on prepare and close.
func (m *Metrics) ResetOutstanding(ctx context.Context, stream, dir string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Outstanding.Add(ctx, -int64(n), dirAttr(stream, dir))
}

func (m *Metrics) RecordElapsed(ctx context.Context, stream, dir string) {
	if m == nil {
		return
	}
	m.PeriodsElapsed.Add(ctx, 1, dirAttr(stream, dir))
}

func (m *Metrics) RecordTransition(ctx context.Context, stream, from, to string) {
	if m == nil {
		return
	}
	m.Transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stream", stream),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
