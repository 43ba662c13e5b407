package selector

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/protocold/internal/selector"

// Metrics holds service-level instruments.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	requests metric.Int64Counter
	feedback metric.Float64Histogram
	episodes metric.Int64Counter
	cycles   metric.Int64Counter
}

// NewMetrics creates selector metrics.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}

	var err error
	m.requests, err = m.meter.Int64Counter(
		"protocold.selector.requests_total",
		metric.WithDescription("Handled contexts labeled by whether a protocol was executed."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.feedback, err = m.meter.Float64Histogram(
		"protocold.selector.feedback_score",
		metric.WithDescription("Distribution of clamped feedback scores."),
		metric.WithUnit("{score}"),
	)
	if err != nil {
		logger.Warn("failed to create feedback histogram", zap.Error(err))
	}

	m.episodes, err = m.meter.Int64Counter(
		"protocold.selector.episodes_total",
		metric.WithDescription("Episodes persisted to the episodic sink."),
		metric.WithUnit("{episode}"),
	)
	if err != nil {
		logger.Warn("failed to create episodes counter", zap.Error(err))
	}

	m.cycles, err = m.meter.Int64Counter(
		"protocold.selector.cycles_total",
		metric.WithDescription("Maintenance cycles labeled by kind."),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		logger.Warn("failed to create cycles counter", zap.Error(err))
	}

	return m
}

// RecordRequest counts one handled context.
func (m *Metrics) RecordRequest(executed bool) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("executed", executed)))
}

// RecordFeedback records one clamped feedback score.
func (m *Metrics) RecordFeedback(score float64) {
	if m == nil || m.feedback == nil {
		return
	}
	m.feedback.Record(context.Background(), score)
}

// RecordEpisode counts one persisted episode.
func (m *Metrics) RecordEpisode() {
	if m == nil || m.episodes == nil {
		return
	}
	m.episodes.Add(context.Background(), 1)
}

// RecordCycle counts one maintenance cycle.
func (m *Metrics) RecordCycle(kind string) {
	if m == nil || m.cycles == nil {
		return
	}
	m.cycles.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind)))
}
