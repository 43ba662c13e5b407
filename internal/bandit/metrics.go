package bandit

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/protocold/internal/bandit"

// Metrics holds bandit-level instruments.
type Metrics struct {
	meter      metric.Meter
	logger     *zap.Logger
	selections metric.Int64Counter
	switches   metric.Int64Counter
}

// NewMetrics creates bandit metrics.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}

	var err error
	m.selections, err = m.meter.Int64Counter(
		"protocold.bandit.selections_total",
		metric.WithDescription("Protocol selections labeled by strategy and whether a protocol matched."),
		metric.WithUnit("{selection}"),
	)
	if err != nil {
		logger.Warn("failed to create selections counter", zap.Error(err))
	}

	m.switches, err = m.meter.Int64Counter(
		"protocold.bandit.strategy_switches_total",
		metric.WithDescription("Meta-controller strategy switches labeled by from/to strategy."),
		metric.WithUnit("{switch}"),
	)
	if err != nil {
		logger.Warn("failed to create switches counter", zap.Error(err))
	}

	return m
}

// RecordSelection counts one selection decision.
func (m *Metrics) RecordSelection(strategy string, matched bool) {
	if m == nil || m.selections == nil {
		return
	}
	m.selections.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("strategy", strategy),
			attribute.Bool("matched", matched),
		))
}

// RecordSwitch counts one strategy switch.
func (m *Metrics) RecordSwitch(from, to string) {
	if m == nil || m.switches == nil {
		return
	}
	m.switches.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		))
}
