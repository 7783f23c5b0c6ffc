package flow

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	MetricStageCompleted = "flow.stage.completed"
	MetricStageFaulted   = "flow.stage.faulted"
)

// MetricsHooks counts stage completions and faults on meter, with a "stage" attribute.
func MetricsHooks(meter metric.Meter) (Hooks, error) {
	completed, err := meter.Int64Counter(MetricStageCompleted,
		metric.WithDescription("Number of stages that completed normally"))
	if err != nil {
		return Hooks{}, err
	}
	faulted, err := meter.Int64Counter(MetricStageFaulted,
		metric.WithDescription("Number of stages that faulted"))
	if err != nil {
		return Hooks{}, err
	}

	return Hooks{
		OnFault: func(name string, _ error) {
			faulted.Add(context.Background(), 1, metric.WithAttributes(attribute.String("stage", name)))
		},
		OnComplete: func(name string) {
			completed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("stage", name)))
		},
	}, nil
}
