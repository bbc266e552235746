package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/bedrock-tools/bedrockmon/pkg/metrics"
)

// metricPeriod is the sub-period length metric sums are aggregated in.
const metricPeriod = time.Hour

// Aggregator collects per-model usage from a metrics source. Every query is
// independently fault-tolerant: a failed query degrades its value to zero
// with a warning instead of aborting the report.
type Aggregator struct {
	source metrics.Source
	logger *slog.Logger
}

// NewAggregator creates an aggregator over the given source.
func NewAggregator(source metrics.Source, logger *slog.Logger) *Aggregator {
	return &Aggregator{source: source, logger: logger}
}

// Aggregate returns usage for every model with at least one invocation in
// [start, end). Discovery failure yields an empty map, never an error.
func (a *Aggregator) Aggregate(ctx context.Context, start, end time.Time) map[string]ModelUsage {
	w := metrics.Window{Start: start, End: end}

	models, err := a.source.ListModels(ctx, w)
	if err != nil {
		a.logger.Warn("model discovery failed, reporting zero data", "error", err)
		return map[string]ModelUsage{}
	}
	if len(models) == 0 {
		a.logger.Warn("no models found with metrics in time period")
		return map[string]ModelUsage{}
	}

	usage := make(map[string]ModelUsage, len(models))
	for _, modelID := range models {
		u := ModelUsage{
			Invocations:  int64(a.metricSum(ctx, metrics.MetricInvocations, modelID, w)),
			InputTokens:  int64(a.metricSum(ctx, metrics.MetricInputTokens, modelID, w)),
			OutputTokens: int64(a.metricSum(ctx, metrics.MetricOutputTokens, modelID, w)),
		}

		// InvocationLatency is published in milliseconds.
		u.TotalLatency = a.metricSum(ctx, metrics.MetricLatency, modelID, w) / 1000.0

		count, err := a.source.ErrorCount(ctx, modelID, w)
		if err != nil {
			a.logger.Warn("error count unavailable", "model", modelID, "error", err)
			count = 0
		}
		u.ErrorCount = count

		// Dormant models are omitted from the report.
		if u.Invocations > 0 {
			usage[modelID] = u
		}
	}
	return usage
}

func (a *Aggregator) metricSum(ctx context.Context, name, modelID string, w metrics.Window) float64 {
	sum, err := a.source.MetricSum(ctx, name, modelID, w, metricPeriod)
	if err != nil {
		a.logger.Warn("metric unavailable", "metric", name, "model", modelID, "error", err)
		return 0
	}
	return sum
}
