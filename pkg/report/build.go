package report

import (
	"fmt"
	"math"
	"time"

	"github.com/bedrock-tools/bedrockmon/pkg/pricing"
)

// hoursInMonth is the 30-day equivalent used for linear projections.
const hoursInMonth = 24 * 30

// Builder assembles a UsageReport from aggregated usage and a pricing table.
type Builder struct {
	pricing *pricing.Table
}

// NewBuilder creates a builder over the given pricing table.
func NewBuilder(table *pricing.Table) *Builder {
	return &Builder{pricing: table}
}

// Build computes costs, blended statistics, and monthly projections for the
// given usage. windowHours must be positive; callers validate it before any
// metric query is issued.
func (b *Builder) Build(usage map[string]ModelUsage, start, end time.Time, windowHours int) (*UsageReport, error) {
	if windowHours <= 0 {
		return nil, fmt.Errorf("window hours must be positive, got %d", windowHours)
	}

	var (
		totalInvocations int64
		totalInput       int64
		totalOutput      int64
		totalErrors      int64
		totalCost        float64
		weightedLatency  float64
		maxTotalLatency  float64
	)

	byModel := make(map[string]ModelReport, len(usage))
	for modelID, u := range usage {
		cost := b.pricing.Cost(modelID, u.InputTokens, u.OutputTokens)

		totalInvocations += u.Invocations
		totalInput += u.InputTokens
		totalOutput += u.OutputTokens
		totalErrors += u.ErrorCount
		totalCost += cost
		weightedLatency += u.AvgLatency() * float64(u.Invocations)

		// p99 approximation: max of per-model accumulated latency. The
		// source data is pre-aggregated per model, so a true percentile
		// over individual invocations is not computable here. Existing
		// report consumers read this field as-is.
		if u.Invocations > 0 && u.TotalLatency > maxTotalLatency {
			maxTotalLatency = u.TotalLatency
		}

		byModel[modelID] = ModelReport{
			Invocations:  u.Invocations,
			InputTokens:  u.InputTokens,
			OutputTokens: u.OutputTokens,
			Cost:         round(cost, 4),
			AvgLatency:   round(u.AvgLatency(), 3),
			ErrorCount:   u.ErrorCount,
		}
	}

	var avgLatency, errorRate float64
	if totalInvocations > 0 {
		avgLatency = weightedLatency / float64(totalInvocations)
		errorRate = float64(totalErrors) / float64(totalInvocations) * 100
	}

	multiplier := float64(hoursInMonth) / float64(windowHours)

	return &UsageReport{
		Period: Period{
			StartTime:     start.UTC(),
			EndTime:       end.UTC(),
			DurationHours: windowHours,
		},
		Summary: Summary{
			TotalInvocations:  totalInvocations,
			TotalInputTokens:  totalInput,
			TotalOutputTokens: totalOutput,
			EstimatedCost:     round(totalCost, 4),
		},
		ByModel: byModel,
		Projections: Projections{
			MonthlyInvocations: int64(float64(totalInvocations) * multiplier),
			MonthlyCost:        round(totalCost*multiplier, 2),
		},
		Performance: Performance{
			AvgLatency: round(avgLatency, 3),
			P99Latency: round(maxTotalLatency, 3),
			ErrorCount: totalErrors,
			ErrorRate:  round(errorRate, 2),
		},
	}, nil
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
