// Package report turns raw Bedrock metrics into priced usage reports.
package report

import "time"

// ModelUsage accumulates raw metric sums for one model over a reporting
// window. Values are collected once per report generation and not mutated
// afterwards.
type ModelUsage struct {
	Invocations  int64
	InputTokens  int64
	OutputTokens int64
	TotalLatency float64 // seconds
	ErrorCount   int64
}

// AvgLatency returns the mean per-invocation latency in seconds.
func (u ModelUsage) AvgLatency() float64 {
	if u.Invocations == 0 {
		return 0
	}
	return u.TotalLatency / float64(u.Invocations)
}

// Period describes the reporting window.
type Period struct {
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	DurationHours int       `json:"durationHours"`
}

// Summary holds totals across all models.
type Summary struct {
	TotalInvocations  int64   `json:"totalInvocations"`
	TotalInputTokens  int64   `json:"totalInputTokens"`
	TotalOutputTokens int64   `json:"totalOutputTokens"`
	EstimatedCost     float64 `json:"estimatedCost"`
}

// ModelReport is one entry of the per-model breakdown.
type ModelReport struct {
	Invocations  int64   `json:"invocations"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	Cost         float64 `json:"cost"`
	AvgLatency   float64 `json:"avgLatency"`
	ErrorCount   int64   `json:"errorCount"`
}

// Projections holds the linear 30-day extrapolation of the window totals.
type Projections struct {
	MonthlyInvocations int64   `json:"monthlyInvocations"`
	MonthlyCost        float64 `json:"monthlyCost"`
}

// Performance holds blended latency and error statistics.
type Performance struct {
	AvgLatency float64 `json:"avgLatency"`
	P99Latency float64 `json:"p99Latency"`
	ErrorCount int64   `json:"errorCount"`
	ErrorRate  float64 `json:"errorRate"` // percentage
}

// UsageReport is the complete output document of one generation run.
type UsageReport struct {
	Period      Period                 `json:"period"`
	Summary     Summary                `json:"summary"`
	ByModel     map[string]ModelReport `json:"byModel"`
	Projections Projections            `json:"projections"`
	Performance Performance            `json:"performance"`
}
