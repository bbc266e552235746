// Package metrics provides read access to the Bedrock invocation metrics
// recorded in CloudWatch and the invocation logs queried through Logs
// Insights.
package metrics

import (
	"context"
	"fmt"
	"time"
)

// Bedrock metric names in the AWS/Bedrock namespace.
const (
	MetricInvocations  = "Invocations"
	MetricInputTokens  = "InputTokenCount"
	MetricOutputTokens = "OutputTokenCount"
	MetricLatency      = "InvocationLatency"
)

// Window is a half-open [Start, End) reporting interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Source is the metrics backend consumed by the usage aggregator.
type Source interface {
	// Ping verifies the backend is reachable with the current credentials.
	Ping(ctx context.Context) error

	// ListModels returns the model identifiers with invocation metrics
	// recorded in the window.
	ListModels(ctx context.Context, w Window) ([]string, error)

	// MetricSum returns the sum of a metric for one model over the window,
	// aggregated in sub-periods of the given length.
	MetricSum(ctx context.Context, name, modelID string, w Window, period time.Duration) (float64, error)

	// ErrorCount returns the number of error log events for one model over
	// the window.
	ErrorCount(ctx context.Context, modelID string, w Window) (int64, error)
}

// ConnectivityError indicates the metrics backend cannot be reached at all.
// It is fatal: report generation aborts before any aggregation is attempted.
type ConnectivityError struct {
	Reason string
	Err    error
}

func (e *ConnectivityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConnectivityError) Unwrap() error { return e.Err }
