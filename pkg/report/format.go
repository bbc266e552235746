package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Output formats accepted by Format.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// ErrUnsupportedFormat is returned for any format other than json or text.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Format renders the report in the requested format.
func Format(r *UsageReport, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode report: %w", err)
		}
		return string(data), nil
	case FormatText:
		return formatText(r), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Parse decodes a JSON report document.
func Parse(data []byte) (*UsageReport, error) {
	var r UsageReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

func formatText(r *UsageReport) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	sep := strings.Repeat("-", 20)

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "AWS BEDROCK USAGE REPORT\n")
	fmt.Fprintf(&b, "%s\n\n", rule)

	fmt.Fprintf(&b, "Report Period: %d hours\n", r.Period.DurationHours)
	fmt.Fprintf(&b, "From: %s\n", r.Period.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "To:   %s\n\n", r.Period.EndTime.Format(time.RFC3339))

	fmt.Fprintf(&b, "SUMMARY\n%s\n", sep)
	fmt.Fprintf(&b, "Total Invocations:    %s\n", humanize.Comma(r.Summary.TotalInvocations))
	fmt.Fprintf(&b, "Total Input Tokens:   %s\n", humanize.Comma(r.Summary.TotalInputTokens))
	fmt.Fprintf(&b, "Total Output Tokens:  %s\n", humanize.Comma(r.Summary.TotalOutputTokens))
	fmt.Fprintf(&b, "Estimated Cost:       $%.4f\n\n", r.Summary.EstimatedCost)

	fmt.Fprintf(&b, "PERFORMANCE\n%s\n", sep)
	fmt.Fprintf(&b, "Average Latency:      %.3fs\n", r.Performance.AvgLatency)
	fmt.Fprintf(&b, "P99 Latency:          %.3fs\n", r.Performance.P99Latency)
	fmt.Fprintf(&b, "Error Count:          %d\n", r.Performance.ErrorCount)
	fmt.Fprintf(&b, "Error Rate:           %.2f%%\n\n", r.Performance.ErrorRate)

	if len(r.ByModel) > 0 {
		fmt.Fprintf(&b, "BY MODEL\n%s\n", sep)
		for _, modelID := range sortedModelIDs(r.ByModel) {
			m := r.ByModel[modelID]
			fmt.Fprintf(&b, "\n%s:\n", displayName(modelID))
			fmt.Fprintf(&b, "  Invocations:     %s\n", humanize.Comma(m.Invocations))
			fmt.Fprintf(&b, "  Input Tokens:    %s\n", humanize.Comma(m.InputTokens))
			fmt.Fprintf(&b, "  Output Tokens:   %s\n", humanize.Comma(m.OutputTokens))
			fmt.Fprintf(&b, "  Cost:            $%.4f\n", m.Cost)
			fmt.Fprintf(&b, "  Avg Latency:     %.3fs\n", m.AvgLatency)
			fmt.Fprintf(&b, "  Errors:          %d\n", m.ErrorCount)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "MONTHLY PROJECTIONS\n%s\n", sep)
	fmt.Fprintf(&b, "Projected Invocations: %s\n", humanize.Comma(r.Projections.MonthlyInvocations))
	fmt.Fprintf(&b, "Projected Cost:        $%.2f\n", r.Projections.MonthlyCost)

	return b.String()
}

func sortedModelIDs(byModel map[string]ModelReport) []string {
	ids := make([]string, 0, len(byModel))
	for id := range byModel {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// displayName strips the vendor namespace prefix from a model identifier,
// e.g. "anthropic.claude-3-haiku-20240307-v1:0" -> "claude-3-haiku-20240307-v1:0".
func displayName(modelID string) string {
	if i := strings.LastIndex(modelID, "."); i >= 0 {
		return modelID[i+1:]
	}
	return modelID
}
