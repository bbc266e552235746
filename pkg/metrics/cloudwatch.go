package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs/cloudwatchlogsiface"
)

const (
	// Namespace is the CloudWatch namespace Bedrock publishes metrics to.
	Namespace = "AWS/Bedrock"

	dimensionModelID = "ModelId"

	defaultPollInterval = time.Second
	defaultQueryTimeout = 10 * time.Second
)

// ErrQueryTimeout is returned when a Logs Insights query does not complete
// within the bounded wait.
var ErrQueryTimeout = errors.New("log query timed out")

// errorCountQuery counts log events mentioning both an error marker and the
// model identifier. The %s placeholder receives the model identifier.
const errorCountQuery = `fields @timestamp, @message
| filter @message like /ERROR/ or @message like /error/
| filter @message like /%s/
| stats count() as error_count`

// CloudWatchSource implements Source against CloudWatch metrics and Logs
// Insights.
type CloudWatchSource struct {
	cw       cloudwatchiface.CloudWatchAPI
	logs     cloudwatchlogsiface.CloudWatchLogsAPI
	logGroup string

	pollInterval time.Duration
	queryTimeout time.Duration
}

// NewCloudWatchSource creates a source for the given region. logGroup is the
// Bedrock invocation log group queried for error counts.
func NewCloudWatchSource(region, logGroup string) *CloudWatchSource {
	awsSession := session.Must(session.NewSession())
	cfg := aws.NewConfig().WithRegion(region)
	return NewSourceFromClients(cloudwatch.New(awsSession, cfg), cloudwatchlogs.New(awsSession, cfg), logGroup)
}

// NewSourceFromClients creates a source from pre-built clients.
func NewSourceFromClients(cw cloudwatchiface.CloudWatchAPI, logs cloudwatchlogsiface.CloudWatchLogsAPI, logGroup string) *CloudWatchSource {
	return &CloudWatchSource{
		cw:           cw,
		logs:         logs,
		logGroup:     logGroup,
		pollInterval: defaultPollInterval,
		queryTimeout: defaultQueryTimeout,
	}
}

// Ping issues a cheap ListMetrics call and classifies failures into a
// ConnectivityError with an actionable message.
func (s *CloudWatchSource) Ping(ctx context.Context) error {
	_, err := s.cw.ListMetricsWithContext(ctx, &cloudwatch.ListMetricsInput{
		Namespace: aws.String(Namespace),
	})
	if err == nil {
		return nil
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "NoCredentialProviders", "MissingAuthenticationToken", "UnrecognizedClientException", "ExpiredToken":
			return &ConnectivityError{Reason: "AWS credentials not configured, run 'aws configure'", Err: err}
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
			return &ConnectivityError{Reason: "insufficient AWS permissions for CloudWatch access", Err: err}
		}
	}
	return &ConnectivityError{Reason: "cannot reach CloudWatch", Err: err}
}

// ListModels enumerates the ModelId dimension values of the Invocations
// metric. CloudWatch only indexes recently active metrics, so the window is
// not passed to the API; it is part of the Source contract for backends
// that can filter by time.
func (s *CloudWatchSource) ListModels(ctx context.Context, _ Window) ([]string, error) {
	seen := make(map[string]struct{})
	input := &cloudwatch.ListMetricsInput{
		Namespace:  aws.String(Namespace),
		MetricName: aws.String(MetricInvocations),
	}

	err := s.cw.ListMetricsPagesWithContext(ctx, input, func(page *cloudwatch.ListMetricsOutput, _ bool) bool {
		for _, m := range page.Metrics {
			for _, d := range m.Dimensions {
				if aws.StringValue(d.Name) == dimensionModelID {
					seen[aws.StringValue(d.Value)] = struct{}{}
				}
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list bedrock metrics: %w", err)
	}

	models := make([]string, 0, len(seen))
	for id := range seen {
		models = append(models, id)
	}
	sort.Strings(models)
	return models, nil
}

// MetricSum sums the Sum statistic of a metric over the window.
func (s *CloudWatchSource) MetricSum(ctx context.Context, name, modelID string, w Window, period time.Duration) (float64, error) {
	out, err := s.cw.GetMetricStatisticsWithContext(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(Namespace),
		MetricName: aws.String(name),
		Dimensions: []*cloudwatch.Dimension{
			{Name: aws.String(dimensionModelID), Value: aws.String(modelID)},
		},
		StartTime:  aws.Time(w.Start),
		EndTime:    aws.Time(w.End),
		Period:     aws.Int64(int64(period / time.Second)),
		Statistics: []*string{aws.String(cloudwatch.StatisticSum)},
	})
	if err != nil {
		return 0, fmt.Errorf("get %s for %s: %w", name, modelID, err)
	}

	var total float64
	for _, dp := range out.Datapoints {
		total += aws.Float64Value(dp.Sum)
	}
	return total, nil
}

// ErrorCount runs a Logs Insights count query and polls for completion. The
// wait is bounded: on timeout the query is abandoned and ErrQueryTimeout
// returned, callers degrade the count to zero.
func (s *CloudWatchSource) ErrorCount(ctx context.Context, modelID string, w Window) (int64, error) {
	started, err := s.logs.StartQueryWithContext(ctx, &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(s.logGroup),
		StartTime:    aws.Int64(w.Start.Unix()),
		EndTime:      aws.Int64(w.End.Unix()),
		QueryString:  aws.String(fmt.Sprintf(errorCountQuery, modelID)),
	})
	if err != nil {
		return 0, fmt.Errorf("start log query for %s: %w", modelID, err)
	}

	deadline := time.NewTimer(s.queryTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline.C:
			return 0, ErrQueryTimeout
		case <-ticker.C:
		}

		out, err := s.logs.GetQueryResultsWithContext(ctx, &cloudwatchlogs.GetQueryResultsInput{
			QueryId: started.QueryId,
		})
		if err != nil {
			// The query may still be scheduling; keep polling until the deadline.
			continue
		}

		switch aws.StringValue(out.Status) {
		case cloudwatchlogs.QueryStatusComplete:
			return parseErrorCount(out.Results), nil
		case cloudwatchlogs.QueryStatusFailed, cloudwatchlogs.QueryStatusCancelled:
			return 0, fmt.Errorf("log query for %s: %s", modelID, aws.StringValue(out.Status))
		}
	}
}

func parseErrorCount(results [][]*cloudwatchlogs.ResultField) int64 {
	for _, row := range results {
		for _, f := range row {
			if aws.StringValue(f.Field) != "error_count" {
				continue
			}
			if v, err := strconv.ParseFloat(aws.StringValue(f.Value), 64); err == nil {
				return int64(v)
			}
		}
	}
	return 0
}
