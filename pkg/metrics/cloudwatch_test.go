package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs/cloudwatchlogsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCloudWatch mimics the CloudWatch metrics API for testing.
type mockCloudWatch struct {
	cloudwatchiface.CloudWatchAPI

	listOut  *cloudwatch.ListMetricsOutput
	listErr  error
	statsOut *cloudwatch.GetMetricStatisticsOutput
	statsErr error

	lastStatsInput *cloudwatch.GetMetricStatisticsInput
}

func (m *mockCloudWatch) ListMetricsWithContext(_ aws.Context, _ *cloudwatch.ListMetricsInput, _ ...request.Option) (*cloudwatch.ListMetricsOutput, error) {
	return m.listOut, m.listErr
}

func (m *mockCloudWatch) ListMetricsPagesWithContext(_ aws.Context, _ *cloudwatch.ListMetricsInput, fn func(*cloudwatch.ListMetricsOutput, bool) bool, _ ...request.Option) error {
	if m.listErr != nil {
		return m.listErr
	}
	fn(m.listOut, true)
	return nil
}

func (m *mockCloudWatch) GetMetricStatisticsWithContext(_ aws.Context, in *cloudwatch.GetMetricStatisticsInput, _ ...request.Option) (*cloudwatch.GetMetricStatisticsOutput, error) {
	m.lastStatsInput = in
	return m.statsOut, m.statsErr
}

// mockLogs mimics the Logs Insights query API, returning the configured
// results in sequence and repeating the last one.
type mockLogs struct {
	cloudwatchlogsiface.CloudWatchLogsAPI

	startErr error
	results  []*cloudwatchlogs.GetQueryResultsOutput
	calls    int

	lastQuery *cloudwatchlogs.StartQueryInput
}

func (m *mockLogs) StartQueryWithContext(_ aws.Context, in *cloudwatchlogs.StartQueryInput, _ ...request.Option) (*cloudwatchlogs.StartQueryOutput, error) {
	m.lastQuery = in
	if m.startErr != nil {
		return nil, m.startErr
	}
	return &cloudwatchlogs.StartQueryOutput{QueryId: aws.String("query-1")}, nil
}

func (m *mockLogs) GetQueryResultsWithContext(_ aws.Context, _ *cloudwatchlogs.GetQueryResultsInput, _ ...request.Option) (*cloudwatchlogs.GetQueryResultsOutput, error) {
	i := m.calls
	if i >= len(m.results) {
		i = len(m.results) - 1
	}
	m.calls++
	return m.results[i], nil
}

func newTestSource(cw *mockCloudWatch, logs *mockLogs) *CloudWatchSource {
	s := NewSourceFromClients(cw, logs, "/aws/bedrock/modelinvocations")
	s.pollInterval = time.Millisecond
	s.queryTimeout = 50 * time.Millisecond
	return s
}

func metric(modelID string) *cloudwatch.Metric {
	return &cloudwatch.Metric{
		MetricName: aws.String(MetricInvocations),
		Dimensions: []*cloudwatch.Dimension{
			{Name: aws.String(dimensionModelID), Value: aws.String(modelID)},
		},
	}
}

func statusOut(status string) *cloudwatchlogs.GetQueryResultsOutput {
	return &cloudwatchlogs.GetQueryResultsOutput{Status: aws.String(status)}
}

func testQueryWindow() Window {
	end := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	return Window{Start: end.Add(-24 * time.Hour), End: end}
}

func TestListModels(t *testing.T) {
	cw := &mockCloudWatch{
		listOut: &cloudwatch.ListMetricsOutput{
			Metrics: []*cloudwatch.Metric{
				metric("anthropic.claude-3-sonnet-20240229-v1:0"),
				metric("anthropic.claude-3-haiku-20240307-v1:0"),
				metric("anthropic.claude-3-sonnet-20240229-v1:0"), // duplicate
				{MetricName: aws.String(MetricInvocations)},       // no dimensions
			},
		},
	}
	s := newTestSource(cw, &mockLogs{})

	models, err := s.ListModels(context.Background(), testQueryWindow())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"anthropic.claude-3-haiku-20240307-v1:0",
		"anthropic.claude-3-sonnet-20240229-v1:0",
	}, models)
}

func TestListModels_Error(t *testing.T) {
	cw := &mockCloudWatch{listErr: errors.New("throttled")}
	s := newTestSource(cw, &mockLogs{})

	_, err := s.ListModels(context.Background(), testQueryWindow())
	assert.Error(t, err)
}

func TestMetricSum(t *testing.T) {
	cw := &mockCloudWatch{
		statsOut: &cloudwatch.GetMetricStatisticsOutput{
			Datapoints: []*cloudwatch.Datapoint{
				{Sum: aws.Float64(40)},
				{Sum: aws.Float64(35)},
				{Sum: aws.Float64(25)},
			},
		},
	}
	s := newTestSource(cw, &mockLogs{})

	sum, err := s.MetricSum(context.Background(), MetricInvocations, "anthropic.claude-instant-v1", testQueryWindow(), time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 100, sum, 1e-9)

	in := cw.lastStatsInput
	require.NotNil(t, in)
	assert.Equal(t, Namespace, aws.StringValue(in.Namespace))
	assert.Equal(t, MetricInvocations, aws.StringValue(in.MetricName))
	assert.Equal(t, int64(3600), aws.Int64Value(in.Period))
	assert.Equal(t, []string{cloudwatch.StatisticSum}, aws.StringValueSlice(in.Statistics))
	require.Len(t, in.Dimensions, 1)
	assert.Equal(t, "anthropic.claude-instant-v1", aws.StringValue(in.Dimensions[0].Value))
}

func TestMetricSum_Error(t *testing.T) {
	cw := &mockCloudWatch{statsErr: errors.New("denied")}
	s := newTestSource(cw, &mockLogs{})

	_, err := s.MetricSum(context.Background(), MetricLatency, "m", testQueryWindow(), time.Hour)
	assert.Error(t, err)
}

func TestErrorCount(t *testing.T) {
	logs := &mockLogs{
		results: []*cloudwatchlogs.GetQueryResultsOutput{
			statusOut(cloudwatchlogs.QueryStatusRunning),
			{
				Status: aws.String(cloudwatchlogs.QueryStatusComplete),
				Results: [][]*cloudwatchlogs.ResultField{
					{{Field: aws.String("error_count"), Value: aws.String("7")}},
				},
			},
		},
	}
	s := newTestSource(&mockCloudWatch{}, logs)

	count, err := s.ErrorCount(context.Background(), "anthropic.claude-instant-v1", testQueryWindow())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	q := logs.lastQuery
	require.NotNil(t, q)
	assert.Equal(t, "/aws/bedrock/modelinvocations", aws.StringValue(q.LogGroupName))
	assert.Contains(t, aws.StringValue(q.QueryString), "anthropic.claude-instant-v1")
	assert.Contains(t, aws.StringValue(q.QueryString), "error_count")
}

func TestErrorCount_CompleteWithoutRows(t *testing.T) {
	logs := &mockLogs{
		results: []*cloudwatchlogs.GetQueryResultsOutput{
			statusOut(cloudwatchlogs.QueryStatusComplete),
		},
	}
	s := newTestSource(&mockCloudWatch{}, logs)

	count, err := s.ErrorCount(context.Background(), "m", testQueryWindow())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestErrorCount_Timeout(t *testing.T) {
	logs := &mockLogs{
		results: []*cloudwatchlogs.GetQueryResultsOutput{
			statusOut(cloudwatchlogs.QueryStatusRunning),
		},
	}
	s := newTestSource(&mockCloudWatch{}, logs)

	_, err := s.ErrorCount(context.Background(), "m", testQueryWindow())
	assert.ErrorIs(t, err, ErrQueryTimeout)
}

func TestErrorCount_QueryFailed(t *testing.T) {
	logs := &mockLogs{
		results: []*cloudwatchlogs.GetQueryResultsOutput{
			statusOut(cloudwatchlogs.QueryStatusFailed),
		},
	}
	s := newTestSource(&mockCloudWatch{}, logs)

	_, err := s.ErrorCount(context.Background(), "m", testQueryWindow())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrQueryTimeout)
}

func TestErrorCount_StartFails(t *testing.T) {
	logs := &mockLogs{startErr: errors.New("log group not found")}
	s := newTestSource(&mockCloudWatch{}, logs)

	_, err := s.ErrorCount(context.Background(), "m", testQueryWindow())
	assert.Error(t, err)
}

func TestErrorCount_ContextCancelled(t *testing.T) {
	logs := &mockLogs{
		results: []*cloudwatchlogs.GetQueryResultsOutput{
			statusOut(cloudwatchlogs.QueryStatusRunning),
		},
	}
	s := newTestSource(&mockCloudWatch{}, logs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ErrorCount(ctx, "m", testQueryWindow())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{
			name:   "missing credentials",
			err:    awserr.New("NoCredentialProviders", "no valid providers", nil),
			reason: "credentials",
		},
		{
			name:   "unauthorized",
			err:    awserr.New("AccessDeniedException", "not authorized", nil),
			reason: "permissions",
		},
		{
			name:   "other aws error",
			err:    awserr.New("Throttling", "rate exceeded", nil),
			reason: "cannot reach CloudWatch",
		},
		{
			name:   "plain error",
			err:    errors.New("dial tcp: timeout"),
			reason: "cannot reach CloudWatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSource(&mockCloudWatch{listErr: tt.err}, &mockLogs{})

			err := s.Ping(context.Background())
			require.Error(t, err)

			var connErr *ConnectivityError
			require.ErrorAs(t, err, &connErr)
			assert.Contains(t, connErr.Error(), tt.reason)
		})
	}
}

func TestPing_OK(t *testing.T) {
	s := newTestSource(&mockCloudWatch{listOut: &cloudwatch.ListMetricsOutput{}}, &mockLogs{})
	assert.NoError(t, s.Ping(context.Background()))
}

func TestParseErrorCount(t *testing.T) {
	rows := [][]*cloudwatchlogs.ResultField{
		{
			{Field: aws.String("other"), Value: aws.String("9")},
			{Field: aws.String("error_count"), Value: aws.String("12.0")},
		},
	}
	assert.Equal(t, int64(12), parseErrorCount(rows))
	assert.Zero(t, parseErrorCount(nil))
	assert.Zero(t, parseErrorCount([][]*cloudwatchlogs.ResultField{
		{{Field: aws.String("error_count"), Value: aws.String("not-a-number")}},
	}))
}
