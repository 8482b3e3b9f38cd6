package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics emits operational counters to CloudWatch. A nil *Metrics is
// a valid no-op, so callers never need to guard their instrumentation.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a metrics emitter for the given namespace.
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// IncrementCounter emits a count-of-one metric.
func (m *Metrics) IncrementCounter(ctx context.Context, name string, dimensions map[string]string) {
	m.put(ctx, name, 1, types.StandardUnitCount, dimensions)
}

// RecordDuration emits a latency metric in milliseconds.
func (m *Metrics) RecordDuration(ctx context.Context, name string, d time.Duration, dimensions map[string]string) {
	m.put(ctx, name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

// RecordValue emits an arbitrary gauge-style value.
func (m *Metrics) RecordValue(ctx context.Context, name string, value float64, dimensions map[string]string) {
	m.put(ctx, name, value, types.StandardUnitNone, dimensions)
}

func (m *Metrics) put(ctx context.Context, name string, value float64, unit types.StandardUnit, dimensions map[string]string) {
	if m == nil || m.client == nil {
		return
	}

	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: dims,
	}

	// Metric delivery is best-effort; a failed put never fails the
	// operation being measured.
	_, _ = m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []types.MetricDatum{datum},
	})
}

// Metric names emitted by the canvas backend.
const (
	MetricCanvasSaves    = "CanvasSaves"
	MetricCanvasLoads    = "CanvasLoads"
	MetricSaveFailures   = "CanvasSaveFailures"
	MetricStreamSessions = "ChatStreamSessions"
	MetricStreamFailures = "ChatStreamFailures"
	MetricNodesDeleted   = "NodesDeleted"
)
