package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metric names emitted by the interpretation pipeline
const (
	MetricScreensLoaded      = "ScreensLoaded"
	MetricScreenFallbacks    = "ScreenFallbacks"
	MetricScreenDecodeErrors = "ScreenDecodeErrors"
	MetricBindingMisses      = "BindingMisses"
	MetricActionsEnqueued    = "ActionsEnqueued"
	MetricActionsSynced      = "ActionsSynced"
	MetricActionsRetried     = "ActionsRetried"
	MetricActionsFailed      = "ActionsFailed"
	MetricRenderLatency      = "RenderLatencyMs"
)

// Metrics records counters and timings for the interpreter. When no
// CloudWatch client is configured (on-device and in tests) it keeps
// counts in memory and logs them instead of publishing.
type Metrics struct {
	client    *cloudwatch.Client
	namespace string
	logger    *zap.Logger

	mu       sync.Mutex
	counters map[string]float64
}

// NewMetrics creates a metrics recorder. client may be nil.
func NewMetrics(client *cloudwatch.Client, namespace string, logger *zap.Logger) *Metrics {
	if namespace == "" {
		namespace = "FieldUI"
	}
	return &Metrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
		counters:  make(map[string]float64),
	}
}

// IncrementCounter adds one to the named counter
func (m *Metrics) IncrementCounter(ctx context.Context, name string, dimensions ...Dimension) {
	m.AddToCounter(ctx, name, 1, dimensions...)
}

// AddToCounter adds a value to the named counter
func (m *Metrics) AddToCounter(ctx context.Context, name string, value float64, dimensions ...Dimension) {
	m.mu.Lock()
	m.counters[name] += value
	m.mu.Unlock()

	if m.client == nil {
		return
	}

	m.publish(ctx, name, value, types.StandardUnitCount, dimensions)
}

// RecordDuration records a duration in milliseconds
func (m *Metrics) RecordDuration(ctx context.Context, name string, d time.Duration, dimensions ...Dimension) {
	ms := float64(d.Milliseconds())

	if m.client == nil {
		m.logger.Debug("metric duration",
			zap.String("metric", name),
			zap.Float64("ms", ms),
		)
		return
	}

	m.publish(ctx, name, ms, types.StandardUnitMilliseconds, dimensions)
}

// Counter returns the in-memory value of a counter. Used by tests and
// by the health endpoint when CloudWatch is not configured.
func (m *Metrics) Counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Dimension is a metric dimension key/value pair
type Dimension struct {
	Name  string
	Value string
}

// ScreenDimension tags a metric with the screen it was recorded for
func ScreenDimension(screen string) Dimension {
	return Dimension{Name: "Screen", Value: screen}
}

// ActionDimension tags a metric with the action name it was recorded for
func ActionDimension(action string) Dimension {
	return Dimension{Name: "Action", Value: action}
}

func (m *Metrics) publish(ctx context.Context, name string, value float64, unit types.StandardUnit, dimensions []Dimension) {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
	for _, d := range dimensions {
		datum.Dimensions = append(datum.Dimensions, types.Dimension{
			Name:  aws.String(d.Name),
			Value: aws.String(d.Value),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []types.MetricDatum{datum},
	})
	if err != nil {
		// Metrics are best-effort; never fail the caller
		m.logger.Warn("failed to publish metric",
			zap.String("metric", name),
			zap.Error(err),
		)
	}
}
