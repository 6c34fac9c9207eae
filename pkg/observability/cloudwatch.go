package observability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// maxDatumsPerCall is the PutMetricData request limit
const maxDatumsPerCall = 1000

// PutMetricDataAPI is the part of the CloudWatch client the exporter uses
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchExporter pushes Prometheus counters to CloudWatch for runtimes
// nothing scrapes, such as Lambda. Each flush sends the increase since the
// last successful flush; series that did not move are skipped.
type CloudWatchExporter struct {
	client    PutMetricDataAPI
	namespace string
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	sent map[string]float64
}

// NewCloudWatchExporter creates an exporter for the counters in gatherer
func NewCloudWatchExporter(client PutMetricDataAPI, namespace string, gatherer prometheus.Gatherer, logger *zap.Logger) *CloudWatchExporter {
	return &CloudWatchExporter{
		client:    client,
		namespace: namespace,
		gatherer:  gatherer,
		logger:    logger,
		now:       time.Now,
		sent:      make(map[string]float64),
	}
}

// Flush sends counter increments accumulated since the previous flush
func (e *CloudWatchExporter) Flush(ctx context.Context) error {
	families, err := e.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	timestamp := e.now()
	pending := make(map[string]float64)
	var data []types.MetricDatum

	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := seriesKey(mf.GetName(), m.GetLabel())
			value := m.GetCounter().GetValue()
			delta := value - e.sent[key]
			if delta <= 0 {
				continue
			}
			pending[key] = value

			dims := make([]types.Dimension, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				dims = append(dims, types.Dimension{Name: aws.String(lp.GetName()), Value: aws.String(lp.GetValue())})
			}
			data = append(data, types.MetricDatum{
				MetricName: aws.String(mf.GetName()),
				Dimensions: dims,
				Value:      aws.Float64(delta),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(timestamp),
			})
		}
	}

	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		if _, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(e.namespace),
			MetricData: data[start:end],
		}); err != nil {
			return fmt.Errorf("put metric data: %w", err)
		}
	}

	for key, value := range pending {
		e.sent[key] = value
	}
	if len(data) > 0 {
		e.logger.Debug("Metrics flushed to CloudWatch", zap.Int("datums", len(data)))
	}
	return nil
}

// Run flushes every interval until ctx is cancelled
func (e *CloudWatchExporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Flush(ctx); err != nil {
				e.logger.Warn("Failed to flush metrics", zap.Error(err))
			}
		}
	}
}

func seriesKey(name string, labels []*dto.LabelPair) string {
	var b strings.Builder
	b.WriteString(name)
	for _, lp := range labels {
		b.WriteByte('|')
		b.WriteString(lp.GetName())
		b.WriteByte('=')
		b.WriteString(lp.GetValue())
	}
	return b.String()
}
