package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "modelduel"

// Metrics 保存全部 metric 仪表，并发安全。
type Metrics struct {
	// 每个适配器的预测次数，按 adapter + outcome（ok 或错误码）区分
	Predictions       metric.Int64Counter
	PredictionLatency metric.Float64Histogram

	// 对比次数，按 agreement（true / false / undefined）区分
	Comparisons metric.Int64Counter
	Divergence  metric.Float64Histogram

	// 批量模式的行数，按 status（ok / failed）区分
	BatchRows metric.Int64Counter
}

// NewMetrics 创建 metric 仪表；未注册 MeterProvider 时为 no-op。
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Predictions, err = meter.Int64Counter("modelduel.predictions",
		metric.WithDescription("Adapter predictions partitioned by adapter and outcome"))
	if err != nil {
		return nil, err
	}

	m.PredictionLatency, err = meter.Float64Histogram("modelduel.prediction.duration",
		metric.WithDescription("Adapter prediction latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	m.Comparisons, err = meter.Int64Counter("modelduel.comparisons",
		metric.WithDescription("Comparisons partitioned by agreement outcome"))
	if err != nil {
		return nil, err
	}

	m.Divergence, err = meter.Float64Histogram("modelduel.divergence",
		metric.WithDescription("Distance between numeric labels of compared adapters"))
	if err != nil {
		return nil, err
	}

	m.BatchRows, err = meter.Int64Counter("modelduel.batch.rows",
		metric.WithDescription("Batch rows partitioned by status"),
		metric.WithUnit("{row}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPrediction 记录一次适配器调用。
func (m *Metrics) RecordPrediction(ctx context.Context, adapter, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("adapter", adapter),
		attribute.String("outcome", outcome),
	)
	m.Predictions.Add(ctx, 1, attrs)
	m.PredictionLatency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}

// RecordComparison 记录一次对比；agreement 为 nil 时记为 undefined。
func (m *Metrics) RecordComparison(ctx context.Context, agreement *bool, divergence *float64) {
	if m == nil {
		return
	}
	outcome := "undefined"
	if agreement != nil {
		if *agreement {
			outcome = "true"
		} else {
			outcome = "false"
		}
	}
	m.Comparisons.Add(ctx, 1, metric.WithAttributes(attribute.String("agreement", outcome)))
	if divergence != nil {
		m.Divergence.Record(ctx, *divergence)
	}
}

// RecordBatchRows 记录批量处理结果。
func (m *Metrics) RecordBatchRows(ctx context.Context, ok, failed int) {
	if m == nil {
		return
	}
	if ok > 0 {
		m.BatchRows.Add(ctx, int64(ok), metric.WithAttributes(attribute.String("status", "ok")))
	}
	if failed > 0 {
		m.BatchRows.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("status", "failed")))
	}
}
