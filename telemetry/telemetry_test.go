package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" Authorization=Basic abc , x-tenant=t1,broken,=v")
	if len(got) != 2 || got["Authorization"] != "Basic abc" || got["x-tenant"] != "t1" {
		t.Fatalf("parseHeaders = %v", got)
	}
	if len(parseHeaders("")) != 0 {
		t.Fatal("empty header string must yield no headers")
	}
}

func TestInit_NoEndpointIsNoop(t *testing.T) {
	tel, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if tel.Tracer == nil || tel.Metrics == nil {
		t.Fatal("noop telemetry must still provide tracer and metrics")
	}
	agree := true
	div := 0.0
	ctx := context.Background()
	tel.Metrics.RecordPrediction(ctx, "A", "ok", time.Millisecond)
	tel.Metrics.RecordComparison(ctx, &agree, &div)
	tel.Metrics.RecordComparison(ctx, nil, nil)
	tel.Metrics.RecordBatchRows(ctx, 99, 1)
	if err := tel.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestInit_InvalidEndpoint(t *testing.T) {
	if _, err := Init(context.Background(), Config{Endpoint: "::not a url"}); err == nil {
		t.Fatal("expected invalid endpoint error")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordPrediction(context.Background(), "A", "ok", 0)
	m.RecordComparison(context.Background(), nil, nil)
	m.RecordBatchRows(context.Background(), 1, 1)
	var tel *Telemetry
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
