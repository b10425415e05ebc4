// Package compare 是对比引擎：对同一个归一化后的输入调用所选适配器，收集结果并给出一致性结论。
//
// 单个适配器或单行的失败只会降级为部分结果，不会中断整体对比；
// 只有所选适配器全部不可用时才直接返回错误，不做任何预测。
package compare

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/feature"
	"github.com/rushteam/modelduel/telemetry"
)

// Engine 对比引擎。构造后只读，可并发使用。
type Engine struct {
	registry   *adapter.Registry
	normalizer *feature.Normalizer
	concurrent bool
	workers    int
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *telemetry.Metrics
	newID      func() string
}

// Option 引擎配置选项
type Option func(*Engine)

// WithNormalizer 设置输入归一化器（特征顺序、文本列）。
func WithNormalizer(n *feature.Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// WithConcurrency 同一输入的多个适配器并发调用；结果顺序不受影响。
func WithConcurrency(on bool) Option {
	return func(e *Engine) { e.concurrent = on }
}

// WithBatchWorkers 批量模式下并发处理的行数，<=1 时逐行处理。
func WithBatchWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithLogger 设置日志
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTelemetry 设置 tracer 与 metric
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t.Tracer
			e.metrics = t.Metrics
		}
	}
}

// WithIDGenerator 设置 Verdict ID 生成函数，默认 uuid。
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// New 创建对比引擎，registry 决定可选适配器及其结果顺序。
func New(registry *adapter.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:   registry,
		normalizer: feature.NewNormalizer(feature.Schema{}),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     noop.NewTracerProvider().Tracer("compare"),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *adapter.Registry    { return e.registry }
func (e *Engine) Normalizer() *feature.Normalizer { return e.normalizer }

// target 是一次对比中的一个适配器位置；err 非空表示加载失败。
type target struct {
	name string
	p    core.PointPredictor
	err  error
}

// resolve 把所选名称解析为按注册顺序排列的适配器。
//   - selected 为空：全部可用适配器
//   - 出现未注册名称：ErrUnknownAdapter
//   - 全部不可用：ErrNoAvailableAdapters
func (e *Engine) resolve(ctx context.Context, selected []string) ([]target, error) {
	if e.registry == nil {
		return nil, core.ErrNoAvailableAdapters.Wrapf("no registry configured")
	}
	if len(selected) == 0 {
		selected = e.registry.Available(ctx)
		if len(selected) == 0 {
			return nil, core.ErrNoAvailableAdapters
		}
	}
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		if !e.registry.Has(name) {
			return nil, core.ErrUnknownAdapter.Wrapf("%q", name)
		}
		want[name] = true
	}

	var (
		targets []target
		causes  []error
	)
	for _, name := range e.registry.Names() {
		if !want[name] {
			continue
		}
		p, err := e.registry.Get(ctx, name)
		if err != nil {
			causes = append(causes, err)
		}
		targets = append(targets, target{name: name, p: p, err: err})
	}
	if len(causes) == len(targets) {
		return nil, core.ErrNoAvailableAdapters.Wrap(errors.Join(causes...))
	}
	return targets, nil
}

// Compare 对一个输入执行对比。
//
// 输入先经过归一化：空输入返回 ErrEmptyInput，不加载也不调用任何适配器。
// 每个适配器的失败记录在自己的位置上，其余适配器照常返回。
func (e *Engine) Compare(ctx context.Context, selected []string, in core.Input) (*core.Verdict, error) {
	ctx, span := e.tracer.Start(ctx, "compare")
	defer span.End()

	norm, err := e.normalizer.Normalize(in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	targets, err := e.resolve(ctx, selected)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	v := e.verdict(ctx, targets, norm)
	span.SetAttributes(attribute.String("verdict.id", v.ID), attribute.Int("verdict.results", len(v.Results)))
	e.metrics.RecordComparison(ctx, v.Agreement, v.Divergence)
	e.logger.Debug("comparison", "id", v.ID, "adapters", names(targets),
		"agreement", boolAttr(v.Agreement), "divergence", floatAttr(v.Divergence))
	return v, nil
}

// verdict 调用全部适配器并计算结论。
func (e *Engine) verdict(ctx context.Context, targets []target, in core.Input) *core.Verdict {
	slots := e.run(ctx, targets, in)
	v := &core.Verdict{ID: e.newID(), Results: slots}
	v.Agreement, v.Divergence = Verdict(slots, scales(targets))
	return v
}

// run 调用每个适配器；slots 下标与 targets 一致，与完成顺序无关。
func (e *Engine) run(ctx context.Context, targets []target, in core.Input) []core.Slot {
	slots := make([]core.Slot, len(targets))
	if !e.concurrent || len(targets) < 2 {
		for i, t := range targets {
			slots[i] = e.predict(ctx, t, in)
		}
		return slots
	}
	var g errgroup.Group
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			slots[i] = e.predict(ctx, t, in)
			return nil
		})
	}
	_ = g.Wait()
	return slots
}

func (e *Engine) predict(ctx context.Context, t target, in core.Input) core.Slot {
	if t.err != nil {
		return core.Slot{Adapter: t.name, Err: t.err}
	}
	ctx, span := e.tracer.Start(ctx, "predict "+t.name,
		trace.WithAttributes(attribute.String("adapter", t.name)))
	defer span.End()

	start := time.Now()
	r, err := adapter.Predict(ctx, t.p, in)
	outcome := "ok"
	if err != nil {
		outcome = errorCode(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("prediction failed", "adapter", t.name, "code", outcome, "error", err)
	}
	e.metrics.RecordPrediction(ctx, t.name, outcome, time.Since(start))
	return core.Slot{Adapter: t.name, Result: r, Err: err}
}

func errorCode(err error) string {
	if de := core.GetDomainError(err); de != nil {
		return de.Code
	}
	return "error"
}

func names(targets []target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.name
	}
	return out
}

func scales(targets []target) []core.Scale {
	out := make([]core.Scale, len(targets))
	for i, t := range targets {
		if t.p != nil {
			out[i] = t.p.Scale()
		}
	}
	return out
}

func boolAttr(b *bool) any {
	if b == nil {
		return "undefined"
	}
	return *b
}

func floatAttr(f *float64) any {
	if f == nil {
		return "undefined"
	}
	return *f
}
