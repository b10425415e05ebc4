// Package adapter 把一个模型和它的预处理步骤包装成统一的预测能力。
//
// 构造时根据模型能力选择实现：
//   - model.Classifier -> *ConfidenceAdapter（实现 core.ConfidencePredictor）
//   - model.Regressor  -> *PointAdapter（只实现 core.PointPredictor）
//
// 调用方通过类型断言判断能力，不需要逐次探测：
//
//	if cp, ok := p.(core.ConfidencePredictor); ok { ... }
package adapter

import (
	"context"
	"fmt"
	"math"

	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/feature"
	"github.com/rushteam/modelduel/model"
)

// 适配器能力
const (
	CapabilityPoint      = "point"
	CapabilityConfidence = "confidence"
)

// Capability 返回预测器的能力名称。
func Capability(p core.PointPredictor) string {
	if _, ok := p.(core.ConfidencePredictor); ok {
		return CapabilityConfidence
	}
	return CapabilityPoint
}

// Option 适配器配置选项
type Option func(*options)

type options struct {
	preprocess feature.Transformer
	labels     LabelScheme
}

// WithPreprocess 设置预处理步骤（分词器、向量化器、缩放器）。
// 不设置时适配器接受数值向量，并按模型维度校验。
func WithPreprocess(t feature.Transformer) Option {
	return func(o *options) { o.preprocess = t }
}

// WithLabels 设置标签方案。分类模型默认 Rating{Min: 1}，回归模型默认 Score{}。
func WithLabels(s LabelScheme) Option {
	return func(o *options) { o.labels = s }
}

// New 构造适配器；返回值的具体类型由模型能力决定。
func New(name string, m model.Model, opts ...Option) (core.PointPredictor, error) {
	if name == "" {
		return nil, core.ErrInvalidConfig.Wrapf("adapter name is required")
	}
	if m == nil {
		return nil, core.ErrInvalidConfig.Wrapf("adapter %s: model is nil", name)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.preprocess == nil {
		o.preprocess = feature.Identity{Dim: m.Dim()}
	}

	switch mm := m.(type) {
	case model.Classifier:
		if o.labels == nil {
			o.labels = Rating{Min: 1}
		}
		b, err := newBase(name, m, o)
		if err != nil {
			return nil, err
		}
		return &ConfidenceAdapter{base: b, model: mm}, nil
	case model.Regressor:
		if o.labels == nil {
			o.labels = Score{}
		}
		b, err := newBase(name, m, o)
		if err != nil {
			return nil, err
		}
		return &PointAdapter{base: b, model: mm}, nil
	default:
		return nil, core.ErrInvalidConfig.Wrapf("adapter %s: model %s can neither classify nor regress", name, m.Name())
	}
}

// base 是两种适配器共享的部分，构造后只读。
type base struct {
	name   string
	dim    int
	scale  core.Scale
	pre    feature.Transformer
	labels LabelScheme
}

func newBase(name string, m model.Model, o options) (base, error) {
	scale, err := o.labels.Scale(m)
	if err != nil {
		return base{}, core.ErrInvalidConfig.Wrap(fmt.Errorf("adapter %s: %w", name, err))
	}
	return base{
		name:   name,
		dim:    m.Dim(),
		scale:  scale,
		pre:    o.preprocess,
		labels: o.labels,
	}, nil
}

func (b *base) Name() string      { return b.name }
func (b *base) Shape() core.Shape { return b.pre.InputShape() }
func (b *base) Scale() core.Scale { return b.scale }

// encode 校验输入形态并执行预处理，输出模型输入向量。
func (b *base) encode(in core.Input) ([]float64, error) {
	if in.Shape != b.Shape() {
		return nil, core.ErrShapeMismatch.Wrapf("%s expects %s input, got %s", b.name, b.Shape(), in.Shape)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return nil, core.ErrEmptyInput
	}
	x, err := b.pre.Transform(in)
	if err != nil {
		return nil, classify(err)
	}
	if b.dim > 0 && len(x) != b.dim {
		return nil, core.ErrShapeMismatch.Wrapf("%s expects %d features, got %d", b.name, b.dim, len(x))
	}
	return x, nil
}

// checkLabel 保证标签落在声明的刻度内。
func (b *base) checkLabel(l core.Label) error {
	if !b.scale.Contains(l) {
		return core.ErrPrediction.Wrapf("%s produced label %s outside its scale", b.name, l)
	}
	return nil
}

// classify 领域错误原样返回，其它错误归为推理失败。
func classify(err error) error {
	if core.IsDomainError(err) {
		return err
	}
	return core.ErrPrediction.Wrap(err)
}

// PointAdapter 只输出标签的适配器（底层模型没有概率输出）。
type PointAdapter struct {
	base
	model model.Regressor
}

func (a *PointAdapter) Predict(ctx context.Context, in core.Input) (core.Label, error) {
	x, err := a.encode(in)
	if err != nil {
		return core.Label{}, err
	}
	score, err := a.model.Predict(ctx, x)
	if err != nil {
		return core.Label{}, classify(err)
	}
	l, err := a.labels.FromScore(score)
	if err != nil {
		return core.Label{}, classify(err)
	}
	if err := a.checkLabel(l); err != nil {
		return core.Label{}, err
	}
	return l, nil
}

// ConfidenceAdapter 输出标签和置信度（概率分布的最大值）。
type ConfidenceAdapter struct {
	base
	model model.Classifier
}

func (a *ConfidenceAdapter) Predict(ctx context.Context, in core.Input) (core.Label, error) {
	l, _, err := a.PredictWithConfidence(ctx, in)
	return l, err
}

func (a *ConfidenceAdapter) PredictWithConfidence(ctx context.Context, in core.Input) (core.Label, float64, error) {
	x, err := a.encode(in)
	if err != nil {
		return core.Label{}, 0, err
	}
	proba, err := a.model.PredictProba(ctx, x)
	if err != nil {
		return core.Label{}, 0, classify(err)
	}
	_, conf := model.Argmax(proba)
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return core.Label{}, 0, core.ErrPrediction.Wrapf("%s: confidence %v outside [0, 1]", a.name, conf)
	}
	l, err := a.labels.FromProba(proba)
	if err != nil {
		return core.Label{}, 0, classify(err)
	}
	if err := a.checkLabel(l); err != nil {
		return core.Label{}, 0, err
	}
	return l, conf, nil
}

// Predict 统一调用入口：具备置信度能力时一并返回置信度。
func Predict(ctx context.Context, p core.PointPredictor, in core.Input) (*core.Result, error) {
	if cp, ok := p.(core.ConfidencePredictor); ok {
		l, c, err := cp.PredictWithConfidence(ctx, in)
		if err != nil {
			return nil, err
		}
		return core.NewConfidentResult(l, c), nil
	}
	l, err := p.Predict(ctx, in)
	if err != nil {
		return nil, err
	}
	return core.NewResult(l), nil
}

var (
	_ core.PointPredictor      = (*PointAdapter)(nil)
	_ core.ConfidencePredictor = (*ConfidenceAdapter)(nil)
)
