package feature

import (
	"fmt"

	"github.com/rushteam/modelduel/core"
)

// Transformer 是适配器的预处理步骤（向量化器 / 分词器 / 缩放器）。
// 构造后参数固定，不可按调用配置；实现必须可并发使用。
type Transformer interface {
	Name() string
	// InputShape 返回该预处理接受的输入形态
	InputShape() core.Shape
	// Transform 把输入转换为模型可用的数值向量
	Transform(in core.Input) ([]float64, error)
}

// Identity 直接返回数值向量，可选校验维度。
type Identity struct {
	Dim int // 0 表示不校验
}

func (t Identity) Name() string           { return "identity" }
func (t Identity) InputShape() core.Shape { return core.ShapeVector }

func (t Identity) Transform(in core.Input) ([]float64, error) {
	if err := expectShape(t, in); err != nil {
		return nil, err
	}
	if t.Dim > 0 && len(in.Vector) != t.Dim {
		return nil, core.ErrShapeMismatch.Wrapf("expected %d features, got %d", t.Dim, len(in.Vector))
	}
	return in.Vector, nil
}

// ZScoreScaler Z-score 标准化（Standardization）
// 公式: z = (x - μ) / σ
// 特点: 均值变为 0，标准差变为 1；σ 为 0 的维度保持原值
type ZScoreScaler struct {
	Mean []float64 // 特征均值，下标与特征顺序一致
	Std  []float64 // 特征标准差
}

// NewZScoreScaler 创建 Z-score 标准化器
func NewZScoreScaler(mean, std []float64) (*ZScoreScaler, error) {
	if len(mean) == 0 || len(mean) != len(std) {
		return nil, fmt.Errorf("zscore: mean/std size mismatch (%d vs %d)", len(mean), len(std))
	}
	return &ZScoreScaler{Mean: mean, Std: std}, nil
}

func (s *ZScoreScaler) Name() string           { return "zscore" }
func (s *ZScoreScaler) InputShape() core.Shape { return core.ShapeVector }

func (s *ZScoreScaler) Transform(in core.Input) ([]float64, error) {
	if err := expectShape(s, in); err != nil {
		return nil, err
	}
	if len(in.Vector) != len(s.Mean) {
		return nil, core.ErrShapeMismatch.Wrapf("zscore expects %d features, got %d", len(s.Mean), len(in.Vector))
	}
	out := make([]float64, len(in.Vector))
	for i, v := range in.Vector {
		if s.Std[i] > 0 {
			out[i] = (v - s.Mean[i]) / s.Std[i]
		} else {
			out[i] = v
		}
	}
	return out, nil
}

// MinMaxScaler Min-Max 归一化
// 公式: x' = (x - min) / (max - min)
// 特点: 将值缩放到 [0, 1] 区间（训练集范围内）
type MinMaxScaler struct {
	Min []float64
	Max []float64
}

// NewMinMaxScaler 创建 Min-Max 归一化器
func NewMinMaxScaler(min, max []float64) (*MinMaxScaler, error) {
	if len(min) == 0 || len(min) != len(max) {
		return nil, fmt.Errorf("minmax: min/max size mismatch (%d vs %d)", len(min), len(max))
	}
	return &MinMaxScaler{Min: min, Max: max}, nil
}

func (s *MinMaxScaler) Name() string           { return "minmax" }
func (s *MinMaxScaler) InputShape() core.Shape { return core.ShapeVector }

func (s *MinMaxScaler) Transform(in core.Input) ([]float64, error) {
	if err := expectShape(s, in); err != nil {
		return nil, err
	}
	if len(in.Vector) != len(s.Min) {
		return nil, core.ErrShapeMismatch.Wrapf("minmax expects %d features, got %d", len(s.Min), len(in.Vector))
	}
	out := make([]float64, len(in.Vector))
	for i, v := range in.Vector {
		rangeVal := s.Max[i] - s.Min[i]
		if rangeVal > 0 {
			out[i] = (v - s.Min[i]) / rangeVal
		} else {
			out[i] = v
		}
	}
	return out, nil
}

func expectShape(t Transformer, in core.Input) error {
	if in.Shape != t.InputShape() {
		return core.ErrShapeMismatch.Wrapf("%s expects %s input, got %s", t.Name(), t.InputShape(), in.Shape)
	}
	return nil
}

var (
	_ Transformer = Identity{}
	_ Transformer = (*ZScoreScaler)(nil)
	_ Transformer = (*MinMaxScaler)(nil)
)
