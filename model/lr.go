package model

import (
	"context"
	"math"
)

// LinearModel 是线性回归模型，只输出分数，不提供概率。
//
// 预测原理：
//
//	score = Bias + sum(Weight_i * x_i)
type LinearModel struct {
	Bias    float64   // 偏置项 (Bias / Intercept)
	Weights []float64 // 特征权重，下标与特征顺序一致
}

func (m *LinearModel) Name() string { return "linear" }
func (m *LinearModel) Dim() int     { return len(m.Weights) }

func (m *LinearModel) Predict(_ context.Context, x []float64) (float64, error) {
	if err := checkDim(m, x); err != nil {
		return 0, err
	}
	return dot(m.Weights, x) + m.Bias, nil
}

// LogisticModel 实现了逻辑回归 (Logistic Regression) 二分类模型。
//
// 预测原理：
// 1. 线性加权求和: z = Bias + sum(Weight_i * x_i)
// 2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// 输出分布为 [1-P, P]，类别 1 表示正类。
type LogisticModel struct {
	Bias    float64
	Weights []float64
}

func (m *LogisticModel) Name() string { return "logistic" }
func (m *LogisticModel) Dim() int     { return len(m.Weights) }
func (m *LogisticModel) Classes() int { return 2 }

func (m *LogisticModel) PredictProba(_ context.Context, x []float64) ([]float64, error) {
	if err := checkDim(m, x); err != nil {
		return nil, err
	}
	p := sigmoid(dot(m.Weights, x) + m.Bias)
	return []float64{1 - p, p}, nil
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}

// sigmoid Sigmoid 激活函数。
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

var (
	_ Regressor  = (*LinearModel)(nil)
	_ Classifier = (*LogisticModel)(nil)
)
