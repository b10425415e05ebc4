package model

import (
	"context"
	"math"
)

// SoftmaxModel 是多项逻辑回归（Multinomial LR），每个类别一组权重。
//
//	logit_k = Bias[k] + sum(Weights[k][i] * x_i)
//	P_k     = softmax(logit)_k
//
// 评分模型（1-5 星）通常就是 5 个类别的 SoftmaxModel。
type SoftmaxModel struct {
	Weights [][]float64 // [类别][特征]
	Bias    []float64   // [类别]
}

func (m *SoftmaxModel) Name() string { return "softmax" }
func (m *SoftmaxModel) Classes() int { return len(m.Weights) }

func (m *SoftmaxModel) Dim() int {
	if len(m.Weights) == 0 {
		return 0
	}
	return len(m.Weights[0])
}

func (m *SoftmaxModel) PredictProba(_ context.Context, x []float64) ([]float64, error) {
	if err := checkDim(m, x); err != nil {
		return nil, err
	}
	return Softmax(dense(m.Weights, m.Bias, x)), nil
}

// dense 计算一层全连接：out[j] = b[j] + sum(W[j][k] * in[k])。
func dense(w [][]float64, b []float64, in []float64) []float64 {
	out := make([]float64, len(w))
	for j := range w {
		sum := 0.0
		if j < len(b) {
			sum = b[j]
		}
		for k := 0; k < len(w[j]) && k < len(in); k++ {
			sum += w[j][k] * in[k]
		}
		out[j] = sum
	}
	return out
}

// Softmax 将 logits 转为概率分布（数值稳定版本）。
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Argmax 返回最大值下标与最大值；相同最大值取第一个。
func Argmax(v []float64) (int, float64) {
	if len(v) == 0 {
		return -1, 0
	}
	idx, max := 0, v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > max {
			idx, max = i, v[i]
		}
	}
	return idx, max
}

var _ Classifier = (*SoftmaxModel)(nil)
