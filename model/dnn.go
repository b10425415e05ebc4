package model

import (
	"context"
	"fmt"

	"github.com/rushteam/modelduel/core"
)

// DNNModel 是多层全连接分类网络（MLP）。
//
// 工程特征：
//   - 实时性：好（本地推理）
//   - 计算复杂度：中等（多层全连接）
//   - 可解释性：弱（黑盒模型）
//
// 结构：隐藏层使用 ReLU，最后一层输出 logits 后做 softmax。
type DNNModel struct {
	// Layers 是每层的参数，按前向顺序排列
	Layers []DenseLayer
}

// DenseLayer 是一层全连接。
// Weights[neuron][input] = weight，Biases[neuron] = bias
type DenseLayer struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"bias"`
}

// Validate 检查相邻层的维度是否衔接。
func (m *DNNModel) Validate() error {
	if len(m.Layers) == 0 {
		return fmt.Errorf("dnn: no layers")
	}
	for i, l := range m.Layers {
		if len(l.Weights) == 0 {
			return fmt.Errorf("dnn: layer %d has no neurons", i)
		}
		if len(l.Biases) != 0 && len(l.Biases) != len(l.Weights) {
			return fmt.Errorf("dnn: layer %d bias size %d != neurons %d", i, len(l.Biases), len(l.Weights))
		}
		if i > 0 && len(l.Weights[0]) != len(m.Layers[i-1].Weights) {
			return fmt.Errorf("dnn: layer %d expects %d inputs, previous layer has %d neurons",
				i, len(l.Weights[0]), len(m.Layers[i-1].Weights))
		}
	}
	return nil
}

func (m *DNNModel) Name() string { return "dnn" }

func (m *DNNModel) Dim() int {
	if len(m.Layers) == 0 || len(m.Layers[0].Weights) == 0 {
		return 0
	}
	return len(m.Layers[0].Weights[0])
}

func (m *DNNModel) Classes() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return len(m.Layers[len(m.Layers)-1].Weights)
}

// PredictProba 前向传播后输出类别分布。
func (m *DNNModel) PredictProba(_ context.Context, x []float64) ([]float64, error) {
	if err := checkDim(m, x); err != nil {
		return nil, err
	}
	return Softmax(m.forward(x)), nil
}

// forward 前向传播，返回最后一层 logits。
func (m *DNNModel) forward(input []float64) []float64 {
	current := input
	for i, l := range m.Layers {
		next := dense(l.Weights, l.Biases, current)
		// ReLU 激活（最后一层除外）
		if i < len(m.Layers)-1 {
			for j := range next {
				next[j] = relu(next[j])
			}
		}
		current = next
	}
	return current
}

// relu ReLU 激活函数。
func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// checkDim 校验输入维度，不符时返回 ErrShapeMismatch。
func checkDim(m Model, x []float64) error {
	if dim := m.Dim(); dim > 0 && len(x) != dim {
		return core.ErrShapeMismatch.Wrapf("%s expects %d features, got %d", m.Name(), dim, len(x))
	}
	return nil
}

var _ Classifier = (*DNNModel)(nil)
