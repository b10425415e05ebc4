package model

import (
	"context"
	"fmt"
	"math"
)

// EmbeddingBagModel 是文本序列分类模型：词向量求平均后接一层全连接 + softmax。
//
// 输入是分词器输出的定长序列（词下标，0 为 padding），
// 与 Keras 中 Embedding -> GlobalAveragePooling1D -> Dense(softmax) 的结构一致。
type EmbeddingBagModel struct {
	// Embeddings[词下标] = 词向量，下标 0 保留给 padding
	Embeddings [][]float64
	// Output 输出层
	Output DenseLayer
}

func (m *EmbeddingBagModel) Name() string { return "embedding_bag" }

// Dim 序列长度由分词器固定，这里不校验。
func (m *EmbeddingBagModel) Dim() int { return 0 }

func (m *EmbeddingBagModel) Classes() int { return len(m.Output.Weights) }

func (m *EmbeddingBagModel) embeddingDim() int {
	for _, e := range m.Embeddings {
		if len(e) > 0 {
			return len(e)
		}
	}
	return 0
}

// Validate 检查词向量维度与输出层输入维度一致。
func (m *EmbeddingBagModel) Validate() error {
	dim := m.embeddingDim()
	if dim == 0 {
		return fmt.Errorf("embedding_bag: empty embeddings")
	}
	if len(m.Output.Weights) == 0 {
		return fmt.Errorf("embedding_bag: empty output layer")
	}
	if got := len(m.Output.Weights[0]); got != dim {
		return fmt.Errorf("embedding_bag: output layer expects %d inputs, embedding dim is %d", got, dim)
	}
	return nil
}

func (m *EmbeddingBagModel) PredictProba(_ context.Context, seq []float64) ([]float64, error) {
	dim := m.embeddingDim()
	pooled := make([]float64, dim)
	n := 0
	for _, v := range seq {
		id := int(math.Round(v))
		// 0 为 padding；越界下标视为未登录词直接跳过
		if id <= 0 || id >= len(m.Embeddings) {
			continue
		}
		for i := 0; i < dim && i < len(m.Embeddings[id]); i++ {
			pooled[i] += m.Embeddings[id][i]
		}
		n++
	}
	if n > 0 {
		for i := range pooled {
			pooled[i] /= float64(n)
		}
	}
	return Softmax(dense(m.Output.Weights, m.Output.Biases, pooled)), nil
}

var _ Classifier = (*EmbeddingBagModel)(nil)
