package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// 本地模型产物的类型名（JSON 中的 "type" 字段）。
const (
	TypeLinear       = "linear"
	TypeLogistic     = "logistic"
	TypeSoftmax      = "softmax"
	TypeDNN          = "dnn"
	TypeEmbeddingBag = "embedding_bag"
)

// artifact 是模型产物文件的统一外层结构，按 type 决定其余字段。
//
//	{"type": "softmax", "weights": [[...], ...], "bias": [...]}
//	{"type": "linear", "weights": [...], "bias": 0.1}
//	{"type": "dnn", "layers": [{"weights": [[...]], "bias": [...]}, ...]}
//	{"type": "embedding_bag", "embeddings": [[...], ...], "output": {"weights": [[...]], "bias": [...]}}
type artifact struct {
	Type       string          `json:"type"`
	Weights    json.RawMessage `json:"weights"`
	Bias       json.RawMessage `json:"bias"`
	Layers     []DenseLayer    `json:"layers"`
	Embeddings [][]float64     `json:"embeddings"`
	Output     DenseLayer      `json:"output"`
}

// Load 从 JSON 文件加载本地模型。
// 文件不存在或格式错误时直接返回错误，由调用方（注册表）标记为不可用。
func Load(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Decode 解析模型产物。
func Decode(data []byte) (Model, error) {
	var raw artifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	switch raw.Type {
	case TypeLinear, TypeLogistic:
		var w []float64
		var b float64
		if err := unmarshalField(raw.Weights, &w, "weights"); err != nil {
			return nil, err
		}
		if len(raw.Bias) > 0 {
			if err := json.Unmarshal(raw.Bias, &b); err != nil {
				return nil, fmt.Errorf("parse bias: %w", err)
			}
		}
		if len(w) == 0 {
			return nil, fmt.Errorf("%s: weights are required", raw.Type)
		}
		if raw.Type == TypeLinear {
			return &LinearModel{Bias: b, Weights: w}, nil
		}
		return &LogisticModel{Bias: b, Weights: w}, nil

	case TypeSoftmax:
		var w [][]float64
		var b []float64
		if err := unmarshalField(raw.Weights, &w, "weights"); err != nil {
			return nil, err
		}
		if len(raw.Bias) > 0 {
			if err := json.Unmarshal(raw.Bias, &b); err != nil {
				return nil, fmt.Errorf("parse bias: %w", err)
			}
		}
		if len(w) < 2 {
			return nil, fmt.Errorf("softmax: at least 2 classes are required, got %d", len(w))
		}
		for i := range w {
			if len(w[i]) != len(w[0]) {
				return nil, fmt.Errorf("softmax: class %d has %d weights, want %d", i, len(w[i]), len(w[0]))
			}
		}
		if len(b) != 0 && len(b) != len(w) {
			return nil, fmt.Errorf("softmax: bias size %d != classes %d", len(b), len(w))
		}
		return &SoftmaxModel{Weights: w, Bias: b}, nil

	case TypeDNN:
		m := &DNNModel{Layers: raw.Layers}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil

	case TypeEmbeddingBag:
		m := &EmbeddingBagModel{Embeddings: raw.Embeddings, Output: raw.Output}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil

	case "":
		return nil, fmt.Errorf("model type is required")
	default:
		return nil, fmt.Errorf("unsupported model type: %s", raw.Type)
	}
}

func unmarshalField(data json.RawMessage, v any, field string) error {
	if len(data) == 0 {
		return fmt.Errorf("%s is required", field)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", field, err)
	}
	return nil
}
