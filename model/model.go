package model

import "context"

// Model 是所有模型的公共部分。
// Dim 返回期望的输入向量维度，0 表示不校验（例如远程模型由服务端校验）。
type Model interface {
	Name() string
	Dim() int
}

// Regressor 只能输出一个标量分数（没有概率分布）。
// 具体实现可以是本地线性模型或远程回归服务。
type Regressor interface {
	Model
	Predict(ctx context.Context, x []float64) (float64, error)
}

// Classifier 输出候选类别上的概率分布，下标即类别索引。
// 适配器据此选择 ConfidencePredictor 能力。
type Classifier interface {
	Model
	Classes() int
	PredictProba(ctx context.Context, x []float64) ([]float64, error)
}
