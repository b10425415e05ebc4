package core

import "context"

// MLService 是远程模型服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（service）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - 避免循环依赖：领域层不依赖基础设施层
//
// 使用场景：
//   - 模型托管在 TensorFlow Serving / KServe 上（例如 Keras 评分模型）
//   - model.RemoteClassifier / model.RemoteRegressor 通过它完成推理
//
// 实现：
//   - service.TFServingClient 实现此接口
//   - service.KServeClient 实现此接口
type MLService interface {
	// Predict 批量预测
	Predict(ctx context.Context, req *MLPredictRequest) (*MLPredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close(ctx context.Context) error
}

// MLPredictRequest 预测请求
type MLPredictRequest struct {
	// Instances 特征实例列表（每个实例是一个特征向量或补齐后的序列）
	// 格式：[[f1, f2, f3, ...], [f1, f2, f3, ...], ...]
	Instances [][]float64

	// ModelName 模型名称（可选，如果服务支持多模型）
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// SignatureName 签名名称（可选，TF Serving 使用）
	SignatureName string
}

// MLPredictResponse 预测响应
type MLPredictResponse struct {
	// Outputs 每个实例的完整输出向量（与请求实例一一对应）
	// 分类模型为概率分布，回归模型长度为 1
	Outputs [][]float64

	// ModelVersion 模型版本（如果服务返回）
	ModelVersion string
}

// Scores 返回每个实例输出的第一个元素，用于标量输出的回归模型。
func (r *MLPredictResponse) Scores() []float64 {
	scores := make([]float64, 0, len(r.Outputs))
	for _, out := range r.Outputs {
		if len(out) == 0 {
			scores = append(scores, 0)
			continue
		}
		scores = append(scores, out[0])
	}
	return scores
}
