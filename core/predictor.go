package core

import "context"

// PointPredictor 是模型适配器的最小抽象：输入归一化后的 Input，输出一个标签。
//
// 约定：
//   - Shape 返回该适配器接受的输入形态，形态不符时 Predict 返回 ErrShapeMismatch
//   - Scale 返回标签取值空间，用于判断两个适配器的结果能否比较
//   - 构造完成后不可变，可被并发调用
type PointPredictor interface {
	Name() string
	Shape() Shape
	Scale() Scale
	Predict(ctx context.Context, in Input) (Label, error)
}

// ConfidencePredictor 在 PointPredictor 基础上额外给出置信度（概率分布的最大值）。
// 只有底层模型能输出概率时，适配器才会在构造阶段实现此接口；调用方不应逐次探测。
type ConfidencePredictor interface {
	PointPredictor
	PredictWithConfidence(ctx context.Context, in Input) (Label, float64, error)
}
