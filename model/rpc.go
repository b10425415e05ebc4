package model

import (
	"context"
	"fmt"

	"github.com/rushteam/modelduel/core"
)

// RemoteClassifier 通过 core.MLService（TF Serving、KServe 等）调用托管的分类模型。
// 服务端返回每个实例的概率分布；ApplySoftmax 为 true 时把输出视为 logits 先做 softmax。
type RemoteClassifier struct {
	name         string
	Service      core.MLService
	NumClasses   int // 期望的类别数，0 表示不校验
	InputDim     int // 期望的输入维度，0 表示不校验
	ApplySoftmax bool
}

func NewRemoteClassifier(name string, svc core.MLService, classes int) *RemoteClassifier {
	return &RemoteClassifier{name: name, Service: svc, NumClasses: classes}
}

func (m *RemoteClassifier) Name() string { return m.name }
func (m *RemoteClassifier) Dim() int     { return m.InputDim }
func (m *RemoteClassifier) Classes() int { return m.NumClasses }

// PredictProba 调用远程服务（单个实例，内部走批量接口）。
func (m *RemoteClassifier) PredictProba(ctx context.Context, x []float64) ([]float64, error) {
	if err := checkDim(m, x); err != nil {
		return nil, err
	}
	out, err := predictOne(ctx, m.Service, x)
	if err != nil {
		return nil, err
	}
	if m.NumClasses > 0 && len(out) != m.NumClasses {
		return nil, core.ErrPrediction.Wrapf("%s: expected %d classes, got %d", m.name, m.NumClasses, len(out))
	}
	if m.ApplySoftmax {
		return Softmax(out), nil
	}
	return out, nil
}

// RemoteRegressor 调用只输出标量分数的远程模型。
type RemoteRegressor struct {
	name     string
	Service  core.MLService
	InputDim int
}

func NewRemoteRegressor(name string, svc core.MLService) *RemoteRegressor {
	return &RemoteRegressor{name: name, Service: svc}
}

func (m *RemoteRegressor) Name() string { return m.name }
func (m *RemoteRegressor) Dim() int     { return m.InputDim }

func (m *RemoteRegressor) Predict(ctx context.Context, x []float64) (float64, error) {
	if err := checkDim(m, x); err != nil {
		return 0, err
	}
	out, err := predictOne(ctx, m.Service, x)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func predictOne(ctx context.Context, svc core.MLService, x []float64) ([]float64, error) {
	if svc == nil {
		return nil, core.ErrModelUnavailable.Wrapf("ml service is nil")
	}
	resp, err := svc.Predict(ctx, &core.MLPredictRequest{Instances: [][]float64{x}})
	if err != nil {
		return nil, core.ErrPrediction.Wrap(fmt.Errorf("rpc call: %w", err))
	}
	if len(resp.Outputs) == 0 || len(resp.Outputs[0]) == 0 {
		return nil, core.ErrPrediction.Wrapf("empty response")
	}
	return resp.Outputs[0], nil
}

var (
	_ Classifier = (*RemoteClassifier)(nil)
	_ Regressor  = (*RemoteRegressor)(nil)
)
