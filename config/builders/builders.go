// Package builders 在 init 中注册内置适配器类型，供配置驱动使用。
//
//	import _ "github.com/rushteam/modelduel/config/builders"
package builders

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/config"
	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/feature"
	"github.com/rushteam/modelduel/model"
	"github.com/rushteam/modelduel/pkg/conv"
	"github.com/rushteam/modelduel/pkg/dsl"
	"github.com/rushteam/modelduel/service"
)

func init() {
	for _, t := range []string{model.TypeLinear, model.TypeLogistic, model.TypeSoftmax, model.TypeDNN, model.TypeEmbeddingBag} {
		config.Register(t, buildLocal)
	}
	config.Register(string(service.ServiceTypeTFServing), buildRemote)
	config.Register(string(service.ServiceTypeKServe), buildRemote)
}

// buildLocal 加载本地 JSON 模型产物；产物中的 type 必须与配置一致。
func buildLocal(ctx context.Context, cfg config.AdapterConfig) (core.PointPredictor, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%s: path is required", cfg.Name)
	}
	m, err := model.Load(cfg.Path)
	if err != nil {
		return nil, err
	}
	if m.Name() != cfg.Type {
		return nil, fmt.Errorf("%s: artifact %s holds a %s model, configured as %s", cfg.Name, cfg.Path, m.Name(), cfg.Type)
	}
	return newAdapter(ctx, cfg, m)
}

// buildRemote 构建 TF Serving / KServe 上托管的模型。
//
// params:
//   - output: proba（默认，输出概率分布）或 score（标量分数）
//   - classes: 期望的类别数，0 表示不校验
//   - input_dim: 期望的输入维度，0 表示不校验
//   - softmax: 服务端输出为 logits 时设为 true
//   - health_check: 构建时是否检查服务可用（默认 true）
func buildRemote(ctx context.Context, cfg config.AdapterConfig) (core.PointPredictor, error) {
	sc := cfg.Service
	sc.Type = service.ServiceType(cfg.Type)
	svc, err := service.NewMLService(&sc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	if conv.ConfigGet(cfg.Params, "health_check", true) {
		if err := service.TestConnection(ctx, svc); err != nil {
			_ = svc.Close(ctx)
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
	}

	dim := int(conv.ConfigGetInt64(cfg.Params, "input_dim", 0))
	var m model.Model
	switch output := conv.ConfigGet(cfg.Params, "output", "proba"); output {
	case "proba":
		rc := model.NewRemoteClassifier(cfg.Name, svc, int(conv.ConfigGetInt64(cfg.Params, "classes", 0)))
		rc.InputDim = dim
		rc.ApplySoftmax = conv.ConfigGet(cfg.Params, "softmax", false)
		m = rc
	case "score":
		rr := model.NewRemoteRegressor(cfg.Name, svc)
		rr.InputDim = dim
		m = rr
	default:
		return nil, fmt.Errorf("%s: unknown output %q (want proba or score)", cfg.Name, output)
	}
	return newAdapter(ctx, cfg, m)
}

func newAdapter(ctx context.Context, cfg config.AdapterConfig, m model.Model) (core.PointPredictor, error) {
	var opts []adapter.Option
	if cfg.Preprocess != "" {
		t, err := feature.LoadTransformer(ctx, cfg.Preprocess)
		if err != nil {
			return nil, fmt.Errorf("%s: preprocess: %w", cfg.Name, err)
		}
		opts = append(opts, adapter.WithPreprocess(t))
	}
	scheme, err := labelScheme(cfg.Labels)
	if err != nil {
		return nil, fmt.Errorf("%s: labels: %w", cfg.Name, err)
	}
	if scheme != nil {
		opts = append(opts, adapter.WithLabels(scheme))
	}
	return adapter.New(cfg.Name, m, opts...)
}

// labelScheme 把标签配置转为 adapter.LabelScheme；scheme 为空时返回 nil（使用默认方案）。
func labelScheme(lc config.LabelConfig) (adapter.LabelScheme, error) {
	switch strings.ToLower(lc.Scheme) {
	case "":
		return nil, nil
	case "rating":
		return adapter.Rating{Min: lc.Min, Max: lc.Max}, nil
	case "categories", "category":
		if len(lc.Names) == 0 {
			return nil, fmt.Errorf("categories: names are required")
		}
		return adapter.Categories{Names: lc.Names}, nil
	case "score":
		return adapter.Score{}, nil
	case "expr":
		e, err := dsl.NewLabelExpr(lc.Expr)
		if err != nil {
			return nil, err
		}
		out := core.Scale{Kind: core.LabelNumeric}
		switch lc.Output {
		case "", "number":
		case "rating":
			if lc.Max <= lc.Min {
				return nil, fmt.Errorf("expr: rating output needs min < max")
			}
			out = core.RatingScale(float64(lc.Min), float64(lc.Max))
		case "category":
			out = core.Scale{Kind: core.LabelCategory}
		default:
			return nil, fmt.Errorf("expr: unknown output %q", lc.Output)
		}
		return adapter.Expr{Expr: e, Out: out}, nil
	default:
		return nil, fmt.Errorf("unknown scheme %q", lc.Scheme)
	}
}
