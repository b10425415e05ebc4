// Package modelduel 对同一输入并排运行多个独立训练的模型，比较它们的预测（Model Duel）。
//
// 设计要点：
// - Adapter-first: 每个模型（本地产物或 TF Serving / KServe 远程服务）都包装为统一的适配器
// - Partial results: 单个适配器或单行的失败只降级为部分结果，不中断整体对比
// - 配置驱动：适配器类型通过 config.Register 注册，按 YAML 声明组装
package modelduel

import (
	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/compare"
	"github.com/rushteam/modelduel/core"
)

// 轻量 facade：便于用户直接 import "modelduel" 使用核心抽象。
type (
	Input               = core.Input
	Label               = core.Label
	Result              = core.Result
	Verdict             = core.Verdict
	PointPredictor      = core.PointPredictor
	ConfidencePredictor = core.ConfidencePredictor
	Registry            = adapter.Registry
	Engine              = compare.Engine
)

var (
	NewRegistry = adapter.NewRegistry
	NewEngine   = compare.New
)
