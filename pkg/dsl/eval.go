package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/modelduel/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义模型输出相关的变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("score", cel.DoubleType),
		cel.Variable("index", cel.IntType),
		cel.Variable("proba", cel.ListType(cel.DoubleType)),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// LabelExpr 把模型原始输出映射为标签，使用 CEL (Common Expression Language) 实现。
//
// 可用变量：
//   - score：回归模型的输出分数；分类模型为最大概率
//   - index：分类模型的 argmax 下标（回归模型为 -1）
//   - proba：分类模型的概率分布（回归模型为空列表）
//
// 表达式结果：数字 -> 数值标签，字符串 -> 类别标签。
//
// 示例：
//   - `index + 1` → 1-5 星评分
//   - `score >= 0.5 ? "positive" : "negative"` → 二分类
//   - `int(score * 4.0) + 1` → 把 [0, 1] 的分数映射为 1-5 星
type LabelExpr struct {
	src string
	prg cel.Program
}

// NewLabelExpr 编译表达式；编译一次，之后可并发求值。
func NewLabelExpr(expr string) (*LabelExpr, error) {
	if expr == "" {
		return nil, fmt.Errorf("label expression is empty")
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	switch ast.OutputType() {
	case cel.IntType, cel.DoubleType, cel.UintType, cel.StringType, cel.DynType:
	default:
		return nil, fmt.Errorf("label expression must return number or string, got %v", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	return &LabelExpr{src: expr, prg: prg}, nil
}

func (e *LabelExpr) String() string { return e.src }

// Eval 对一次模型输出求值。proba 为空表示回归输出。
func (e *LabelExpr) Eval(score float64, index int, proba []float64) (core.Label, error) {
	if proba == nil {
		proba = []float64{}
	}
	out, _, err := e.prg.Eval(map[string]any{
		"score": score,
		"index": int64(index),
		"proba": proba,
	})
	if err != nil {
		return core.Label{}, fmt.Errorf("eval error: %v", err)
	}
	switch v := out.Value().(type) {
	case int64:
		return core.NumericLabel(float64(v)), nil
	case uint64:
		return core.NumericLabel(float64(v)), nil
	case float64:
		return core.NumericLabel(v), nil
	case string:
		return core.CategoryLabel(v), nil
	default:
		return core.Label{}, fmt.Errorf("expression must return number or string, got %T", out.Value())
	}
}
