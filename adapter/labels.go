package adapter

import (
	"fmt"
	"math"

	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/model"
	"github.com/rushteam/modelduel/pkg/dsl"
)

// LabelScheme 把模型原始输出（概率分布或分数）映射为标签。
// Scale 在适配器构造阶段调用一次，用于校验方案与模型是否匹配。
type LabelScheme interface {
	Scale(m model.Model) (core.Scale, error)
	FromProba(proba []float64) (core.Label, error)
	FromScore(score float64) (core.Label, error)
}

// Rating 离散评分：label = Min + argmax。
// Min 默认 1（0 基类别下标 -> 1 基评分）。
// Max 为 0 时由分类模型的类别数推出；配置了 Max 但与类别数不一致时构造失败。
type Rating struct {
	Min int
	Max int
}

func (r Rating) min() int {
	if r.Min == 0 {
		return 1
	}
	return r.Min
}

func (r Rating) Scale(m model.Model) (core.Scale, error) {
	lo := r.min()
	switch mm := m.(type) {
	case model.Classifier:
		classes := mm.Classes()
		if classes <= 0 {
			// 远程模型未声明类别数，只能依赖配置的上界
			if r.Max <= lo {
				return core.Scale{}, fmt.Errorf("rating: max is required when the model does not report its classes")
			}
			return core.RatingScale(float64(lo), float64(r.Max)), nil
		}
		hi := lo + classes - 1
		if r.Max != 0 && r.Max != hi {
			return core.Scale{}, fmt.Errorf("rating: max %d does not match %d classes starting at %d", r.Max, classes, lo)
		}
		return core.RatingScale(float64(lo), float64(hi)), nil
	default:
		if r.Max <= lo {
			return core.Scale{}, fmt.Errorf("rating: max is required for score models")
		}
		return core.RatingScale(float64(lo), float64(r.Max)), nil
	}
}

func (r Rating) FromProba(proba []float64) (core.Label, error) {
	idx, _ := model.Argmax(proba)
	if idx < 0 {
		return core.Label{}, core.ErrPrediction.Wrapf("empty probability vector")
	}
	return core.NumericLabel(float64(r.min() + idx)), nil
}

// FromScore 四舍五入到最近的评分并截断到 [Min, Max]。
func (r Rating) FromScore(score float64) (core.Label, error) {
	if math.IsNaN(score) {
		return core.Label{}, core.ErrPrediction.Wrapf("score is NaN")
	}
	v := math.Round(score)
	v = math.Max(v, float64(r.min()))
	v = math.Min(v, float64(r.Max))
	return core.NumericLabel(v), nil
}

// Categories 无序类别：label = Names[argmax]。
// 用于分数模型时只支持二分类（score >= 0.5 取 Names[1]）。
type Categories struct {
	Names []string
}

func (c Categories) Scale(m model.Model) (core.Scale, error) {
	if len(c.Names) == 0 {
		return core.Scale{}, fmt.Errorf("categories: names are required")
	}
	switch mm := m.(type) {
	case model.Classifier:
		if n := mm.Classes(); n > 0 && n != len(c.Names) {
			return core.Scale{}, fmt.Errorf("categories: %d names for %d classes", len(c.Names), n)
		}
	default:
		if len(c.Names) != 2 {
			return core.Scale{}, fmt.Errorf("categories: score models support exactly 2 names, got %d", len(c.Names))
		}
	}
	return core.Scale{Kind: core.LabelCategory}, nil
}

func (c Categories) FromProba(proba []float64) (core.Label, error) {
	idx, _ := model.Argmax(proba)
	if idx < 0 || idx >= len(c.Names) {
		return core.Label{}, core.ErrPrediction.Wrapf("class index %d out of %d categories", idx, len(c.Names))
	}
	return core.CategoryLabel(c.Names[idx]), nil
}

func (c Categories) FromScore(score float64) (core.Label, error) {
	if score >= 0.5 {
		return core.CategoryLabel(c.Names[1]), nil
	}
	return core.CategoryLabel(c.Names[0]), nil
}

// Score 直接把回归分数作为数值标签（无界）。
type Score struct{}

func (Score) Scale(model.Model) (core.Scale, error) {
	return core.Scale{Kind: core.LabelNumeric}, nil
}

func (Score) FromProba(proba []float64) (core.Label, error) {
	_, p := model.Argmax(proba)
	return core.NumericLabel(p), nil
}

func (Score) FromScore(score float64) (core.Label, error) {
	return core.NumericLabel(score), nil
}

// Expr 用 CEL 表达式计算标签，Out 声明输出刻度（零值为无界数值）。
type Expr struct {
	Expr *dsl.LabelExpr
	Out  core.Scale
}

func (e Expr) Scale(model.Model) (core.Scale, error) {
	if e.Expr == nil {
		return core.Scale{}, fmt.Errorf("expr: expression is required")
	}
	if e.Out.Kind == "" {
		return core.Scale{Kind: core.LabelNumeric}, nil
	}
	return e.Out, nil
}

func (e Expr) FromProba(proba []float64) (core.Label, error) {
	idx, p := model.Argmax(proba)
	l, err := e.Expr.Eval(p, idx, proba)
	if err != nil {
		return core.Label{}, core.ErrPrediction.Wrap(err)
	}
	return l, nil
}

func (e Expr) FromScore(score float64) (core.Label, error) {
	l, err := e.Expr.Eval(score, -1, nil)
	if err != nil {
		return core.Label{}, core.ErrPrediction.Wrap(err)
	}
	return l, nil
}

var (
	_ LabelScheme = Rating{}
	_ LabelScheme = Categories{}
	_ LabelScheme = Score{}
	_ LabelScheme = Expr{}
)
