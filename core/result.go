package core

import "encoding/json"

// Result 是单个适配器的预测结果。
// Confidence 仅当适配器具备 ConfidencePredictor 能力时非空，取值 [0, 1]。
type Result struct {
	Label      Label    `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// NewResult 创建不带置信度的结果。
func NewResult(l Label) *Result { return &Result{Label: l} }

// NewConfidentResult 创建带置信度的结果。
func NewConfidentResult(l Label, confidence float64) *Result {
	c := confidence
	return &Result{Label: l, Confidence: &c}
}

// Slot 是 Verdict 中某个适配器对应的位置：要么有 Result，要么有 Err（失败标记）。
type Slot struct {
	Adapter string
	Result  *Result
	Err     error
}

// OK 表示该位置产出了标签。
func (s Slot) OK() bool { return s.Err == nil && s.Result != nil }

func (s Slot) MarshalJSON() ([]byte, error) {
	out := struct {
		Adapter string  `json:"adapter"`
		Result  *Result `json:"result,omitempty"`
		Error   string  `json:"error,omitempty"`
		Code    string  `json:"code,omitempty"`
	}{Adapter: s.Adapter, Result: s.Result}
	if s.Err != nil {
		out.Error = s.Err.Error()
		if de := GetDomainError(s.Err); de != nil {
			out.Code = de.Code
		}
	}
	return json.Marshal(out)
}

// Verdict 是 ComparisonVerdict。
//
//   - Results 按注册顺序排列（A 在 B 之前）
//   - Agreement 仅在至少两个位置都产出了可比较的标签时非空
//   - Divergence 仅在 Agreement 非空且标签为有序数值时非空
type Verdict struct {
	ID         string   `json:"id"`
	Results    []Slot   `json:"results"`
	Agreement  *bool    `json:"agreement,omitempty"`
	Divergence *float64 `json:"divergence,omitempty"`
}

// Slot 按适配器名查找位置。
func (v *Verdict) Slot(adapter string) (Slot, bool) {
	for _, s := range v.Results {
		if s.Adapter == adapter {
			return s, true
		}
	}
	return Slot{}, false
}

// Agreed 在 Agreement 已定义且为 true 时返回 true。
func (v *Verdict) Agreed() bool { return v.Agreement != nil && *v.Agreement }
