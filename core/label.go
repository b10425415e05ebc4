package core

import (
	"encoding/json"
	"strconv"
)

// LabelKind 区分有序数值标签与无序类别标签。
type LabelKind string

const (
	LabelNumeric  LabelKind = "numeric"  // 数值标签，有序（例如 1-5 星评分）
	LabelCategory LabelKind = "category" // 类别标签，无序
)

// Label 是模型输出的标量标签。
type Label struct {
	Kind  LabelKind
	Value float64 // Kind == LabelNumeric 时有效
	Name  string  // Kind == LabelCategory 时有效
}

// NumericLabel 创建数值标签。
func NumericLabel(v float64) Label { return Label{Kind: LabelNumeric, Value: v} }

// CategoryLabel 创建类别标签。
func CategoryLabel(name string) Label { return Label{Kind: LabelCategory, Name: name} }

func (l Label) IsNumeric() bool { return l.Kind == LabelNumeric }

// Equal 精确相等：类型相同且值相同。
func (l Label) Equal(o Label) bool {
	if l.Kind != o.Kind {
		return false
	}
	if l.Kind == LabelNumeric {
		return l.Value == o.Value
	}
	return l.Name == o.Name
}

// String 返回导出到 CSV 时使用的文本形式；整数值不带小数点。
func (l Label) String() string {
	if l.Kind == LabelCategory {
		return l.Name
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64)
}

// MarshalJSON 数值标签输出为数字，类别标签输出为字符串。
func (l Label) MarshalJSON() ([]byte, error) {
	if l.Kind == LabelCategory {
		return json.Marshal(l.Name)
	}
	return json.Marshal(l.Value)
}

// UnmarshalJSON 与 MarshalJSON 对称，用于缓存回读。
func (l *Label) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*l = NumericLabel(val)
	case string:
		*l = CategoryLabel(val)
	default:
		return ErrPrediction.Wrapf("label must be number or string, got %T", v)
	}
	return nil
}

// Scale 描述某个适配器输出标签的取值空间。
// Bounded 为 true 时 Min/Max 有效（闭区间），例如评分模型的 [1, 5]。
type Scale struct {
	Kind    LabelKind `json:"kind"`
	Bounded bool      `json:"bounded,omitempty"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
}

// RatingScale 返回 [min, max] 的有界数值刻度。
func RatingScale(min, max float64) Scale {
	return Scale{Kind: LabelNumeric, Bounded: true, Min: min, Max: max}
}

// Contains 检查标签是否落在刻度内。
func (s Scale) Contains(l Label) bool {
	if l.Kind != s.Kind {
		return false
	}
	if s.Kind == LabelNumeric && s.Bounded {
		return l.Value >= s.Min && l.Value <= s.Max
	}
	return true
}

// Comparable 两个刻度的标签能否直接比较：类型一致，且同为有界时区间一致。
func (s Scale) Comparable(o Scale) bool {
	if s.Kind != o.Kind {
		return false
	}
	if s.Kind == LabelNumeric && s.Bounded && o.Bounded {
		return s.Min == o.Min && s.Max == o.Max
	}
	return true
}
