package compare

import "github.com/rushteam/modelduel/core"

// Agreement 精确相等：所有标签与第一个相同。与参数顺序无关。
func Agreement(labels ...core.Label) bool {
	if len(labels) == 0 {
		return true
	}
	for _, l := range labels[1:] {
		if !l.Equal(labels[0]) {
			return false
		}
	}
	return true
}

// Divergence 数值标签之间的距离：两个标签时为 |a-b|，多个时为 max-min。
// 存在类别标签或少于两个标签时未定义（ok 为 false）。
func Divergence(labels ...core.Label) (d float64, ok bool) {
	if len(labels) < 2 {
		return 0, false
	}
	lo, hi := labels[0].Value, labels[0].Value
	for _, l := range labels {
		if !l.IsNumeric() {
			return 0, false
		}
		lo = min(lo, l.Value)
		hi = max(hi, l.Value)
	}
	return hi - lo, true
}

// Verdict 根据各位置的结果计算一致性与距离。
//
// 一致性只在以下条件全部满足时有定义：
//   - 至少两个位置
//   - 每个位置都产出了标签
//   - 各适配器的刻度两两可比较
//
// 距离只在一致性有定义且标签为有序数值时有定义。
func Verdict(slots []core.Slot, scales []core.Scale) (agreement *bool, divergence *float64) {
	if len(slots) < 2 || len(scales) != len(slots) {
		return nil, nil
	}
	labels := make([]core.Label, len(slots))
	for i, s := range slots {
		if !s.OK() {
			return nil, nil
		}
		if s.Result.Label.Kind != slots[0].Result.Label.Kind {
			return nil, nil
		}
		// Comparable 不可传递（无界刻度与任意有界刻度可比），需逐对检查
		for _, prev := range scales[:i] {
			if !scales[i].Comparable(prev) {
				return nil, nil
			}
		}
		labels[i] = s.Result.Label
	}
	agree := Agreement(labels...)
	agreement = &agree
	if d, ok := Divergence(labels...); ok {
		divergence = &d
	}
	return agreement, divergence
}
