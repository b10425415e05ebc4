package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/compare"
	"github.com/rushteam/modelduel/core"
)

// styles 终端输出样式。
type styles struct {
	title  lipgloss.Style
	name   lipgloss.Style
	stars  lipgloss.Style
	agree  lipgloss.Style
	differ lipgloss.Style
	muted  lipgloss.Style
	failed lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fab283")),
		name:   lipgloss.NewStyle().Bold(true).Width(12),
		stars:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f5a742")),
		agree:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7fd88f")),
		differ: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e06c75")),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),
		failed: lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75")),
	}
}

// isStarScale 1..10 以内的整数评分按星级显示。
func isStarScale(s core.Scale) bool {
	return s.Kind == core.LabelNumeric && s.Bounded && s.Min >= 0 && s.Max <= 10 && s.Max == math.Trunc(s.Max)
}

// stars 把评分渲染成 ★★★★☆；非星级刻度返回空串。
func stars(l core.Label, s core.Scale) string {
	if !isStarScale(s) || !l.IsNumeric() || l.Value != math.Trunc(l.Value) || !s.Contains(l) {
		return ""
	}
	n := int(l.Value)
	return strings.Repeat("★", n) + strings.Repeat("☆", int(s.Max)-n)
}

func plural(n float64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%g %ss", n, unit)
}

// banner 一致性结论。
func banner(st styles, v *core.Verdict, scale core.Scale) string {
	switch {
	case v.Agreement == nil:
		return st.muted.Render("agreement undefined (a model failed or labels are not comparable)")
	case *v.Agreement:
		return st.agree.Render("✔ models agree")
	case v.Divergence != nil && isStarScale(scale):
		return st.differ.Render("✘ models differ by " + plural(*v.Divergence, "star"))
	case v.Divergence != nil:
		return st.differ.Render(fmt.Sprintf("✘ models differ by %.4g", *v.Divergence))
	default:
		return st.differ.Render("✘ models disagree")
	}
}

// renderVerdict 渲染一次对比结果。scales 为各适配器的刻度（来自注册表快照）。
func renderVerdict(v *core.Verdict, scales map[string]core.Scale) string {
	st := newStyles()
	var b strings.Builder
	b.WriteString(st.title.Render("Verdict "+v.ID) + "\n")

	var first core.Scale
	for i, s := range v.Results {
		scale := scales[s.Adapter]
		if i == 0 {
			first = scale
		}
		line := st.name.Render(s.Adapter)
		if !s.OK() {
			b.WriteString(line + st.failed.Render("no prediction: "+s.Err.Error()) + "\n")
			continue
		}
		line += s.Result.Label.String()
		if sv := stars(s.Result.Label, scale); sv != "" {
			line += "  " + st.stars.Render(sv)
		}
		if s.Result.Confidence != nil {
			line += st.muted.Render(fmt.Sprintf("  confidence %.1f%%", *s.Result.Confidence*100))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(banner(st, v, first) + "\n")
	return b.String()
}

// renderReport 渲染批量对比汇总。
func renderReport(r *compare.BatchReport) string {
	st := newStyles()
	var b strings.Builder
	b.WriteString(st.title.Render("Batch comparison") + "\n")
	fmt.Fprintf(&b, "rows        %d\n", r.Rows)
	fmt.Fprintf(&b, "predicted   %d\n", r.Succeeded)
	if failed := r.Failed(); len(failed) > 0 {
		idx := make([]string, len(failed))
		for i, row := range failed {
			idx[i] = fmt.Sprint(row)
		}
		b.WriteString(st.failed.Render(fmt.Sprintf("failed      %d (row index %s)", len(failed), strings.Join(idx, ", "))) + "\n")
	}
	for _, col := range r.Columns {
		name := strings.TrimPrefix(col, compare.ColumnPrefix)
		if n := r.AdapterErrors[name]; n > 0 {
			b.WriteString(st.failed.Render(fmt.Sprintf("%-12s%d cells without prediction", name, n)) + "\n")
		}
	}
	if total := r.Agreements + r.Disagreements; total > 0 {
		b.WriteString(st.agree.Render(fmt.Sprintf("agreement   %d/%d rows", r.Agreements, total)) + "\n")
	}
	return b.String()
}

// renderAdapters 渲染适配器列表。
func renderAdapters(infos []adapter.Info) string {
	st := newStyles()
	var b strings.Builder
	b.WriteString(st.title.Render("Adapters") + "\n")
	for _, info := range infos {
		line := st.name.Render(info.Name)
		switch info.Status {
		case adapter.StatusReady:
			line += st.agree.Render(info.Status.String()) +
				st.muted.Render(fmt.Sprintf("  %s  %s  %s", info.Capability, info.Shape, scaleString(info.Scale)))
		case adapter.StatusUnavailable:
			line += st.failed.Render(info.Status.String() + ": " + info.Error)
		default:
			line += st.muted.Render(info.Status.String())
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func scaleString(s core.Scale) string {
	if s.Kind == core.LabelNumeric && s.Bounded {
		return fmt.Sprintf("%g..%g", s.Min, s.Max)
	}
	return string(s.Kind)
}

// scalesOf 从注册表快照中取已加载适配器的刻度。
func scalesOf(infos []adapter.Info) map[string]core.Scale {
	out := make(map[string]core.Scale, len(infos))
	for _, info := range infos {
		if info.Status == adapter.StatusReady {
			out[info.Name] = info.Scale
		}
	}
	return out
}
