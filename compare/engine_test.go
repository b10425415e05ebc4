package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/feature"
	"github.com/rushteam/modelduel/model"
)

// stubPredictor 按输入文本返回预设的标签和置信度。
type stubPredictor struct {
	name  string
	shape core.Shape
	scale core.Scale
	fn    func(core.Input) (core.Label, float64, error)
	calls atomic.Int32
}

func (s *stubPredictor) Name() string      { return s.name }
func (s *stubPredictor) Shape() core.Shape { return s.shape }
func (s *stubPredictor) Scale() core.Scale { return s.scale }

func (s *stubPredictor) Predict(ctx context.Context, in core.Input) (core.Label, error) {
	l, _, err := s.PredictWithConfidence(ctx, in)
	return l, err
}

func (s *stubPredictor) PredictWithConfidence(_ context.Context, in core.Input) (core.Label, float64, error) {
	s.calls.Add(1)
	if in.Shape != s.shape {
		return core.Label{}, 0, core.ErrShapeMismatch
	}
	return s.fn(in)
}

// reviews 是评论 -> (评分, 置信度) 的预设表。
func reviewStub(name string, table map[string][2]float64) *stubPredictor {
	return &stubPredictor{
		name:  name,
		shape: core.ShapeText,
		scale: core.RatingScale(1, 5),
		fn: func(in core.Input) (core.Label, float64, error) {
			r, ok := table[in.Text]
			if !ok {
				return core.Label{}, 0, core.ErrPrediction.Wrapf("no stub for %q", in.Text)
			}
			return core.NumericLabel(r[0]), r[1], nil
		},
	}
}

func newEngine(t *testing.T, opts []Option, ps ...core.PointPredictor) *Engine {
	t.Helper()
	reg := adapter.NewRegistry()
	for _, p := range ps {
		if err := reg.Add(p); err != nil {
			t.Fatal(err)
		}
	}
	return New(reg, opts...)
}

func TestCompare_ReviewsAgree(t *testing.T) {
	a := reviewStub("A", map[string][2]float64{"absolutely loved it, five stars": {5, 0.92}})
	b := reviewStub("B", map[string][2]float64{"absolutely loved it, five stars": {5, 0.88}})

	for _, concurrent := range []bool{false, true} {
		t.Run(fmt.Sprintf("concurrent=%v", concurrent), func(t *testing.T) {
			e := newEngine(t, []Option{WithConcurrency(concurrent)}, a, b)
			v, err := e.Compare(context.Background(), []string{"A", "B"}, core.TextInput("absolutely loved it, five stars"))
			if err != nil {
				t.Fatal(err)
			}
			if len(v.Results) != 2 || v.Results[0].Adapter != "A" || v.Results[1].Adapter != "B" {
				t.Fatalf("results = %+v", v.Results)
			}
			if *v.Results[0].Result.Confidence != 0.92 || *v.Results[1].Result.Confidence != 0.88 {
				t.Fatalf("confidences = %v, %v", *v.Results[0].Result.Confidence, *v.Results[1].Result.Confidence)
			}
			if v.Agreement == nil || !*v.Agreement {
				t.Fatalf("agreement = %v", v.Agreement)
			}
			if v.Divergence == nil || *v.Divergence != 0 {
				t.Fatalf("divergence = %v", v.Divergence)
			}
			if v.ID == "" {
				t.Fatal("verdict id is empty")
			}
		})
	}
}

func TestCompare_ReviewsDisagree(t *testing.T) {
	a := reviewStub("A", map[string][2]float64{"terrible, waste of money": {1, 0.7}})
	b := reviewStub("B", map[string][2]float64{"terrible, waste of money": {2, 0.6}})
	e := newEngine(t, nil, a, b)

	v, err := e.Compare(context.Background(), nil, core.TextInput("terrible, waste of money"))
	if err != nil {
		t.Fatal(err)
	}
	if v.Agreement == nil || *v.Agreement {
		t.Fatalf("agreement = %v, want false", v.Agreement)
	}
	if v.Divergence == nil || *v.Divergence != 1 {
		t.Fatalf("divergence = %v, want 1", v.Divergence)
	}
}

func TestCompare_EmptyInputInvokesNoModel(t *testing.T) {
	a := reviewStub("A", nil)
	b := reviewStub("B", nil)
	e := newEngine(t, nil, a, b)

	for _, text := range []string{"", "   "} {
		_, err := e.Compare(context.Background(), []string{"A", "B"}, core.TextInput(text))
		if !core.IsEmptyInput(err) {
			t.Fatalf("err = %v, want EMPTY_INPUT", err)
		}
	}
	if a.calls.Load()+b.calls.Load() != 0 {
		t.Fatal("a model was invoked for empty input")
	}
}

func TestCompare_FourFeatureVector(t *testing.T) {
	schema := feature.Schema{Fields: []string{"feature1", "feature2", "feature3", "feature4"}}
	sa := &model.SoftmaxModel{Weights: [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}, {0.1, 0.1, 0.1, 0.1}}}
	sb := &model.SoftmaxModel{Weights: [][]float64{{0, 0, 0, 1}, {0, 0, 1, 0}, {0, 1, 0, 0}, {1, 0, 0, 0}, {0, 0, 0, 0}}}
	a, err := adapter.New("A", sa)
	if err != nil {
		t.Fatal(err)
	}
	b, err := adapter.New("B", sb)
	if err != nil {
		t.Fatal(err)
	}
	e := newEngine(t, []Option{WithNormalizer(feature.NewNormalizer(schema))}, b, a)

	in, err := e.Normalizer().Fields(map[string]float64{"feature1": 1, "feature2": 2, "feature3": 3, "feature4": 4})
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Compare(context.Background(), []string{"A", "B"}, in)
	if err != nil {
		t.Fatal(err)
	}
	// 注册顺序为 B、A，结果按注册顺序
	if len(v.Results) != 2 || v.Results[0].Adapter != "B" || v.Results[1].Adapter != "A" {
		t.Fatalf("results = %+v", v.Results)
	}
	for _, s := range v.Results {
		if !s.OK() {
			t.Fatalf("slot %s failed: %v", s.Adapter, s.Err)
		}
		if s.Result.Label.Value < 1 || s.Result.Label.Value > 5 {
			t.Fatalf("rating out of range: %v", s.Result.Label)
		}
	}
	// A: argmax 在第 4 类 -> 4；B: argmax 在第 1 类 -> 1
	if a, _ := v.Slot("A"); a.Result.Label.Value != 4 {
		t.Fatalf("A = %v", a.Result.Label)
	}
	if b, _ := v.Slot("B"); b.Result.Label.Value != 1 {
		t.Fatalf("B = %v", b.Result.Label)
	}
	if v.Agreement == nil || *v.Agreement || *v.Divergence != 3 {
		t.Fatalf("agreement = %v, divergence = %v", v.Agreement, v.Divergence)
	}
}

func TestCompare_RowInputUsesSchema(t *testing.T) {
	schema := feature.Schema{Fields: []string{"x", "y"}}
	p, _ := adapter.New("A", &model.LinearModel{Weights: []float64{1, 10}})
	e := newEngine(t, []Option{WithNormalizer(feature.NewNormalizer(schema))}, p)

	v, err := e.Compare(context.Background(), nil, core.RowInput(map[string]string{"y": "2", "x": "1"}))
	if err != nil {
		t.Fatal(err)
	}
	if v.Results[0].Result.Label.Value != 21 {
		t.Fatalf("label = %v, want 21", v.Results[0].Result.Label)
	}
	if v.Agreement != nil {
		t.Fatal("agreement must be undefined for a single adapter")
	}
}

func TestCompare_FailureMarkerKeepsOtherResult(t *testing.T) {
	text := reviewStub("A", map[string][2]float64{"ok": {4, 0.9}})
	vector := &stubPredictor{
		name:  "B",
		shape: core.ShapeVector,
		scale: core.RatingScale(1, 5),
		fn:    func(core.Input) (core.Label, float64, error) { return core.NumericLabel(4), 1, nil },
	}
	e := newEngine(t, nil, text, vector)

	v, err := e.Compare(context.Background(), []string{"A", "B"}, core.TextInput("ok"))
	if err != nil {
		t.Fatal(err)
	}
	if !v.Results[0].OK() {
		t.Fatalf("A failed: %v", v.Results[0].Err)
	}
	if !core.IsShapeMismatch(v.Results[1].Err) {
		t.Fatalf("B err = %v, want SHAPE_MISMATCH", v.Results[1].Err)
	}
	if v.Agreement != nil || v.Divergence != nil {
		t.Fatal("agreement must be undefined when a slot failed")
	}
}

func TestCompare_UnavailableAdapters(t *testing.T) {
	reg := adapter.NewRegistry()
	_ = reg.Add(reviewStub("A", map[string][2]float64{"hi": {3, 0.5}}))
	_ = reg.Register("B", func(context.Context) (core.PointPredictor, error) {
		return nil, errors.New("model file missing")
	})
	e := New(reg)
	ctx := context.Background()

	v, err := e.Compare(ctx, []string{"A", "B"}, core.TextInput("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if !v.Results[0].OK() || !core.IsUnavailable(v.Results[1].Err) {
		t.Fatalf("results = %+v", v.Results)
	}

	_, err = e.Compare(ctx, []string{"B"}, core.TextInput("hi"))
	if !errors.Is(err, core.ErrNoAvailableAdapters) {
		t.Fatalf("all unavailable err = %v", err)
	}

	// 未指定时只使用可用的适配器
	v, err = e.Compare(ctx, nil, core.TextInput("hi"))
	if err != nil || len(v.Results) != 1 || v.Results[0].Adapter != "A" {
		t.Fatalf("default selection = %+v, %v", v, err)
	}

	_, err = e.Compare(ctx, []string{"A", "C"}, core.TextInput("hi"))
	if !errors.Is(err, core.ErrUnknownAdapter) {
		t.Fatalf("unknown adapter err = %v", err)
	}
}

func TestCompare_IncomparableScales(t *testing.T) {
	a := reviewStub("A", map[string][2]float64{"x": {3, 0.5}})
	b := &stubPredictor{
		name:  "B",
		shape: core.ShapeText,
		scale: core.Scale{Kind: core.LabelCategory},
		fn:    func(core.Input) (core.Label, float64, error) { return core.CategoryLabel("positive"), 0.9, nil },
	}
	e := newEngine(t, nil, a, b)
	v, err := e.Compare(context.Background(), nil, core.TextInput("x"))
	if err != nil {
		t.Fatal(err)
	}
	if v.Agreement != nil {
		t.Fatal("agreement must be undefined for incomparable scales")
	}
}

func TestCompare_IDGenerator(t *testing.T) {
	a := reviewStub("A", map[string][2]float64{"x": {3, 0.5}})
	e := newEngine(t, []Option{WithIDGenerator(func() string { return "fixed-id" })}, a)
	v, err := e.Compare(context.Background(), nil, core.TextInput("x"))
	if err != nil || v.ID != "fixed-id" {
		t.Fatalf("id = %q, %v", v.ID, err)
	}
}

func TestAgreementAndDivergence(t *testing.T) {
	labels := []core.Label{
		core.NumericLabel(1), core.NumericLabel(3), core.NumericLabel(5),
		core.CategoryLabel("positive"), core.CategoryLabel("negative"),
	}
	for _, x := range labels {
		for _, y := range labels {
			if Agreement(x, y) != Agreement(y, x) {
				t.Fatalf("agreement not symmetric for %v, %v", x, y)
			}
			d, ok := Divergence(x, y)
			if !ok {
				if x.IsNumeric() && y.IsNumeric() {
					t.Fatalf("divergence undefined for numeric %v, %v", x, y)
				}
				continue
			}
			if d < 0 {
				t.Fatalf("divergence(%v, %v) = %v < 0", x, y, d)
			}
			if (d == 0) != x.Equal(y) {
				t.Fatalf("divergence(%v, %v) = %v, equal = %v", x, y, d, x.Equal(y))
			}
			d2, _ := Divergence(y, x)
			if d != d2 {
				t.Fatalf("divergence not symmetric for %v, %v", x, y)
			}
		}
	}
	if d, ok := Divergence(core.NumericLabel(1), core.NumericLabel(4), core.NumericLabel(2)); !ok || d != 3 {
		t.Fatalf("three-way divergence = %v, %v", d, ok)
	}
	if _, ok := Divergence(core.NumericLabel(1)); ok {
		t.Fatal("divergence of a single label must be undefined")
	}
}

func TestVerdict_Symmetric(t *testing.T) {
	ok := func(name string, l core.Label) core.Slot {
		return core.Slot{Adapter: name, Result: core.NewResult(l)}
	}
	scale := []core.Scale{core.RatingScale(1, 5), core.RatingScale(1, 5)}
	ab, dab := Verdict([]core.Slot{ok("A", core.NumericLabel(2)), ok("B", core.NumericLabel(4))}, scale)
	ba, dba := Verdict([]core.Slot{ok("B", core.NumericLabel(4)), ok("A", core.NumericLabel(2))}, scale)
	if *ab != *ba || *dab != *dba || *dab != 2 {
		t.Fatalf("verdict not symmetric: %v/%v vs %v/%v", *ab, *dab, *ba, *dba)
	}

	mismatched := []core.Scale{core.RatingScale(1, 5), core.RatingScale(1, 10)}
	if a, _ := Verdict([]core.Slot{ok("A", core.NumericLabel(2)), ok("B", core.NumericLabel(2))}, mismatched); a != nil {
		t.Fatal("different rating bounds must not be comparable")
	}
}

func TestVerdict_ScalesComparedPairwise(t *testing.T) {
	ok := func(name string, l core.Label) core.Slot {
		return core.Slot{Adapter: name, Result: core.NewResult(l)}
	}
	slots := []core.Slot{ok("A", core.NumericLabel(3)), ok("B", core.NumericLabel(3)), ok("C", core.NumericLabel(3))}

	tests := []struct {
		name    string
		scales  []core.Scale
		defined bool
	}{
		{"unbounded then two bounds", []core.Scale{{Kind: core.LabelNumeric}, core.RatingScale(1, 5), core.RatingScale(1, 10)}, false},
		{"two bounds then unbounded", []core.Scale{core.RatingScale(1, 5), core.RatingScale(1, 10), {Kind: core.LabelNumeric}}, false},
		{"unbounded with same bounds", []core.Scale{{Kind: core.LabelNumeric}, core.RatingScale(1, 5), core.RatingScale(1, 5)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agreement, divergence := Verdict(slots, tt.scales)
			if (agreement != nil) != tt.defined || (divergence != nil) != tt.defined {
				t.Fatalf("agreement = %v, divergence = %v, want defined = %v", agreement, divergence, tt.defined)
			}
		})
	}
}

func TestSlotJSON(t *testing.T) {
	a := reviewStub("A", map[string][2]float64{"x": {5, 0.92}})
	b := reviewStub("B", nil)
	e := newEngine(t, nil, a, b)
	v, _ := e.Compare(context.Background(), nil, core.TextInput("x"))
	data, err := v.Results[1].MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"code":"PREDICTION_FAILED"`) {
		t.Fatalf("slot json = %s", data)
	}
}
