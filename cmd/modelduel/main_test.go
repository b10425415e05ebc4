package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/modelduel/compare"
	"github.com/rushteam/modelduel/core"
)

func ptr[T any](v T) *T { return &v }

func TestStars(t *testing.T) {
	rating := core.RatingScale(1, 5)
	tests := []struct {
		name  string
		label core.Label
		scale core.Scale
		want  string
	}{
		{"five", core.NumericLabel(5), rating, "★★★★★"},
		{"two", core.NumericLabel(2), rating, "★★☆☆☆"},
		{"out of range", core.NumericLabel(7), rating, ""},
		{"fraction", core.NumericLabel(2.5), rating, ""},
		{"unbounded", core.NumericLabel(3), core.Scale{Kind: core.LabelNumeric}, ""},
		{"category", core.CategoryLabel("pos"), core.Scale{Kind: core.LabelCategory}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stars(tt.label, tt.scale); got != tt.want {
				t.Errorf("stars = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderVerdict(t *testing.T) {
	scales := map[string]core.Scale{"A": core.RatingScale(1, 5), "B": core.RatingScale(1, 5)}

	agree := &core.Verdict{
		ID: "v1",
		Results: []core.Slot{
			{Adapter: "A", Result: core.NewConfidentResult(core.NumericLabel(5), 0.92)},
			{Adapter: "B", Result: core.NewConfidentResult(core.NumericLabel(5), 0.88)},
		},
		Agreement:  ptr(true),
		Divergence: ptr(0.0),
	}
	out := renderVerdict(agree, scales)
	for _, want := range []string{"★★★★★", "confidence 92.0%", "confidence 88.0%", "models agree"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	differ := &core.Verdict{
		ID: "v2",
		Results: []core.Slot{
			{Adapter: "A", Result: core.NewResult(core.NumericLabel(1))},
			{Adapter: "B", Result: core.NewResult(core.NumericLabel(2))},
		},
		Agreement:  ptr(false),
		Divergence: ptr(1.0),
	}
	if out := renderVerdict(differ, scales); !strings.Contains(out, "differ by 1 star") || strings.Contains(out, "1 stars") {
		t.Errorf("output:\n%s", out)
	}
	differ.Divergence = ptr(3.0)
	if out := renderVerdict(differ, scales); !strings.Contains(out, "differ by 3 stars") {
		t.Errorf("output:\n%s", out)
	}

	failed := &core.Verdict{
		ID: "v3",
		Results: []core.Slot{
			{Adapter: "A", Result: core.NewResult(core.NumericLabel(4))},
			{Adapter: "B", Err: core.ErrModelUnavailable},
		},
	}
	out = renderVerdict(failed, scales)
	if !strings.Contains(out, "no prediction") || !strings.Contains(out, "agreement undefined") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRenderReport(t *testing.T) {
	r := &compare.BatchReport{
		Rows:          100,
		Succeeded:     99,
		Columns:       []string{"Prediction_A", "Prediction_B"},
		RowErrors:     []*core.RowError{core.NewRowError(36, core.ErrRowValidation)},
		AdapterErrors: map[string]int{"B": 2},
		Agreements:    60,
		Disagreements: 39,
	}
	out := renderReport(r)
	for _, want := range []string{"rows        100", "row index 36", "B           2 cells", "agreement   60/99"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

const softmaxA = `{"type": "softmax", "weights": [[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1],[0,0,0,0]]}`
const softmaxB = `{"type": "softmax", "weights": [[0,0,0,1],[0,0,1,0],[0,1,0,0],[1,0,0,0],[0,0,0,0]]}`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.json": softmaxA,
		"b.json": softmaxB,
		"modelduel.yaml": `
log: {level: error}
engine:
  schema:
    features: [feature1, feature2, feature3, feature4]
adapters:
  - {name: A, type: softmax, path: a.json}
  - {name: B, type: softmax, path: b.json}
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "modelduel.yaml")
}

func TestCommands(t *testing.T) {
	cfg := writeConfig(t)

	t.Run("compare", func(t *testing.T) {
		var stdout bytes.Buffer
		rootCmd.SetOut(&stdout)
		rootCmd.SetArgs([]string{"compare", "--config", cfg, "--values", "0,0,0,9"})
		if err := rootCmd.Execute(); err != nil {
			t.Fatal(err)
		}
		out := stdout.String()
		if !strings.Contains(out, "★★★★☆") || !strings.Contains(out, "differ by 3 stars") {
			t.Fatalf("output:\n%s", out)
		}
	})

	t.Run("batch", func(t *testing.T) {
		dir := filepath.Dir(cfg)
		in := filepath.Join(dir, "in.csv")
		out := filepath.Join(dir, "out.csv")
		if err := os.WriteFile(in, []byte("feature1,feature2,feature3,feature4\n0,0,0,9\n1,1,,1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		var stderr bytes.Buffer
		rootCmd.SetErr(&stderr)
		rootCmd.SetArgs([]string{"batch", "--config", cfg, "--in", in, "--out", out, "--adapters", "A,B"})
		if err := rootCmd.Execute(); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		want := "feature1,feature2,feature3,feature4,Prediction_A,Prediction_B\n0,0,0,9,4,1\n1,1,,1,,\n"
		if string(data) != want {
			t.Fatalf("csv =\n%s\nwant\n%s", data, want)
		}
		if !strings.Contains(stderr.String(), "row index 1") {
			t.Fatalf("report:\n%s", stderr.String())
		}
	})
}
