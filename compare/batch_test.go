package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/feature"
	"github.com/rushteam/modelduel/model"
)

// hundredRows 生成 100 行四列特征，第 37 行（下标 36）缺少 feature3。
func hundredRows() string {
	var sb strings.Builder
	sb.WriteString("feature1,feature2,feature3,feature4\n")
	for i := 0; i < 100; i++ {
		f3 := fmt.Sprintf("%d", i%5)
		if i == 36 {
			f3 = ""
		}
		fmt.Fprintf(&sb, "%d,%d,%s,%d\n", i%3, i%4, f3, i%2)
	}
	return sb.String()
}

func batchEngine(t *testing.T, workers int) *Engine {
	t.Helper()
	schema := feature.Schema{Fields: []string{"feature1", "feature2", "feature3", "feature4"}}
	a, err := adapter.New("A", &model.SoftmaxModel{Weights: [][]float64{
		{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}, {0, 0, 0, 0},
	}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := adapter.New("B", &model.SoftmaxModel{Weights: [][]float64{
		{0, 0, 0, 1}, {0, 0, 1, 0}, {0, 1, 0, 0}, {1, 0, 0, 0}, {0, 0, 0, 0},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return newEngine(t, []Option{
		WithNormalizer(feature.NewNormalizer(schema)),
		WithBatchWorkers(workers),
		WithConcurrency(workers > 1),
	}, a, b)
}

func TestCompareBatch_BadRowDoesNotAbort(t *testing.T) {
	for _, workers := range []int{1, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			e := batchEngine(t, workers)
			table, err := feature.ReadCSV(strings.NewReader(hundredRows()))
			if err != nil {
				t.Fatal(err)
			}

			out, report, err := e.CompareBatch(context.Background(), []string{"A", "B"}, table)
			if err != nil {
				t.Fatal(err)
			}
			if out.Len() != 100 || report.Rows != 100 {
				t.Fatalf("rows = %d / %d, want 100", out.Len(), report.Rows)
			}
			if report.Succeeded != 99 {
				t.Fatalf("succeeded = %d, want 99", report.Succeeded)
			}
			if failed := report.Failed(); len(failed) != 1 || failed[0] != 36 {
				t.Fatalf("failed rows = %v, want [36]", failed)
			}
			if !core.IsRowValidation(report.RowErrors[0]) {
				t.Fatalf("row error = %v", report.RowErrors[0])
			}

			wantCols := []string{"feature1", "feature2", "feature3", "feature4", "Prediction_A", "Prediction_B"}
			if strings.Join(out.Columns, ",") != strings.Join(wantCols, ",") {
				t.Fatalf("columns = %v", out.Columns)
			}
			colA, _ := out.Column("Prediction_A")
			colB, _ := out.Column("Prediction_B")
			for i := range colA {
				empty := colA[i] == "" || colB[i] == ""
				if (i == 36) != empty {
					t.Fatalf("row %d: A=%q B=%q", i, colA[i], colB[i])
				}
			}

			// 原表不变，行顺序不变
			if len(table.Columns) != 4 {
				t.Fatal("input table was modified")
			}
			for i := range table.Rows {
				for j := range table.Rows[i] {
					if out.Rows[i][j] != table.Rows[i][j] {
						t.Fatalf("row %d reordered or changed", i)
					}
				}
			}
		})
	}
}

func TestCompareBatch_WorkersMatchSequential(t *testing.T) {
	table, _ := feature.ReadCSV(strings.NewReader(hundredRows()))

	seqOut, seqReport, err := batchEngine(t, 1).CompareBatch(context.Background(), nil, table)
	if err != nil {
		t.Fatal(err)
	}
	parOut, parReport, err := batchEngine(t, 8).CompareBatch(context.Background(), nil, table)
	if err != nil {
		t.Fatal(err)
	}
	var a, b bytes.Buffer
	_ = seqOut.WriteCSV(&a)
	_ = parOut.WriteCSV(&b)
	if a.String() != b.String() {
		t.Fatal("parallel batch output differs from sequential")
	}
	if seqReport.Agreements != parReport.Agreements || seqReport.Agreements+seqReport.Disagreements != 99 {
		t.Fatalf("reports differ: %+v vs %+v", seqReport, parReport)
	}
}

func TestCompareBatch_ExportFormat(t *testing.T) {
	e := batchEngine(t, 1)
	table, _ := feature.ReadCSV(strings.NewReader("feature1,feature2,feature3,feature4\n0,0,0,9\nx,1,1,1\n"))
	out, _, err := e.CompareBatch(context.Background(), []string{"A"}, table)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := out.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	want := "feature1,feature2,feature3,feature4,Prediction_A\n0,0,0,9,4\nx,1,1,1,\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestCompareBatch_ColumnCountMismatch(t *testing.T) {
	e := batchEngine(t, 1)
	table, _ := feature.ReadCSV(strings.NewReader("feature1,feature2,feature3,feature4\n1,2,3\n1,2,3,4\n"))
	out, report, err := e.CompareBatch(context.Background(), nil, table)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 2 || len(report.RowErrors) != 1 || report.RowErrors[0].Row != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(out.Rows[0]) != len(out.Columns) {
		t.Fatalf("short row not padded: %v", out.Rows[0])
	}
}

func TestCompareBatch_LongRowKeepsExtraCells(t *testing.T) {
	e := batchEngine(t, 1)
	table, _ := feature.ReadCSV(strings.NewReader("feature1,feature2,feature3,feature4\n0,0,0,9,extra\n0,0,0,9\n"))
	out, report, err := e.CompareBatch(context.Background(), []string{"A"}, table)
	if err != nil {
		t.Fatal(err)
	}
	if failed := report.Failed(); len(failed) != 1 || failed[0] != 0 {
		t.Fatalf("failed rows = %v, want [0]", failed)
	}
	var buf bytes.Buffer
	if err := out.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	want := "feature1,feature2,feature3,feature4,,Prediction_A\n0,0,0,9,extra,\n0,0,0,9,,4\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestCompareBatch_AllUnavailable(t *testing.T) {
	reg := adapter.NewRegistry()
	_ = reg.Register("A", func(context.Context) (core.PointPredictor, error) {
		return nil, fmt.Errorf("missing artifact")
	})
	e := New(reg)
	table, _ := feature.ReadCSV(strings.NewReader("a\n1\n"))
	if _, _, err := e.CompareBatch(context.Background(), []string{"A"}, table); !errors.Is(err, core.ErrNoAvailableAdapters) {
		t.Fatalf("err = %v, want NO_ADAPTERS", err)
	}
}
