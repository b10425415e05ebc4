package compare

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/feature"
)

// ColumnPrefix 预测列名前缀，列名为 Prediction_<adapter>。
const ColumnPrefix = "Prediction_"

// ColumnName 返回适配器对应的预测列名。
func ColumnName(adapter string) string { return ColumnPrefix + adapter }

// BatchReport 批量对比的汇总。行下标从 0 开始，不含表头。
type BatchReport struct {
	Rows          int              `json:"rows"`
	Succeeded     int              `json:"succeeded"`
	Columns       []string         `json:"columns"`
	RowErrors     []*core.RowError `json:"-"`
	AdapterErrors map[string]int   `json:"adapter_errors,omitempty"`
	Agreements    int              `json:"agreements"`
	Disagreements int              `json:"disagreements"`
}

// Failed 返回失败的行下标。
func (r *BatchReport) Failed() []int {
	out := make([]int, len(r.RowErrors))
	for i, e := range r.RowErrors {
		out[i] = e.Row
	}
	return out
}

// rowOutcome 是单行的处理结果。
type rowOutcome struct {
	err   error
	slots []core.Slot
	agree *bool
}

// CompareBatch 对表格的每一行独立执行对比，在副本上为每个所选适配器追加一列预测。
//
//   - 输出行数与输入行数严格相等，行顺序不变
//   - 校验失败的行，所有预测列留空，错误记录在 report.RowErrors
//   - 某个适配器在某行失败，只有该单元格留空
//   - 不可用的适配器仍然输出一列（全部为空）
func (e *Engine) CompareBatch(ctx context.Context, selected []string, table *feature.Table) (*feature.Table, *BatchReport, error) {
	ctx, span := e.tracer.Start(ctx, "compare.batch")
	defer span.End()

	if table == nil {
		return nil, nil, core.ErrEmptyInput
	}
	targets, err := e.resolve(ctx, selected)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	outcomes := make([]rowOutcome, table.Len())
	process := func(i int) {
		in, err := e.normalizer.Record(i, table.Columns, table.Rows[i])
		if err != nil {
			outcomes[i] = rowOutcome{err: err}
			return
		}
		slots := e.run(ctx, targets, in)
		agree, _ := Verdict(slots, scales(targets))
		outcomes[i] = rowOutcome{slots: slots, agree: agree}
	}

	if e.workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i := range outcomes {
			if gctx.Err() != nil {
				break
			}
			i := i
			g.Go(func() error {
				process(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range outcomes {
			if ctx.Err() != nil {
				break
			}
			process(i)
		}
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	report := &BatchReport{Rows: table.Len(), AdapterErrors: make(map[string]int)}
	columns := make([][]string, len(targets))
	for j := range columns {
		columns[j] = make([]string, table.Len())
	}
	for i, o := range outcomes {
		if o.err != nil {
			var rowErr *core.RowError
			if !errors.As(o.err, &rowErr) {
				rowErr = core.NewRowError(i, o.err)
			}
			report.RowErrors = append(report.RowErrors, rowErr)
			continue
		}
		report.Succeeded++
		for j, s := range o.slots {
			if s.OK() {
				columns[j][i] = s.Result.Label.String()
			} else {
				report.AdapterErrors[s.Adapter]++
			}
		}
		if o.agree != nil {
			if *o.agree {
				report.Agreements++
			} else {
				report.Disagreements++
			}
		}
	}

	out := table.Clone()
	for j, t := range targets {
		name := ColumnName(t.name)
		if err := out.AppendColumn(name, columns[j]); err != nil {
			return nil, nil, err
		}
		report.Columns = append(report.Columns, name)
	}

	failed := len(report.RowErrors)
	span.SetAttributes(attribute.Int("batch.rows", report.Rows), attribute.Int("batch.failed", failed))
	e.metrics.RecordBatchRows(ctx, report.Succeeded, failed)
	e.logger.Info("batch compared", "rows", report.Rows, "failed", failed,
		"adapters", names(targets), "agreements", report.Agreements, "disagreements", report.Disagreements)
	return out, report, nil
}
