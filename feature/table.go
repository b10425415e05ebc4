package feature

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Table 是上传的表格数据：一行表头 + 若干数据行，行顺序即导出顺序。
// 数据行允许与表头列数不一致，由归一化阶段按行报错。
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV 读取带表头的 CSV。列数不一致的行原样保留。
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: missing header row")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	t := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(t.Rows), err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteCSV 写出表头和全部数据行，不输出行号列。
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Len 返回数据行数（不含表头）。
func (t *Table) Len() int { return len(t.Rows) }

// Clone 深拷贝；导出结果在副本上追加列，输入表保持不变。
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// AppendColumn 在末尾追加一列，values 与数据行一一对应。
// 列数不足的行先用空值补齐；有行多出表头时，表头补空列名，多出的单元格原样保留。
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("append column %q: %d values for %d rows", name, len(values), len(t.Rows))
	}
	width := len(t.Columns)
	for _, r := range t.Rows {
		width = max(width, len(r))
	}
	for len(t.Columns) < width {
		t.Columns = append(t.Columns, "")
	}
	for i, r := range t.Rows {
		t.Rows[i] = fitWidth(r, width)
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	t.Columns = append(t.Columns, name)
	return nil
}

// Column 返回指定列的全部值。
func (t *Table) Column(name string) ([]string, bool) {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		if idx < len(r) {
			out[i] = r[idx]
		}
	}
	return out, true
}

// fitWidth 用空值把行补齐到 width 列。
func fitWidth(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
