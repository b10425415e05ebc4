package feature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rushteam/modelduel/core"
)

// Schema 描述原始输入如何映射为适配器可接受的形态。
//
//   - Fields：数值特征名，顺序在配置阶段确定，打包向量时严格按此顺序
//   - TextColumn：批量模式下文本所在列；非空时行被归一化为文本输入
type Schema struct {
	Fields     []string `yaml:"features" json:"features"`
	TextColumn string   `yaml:"text_column" json:"text_column"`
}

// Normalizer 是输入归一化器，把手动输入、表格行、文本转为 core.Input。
// 不持有可变状态，可并发使用。
type Normalizer struct {
	schema Schema
}

// NewNormalizer 按 schema 创建归一化器，字段列表会被复制。
func NewNormalizer(schema Schema) *Normalizer {
	fields := make([]string, len(schema.Fields))
	copy(fields, schema.Fields)
	return &Normalizer{schema: Schema{Fields: fields, TextColumn: schema.TextColumn}}
}

func (n *Normalizer) Schema() Schema { return n.schema }

// Fields 按配置顺序把命名数值字段打包成一个特征向量。
// 缺少字段或出现未配置的字段都会报错，顺序从不推断。
func (n *Normalizer) Fields(values map[string]float64) (core.Input, error) {
	if len(values) == 0 {
		return core.Input{}, core.ErrEmptyInput
	}
	if len(n.schema.Fields) == 0 {
		return core.Input{}, core.ErrInvalidConfig.Wrapf("no feature order configured")
	}
	vec := make([]float64, len(n.schema.Fields))
	for i, name := range n.schema.Fields {
		v, ok := values[name]
		if !ok {
			return core.Input{}, core.ErrShapeMismatch.Wrapf("missing feature %q", name)
		}
		vec[i] = v
	}
	if len(values) != len(n.schema.Fields) {
		for name := range values {
			if !n.hasField(name) {
				return core.Input{}, core.ErrShapeMismatch.Wrapf("unknown feature %q", name)
			}
		}
	}
	return core.VectorInput(vec...), nil
}

// Values 接收已按顺序排列的数值；配置了特征顺序时校验个数。
func (n *Normalizer) Values(values []float64) (core.Input, error) {
	if len(values) == 0 {
		return core.Input{}, core.ErrEmptyInput
	}
	if len(n.schema.Fields) > 0 && len(values) != len(n.schema.Fields) {
		return core.Input{}, core.ErrShapeMismatch.Wrapf("expected %d values, got %d", len(n.schema.Fields), len(values))
	}
	return core.VectorInput(values...), nil
}

// Text 文本直接透传（分词由适配器完成），空白文本在到达任何适配器之前被拒绝。
func (n *Normalizer) Text(text string) (core.Input, error) {
	if strings.TrimSpace(text) == "" {
		return core.Input{}, core.ErrEmptyInput
	}
	return core.TextInput(text), nil
}

// Normalize 把任意 core.Input 归一化：行输入按 Schema 转换，其它形态做空值检查后原样返回。
func (n *Normalizer) Normalize(in core.Input) (core.Input, error) {
	if err := in.Validate(); err != nil {
		return core.Input{}, err
	}
	if in.IsEmpty() {
		return core.Input{}, core.ErrEmptyInput
	}
	switch in.Shape {
	case core.ShapeRow:
		return n.Row(in.Row)
	case core.ShapeVector:
		return n.Values(in.Vector)
	default:
		return n.Text(in.Text)
	}
}

// Row 归一化一条命名列记录。
func (n *Normalizer) Row(row map[string]string) (core.Input, error) {
	if n.schema.TextColumn != "" {
		text, ok := row[n.schema.TextColumn]
		if !ok {
			return core.Input{}, core.ErrShapeMismatch.Wrapf("missing text column %q", n.schema.TextColumn)
		}
		return n.Text(text)
	}
	if len(n.schema.Fields) == 0 {
		return core.Input{}, core.ErrInvalidConfig.Wrapf("no feature order configured")
	}
	vec := make([]float64, len(n.schema.Fields))
	for i, name := range n.schema.Fields {
		raw, ok := row[name]
		if !ok {
			return core.Input{}, core.ErrShapeMismatch.Wrapf("missing column %q", name)
		}
		v, err := parseNumber(name, raw)
		if err != nil {
			return core.Input{}, err
		}
		vec[i] = v
	}
	return core.VectorInput(vec...), nil
}

// Record 归一化表格中的第 index 行；失败时返回 *core.RowError，不影响其它行。
func (n *Normalizer) Record(index int, columns []string, record []string) (core.Input, error) {
	if len(record) != len(columns) {
		return core.Input{}, core.NewRowError(index,
			fmt.Errorf("column count mismatch: expected %d, got %d", len(columns), len(record)))
	}
	row := make(map[string]string, len(columns))
	for i, c := range columns {
		row[c] = record[i]
	}
	in, err := n.Row(row)
	if err != nil {
		return core.Input{}, core.NewRowError(index, err)
	}
	return in, nil
}

func (n *Normalizer) hasField(name string) bool {
	for _, f := range n.schema.Fields {
		if f == name {
			return true
		}
	}
	return false
}

func parseNumber(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("missing numeric field %q", field)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q in field %q", raw, field)
	}
	return v, nil
}
