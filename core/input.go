package core

import (
	"fmt"
	"strings"
)

// Shape 标记一次预测请求的输入形态。
type Shape string

const (
	ShapeVector Shape = "vector" // 固定维度的数值特征向量
	ShapeRow    Shape = "row"    // 表格行（列名 -> 原始字符串）
	ShapeText   Shape = "text"   // 自由文本（评论等）
)

// Input 是 PredictionInput：同一时刻只有一种形态生效。
//
// 形态与载荷必须一致：
//   - ShapeVector -> Vector
//   - ShapeRow    -> Row
//   - ShapeText   -> Text
type Input struct {
	Shape  Shape
	Vector []float64
	Row    map[string]string
	Text   string
}

// VectorInput 创建数值向量输入。
func VectorInput(values ...float64) Input {
	v := make([]float64, len(values))
	copy(v, values)
	return Input{Shape: ShapeVector, Vector: v}
}

// RowInput 创建表格行输入。
func RowInput(row map[string]string) Input {
	return Input{Shape: ShapeRow, Row: row}
}

// TextInput 创建文本输入。
func TextInput(text string) Input {
	return Input{Shape: ShapeText, Text: text}
}

// Validate 检查形态与载荷是否一致。
func (in Input) Validate() error {
	switch in.Shape {
	case ShapeVector:
		if in.Row != nil || in.Text != "" {
			return ErrShapeMismatch.Wrapf("vector input carries extra payload")
		}
	case ShapeRow:
		if in.Vector != nil || in.Text != "" {
			return ErrShapeMismatch.Wrapf("row input carries extra payload")
		}
	case ShapeText:
		if in.Vector != nil || in.Row != nil {
			return ErrShapeMismatch.Wrapf("text input carries extra payload")
		}
	default:
		return ErrShapeMismatch.Wrapf("unknown input shape %q", in.Shape)
	}
	return nil
}

// IsEmpty 判断输入是否为空：空向量、空行、空白文本。
func (in Input) IsEmpty() bool {
	switch in.Shape {
	case ShapeVector:
		return len(in.Vector) == 0
	case ShapeRow:
		return len(in.Row) == 0
	case ShapeText:
		return strings.TrimSpace(in.Text) == ""
	default:
		return true
	}
}

// String 用于日志输出，文本过长时截断。
func (in Input) String() string {
	switch in.Shape {
	case ShapeVector:
		return fmt.Sprintf("vector%v", in.Vector)
	case ShapeRow:
		return fmt.Sprintf("row%v", in.Row)
	case ShapeText:
		t := in.Text
		if len(t) > 64 {
			t = t[:64] + "..."
		}
		return fmt.Sprintf("text(%q)", t)
	default:
		return "invalid"
	}
}
