package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型，调用方通过 errors.Is 与哨兵错误比较
//   - 提供错误代码（Code）和消息（Message），Module 标记出错模块
//   - Err 保存底层原因，可通过 errors.Unwrap 取出
//
// 使用场景：
//   - Adapter 错误：UNAVAILABLE, SHAPE_MISMATCH, PREDICTION_FAILED
//   - 输入错误：EMPTY_INPUT, ROW_VALIDATION
//   - 对比引擎错误：NO_ADAPTERS, UNKNOWN_ADAPTER
type DomainError struct {
	Code    string // 错误代码（如 "UNAVAILABLE", "SHAPE_MISMATCH"）
	Message string // 错误消息
	Module  string // 模块名称（如 "adapter", "feature", "compare"）
	Err     error  // 底层原因（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 按 Code 匹配；target 的 Module 为空时不比较模块。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Module == "" || t.Module == e.Module
}

// Wrap 基于当前错误创建一个携带原因的新错误，原哨兵错误不会被修改。
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Module: e.Module, Err: err}
}

// Wrapf 同 Wrap，原因由格式化字符串构造。
func (e *DomainError) Wrapf(format string, args ...any) *DomainError {
	return e.Wrap(fmt.Errorf(format, args...))
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound         = "NOT_FOUND"         // 资源不存在
	ErrorCodeUnknownAdapter   = "UNKNOWN_ADAPTER"   // 适配器未注册
	ErrorCodeUnavailable      = "UNAVAILABLE"       // 模型或预处理产物加载失败
	ErrorCodeShapeMismatch    = "SHAPE_MISMATCH"    // 输入形态与适配器不符
	ErrorCodeEmptyInput       = "EMPTY_INPUT"       // 空输入
	ErrorCodeRowValidation    = "ROW_VALIDATION"    // 批量模式下单行校验失败
	ErrorCodeNoAdapters       = "NO_ADAPTERS"       // 所选适配器全部不可用
	ErrorCodePredictionFailed = "PREDICTION_FAILED" // 模型推理失败
	ErrorCodeInvalidConfig    = "INVALID_CONFIG"    // 配置错误
)

// 模块名称常量
const (
	ModuleAdapter = "adapter"
	ModuleFeature = "feature"
	ModuleCompare = "compare"
	ModuleModel   = "model"
	ModuleStore   = "store"
)

// 哨兵错误。比较时使用 errors.Is(err, core.ErrShapeMismatch)，不区分模块。
var (
	ErrModelUnavailable    = &DomainError{Code: ErrorCodeUnavailable, Message: "model unavailable"}
	ErrShapeMismatch       = &DomainError{Code: ErrorCodeShapeMismatch, Message: "input shape mismatch"}
	ErrEmptyInput          = &DomainError{Code: ErrorCodeEmptyInput, Message: "empty input: no prediction"}
	ErrRowValidation       = &DomainError{Code: ErrorCodeRowValidation, Message: "row validation failed"}
	ErrNoAvailableAdapters = &DomainError{Code: ErrorCodeNoAdapters, Message: "no available adapters"}
	ErrUnknownAdapter      = &DomainError{Code: ErrorCodeUnknownAdapter, Message: "unknown adapter"}
	ErrPrediction          = &DomainError{Code: ErrorCodePredictionFailed, Message: "prediction failed"}
	ErrInvalidConfig       = &DomainError{Code: ErrorCodeInvalidConfig, Message: "invalid config"}
)

// RowError 记录批量模式下某一行的失败原因。
type RowError struct {
	Row int // 数据行下标（从 0 开始，不含表头）
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// NewRowError 创建行错误，原因统一挂在 ErrRowValidation 之下。
func NewRowError(row int, cause error) *RowError {
	return &RowError{
		Row: row,
		Err: &DomainError{
			Code:    ErrorCodeRowValidation,
			Message: ErrRowValidation.Message,
			Module:  ModuleFeature,
			Err:     cause,
		},
	}
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return errors.Is(err, ErrModelUnavailable) }

// IsShapeMismatch 检查错误是否为 SHAPE_MISMATCH
func IsShapeMismatch(err error) bool { return errors.Is(err, ErrShapeMismatch) }

// IsEmptyInput 检查错误是否为 EMPTY_INPUT
func IsEmptyInput(err error) bool { return errors.Is(err, ErrEmptyInput) }

// IsRowValidation 检查错误是否为 ROW_VALIDATION
func IsRowValidation(err error) bool { return errors.Is(err, ErrRowValidation) }
