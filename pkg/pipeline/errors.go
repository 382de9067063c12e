package pipeline

import (
	"errors"
	"fmt"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

// 流水线错误定义
var (
	// ErrInvalidPipeline 表示流水线配置不合法。
	ErrInvalidPipeline = errors.New("invalid pipeline configuration")

	// ErrAsyncStep 表示同步构建遇到了异步步骤。
	ErrAsyncStep = errors.New("async step cannot run in synchronous build")

	// ErrStepContract 表示步骤违反契约：未返回错误却返回了 nil 条目。
	ErrStepContract = errors.New("step returned nil items without error")

	// ErrFormatterFailed 表示格式化器执行失败。
	ErrFormatterFailed = errors.New("formatter failed")
)

// ExecutionError 表示流水线构建失败。
//
// 携带失败步骤的名称与失败时刻的诊断快照，
// 底层原因可通过 errors.Unwrap / errors.Is / errors.As 获取。
type ExecutionError struct {
	// StepName 是导致失败的步骤名称，非步骤失败时为空。
	StepName string

	// Diagnostics 是失败时刻的诊断快照。
	Diagnostics ctxcore.PipelineDiagnostics

	// Err 是底层原因。
	Err error
}

// Error 实现 error 接口。
func (e *ExecutionError) Error() string {
	if e.StepName != "" {
		return fmt.Sprintf("pipeline failed at step %q: %v", e.StepName, e.Err)
	}
	return fmt.Sprintf("pipeline failed: %v", e.Err)
}

// Unwrap 返回底层原因。
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// newExecutionError 创建带诊断快照的 ExecutionError。
func newExecutionError(stepName string, diagnostics ctxcore.PipelineDiagnostics, err error) *ExecutionError {
	return &ExecutionError{
		StepName:    stepName,
		Diagnostics: diagnostics.Clone(),
		Err:         err,
	}
}
