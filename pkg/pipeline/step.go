package pipeline

import (
	"context"
	"fmt"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

// StepFn 是同步步骤函数：接收当前条目与查询，返回新的条目列表。
// 成功时必须返回非 nil 切片（空切片表示清空条目）。
type StepFn func(items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error)

// AsyncStepFn 是带上下文的步骤函数，用于 I/O 型步骤
// （数据库查询、远程检索等）。
type AsyncStepFn func(ctx context.Context, items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error)

// ErrorPolicy 决定步骤失败时的处理方式。
type ErrorPolicy string

const (
	// ErrorPolicyFail 表示步骤失败时终止整个构建（默认）。
	ErrorPolicyFail ErrorPolicy = "fail"

	// ErrorPolicySkip 表示跳过失败的步骤，沿用步骤前的条目继续。
	ErrorPolicySkip ErrorPolicy = "skip"
)

// Step 表示流水线中的一个步骤。
//
// 步骤按注册顺序串行执行，每个步骤接收当前条目列表与查询，
// 返回（可能被修改的）条目列表。同步与异步步骤二选一：
// 异步步骤只能通过 BuildContext 执行。
type Step struct {
	// Name 是步骤名称，用于诊断与日志。
	Name string

	// Fn 是同步步骤函数，与 AsyncFn 互斥。
	Fn StepFn

	// AsyncFn 是异步步骤函数，与 Fn 互斥。
	AsyncFn AsyncStepFn

	// OnError 是失败处理策略，默认 ErrorPolicyFail。
	OnError ErrorPolicy

	// Metadata 是步骤的附加键值数据。
	Metadata map[string]interface{}
}

// StepOption 配置 Step。
type StepOption func(*Step)

// WithOnError 设置失败处理策略。
func WithOnError(policy ErrorPolicy) StepOption {
	return func(s *Step) {
		s.OnError = policy
	}
}

// WithStepMetadata 设置步骤元数据。
func WithStepMetadata(key string, value interface{}) StepOption {
	return func(s *Step) {
		if s.Metadata == nil {
			s.Metadata = make(map[string]interface{})
		}
		s.Metadata[key] = value
	}
}

// NewStep 创建同步步骤。
func NewStep(name string, fn StepFn, opts ...StepOption) Step {
	s := Step{
		Name:    name,
		Fn:      fn,
		OnError: ErrorPolicyFail,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewAsyncStep 创建异步步骤。
func NewAsyncStep(name string, fn AsyncStepFn, opts ...StepOption) Step {
	s := Step{
		Name:    name,
		AsyncFn: fn,
		OnError: ErrorPolicyFail,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// IsAsync 报告步骤是否为异步步骤。
func (s Step) IsAsync() bool {
	return s.AsyncFn != nil
}

// execute 同步执行步骤。异步步骤返回 ErrAsyncStep。
func (s Step) execute(items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error) {
	if s.IsAsync() {
		return nil, fmt.Errorf("%w: step %q, use BuildContext instead", ErrAsyncStep, s.Name)
	}
	return s.checkResult(s.Fn(items, query))
}

// executeContext 执行步骤：同步函数直接调用，异步函数传入 ctx。
func (s Step) executeContext(ctx context.Context, items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error) {
	if s.IsAsync() {
		return s.checkResult(s.AsyncFn(ctx, items, query))
	}
	return s.checkResult(s.Fn(items, query))
}

// checkResult 校验步骤的返回契约。
func (s Step) checkResult(result []ctxcore.ContextItem, err error) ([]ctxcore.ContextItem, error) {
	if err != nil {
		return nil, fmt.Errorf("step %q failed: %w", s.Name, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: step %q", ErrStepContract, s.Name)
	}
	return result, nil
}

// Retriever 按查询检索上下文条目。
type Retriever interface {
	// Retrieve 返回与查询最相关的 topK 个条目。
	Retrieve(query ctxcore.QueryBundle, topK int) ([]ctxcore.ContextItem, error)
}

// AsyncRetriever 是带上下文的检索接口，用于 I/O 型检索。
type AsyncRetriever interface {
	// Retrieve 返回与查询最相关的 topK 个条目。
	Retrieve(ctx context.Context, query ctxcore.QueryBundle, topK int) ([]ctxcore.ContextItem, error)
}

// PostProcessor 对当前条目列表做后处理（去重、重排、过滤等）。
type PostProcessor interface {
	// Process 返回处理后的条目列表。
	Process(items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error)
}

// RetrieverStep 将 Retriever 包装为流水线步骤，
// 检索结果追加到当前条目之后。
func RetrieverStep(name string, retriever Retriever, topK int, opts ...StepOption) Step {
	fn := func(items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error) {
		retrieved, err := retriever.Retrieve(query, topK)
		if err != nil {
			return nil, err
		}
		return append(items, retrieved...), nil
	}
	return NewStep(name, fn, opts...)
}

// AsyncRetrieverStep 将 AsyncRetriever 包装为异步流水线步骤。
func AsyncRetrieverStep(name string, retriever AsyncRetriever, topK int, opts ...StepOption) Step {
	fn := func(ctx context.Context, items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error) {
		retrieved, err := retriever.Retrieve(ctx, query, topK)
		if err != nil {
			return nil, err
		}
		return append(items, retrieved...), nil
	}
	return NewAsyncStep(name, fn, opts...)
}

// PostProcessorStep 将 PostProcessor 包装为流水线步骤。
func PostProcessorStep(name string, processor PostProcessor, opts ...StepOption) Step {
	fn := func(items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error) {
		return processor.Process(items, query)
	}
	return NewStep(name, fn, opts...)
}

// FilterStep 创建按谓词过滤条目的步骤。
func FilterStep(name string, predicate func(item ctxcore.ContextItem) bool, opts ...StepOption) Step {
	fn := func(items []ctxcore.ContextItem, query ctxcore.QueryBundle) ([]ctxcore.ContextItem, error) {
		filtered := make([]ctxcore.ContextItem, 0, len(items))
		for _, item := range items {
			if predicate(item) {
				filtered = append(filtered, item)
			}
		}
		return filtered, nil
	}
	return NewStep(name, fn, opts...)
}
