// Package pipeline 实现上下文组装流水线编排器。
//
// Pipeline 从多个来源收集上下文条目，按注册顺序串行执行步骤，
// 再按优先级与 Token 预算装配成 ContextWindow：
//
//  1. 收集系统条目（系统提示词、指令）
//  2. 收集记忆条目（对话历史）
//  3. 富化查询（可选）
//  4. 执行流水线步骤（检索、后处理）
//  5. 装配 ContextWindow（优先级排序、Token 感知）
//  6. 格式化输出并返回带诊断信息的 ContextResult
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
	"github.com/easyops/astrocontext-go/pkg/otel"
)

// defaultMemoryPriority 是记忆条目注入流水线时的优先级。
const defaultMemoryPriority = 7

// systemPromptPriority 是系统提示词条目的优先级。
const systemPromptPriority = 10

// MemoryProvider 向流水线提供记忆上下文条目。
// memory.MemoryManager 是典型实现。
type MemoryProvider interface {
	// GetContextItems 以给定优先级输出记忆条目。
	GetContextItems(priority int) []ctxcore.ContextItem
}

// Pipeline 是上下文组装的编排器。
//
// 配置方法（AddStep、WithMemory 等）返回接收者以支持链式调用，
// 它们不是并发安全的；配置完成后，Build / BuildContext
// 可以被并发调用。
type Pipeline struct {
	maxTokens   int
	counter     ctxcore.TokenCounter
	steps       []Step
	memory      MemoryProvider
	formatter   ctxcore.Formatter
	systemItems []ctxcore.ContextItem
	budget      *ctxcore.TokenBudget
	callbacks   []PipelineCallback
	enricher    QueryEnricher
	logger      otel.Logger
}

// Option 配置 Pipeline。
type Option func(*Pipeline)

// WithMaxTokens 设置上下文窗口的 Token 上限（默认 8192）。
func WithMaxTokens(maxTokens int) Option {
	return func(p *Pipeline) {
		p.maxTokens = maxTokens
	}
}

// WithCounter 设置 Token 计数器。
func WithCounter(counter ctxcore.TokenCounter) Option {
	return func(p *Pipeline) {
		p.counter = counter
	}
}

// WithBudget 设置跨来源的 Token 预算。
func WithBudget(budget *ctxcore.TokenBudget) Option {
	return func(p *Pipeline) {
		p.budget = budget
	}
}

// WithFormatter 设置输出格式化器（默认 TextFormatter）。
func WithFormatter(formatter ctxcore.Formatter) Option {
	return func(p *Pipeline) {
		p.formatter = formatter
	}
}

// WithLogger 设置日志器。
func WithLogger(logger otel.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New 创建流水线。
// Token 上限必须为正，否则返回包装了 ErrInvalidPipeline 的错误。
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		maxTokens:   ctxcore.DefaultWindowTokens,
		steps:       make([]Step, 0),
		systemItems: make([]ctxcore.ContextItem, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidPipeline, p.maxTokens)
	}
	if p.counter == nil {
		p.counter = ctxcore.DefaultTokenCounter()
	}
	if p.formatter == nil {
		p.formatter = ctxcore.NewTextFormatter()
	}
	if p.logger == nil {
		p.logger = otel.NewSlogLogger(nil)
	}

	return p, nil
}

// MaxTokens 返回上下文窗口的 Token 上限。
func (p *Pipeline) MaxTokens() int { return p.maxTokens }

// Budget 返回配置的 Token 预算，未配置时为 nil。
func (p *Pipeline) Budget() *ctxcore.TokenBudget { return p.budget }

// Formatter 返回当前的输出格式化器。
func (p *Pipeline) Formatter() ctxcore.Formatter { return p.formatter }

// Steps 返回已注册步骤的副本。
func (p *Pipeline) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// SystemItems 返回已注册系统条目的副本。
func (p *Pipeline) SystemItems() []ctxcore.ContextItem {
	out := make([]ctxcore.ContextItem, len(p.systemItems))
	copy(out, p.systemItems)
	return out
}

// AddStep 追加一个步骤，返回接收者以支持链式调用。
func (p *Pipeline) AddStep(step Step) *Pipeline {
	p.steps = append(p.steps, step)
	return p
}

// AddSystemPrompt 注册系统提示词。
// 提示词作为优先级 10、评分 1.0 的系统条目参与装配。
func (p *Pipeline) AddSystemPrompt(content string) *Pipeline {
	item := ctxcore.NewContextItem(content, ctxcore.SourceSystem,
		ctxcore.WithScore(1.0),
		ctxcore.WithPriority(systemPromptPriority),
		ctxcore.WithTokenCount(p.counter.Count(content)),
	)
	p.systemItems = append(p.systemItems, item)
	return p
}

// AddCallback 注册事件回调。
func (p *Pipeline) AddCallback(callback PipelineCallback) *Pipeline {
	p.callbacks = append(p.callbacks, callback)
	return p
}

// WithMemory 挂接记忆提供者。
func (p *Pipeline) WithMemory(memory MemoryProvider) *Pipeline {
	p.memory = memory
	return p
}

// WithQueryEnricher 挂接查询富化器。
// 富化器在记忆条目收集之后、步骤执行之前被调用。
func (p *Pipeline) WithQueryEnricher(enricher QueryEnricher) *Pipeline {
	p.enricher = enricher
	return p
}

// Build 同步执行流水线并返回装配结果。
//
// 流水线包含异步步骤时构建失败，返回包装了 ErrAsyncStep 的
// *ExecutionError，此时应改用 BuildContext。
func (p *Pipeline) Build(query ctxcore.QueryBundle) (*ctxcore.ContextResult, error) {
	return p.run(nil, query)
}

// BuildContext 执行流水线并返回装配结果。
// 同步步骤直接调用，异步步骤传入 ctx；步骤仍然严格串行执行。
func (p *Pipeline) BuildContext(ctx context.Context, query ctxcore.QueryBundle) (*ctxcore.ContextResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.run(ctx, query)
}

// run 是 Build 与 BuildContext 的共同驱动。
// ctx 为 nil 表示同步模式，此时异步步骤立即导致构建失败。
func (p *Pipeline) run(ctx context.Context, query ctxcore.QueryBundle) (*ctxcore.ContextResult, error) {
	start := time.Now()
	diagnostics := ctxcore.PipelineDiagnostics{
		Steps: make([]ctxcore.StepDiagnostic, 0, len(p.steps)),
	}

	p.fireStart(query)

	allItems, resolvedQuery := p.prepareItems(query, &diagnostics)

	for _, step := range p.steps {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				diagnostics.FailedStep = step.Name
				return nil, newExecutionError(step.Name, diagnostics, err)
			}
		}

		stepStart := time.Now()
		itemsBefore := allItems

		p.fireStepStart(step.Name, allItems)

		var result []ctxcore.ContextItem
		var err error
		if ctx != nil {
			result, err = step.executeContext(ctx, allItems, resolvedQuery)
		} else {
			result, err = step.execute(allItems, resolvedQuery)
		}

		if err != nil {
			p.fireStepError(step.Name, err)

			// 契约违规与异步步骤误用属于编程错误，失败策略不适用
			fatal := isContractViolation(err)
			if !fatal && step.OnError == ErrorPolicySkip {
				p.logger.Warn("step failed, skipping",
					"step", step.Name,
					"error", err,
				)
				diagnostics.SkippedSteps = append(diagnostics.SkippedSteps, step.Name)
				allItems = itemsBefore
				continue
			}

			diagnostics.FailedStep = step.Name
			return nil, newExecutionError(step.Name, diagnostics, err)
		}

		allItems = result
		duration := time.Since(stepStart)
		p.fireStepEnd(step.Name, allItems, duration)
		diagnostics.Steps = append(diagnostics.Steps, ctxcore.StepDiagnostic{
			Name:       step.Name,
			ItemsAfter: len(allItems),
			Duration:   duration,
		})
	}

	counted := p.backfillTokenCounts(allItems)

	result, err := p.assembleResult(counted, diagnostics, start)
	if err != nil {
		return nil, err
	}

	p.firePipelineEnd(result)
	return result, nil
}

// prepareItems 收集系统与记忆条目，并在需要时富化查询。
func (p *Pipeline) prepareItems(query ctxcore.QueryBundle, diagnostics *ctxcore.PipelineDiagnostics) ([]ctxcore.ContextItem, ctxcore.QueryBundle) {
	allItems := make([]ctxcore.ContextItem, 0, len(p.systemItems))
	allItems = append(allItems, p.systemItems...)

	if p.memory != nil {
		memoryItems := p.memory.GetContextItems(defaultMemoryPriority)
		allItems = append(allItems, memoryItems...)
		diagnostics.MemoryItems = len(memoryItems)
	}

	if p.enricher != nil {
		memoryItems := make([]ctxcore.ContextItem, 0)
		for _, item := range allItems {
			if item.Source() == ctxcore.SourceMemory || item.Source() == ctxcore.SourceConversation {
				memoryItems = append(memoryItems, item)
			}
		}
		if len(memoryItems) > 0 {
			query.QueryStr = p.enricher.Enrich(query.QueryStr, memoryItems)
			diagnostics.QueryEnriched = true
		}
	}

	return allItems, query
}

// backfillTokenCounts 为缺少 Token 数量的条目补齐计数。
// 注意：显式设置为 0 Token 的条目无法与未计数条目区分，
// 会被重新计数。
func (p *Pipeline) backfillTokenCounts(items []ctxcore.ContextItem) []ctxcore.ContextItem {
	counted := make([]ctxcore.ContextItem, 0, len(items))
	for _, item := range items {
		if item.TokenCount() == 0 && item.Content() != "" {
			item = item.Transform(ctxcore.WithTokenCount(p.counter.Count(item.Content())))
		}
		counted = append(counted, item)
	}
	return counted
}

// assembleResult 将条目装配进窗口并格式化输出。
func (p *Pipeline) assembleResult(items []ctxcore.ContextItem, diagnostics ctxcore.PipelineDiagnostics, start time.Time) (*ctxcore.ContextResult, error) {
	effectiveMax := p.maxTokens
	if p.budget != nil {
		effectiveMax = p.maxTokens - p.budget.ReserveTokens()
		if effectiveMax <= 0 {
			return nil, newExecutionError("", diagnostics,
				fmt.Errorf("%w: reserve tokens (%d) must be less than max tokens (%d)",
					ErrInvalidPipeline, p.budget.ReserveTokens(), p.maxTokens))
		}
	}

	// 配置了来源配额时先做按来源的预算预过滤
	budgetOverflow := make([]ctxcore.ContextItem, 0)
	if p.budget != nil && len(p.budget.Allocations()) > 0 {
		items, budgetOverflow = p.applySourceBudgets(items)
	}

	window, err := ctxcore.NewContextWindow(effectiveMax)
	if err != nil {
		return nil, newExecutionError("", diagnostics, err)
	}
	windowOverflow := window.AddItemsByPriority(items)
	overflow := append(budgetOverflow, windowOverflow...)

	formatted, err := p.format(window)
	if err != nil {
		return nil, newExecutionError("", diagnostics, err)
	}

	diagnostics.TotalItemsConsidered = len(items) + len(budgetOverflow)
	diagnostics.ItemsIncluded = window.Len()
	diagnostics.ItemsOverflow = len(overflow)
	diagnostics.TokenUtilization = math.Round(window.Utilization()*10000) / 10000

	if p.budget != nil {
		usage := make(map[ctxcore.SourceType]int)
		for _, item := range window.Items() {
			usage[item.Source()] += item.TokenCount()
		}
		diagnostics.TokenUsageBySource = usage
	}

	return &ctxcore.ContextResult{
		Window:          window,
		FormattedOutput: formatted,
		FormatType:      p.formatter.FormatType(),
		OverflowItems:   overflow,
		Diagnostics:     diagnostics,
		BuildTime:       time.Since(start),
	}, nil
}

// format 调用格式化器并隔离其中的 panic。
func (p *Pipeline) format(window *ctxcore.ContextWindow) (formatted string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: formatter %q panicked: %v",
				ErrFormatterFailed, p.formatter.FormatType(), r)
		}
	}()
	return p.formatter.Format(window), nil
}

// applySourceBudgets 按来源配额预过滤条目，返回（接受，溢出）。
//
// 条目按来源分组并应用各来源的 Token 上限：truncate 策略按
// 优先级保留配额内的条目、溢出其余；drop 策略在该来源超出
// 配额时丢弃该来源的全部条目。没有显式配额的来源原样放行，
// 在窗口装配时竞争共享池。
func (p *Pipeline) applySourceBudgets(items []ctxcore.ContextItem) ([]ctxcore.ContextItem, []ctxcore.ContextItem) {
	// 按（优先级降序，评分降序）稳定排序后分组，保证截断的确定性
	sorted := make([]ctxcore.ContextItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority() != sorted[j].Priority() {
			return sorted[i].Priority() > sorted[j].Priority()
		}
		return sorted[i].Score() > sorted[j].Score()
	})

	bySource := make(map[ctxcore.SourceType][]ctxcore.ContextItem)
	sourceOrder := make([]ctxcore.SourceType, 0)
	for _, item := range sorted {
		if _, seen := bySource[item.Source()]; !seen {
			sourceOrder = append(sourceOrder, item.Source())
		}
		bySource[item.Source()] = append(bySource[item.Source()], item)
	}

	accepted := make([]ctxcore.ContextItem, 0, len(items))
	overflow := make([]ctxcore.ContextItem, 0)

	for _, source := range sourceOrder {
		sourceItems := bySource[source]
		if !p.budget.HasAllocation(source) {
			accepted = append(accepted, sourceItems...)
			continue
		}

		capTokens := p.budget.GetAllocation(source)
		var kept, dropped []ctxcore.ContextItem
		if p.budget.GetOverflowStrategy(source) == ctxcore.OverflowDrop {
			kept, dropped = applyDropStrategy(sourceItems, capTokens)
		} else {
			kept, dropped = applyTruncateStrategy(sourceItems, capTokens)
		}

		accepted = append(accepted, kept...)
		overflow = append(overflow, dropped...)
	}

	return accepted, overflow
}

// applyDropStrategy 实现 drop 溢出策略：全保留或全丢弃。
func applyDropStrategy(items []ctxcore.ContextItem, capTokens int) ([]ctxcore.ContextItem, []ctxcore.ContextItem) {
	total := 0
	for _, item := range items {
		total += item.TokenCount()
	}
	if total <= capTokens {
		return items, nil
	}
	return nil, items
}

// applyTruncateStrategy 实现 truncate 溢出策略：保留配额内的条目。
func applyTruncateStrategy(items []ctxcore.ContextItem, capTokens int) ([]ctxcore.ContextItem, []ctxcore.ContextItem) {
	accepted := make([]ctxcore.ContextItem, 0, len(items))
	overflow := make([]ctxcore.ContextItem, 0)
	used := 0
	for _, item := range items {
		if used+item.TokenCount() <= capTokens {
			accepted = append(accepted, item)
			used += item.TokenCount()
		} else {
			overflow = append(overflow, item)
		}
	}
	return accepted, overflow
}

// isContractViolation 报告错误是否属于不可跳过的契约违规。
func isContractViolation(err error) bool {
	return errors.Is(err, ErrAsyncStep) || errors.Is(err, ErrStepContract)
}

// fireStart 触发构建开始回调。
func (p *Pipeline) fireStart(query ctxcore.QueryBundle) {
	firePipelineCallback(p.callbacks, p.logger, func(cb PipelineCallback) {
		cb.OnPipelineStart(query)
	})
}

// fireStepStart 触发步骤开始回调，传入条目快照。
func (p *Pipeline) fireStepStart(stepName string, items []ctxcore.ContextItem) {
	snapshot := make([]ctxcore.ContextItem, len(items))
	copy(snapshot, items)
	firePipelineCallback(p.callbacks, p.logger, func(cb PipelineCallback) {
		cb.OnStepStart(stepName, snapshot)
	})
}

// fireStepEnd 触发步骤结束回调，传入条目快照。
func (p *Pipeline) fireStepEnd(stepName string, items []ctxcore.ContextItem, duration time.Duration) {
	snapshot := make([]ctxcore.ContextItem, len(items))
	copy(snapshot, items)
	firePipelineCallback(p.callbacks, p.logger, func(cb PipelineCallback) {
		cb.OnStepEnd(stepName, snapshot, duration)
	})
}

// fireStepError 触发步骤失败回调。
func (p *Pipeline) fireStepError(stepName string, err error) {
	firePipelineCallback(p.callbacks, p.logger, func(cb PipelineCallback) {
		cb.OnStepError(stepName, err)
	})
}

// firePipelineEnd 触发构建结束回调。
func (p *Pipeline) firePipelineEnd(result *ctxcore.ContextResult) {
	firePipelineCallback(p.callbacks, p.logger, func(cb PipelineCallback) {
		cb.OnPipelineEnd(result)
	})
}
