package pipeline

import (
	"fmt"
	"sort"
	"strings"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

// QueryEnricher 在检索步骤执行前用记忆上下文富化查询。
//
// 富化是纯机械的（模板拼接、关键词提取等），本包不会调用 LLM。
type QueryEnricher interface {
	// Enrich 返回利用记忆条目富化后的查询文本。
	Enrich(query string, contextItems []ctxcore.ContextItem) string
}

// DefaultEnrichTemplate 是默认的富化模板。
const DefaultEnrichTemplate = "{query}\n\nConversation context: {context}"

// MemoryContextEnricher 将最近的对话上下文追加到查询末尾。
//
// 这让检索步骤能找到与当前对话相关的文档，
// 而不仅仅匹配查询的字面内容。
type MemoryContextEnricher struct {
	maxItems int
	template string
}

// EnricherOption 配置 MemoryContextEnricher。
type EnricherOption func(*MemoryContextEnricher)

// WithMaxEnrichItems 设置参与富化的最近条目数量上限（默认 5）。
func WithMaxEnrichItems(maxItems int) EnricherOption {
	return func(e *MemoryContextEnricher) {
		e.maxItems = maxItems
	}
}

// WithEnrichTemplate 设置富化模板。
// 模板中的 {query} 与 {context} 占位符会被替换。
func WithEnrichTemplate(template string) EnricherOption {
	return func(e *MemoryContextEnricher) {
		e.template = template
	}
}

// NewMemoryContextEnricher 创建记忆上下文富化器。
func NewMemoryContextEnricher(opts ...EnricherOption) (*MemoryContextEnricher, error) {
	e := &MemoryContextEnricher{
		maxItems: 5,
		template: DefaultEnrichTemplate,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.maxItems <= 0 {
		return nil, fmt.Errorf("%w: max enrich items must be positive, got %d", ErrInvalidPipeline, e.maxItems)
	}

	return e, nil
}

// Enrich 将最近 maxItems 个条目的内容拼接进查询。
// 没有可用条目时原样返回查询。
func (e *MemoryContextEnricher) Enrich(query string, contextItems []ctxcore.ContextItem) string {
	if len(contextItems) == 0 {
		return query
	}

	// 按创建时间升序排列，取最近的 N 个
	sorted := make([]ctxcore.ContextItem, len(contextItems))
	copy(sorted, contextItems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt().Before(sorted[j].CreatedAt())
	})

	start := len(sorted) - e.maxItems
	if start < 0 {
		start = 0
	}
	recent := sorted[start:]

	snippets := make([]string, 0, len(recent))
	for _, item := range recent {
		snippets = append(snippets, item.Content())
	}
	contextStr := strings.Join(snippets, "; ")

	if strings.TrimSpace(contextStr) == "" {
		return query
	}

	out := strings.ReplaceAll(e.template, "{query}", query)
	return strings.ReplaceAll(out, "{context}", contextStr)
}

// 编译时接口检查
var _ QueryEnricher = (*MemoryContextEnricher)(nil)
