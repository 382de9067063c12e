package ctxcore

import (
	"fmt"
)

// OverflowStrategy 表示某来源超出配额时的处理策略。
type OverflowStrategy string

const (
	// OverflowTruncate 表示按配额截断：保留配额内的条目，丢弃其余。
	OverflowTruncate OverflowStrategy = "truncate"

	// OverflowDrop 表示整组丢弃：该来源超配额时丢弃全部条目。
	OverflowDrop OverflowStrategy = "drop"
)

// BudgetAllocation 表示对单一来源类型的 Token 配额。
type BudgetAllocation struct {
	// Source 是配额对应的来源类型。
	Source SourceType

	// MaxTokens 是该来源的 Token 上限，必须大于 0。
	MaxTokens int

	// Priority 是该来源的优先级（1-10）。
	Priority int

	// Strategy 是超出配额时的处理策略，默认 OverflowTruncate。
	Strategy OverflowStrategy
}

// TokenBudget 管理跨来源的 Token 预算分配。
//
// 总预算中显式分配给各来源的部分之外，剩余 Token 构成共享池；
// 未配置配额的来源共用共享池。预算在构造时校验，
// 构造后不再变化，可安全地被多个构建并发读取。
type TokenBudget struct {
	totalTokens   int
	allocations   []BudgetAllocation
	reserveTokens int
}

// BudgetOption 配置 TokenBudget。
type BudgetOption func(*TokenBudget)

// WithAllocation 追加一条来源配额。
// strategy 为空时默认 OverflowTruncate。
func WithAllocation(source SourceType, maxTokens int, strategy OverflowStrategy) BudgetOption {
	return func(b *TokenBudget) {
		if strategy == "" {
			strategy = OverflowTruncate
		}
		b.allocations = append(b.allocations, BudgetAllocation{
			Source:    source,
			MaxTokens: maxTokens,
			Priority:  5,
			Strategy:  strategy,
		})
	}
}

// WithAllocations 追加多条来源配额。
func WithAllocations(allocations ...BudgetAllocation) BudgetOption {
	return func(b *TokenBudget) {
		b.allocations = append(b.allocations, allocations...)
	}
}

// WithReserveTokens 设置预留的 Token 数（例如为模型回复预留）。
func WithReserveTokens(reserve int) BudgetOption {
	return func(b *TokenBudget) {
		b.reserveTokens = reserve
	}
}

// NewTokenBudget 创建并校验 TokenBudget。
//
// 校验规则：totalTokens 必须大于 0；每条配额的 MaxTokens 必须
// 大于 0；预留量不能为负；配额与预留之和不得超过总预算。
// 校验失败返回包装了 ErrInvalidBudget 的错误。
func NewTokenBudget(totalTokens int, opts ...BudgetOption) (*TokenBudget, error) {
	b := &TokenBudget{
		totalTokens: totalTokens,
		allocations: make([]BudgetAllocation, 0),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.totalTokens <= 0 {
		return nil, fmt.Errorf("%w: total tokens must be positive, got %d", ErrInvalidBudget, b.totalTokens)
	}
	if b.reserveTokens < 0 {
		return nil, fmt.Errorf("%w: reserve tokens must not be negative, got %d", ErrInvalidBudget, b.reserveTokens)
	}

	allocated := b.reserveTokens
	for i := range b.allocations {
		a := &b.allocations[i]
		if a.MaxTokens <= 0 {
			return nil, fmt.Errorf("%w: allocation for %q must have positive max tokens, got %d",
				ErrInvalidBudget, a.Source, a.MaxTokens)
		}
		if a.Strategy == "" {
			a.Strategy = OverflowTruncate
		}
		a.Priority = clampPriority(a.Priority)
		allocated += a.MaxTokens
	}

	if allocated > b.totalTokens {
		return nil, fmt.Errorf("%w: allocated tokens (%d) exceed total budget (%d)",
			ErrInvalidBudget, allocated, b.totalTokens)
	}

	return b, nil
}

// TotalTokens 返回总预算。
func (b *TokenBudget) TotalTokens() int { return b.totalTokens }

// ReserveTokens 返回预留的 Token 数。
func (b *TokenBudget) ReserveTokens() int { return b.reserveTokens }

// Allocations 返回全部配额的副本。
func (b *TokenBudget) Allocations() []BudgetAllocation {
	out := make([]BudgetAllocation, len(b.allocations))
	copy(out, b.allocations)
	return out
}

// SharedPool 返回未显式分配给任何来源的 Token 数。
func (b *TokenBudget) SharedPool() int {
	allocated := b.reserveTokens
	for _, a := range b.allocations {
		allocated += a.MaxTokens
	}
	return b.totalTokens - allocated
}

// GetAllocation 返回给定来源的 Token 配额。
// 未配置配额的来源回退到共享池大小。
func (b *TokenBudget) GetAllocation(source SourceType) int {
	for _, a := range b.allocations {
		if a.Source == source {
			return a.MaxTokens
		}
	}
	return b.SharedPool()
}

// GetOverflowStrategy 返回给定来源的溢出策略，默认 OverflowTruncate。
func (b *TokenBudget) GetOverflowStrategy(source SourceType) OverflowStrategy {
	for _, a := range b.allocations {
		if a.Source == source {
			return a.Strategy
		}
	}
	return OverflowTruncate
}

// HasAllocation 报告给定来源是否配置了显式配额。
func (b *TokenBudget) HasAllocation(source SourceType) bool {
	for _, a := range b.allocations {
		if a.Source == source {
			return true
		}
	}
	return false
}
