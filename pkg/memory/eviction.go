package memory

import (
	"sort"
)

// EvictionPolicy 决定窗口超出 Token 预算时淘汰哪些轮次。
type EvictionPolicy interface {
	// SelectForEviction 返回应被淘汰的轮次下标（基于传入切片）。
	// turns 按时间从旧到新排列，tokensToFree 是至少需要释放的 Token 数。
	SelectForEviction(turns []ConversationTurn, tokensToFree int) []int
}

// FIFOEviction 先进先出淘汰：优先淘汰最旧的轮次。
// 这是滑动窗口记忆的默认策略。
type FIFOEviction struct{}

// SelectForEviction 从最旧轮次开始选择，直到释放足够的 Token。
func (FIFOEviction) SelectForEviction(turns []ConversationTurn, tokensToFree int) []int {
	indices := make([]int, 0)
	freed := 0
	for i, turn := range turns {
		if freed >= tokensToFree {
			break
		}
		indices = append(indices, i)
		freed += turn.TokenCount
	}
	return indices
}

// ImportanceFn 为轮次计算重要性评分。
type ImportanceFn func(turn ConversationTurn) float64

// ImportanceEviction 优先淘汰重要性评分最低的轮次。
type ImportanceEviction struct {
	importanceFn ImportanceFn
}

// NewImportanceEviction 使用给定的评分函数创建 ImportanceEviction。
func NewImportanceEviction(fn ImportanceFn) *ImportanceEviction {
	return &ImportanceEviction{importanceFn: fn}
}

// SelectForEviction 按重要性升序选择轮次，直到释放足够的 Token。
func (p *ImportanceEviction) SelectForEviction(turns []ConversationTurn, tokensToFree int) []int {
	type scored struct {
		index int
		score float64
	}

	ranked := make([]scored, len(turns))
	for i, turn := range turns {
		ranked[i] = scored{index: i, score: p.importanceFn(turn)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	indices := make([]int, 0)
	freed := 0
	for _, s := range ranked {
		if freed >= tokensToFree {
			break
		}
		indices = append(indices, s.index)
		freed += turns[s.index].TokenCount
	}
	return indices
}

// PairedEviction 将 user+assistant 轮次成对淘汰，避免孤立的上下文。
//
// 连续的 user 轮次后跟 assistant 轮次被视为一对；
// 边界处无法成对的单轮仍可单独淘汰。配对按从旧到新的顺序淘汰。
type PairedEviction struct{}

// SelectForEviction 从最旧的配对开始选择，直到释放足够的 Token。
func (PairedEviction) SelectForEviction(turns []ConversationTurn, tokensToFree int) []int {
	type group struct {
		indices []int
		tokens  int
	}

	groups := make([]group, 0)
	i := 0
	for i < len(turns) {
		if turns[i].Role == RoleUser && i+1 < len(turns) && turns[i+1].Role == RoleAssistant {
			groups = append(groups, group{
				indices: []int{i, i + 1},
				tokens:  turns[i].TokenCount + turns[i+1].TokenCount,
			})
			i += 2
		} else {
			groups = append(groups, group{
				indices: []int{i},
				tokens:  turns[i].TokenCount,
			})
			i++
		}
	}

	indices := make([]int, 0)
	freed := 0
	for _, g := range groups {
		if freed >= tokensToFree {
			break
		}
		indices = append(indices, g.indices...)
		freed += g.tokens
	}
	return indices
}

// 编译时接口检查
var _ EvictionPolicy = FIFOEviction{}
var _ EvictionPolicy = (*ImportanceEviction)(nil)
var _ EvictionPolicy = PairedEviction{}
