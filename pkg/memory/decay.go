package memory

import (
	"fmt"
	"math"
	"time"
)

// Decay 为长期记忆条目计算保留度评分。
type Decay interface {
	// ComputeRetention 返回条目的保留度（0.0-1.0），
	// 1.0 表示刚被访问，0.0 表示完全遗忘。
	ComputeRetention(entry MemoryEntry) float64
}

// RecencyScorer 为窗口内的轮次按位置计算新近度评分。
type RecencyScorer interface {
	// Score 返回位于 index（0 为最旧）的轮次在 total 个轮次中的评分。
	Score(index, total int) float64
}

// EbbinghausDecay 实现艾宾浩斯遗忘曲线：R = e^(-t/S)。
//
// 记忆强度 S 随访问次数增长：
// S = baseStrength + accessCount * reinforcementFactor，
// 时间 t 以距最近访问的小时数计。
type EbbinghausDecay struct {
	baseStrength        float64
	reinforcementFactor float64
}

// EbbinghausOption 配置 EbbinghausDecay。
type EbbinghausOption func(*EbbinghausDecay)

// WithBaseStrength 设置基础记忆强度（必须为正）。
func WithBaseStrength(strength float64) EbbinghausOption {
	return func(d *EbbinghausDecay) {
		d.baseStrength = strength
	}
}

// WithReinforcementFactor 设置每次访问的强化系数（不能为负）。
func WithReinforcementFactor(factor float64) EbbinghausOption {
	return func(d *EbbinghausDecay) {
		d.reinforcementFactor = factor
	}
}

// NewEbbinghausDecay 创建艾宾浩斯衰减曲线。
// 默认基础强度 1.0，强化系数 0.5。
func NewEbbinghausDecay(opts ...EbbinghausOption) (*EbbinghausDecay, error) {
	d := &EbbinghausDecay{
		baseStrength:        1.0,
		reinforcementFactor: 0.5,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.baseStrength <= 0 {
		return nil, fmt.Errorf("%w: base strength must be positive, got %v", ErrInvalidDecay, d.baseStrength)
	}
	if d.reinforcementFactor < 0 {
		return nil, fmt.Errorf("%w: reinforcement factor must not be negative, got %v", ErrInvalidDecay, d.reinforcementFactor)
	}

	return d, nil
}

// ComputeRetention 按遗忘曲线计算保留度。
func (d *EbbinghausDecay) ComputeRetention(entry MemoryEntry) float64 {
	elapsedHours := time.Now().UTC().Sub(entry.LastAccessed).Hours()
	strength := d.baseStrength + float64(entry.AccessCount)*d.reinforcementFactor
	retention := math.Exp(-elapsedHours / strength)
	return clampUnit(retention)
}

// LinearDecay 实现线性衰减：在半衰期处保留度为 0.5，
// 两倍半衰期处降为 0.0。
type LinearDecay struct {
	halfLife time.Duration
}

// NewLinearDecay 创建线性衰减曲线，halfLife 必须为正。
func NewLinearDecay(halfLife time.Duration) (*LinearDecay, error) {
	if halfLife <= 0 {
		return nil, fmt.Errorf("%w: half life must be positive, got %v", ErrInvalidDecay, halfLife)
	}
	return &LinearDecay{halfLife: halfLife}, nil
}

// ComputeRetention 按线性插值计算保留度。
func (d *LinearDecay) ComputeRetention(entry MemoryEntry) float64 {
	elapsed := time.Now().UTC().Sub(entry.LastAccessed)
	retention := 1.0 - elapsed.Hours()/(2.0*d.halfLife.Hours())
	return clampUnit(retention)
}

// LinearRecencyScorer 实现线性新近度评分：
// 最旧的轮次得 minScore，最新的得 1.0，中间线性插值。
type LinearRecencyScorer struct {
	minScore float64
}

// NewLinearRecencyScorer 创建线性新近度评分器。
// minScore 必须位于 [0.0, 1.0)。
func NewLinearRecencyScorer(minScore float64) (*LinearRecencyScorer, error) {
	if minScore < 0 || minScore >= 1 {
		return nil, fmt.Errorf("%w: min score must be in [0.0, 1.0), got %v", ErrInvalidScorer, minScore)
	}
	return &LinearRecencyScorer{minScore: minScore}, nil
}

// Score 返回线性插值的新近度评分。
func (s *LinearRecencyScorer) Score(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return s.minScore + (1.0-s.minScore)*(float64(index)/float64(total-1))
}

// ExponentialRecencyScorer 实现指数新近度评分，
// 对较新轮次的偏置比线性评分更陡峭。
type ExponentialRecencyScorer struct {
	decayRate float64
}

// NewExponentialRecencyScorer 创建指数新近度评分器。
// decayRate 必须为正。
func NewExponentialRecencyScorer(decayRate float64) (*ExponentialRecencyScorer, error) {
	if decayRate <= 0 {
		return nil, fmt.Errorf("%w: decay rate must be positive, got %v", ErrInvalidScorer, decayRate)
	}
	return &ExponentialRecencyScorer{decayRate: decayRate}, nil
}

// Score 返回指数曲线映射的新近度评分：
// (e^(rate*normalized) - 1) / (e^rate - 1)。
func (s *ExponentialRecencyScorer) Score(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	normalized := float64(index) / float64(total-1)
	denominator := math.Exp(s.decayRate) - 1.0
	if denominator == 0 {
		return normalized
	}
	return (math.Exp(s.decayRate*normalized) - 1.0) / denominator
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// 编译时接口检查
var _ Decay = (*EbbinghausDecay)(nil)
var _ Decay = (*LinearDecay)(nil)
var _ RecencyScorer = (*LinearRecencyScorer)(nil)
var _ RecencyScorer = (*ExponentialRecencyScorer)(nil)
