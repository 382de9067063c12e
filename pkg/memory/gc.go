package memory

import (
	"context"
	"fmt"

	"github.com/easyops/astrocontext-go/pkg/otel"
)

// DefaultRetentionThreshold 是衰减回收的默认保留度阈值。
const DefaultRetentionThreshold = 0.1

// GCStats 汇总一次垃圾回收的结果。
type GCStats struct {
	// ExpiredPruned 是因过期被回收的条目数。
	ExpiredPruned int

	// DecayedPruned 是因保留度低于阈值被回收的条目数。
	DecayedPruned int

	// TotalRemaining 是回收后存储中剩余的条目数。
	// 试运行模式下按"假如执行删除"计算，与真实回收一致。
	TotalRemaining int

	// DryRun 报告本次是否为试运行（不实际删除）。
	DryRun bool
}

// TotalPruned 返回被回收的条目总数（过期 + 衰减）。
func (s GCStats) TotalPruned() int {
	return s.ExpiredPruned + s.DecayedPruned
}

// GarbageCollector 从存储中回收过期与衰减的记忆条目。
//
// 回收分两个阶段：先删除已过期的条目，然后（若配置了衰减曲线）
// 对剩余条目计算保留度并删除低于阈值的条目。两个阶段处理的
// 条目集合不相交：已过期条目不参与衰减评分。
type GarbageCollector struct {
	store     MemoryEntryStore
	decay     Decay
	callbacks []MemoryCallback
	logger    otel.Logger
}

// GCOption 配置 GarbageCollector。
type GCOption func(*GarbageCollector)

// WithDecay 设置衰减曲线。未设置时只执行过期回收。
func WithDecay(decay Decay) GCOption {
	return func(gc *GarbageCollector) {
		gc.decay = decay
	}
}

// WithGCCallbacks 注册回收观察回调。
func WithGCCallbacks(callbacks ...MemoryCallback) GCOption {
	return func(gc *GarbageCollector) {
		gc.callbacks = append(gc.callbacks, callbacks...)
	}
}

// WithGCLogger 设置日志器。
func WithGCLogger(logger otel.Logger) GCOption {
	return func(gc *GarbageCollector) {
		gc.logger = logger
	}
}

// NewGarbageCollector 创建垃圾回收器。
func NewGarbageCollector(store MemoryEntryStore, opts ...GCOption) *GarbageCollector {
	gc := &GarbageCollector{
		store: store,
	}

	for _, opt := range opts {
		opt(gc)
	}

	if gc.logger == nil {
		gc.logger = otel.NewSlogLogger(nil)
	}

	return gc
}

// Collect 执行完整的垃圾回收。
//
// 先回收过期条目，再（若配置了衰减曲线）回收保留度低于
// retentionThreshold 的条目，最后返回统计。dryRun 为 true 时
// 只识别不删除，返回的统计与真实回收一致。
func (gc *GarbageCollector) Collect(ctx context.Context, retentionThreshold float64, dryRun bool) (*GCStats, error) {
	entries, err := gc.store.ListAllUnfiltered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	expired, err := gc.collectExpiredFrom(ctx, entries, dryRun)
	if err != nil {
		return nil, err
	}

	var decayed []MemoryEntry
	if gc.decay != nil {
		decayed, err = gc.collectDecayedFrom(ctx, entries, retentionThreshold, dryRun)
		if err != nil {
			return nil, err
		}
	}

	stats := &GCStats{
		ExpiredPruned:  len(expired),
		DecayedPruned:  len(decayed),
		TotalRemaining: len(entries) - len(expired) - len(decayed),
		DryRun:         dryRun,
	}

	gc.logger.Info("garbage collection finished",
		"expired_pruned", stats.ExpiredPruned,
		"decayed_pruned", stats.DecayedPruned,
		"total_remaining", stats.TotalRemaining,
		"dry_run", stats.DryRun,
	)

	return stats, nil
}

// CollectExpired 只回收过期条目，返回被（或将被）回收的条目。
func (gc *GarbageCollector) CollectExpired(ctx context.Context, dryRun bool) ([]MemoryEntry, error) {
	entries, err := gc.store.ListAllUnfiltered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return gc.collectExpiredFrom(ctx, entries, dryRun)
}

// CollectDecayed 只回收保留度低于阈值的条目。
// 未配置衰减曲线时返回 ErrNoDecay。
func (gc *GarbageCollector) CollectDecayed(ctx context.Context, retentionThreshold float64, dryRun bool) ([]MemoryEntry, error) {
	if gc.decay == nil {
		return nil, ErrNoDecay
	}

	entries, err := gc.store.ListAllUnfiltered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return gc.collectDecayedFrom(ctx, entries, retentionThreshold, dryRun)
}

func (gc *GarbageCollector) collectExpiredFrom(ctx context.Context, entries []MemoryEntry, dryRun bool) ([]MemoryEntry, error) {
	expired := make([]MemoryEntry, 0)
	for _, entry := range entries {
		if entry.IsExpired() {
			expired = append(expired, entry)
		}
	}

	if len(expired) > 0 && !dryRun {
		for _, entry := range expired {
			if _, err := gc.store.Delete(ctx, entry.ID); err != nil {
				return nil, fmt.Errorf("delete expired entry %s: %w", entry.ID, err)
			}
		}
	}

	if len(expired) > 0 {
		fireMemoryCallback(gc.callbacks, gc.logger, func(cb MemoryCallback) {
			cb.OnExpiryPrune(expired)
		})
	}

	return expired, nil
}

func (gc *GarbageCollector) collectDecayedFrom(ctx context.Context, entries []MemoryEntry, retentionThreshold float64, dryRun bool) ([]MemoryEntry, error) {
	// 已过期条目不参与衰减评分，两个阶段互不重叠
	decayed := make([]MemoryEntry, 0)
	for _, entry := range entries {
		if entry.IsExpired() {
			continue
		}
		if gc.decay.ComputeRetention(entry) < retentionThreshold {
			decayed = append(decayed, entry)
		}
	}

	if len(decayed) > 0 && !dryRun {
		for _, entry := range decayed {
			if _, err := gc.store.Delete(ctx, entry.ID); err != nil {
				return nil, fmt.Errorf("delete decayed entry %s: %w", entry.ID, err)
			}
		}
	}

	if len(decayed) > 0 {
		fireMemoryCallback(gc.callbacks, gc.logger, func(cb MemoryCallback) {
			cb.OnDecayPrune(decayed, retentionThreshold)
		})
	}

	return decayed, nil
}
