package memory

import "errors"

// 记忆层错误定义
var (
	// ErrInvalidMaxTokens 表示 Token 上限配置不合法。
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")

	// ErrCompactorRequired 表示摘要缓冲记忆缺少压缩函数。
	ErrCompactorRequired = errors.New("exactly one of compactor or progressive compactor must be provided")

	// ErrNoDecay 表示在未配置衰减曲线时请求了衰减回收。
	ErrNoDecay = errors.New("cannot collect decayed entries without a decay function")

	// ErrInvalidDecay 表示衰减曲线参数不合法。
	ErrInvalidDecay = errors.New("invalid decay parameters")

	// ErrInvalidScorer 表示新近度评分器参数不合法。
	ErrInvalidScorer = errors.New("invalid recency scorer parameters")
)
