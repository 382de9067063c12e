package config

import "errors"

// 配置验证相关错误
var (
	// ErrInvalidMaxTokens Token 上限无效
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")
	// ErrInvalidReserveTokens 预留 Token 数无效
	ErrInvalidReserveTokens = errors.New("reserve tokens must be non-negative and less than max tokens")
	// ErrInvalidBackend 记忆后端类型无效
	ErrInvalidBackend = errors.New("memory backend must be sliding or summary")
	// ErrInvalidDriver 存储驱动无效
	ErrInvalidDriver = errors.New("store driver must be memory, sqlite or neo4j")
	// ErrInvalidThreshold 保留度阈值无效
	ErrInvalidThreshold = errors.New("retention threshold must be in [0, 1)")
)
