package ctxcore

import "errors"

// 核心模型错误定义
var (
	// ErrInvalidBudget 表示 Token 预算配置不合法。
	ErrInvalidBudget = errors.New("invalid token budget")

	// ErrInvalidWindow 表示上下文窗口配置不合法。
	ErrInvalidWindow = errors.New("invalid context window")
)
