// Package errors 定义跨包共享的外部依赖错误类型。
package errors

import "errors"

// 摘要压缩相关错误
var (
	// ErrRateLimited 请求被限速
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout 请求超时
	ErrTimeout = errors.New("request timeout")
	// ErrProviderUnavailable 提供商不可用
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInvalidResponse 模型响应无效
	ErrInvalidResponse = errors.New("invalid model response")
)

// 存储相关错误
var (
	// ErrStoreUnavailable 存储不可用
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsRetryable 判断错误是否为重试后可能恢复的瞬时故障。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProviderUnavailable)
}
