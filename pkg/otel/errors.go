package otel

import "errors"

// 可观测性配置错误
var (
	// ErrInvalidSampleRate 采样率超出 [0, 1]
	ErrInvalidSampleRate = errors.New("sample rate must be between 0 and 1")
)
