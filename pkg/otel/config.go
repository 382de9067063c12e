package otel

import "time"

// Config 描述上下文组装引擎的可观测性开关与导出目标。
//
// 通常不手工构造：业务侧由 pkg/core/config 从环境变量装配，
// 再经 ToOtelConfig 转换得到。Enabled 为 false 时 Provider
// 全部退化为空实现。
type Config struct {
	// Enabled 是否启用可观测性
	Enabled bool `koanf:"enabled"`

	// ServiceName 上报到后端的服务名
	ServiceName string `koanf:"service_name"`
	// ServiceVersion 上报到后端的服务版本
	ServiceVersion string `koanf:"service_version"`
	// Environment 部署环境（development, staging, production）
	Environment string `koanf:"environment"`

	// Tracing 追踪导出配置
	Tracing TracingConfig `koanf:"tracing"`
	// Metrics 指标导出配置
	Metrics MetricsConfig `koanf:"metrics"`
	// Logging 日志输出配置
	Logging LoggingConfig `koanf:"logging"`
}

// TracingConfig 控制 Span 的采样与 OTLP 导出。
type TracingConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `koanf:"enabled"`
	// Endpoint OTLP gRPC 端点，如 "localhost:4317"
	Endpoint string `koanf:"endpoint"`
	// Insecure 是否跳过 TLS
	Insecure bool `koanf:"insecure"`
	// SampleRate 采样率，取值 [0.0, 1.0]
	SampleRate float64 `koanf:"sample_rate"`
	// Timeout 单次导出的超时
	Timeout time.Duration `koanf:"timeout"`
}

// MetricsConfig 控制指标的周期性导出。
type MetricsConfig struct {
	// Enabled 是否启用指标
	Enabled bool `koanf:"enabled"`
	// Endpoint OTLP gRPC 端点
	Endpoint string `koanf:"endpoint"`
	// Insecure 是否跳过 TLS
	Insecure bool `koanf:"insecure"`
	// Interval 指标推送间隔
	Interval time.Duration `koanf:"interval"`
}

// LoggingConfig 控制结构化日志输出。
type LoggingConfig struct {
	// Level 最低输出级别（debug, info, warn, error）
	Level string `koanf:"level"`
	// Format 输出格式（text, json）
	Format string `koanf:"format"`
	// IncludeTraceID 是否在日志行附加当前 Trace ID
	IncludeTraceID bool `koanf:"include_trace_id"`
}

// DefaultConfig 返回默认配置：可观测性整体关闭，
// 端点指向本地 OTLP gRPC 收集器。
func DefaultConfig() Config {
	return Config{
		ServiceName:    "astrocontext",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			Insecure:   true,
			SampleRate: 1.0,
			Timeout:    30 * time.Second,
		},
		Metrics: MetricsConfig{
			Endpoint: "localhost:4317",
			Insecure: true,
			Interval: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			IncludeTraceID: true,
		},
	}
}

// Validate 校验配置合法性。
func (c *Config) Validate() error {
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	return nil
}

// WithDefaults 用默认值补齐未显式设置的字段，已设置的字段保持不变。
// 开关类字段（Enabled, Insecure, IncludeTraceID）不做补齐，
// 零值即语义。
func (c Config) WithDefaults() Config {
	d := DefaultConfig()

	fillString(&c.ServiceName, d.ServiceName)
	fillString(&c.ServiceVersion, d.ServiceVersion)
	fillString(&c.Environment, d.Environment)

	fillString(&c.Tracing.Endpoint, d.Tracing.Endpoint)
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = d.Tracing.SampleRate
	}
	fillDuration(&c.Tracing.Timeout, d.Tracing.Timeout)

	fillString(&c.Metrics.Endpoint, d.Metrics.Endpoint)
	fillDuration(&c.Metrics.Interval, d.Metrics.Interval)

	fillString(&c.Logging.Level, d.Logging.Level)
	fillString(&c.Logging.Format, d.Logging.Format)

	return c
}

func fillString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}

func fillDuration(dst *time.Duration, fallback time.Duration) {
	if *dst == 0 {
		*dst = fallback
	}
}
