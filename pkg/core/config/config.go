// Package config 提供配置加载和管理功能
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/easyops/astrocontext-go/pkg/otel"
)

// EnvPrefix 是环境变量前缀。
const EnvPrefix = "ASTROCONTEXT_"

// Config 全局配置结构
type Config struct {
	// Pipeline 流水线配置
	Pipeline PipelineConfig `koanf:"pipeline"`
	// Memory 记忆层配置
	Memory MemoryConfig `koanf:"memory"`
	// Tokenizer 分词器配置
	Tokenizer TokenizerConfig `koanf:"tokenizer"`
	// Store 持久化存储配置
	Store StoreConfig `koanf:"store"`
	// GC 垃圾回收配置
	GC GCConfig `koanf:"gc"`
	// Observability 可观测性配置
	Observability ObservabilityConfig `koanf:"observability"`
}

// PipelineConfig 流水线配置
type PipelineConfig struct {
	// MaxTokens 上下文窗口 Token 上限
	MaxTokens int `koanf:"max_tokens"`
	// ReserveTokens 预留的 Token 数
	ReserveTokens int `koanf:"reserve_tokens"`
	// Format 输出格式（text）
	Format string `koanf:"format"`
}

// MemoryConfig 记忆层配置
type MemoryConfig struct {
	// MaxTokens 对话记忆 Token 上限
	MaxTokens int `koanf:"max_tokens"`
	// Backend 后端类型（sliding, summary）
	Backend string `koanf:"backend"`
	// SummaryModel 摘要压缩使用的模型
	SummaryModel string `koanf:"summary_model"`
	// SummaryPriority 摘要条目的优先级 (1-10)
	SummaryPriority int `koanf:"summary_priority"`
}

// TokenizerConfig 分词器配置
type TokenizerConfig struct {
	// Model 计数使用的模型名称
	Model string `koanf:"model"`
	// CharsPerToken 估算计数时每 Token 的字符数
	CharsPerToken float64 `koanf:"chars_per_token"`
}

// StoreConfig 持久化存储配置
type StoreConfig struct {
	// Driver 存储驱动（memory, sqlite, neo4j）
	Driver string `koanf:"driver"`
	// DSN SQLite 数据源（文件路径）
	DSN string `koanf:"dsn"`
	// Neo4jURI Neo4j 连接地址
	Neo4jURI string `koanf:"neo4j_uri"`
	// Neo4jUsername Neo4j 用户名
	Neo4jUsername string `koanf:"neo4j_username"`
	// Neo4jPassword Neo4j 密码
	Neo4jPassword string `koanf:"neo4j_password"`
}

// GCConfig 垃圾回收配置
type GCConfig struct {
	// RetentionThreshold 保留度阈值 [0, 1)
	RetentionThreshold float64 `koanf:"retention_threshold"`
	// BaseStrength 记忆强度基数
	BaseStrength float64 `koanf:"base_strength"`
	// ReinforcementFactor 每次访问的强度增量
	ReinforcementFactor float64 `koanf:"reinforcement_factor"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	// Enabled 是否启用
	Enabled bool `koanf:"enabled"`
	// ServiceName 服务名称
	ServiceName string `koanf:"service_name"`
	// TracerEndpoint 追踪端点
	TracerEndpoint string `koanf:"tracer_endpoint"`
	// MetricsEndpoint 指标端点
	MetricsEndpoint string `koanf:"metrics_endpoint"`
	// SampleRate 采样率 [0, 1]
	SampleRate float64 `koanf:"sample_rate"`
	// LogLevel 日志级别 (debug, info, warn, error)
	LogLevel string `koanf:"log_level"`
	// LogFormat 日志格式 (text, json)
	LogFormat string `koanf:"log_format"`
}

// ToOtelConfig 转换为可观测性包的配置
func (c ObservabilityConfig) ToOtelConfig() otel.Config {
	cfg := otel.DefaultConfig()
	cfg.Enabled = c.Enabled
	if c.ServiceName != "" {
		cfg.ServiceName = c.ServiceName
	}
	if c.TracerEndpoint != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Endpoint = c.TracerEndpoint
	}
	if c.MetricsEndpoint != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Endpoint = c.MetricsEndpoint
	}
	if c.SampleRate != 0 {
		cfg.Tracing.SampleRate = c.SampleRate
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Logging.Format = c.LogFormat
	}
	return cfg
}

// Loader 配置加载器
type Loader struct {
	k *koanf.Koanf
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{
		k: koanf.New("."),
	}
}

// LoadEnv 从环境变量加载配置
//
// 第一个下划线分隔配置段，其余部分保留为字段名:
// ASTROCONTEXT_PIPELINE_MAX_TOKENS -> pipeline.max_tokens
func (l *Loader) LoadEnv(prefix string) error {
	return l.k.Load(env.Provider(prefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		return strings.Replace(s, "_", ".", 1)
	}), nil)
}

// Unmarshal 解析配置到结构体
func (l *Loader) Unmarshal(cfg *Config) error {
	return l.k.Unmarshal("", cfg)
}

// Get 获取配置值
func (l *Loader) Get(key string) interface{} {
	return l.k.Get(key)
}

// GetString 获取字符串配置值
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt 获取整数配置值
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool 获取布尔配置值
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// GetFloat 获取浮点配置值
func (l *Loader) GetFloat(key string) float64 {
	return l.k.Float64(key)
}

// GetDuration 获取时间间隔配置值
func (l *Loader) GetDuration(key string) time.Duration {
	return l.k.Duration(key)
}

// Load 从环境变量加载完整配置并应用默认值
func Load() (*Config, error) {
	loader := NewLoader()

	if err := loader.LoadEnv(EnvPrefix); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Pipeline.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}
	if c.Pipeline.ReserveTokens < 0 || c.Pipeline.ReserveTokens >= c.Pipeline.MaxTokens {
		return ErrInvalidReserveTokens
	}
	if c.Memory.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}
	switch c.Memory.Backend {
	case "sliding", "summary":
	default:
		return ErrInvalidBackend
	}
	switch c.Store.Driver {
	case "memory", "sqlite", "neo4j":
	default:
		return ErrInvalidDriver
	}
	if c.GC.RetentionThreshold < 0 || c.GC.RetentionThreshold >= 1 {
		return ErrInvalidThreshold
	}
	return nil
}

// applyDefaults 应用默认配置值
func applyDefaults(cfg *Config) {
	// Pipeline 默认值
	if cfg.Pipeline.MaxTokens == 0 {
		cfg.Pipeline.MaxTokens = 8192
	}
	if cfg.Pipeline.Format == "" {
		cfg.Pipeline.Format = "text"
	}

	// Memory 默认值
	if cfg.Memory.MaxTokens == 0 {
		cfg.Memory.MaxTokens = 4096
	}
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = "sliding"
	}
	if cfg.Memory.SummaryPriority == 0 {
		cfg.Memory.SummaryPriority = 6
	}

	// Tokenizer 默认值
	if cfg.Tokenizer.Model == "" {
		cfg.Tokenizer.Model = "gpt-4o"
	}
	if cfg.Tokenizer.CharsPerToken == 0 {
		cfg.Tokenizer.CharsPerToken = 4.0
	}

	// Store 默认值
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = "astrocontext.db"
	}
	if cfg.Store.Neo4jURI == "" {
		cfg.Store.Neo4jURI = "bolt://localhost:7687"
	}

	// GC 默认值
	if cfg.GC.RetentionThreshold == 0 {
		cfg.GC.RetentionThreshold = 0.1
	}
	if cfg.GC.BaseStrength == 0 {
		cfg.GC.BaseStrength = 1.0
	}
	if cfg.GC.ReinforcementFactor == 0 {
		cfg.GC.ReinforcementFactor = 0.5
	}

	// Observability 默认值
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "astrocontext"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}
}
