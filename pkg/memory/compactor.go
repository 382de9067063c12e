package memory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	corerrors "github.com/easyops/astrocontext-go/pkg/core/errors"
)

// Compactor 将被淘汰的轮次压缩为摘要文本。
type Compactor interface {
	// Compact 返回给定轮次的摘要。
	Compact(turns []ConversationTurn) (string, error)
}

// ProgressiveCompactor 在上一轮摘要的基础上渐进压缩。
type ProgressiveCompactor interface {
	// Compact 返回合并了 previousSummary 与新淘汰轮次的摘要。
	// previousSummary 在首次压缩时为空字符串。
	Compact(turns []ConversationTurn, previousSummary string) (string, error)
}

// CompactorFunc 将函数适配为 Compactor。
type CompactorFunc func(turns []ConversationTurn) (string, error)

// Compact 调用底层函数。
func (f CompactorFunc) Compact(turns []ConversationTurn) (string, error) {
	return f(turns)
}

// ProgressiveCompactorFunc 将函数适配为 ProgressiveCompactor。
type ProgressiveCompactorFunc func(turns []ConversationTurn, previousSummary string) (string, error)

// Compact 调用底层函数。
func (f ProgressiveCompactorFunc) Compact(turns []ConversationTurn, previousSummary string) (string, error) {
	return f(turns, previousSummary)
}

// JoinCompactor 将轮次按 "role: content" 逐行拼接。
// 这是最简单的压缩实现，适合测试与离线场景。
type JoinCompactor struct{}

// Compact 返回拼接后的文本。
func (JoinCompactor) Compact(turns []ConversationTurn) (string, error) {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return strings.Join(lines, "\n"), nil
}

const defaultSummaryPrompt = "Summarize the following conversation excerpt concisely, " +
	"preserving key facts, decisions and open questions."

const progressiveSummaryPrompt = "Below is the running summary of a conversation followed by " +
	"newly removed turns. Produce an updated summary that merges both, " +
	"preserving key facts, decisions and open questions."

// OpenAICompactor 使用 OpenAI 兼容接口生成对话摘要。
// 同时实现 Compactor 与 ProgressiveCompactor。
type OpenAICompactor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// OpenAICompactorOption 配置 OpenAICompactor。
type OpenAICompactorOption func(*OpenAICompactor)

// WithCompactorModel 设置使用的模型（默认 gpt-4o-mini）。
func WithCompactorModel(model string) OpenAICompactorOption {
	return func(c *OpenAICompactor) {
		c.model = model
	}
}

// WithCompactorTimeout 设置单次摘要调用的超时（默认 30 秒）。
func WithCompactorTimeout(timeout time.Duration) OpenAICompactorOption {
	return func(c *OpenAICompactor) {
		c.timeout = timeout
	}
}

// NewOpenAICompactor 使用给定的客户端创建 OpenAICompactor。
func NewOpenAICompactor(client *openai.Client, opts ...OpenAICompactorOption) *OpenAICompactor {
	c := &OpenAICompactor{
		client:  client,
		model:   openai.GPT4oMini,
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compact 生成给定轮次的摘要。
func (c *OpenAICompactor) Compact(turns []ConversationTurn) (string, error) {
	excerpt, err := JoinCompactor{}.Compact(turns)
	if err != nil {
		return "", err
	}
	return c.complete(defaultSummaryPrompt, excerpt)
}

// CompactProgressive 在上一轮摘要的基础上生成合并摘要。
func (c *OpenAICompactor) CompactProgressive(turns []ConversationTurn, previousSummary string) (string, error) {
	excerpt, err := JoinCompactor{}.Compact(turns)
	if err != nil {
		return "", err
	}

	var input strings.Builder
	if previousSummary != "" {
		input.WriteString("Current summary:\n")
		input.WriteString(previousSummary)
		input.WriteString("\n\n")
	}
	input.WriteString("New turns:\n")
	input.WriteString(excerpt)

	return c.complete(progressiveSummaryPrompt, input.String())
}

// complete 调用聊天补全接口。
func (c *OpenAICompactor) complete(systemPrompt, userContent string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary completion failed: %w", classifyCompletionError(err))
	}
	if len(resp.Choices) == 0 {
		return "", corerrors.ErrInvalidResponse
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classifyCompletionError 把接口错误归类为包级哨兵错误，
// 让调用方能用 errors.Is 与 IsRetryable 做决策。
func classifyCompletionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return corerrors.ErrTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return corerrors.ErrRateLimited
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return corerrors.ErrProviderUnavailable
		}
	}

	return err
}

// 编译时接口检查
var _ Compactor = JoinCompactor{}
var _ Compactor = CompactorFunc(nil)
var _ ProgressiveCompactor = ProgressiveCompactorFunc(nil)
var _ Compactor = (*OpenAICompactor)(nil)
