package ctxcore

import "strings"

// Formatter 将装配完成的上下文窗口渲染为输出文本。
type Formatter interface {
	// FormatType 返回格式化器的类型标识。
	FormatType() string

	// Format 渲染给定窗口。
	Format(window *ContextWindow) string
}

// TextFormatter 将上下文渲染为带分节标题的纯文本。
//
// 输出最多包含 SYSTEM、MEMORY、CONTEXT 三个分节，
// 空分节会被省略。注意：条目内容原样写入输出，
// 不做任何过滤，来源不可信的内容应在进入流水线前校验。
type TextFormatter struct{}

// NewTextFormatter 创建新的 TextFormatter。
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// FormatType 返回 "text"。
func (f *TextFormatter) FormatType() string { return "text" }

// Format 将窗口渲染为 "=== SECTION ===" 分节文本。
func (f *TextFormatter) Format(window *ContextWindow) string {
	var systemParts, memoryParts, contextParts []string

	for _, item := range window.Items() {
		switch item.Source() {
		case SourceSystem:
			systemParts = append(systemParts, item.Content())
		case SourceMemory:
			memoryParts = append(memoryParts, item.Content())
		default:
			contextParts = append(contextParts, item.Content())
		}
	}

	sections := []struct {
		name  string
		parts []string
	}{
		{"SYSTEM", systemParts},
		{"MEMORY", memoryParts},
		{"CONTEXT", contextParts},
	}

	var out []string
	for _, s := range sections {
		if len(s.parts) == 0 {
			continue
		}
		out = append(out, "=== "+s.name+" ===")
		out = append(out, strings.Join(s.parts, "\n"))
		out = append(out, "")
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// 编译时接口检查
var _ Formatter = (*TextFormatter)(nil)
