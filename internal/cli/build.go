package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
	"github.com/easyops/astrocontext-go/pkg/memory"
	"github.com/easyops/astrocontext-go/pkg/otel"
	"github.com/easyops/astrocontext-go/pkg/pipeline"
)

var (
	buildSystem     string
	buildTranscript string
	buildEnrich     bool
	buildVerbose    bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "build <query>",
		Short: "Assemble a context window for a query",
		Long: "Assembles a token-budgeted context window from a system prompt and an " +
			"optional conversation transcript. Transcript lines use the form \"role: content\".",
		Args: cobra.ExactArgs(1),
		Run:  runBuild,
	}

	cmd.Flags().StringVar(&buildSystem, "system", "", "System prompt to pin at the top of the window")
	cmd.Flags().StringVar(&buildTranscript, "transcript", "", "Path to a transcript file (role: content per line)")
	cmd.Flags().BoolVar(&buildEnrich, "enrich", false, "Enrich the query with recent conversation context")
	cmd.Flags().BoolVar(&buildVerbose, "verbose", false, "Print build diagnostics as JSON")

	RootCmd.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()

	counter := newCounter(cfg.Tokenizer.Model)

	opts := []pipeline.Option{
		pipeline.WithMaxTokens(cfg.Pipeline.MaxTokens),
		pipeline.WithCounter(counter),
		pipeline.WithLogger(otel.GetLogger()),
	}

	p, err := pipeline.New(opts...)
	if err != nil {
		exitErr("create pipeline", err)
	}

	if buildSystem != "" {
		p.AddSystemPrompt(buildSystem)
	}

	if buildTranscript != "" {
		mem, err := loadTranscript(buildTranscript, cfg.Memory.MaxTokens, counter)
		if err != nil {
			exitErr("load transcript", err)
		}
		p.WithMemory(mem)
	}

	if buildEnrich {
		enricher, err := pipeline.NewMemoryContextEnricher()
		if err != nil {
			exitErr("create enricher", err)
		}
		p.WithQueryEnricher(enricher)
	}

	p.AddCallback(otel.NewMetricsCallback(nil, nil))

	result, err := p.BuildContext(cmd.Context(), ctxcore.NewQueryBundle(args[0]))
	if err != nil {
		exitErr("build context", err)
	}

	fmt.Println(result.FormattedOutput)

	if buildVerbose {
		b, _ := json.MarshalIndent(result.Diagnostics, "", "  ")
		fmt.Fprintln(os.Stderr, string(b))
	}
}

// newCounter 创建 Token 计数器，编码表不可用时退化为估算计数。
func newCounter(model string) ctxcore.TokenCounter {
	counter, err := ctxcore.NewTiktokenCounter(ctxcore.WithModel(model))
	if err != nil {
		return ctxcore.NewEstimatedCounter()
	}
	return counter
}

// loadTranscript 把 "role: content" 格式的转写文件读入对话记忆。
func loadTranscript(path string, maxTokens int, counter ctxcore.TokenCounter) (*memory.MemoryManager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mem, err := memory.NewMemoryManager(maxTokens, memory.WithManagerCounter(counter))
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		role, content := memory.RoleUser, line
		if idx := strings.Index(line, ":"); idx > 0 {
			switch r := strings.TrimSpace(line[:idx]); r {
			case "user", "assistant", "system", "tool":
				role, content = memory.Role(r), strings.TrimSpace(line[idx+1:])
			}
		}

		switch role {
		case memory.RoleAssistant:
			err = mem.AddAssistantMessage(content)
		case memory.RoleSystem:
			err = mem.AddSystemMessage(content)
		case memory.RoleTool:
			err = mem.AddToolMessage(content)
		default:
			err = mem.AddUserMessage(content)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mem, nil
}
