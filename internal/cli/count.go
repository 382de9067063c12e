package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

func init() {
	cmd := &cobra.Command{
		Use:   "count [text...]",
		Short: "Count tokens in the given text (or stdin)",
		Run:   runCount,
	}

	RootCmd.AddCommand(cmd)
}

func runCount(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		text = string(data)
	}

	var counter ctxcore.TokenCounter
	counter, err := ctxcore.NewTiktokenCounter(ctxcore.WithModel(cfg.Tokenizer.Model))
	if err != nil {
		// 无法加载编码表时退化为估算计数
		counter = ctxcore.NewEstimatedCounter()
	}

	fmt.Println(counter.Count(text))
}
