package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/easyops/astrocontext-go/pkg/memory"
	"github.com/easyops/astrocontext-go/pkg/otel"
)

var (
	gcDryRun    bool
	gcThreshold float64
)

func init() {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Garbage-collect expired and decayed memory entries",
		Run:   runGC,
	}

	cmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "Identify entries without deleting them")
	cmd.Flags().Float64Var(&gcThreshold, "threshold", 0, "Retention threshold in [0, 1) (default from config)")

	RootCmd.AddCommand(cmd)
}

func runGC(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()

	s, closeStore, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	decay, err := memory.NewEbbinghausDecay(
		memory.WithBaseStrength(cfg.GC.BaseStrength),
		memory.WithReinforcementFactor(cfg.GC.ReinforcementFactor),
	)
	if err != nil {
		exitErr("configure decay", err)
	}

	threshold := cfg.GC.RetentionThreshold
	if gcThreshold != 0 {
		threshold = gcThreshold
	}

	gc := memory.NewGarbageCollector(s,
		memory.WithDecay(decay),
		memory.WithGCCallbacks(memory.NewMetricsObserver(nil)),
		memory.WithGCLogger(otel.GetLogger()),
	)

	stats, err := gc.Collect(cmd.Context(), threshold, gcDryRun)
	if err != nil {
		exitErr("collect", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
