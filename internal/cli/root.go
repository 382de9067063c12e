// Package cli 实现 astrocontext 命令行工具。
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/easyops/astrocontext-go/pkg/core/config"
	"github.com/easyops/astrocontext-go/pkg/memory"
	"github.com/easyops/astrocontext-go/pkg/memory/store"
	"github.com/easyops/astrocontext-go/pkg/otel"
)

var (
	driverFlag string
	dbFlag     string
)

// RootCmd 是顶层命令。
var RootCmd = &cobra.Command{
	Use:   "astrocontext",
	Short: "Token-budgeted context assembly for LLM applications",
	Long: "astrocontext assembles LLM context windows under a token budget: " +
		"conversation memory, retrieval results and system prompts are packed " +
		"by priority, with persistent memory entries garbage-collected by decay.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		if cfg.Observability.Enabled {
			otel.MustInit(cfg.Observability.ToOtelConfig())
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Store driver: memory, sqlite or neo4j (default from ASTROCONTEXT_STORE_DRIVER)")
	RootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (default from ASTROCONTEXT_STORE_DSN)")
}

// mustLoadConfig 从环境变量加载配置，失败时退出。
func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

// openStore 按配置与命令行标志打开记忆条目存储。
func openStore(cfg *config.Config) (memory.MemoryEntryStore, func(), error) {
	driver := cfg.Store.Driver
	if driverFlag != "" {
		driver = driverFlag
	}

	switch driver {
	case "memory":
		return store.NewInMemoryStore(), func() {}, nil
	case "sqlite":
		dsn := cfg.Store.DSN
		if dbFlag != "" {
			dsn = dbFlag
		}
		s, err := store.NewSQLiteStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "neo4j":
		s, err := store.NewNeo4jStore(store.Neo4jConfig{
			URI:      cfg.Store.Neo4jURI,
			Username: cfg.Store.Neo4jUsername,
			Password: cfg.Store.Neo4jPassword,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
