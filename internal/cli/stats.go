package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// storeStats 汇总存储中的条目分布。
type storeStats struct {
	Total   int            `json:"total"`
	Expired int            `json:"expired"`
	ByType  map[string]int `json:"by_type"`
	Oldest  *time.Time     `json:"oldest,omitempty"`
	Newest  *time.Time     `json:"newest,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()

	s, closeStore, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	entries, err := s.ListAllUnfiltered(cmd.Context())
	if err != nil {
		exitErr("list entries", err)
	}

	stats := storeStats{
		Total:  len(entries),
		ByType: make(map[string]int),
	}
	for _, entry := range entries {
		stats.ByType[string(entry.Type)]++
		if entry.IsExpired() {
			stats.Expired++
		}
		created := entry.CreatedAt
		if stats.Oldest == nil || created.Before(*stats.Oldest) {
			t := created
			stats.Oldest = &t
		}
		if stats.Newest == nil || created.After(*stats.Newest) {
			t := created
			stats.Newest = &t
		}
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
