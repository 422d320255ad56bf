package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"freehost/internal/httpserver"
	"freehost/internal/storage"
)

type statsOutput struct {
	Root string `json:"root"`
	storage.Stats
	TotalSize string `json:"totalSize"`
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print storage totals as JSON",
		Long: `Walk the storage root and print project, file and byte totals without
starting the server.`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := storage.New(cfg.Root, zap.NewNop())
	if err != nil {
		return err
	}
	st, err := store.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(statsOutput{Root: store.Root(), Stats: st, TotalSize: httpserver.FormatMB(st.TotalBytes)})
}
