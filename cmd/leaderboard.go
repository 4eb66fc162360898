package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smart-trendz/trendz/config"
	"github.com/smart-trendz/trendz/internal/artifact"
	"github.com/smart-trendz/trendz/internal/leaderboard"
)

// leaderboardCMD builds the leaderboard artifact once and prints its name.
func leaderboardCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Build the LiveBench leaderboard artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			artifacts, err := artifact.NewStore(filepath.Join(cfg.Storage.DataDir, "artifacts"))
			if err != nil {
				return err
			}
			producer := leaderboard.NewProducer(cfg.Leaderboard, artifacts)
			name, err := producer.Generate(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(filepath.Join(artifacts.Dir(), name))
			return nil
		},
	}
}
