package main

import (
	"github.com/spf13/cobra"

	"github.com/smart-trendz/trendz/config"
	srv "github.com/smart-trendz/trendz/internal/server"
)

func serveCMD() *cobra.Command {
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return srv.Run(cfg)
		},
	}
	return serve
}
