package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "trendz"}

	root.AddCommand(serveCMD(), migrateCMD(), aggregateCMD(), leaderboardCMD())
	_ = root.Execute()
}
