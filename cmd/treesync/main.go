package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "treesync",
		Short: "Keep tree-sitter syntax trees in step with changing files",
	}

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newLanguagesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
