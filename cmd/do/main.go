package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/syntaxduel/syntaxduel/cmd/do/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "do",
		Short:        "Operational tools for SyntaxDuel",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
