package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hackgods/vetclinic-scheduling/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vetctl",
		Short: "Operate the vet clinic scheduling database",
		Long: `vetctl applies schema migrations and loads demo data.
It reads the same environment (.env, POSTGRES_DSN) as the api-server.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.SeedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
