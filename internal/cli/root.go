// Package cli is the quizmaster command line: the API server, migrations and
// on-demand runs of the scheduled mail tasks.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:          "quizmaster",
		Short:        "Quiz platform API, background jobs and scheduled mail",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env)")

	cmd.AddCommand(serveCmd(&envFile))
	cmd.AddCommand(migrateCmd(&envFile))
	cmd.AddCommand(triggerCmd(&envFile))
	return cmd
}
