package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yz4230/forgehost/cmd/hook"
)

var rootFlags struct {
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:   "forgehost",
	Short: "Self-hosted git server with commit integrity verification and CI orchestration",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		if rootFlags.verbose {
			log.Logger = log.Logger.Level(zerolog.DebugLevel)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runnerCmd)
	rootCmd.AddCommand(hook.HookCmd)
}
