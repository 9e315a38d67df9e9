// Command edma3ctl drives the EDMA3 resource manager and driver, either against a simulated
// channel controller or against the registers of a running board.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	envFile string
	config  settings
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "edma3ctl",
	Short: "Exercise the EDMA3 resource manager and driver",
	Long: `edma3ctl runs transfers on a simulated EDMA3 channel controller, reports resource ` +
		`statistics for an instance partition, and reads channel controller registers on Linux ` +
		`boards. Settings are read from EDMA3_* environment variables and an optional env file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = loadSettings(envFile)
		if err != nil {
			return err
		}

		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: config.LogLevel}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of EDMA3_* settings, ignored if missing")
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
