package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"thermite-middleware/lib/serviceutil"
	"thermite-middleware/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dumpDir    string
	verbose    bool
)

var tel telemetry.Telemetry

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "thermite.json5", "The config file, thermite.local.json5 and the environment override it.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump-dir", "", "A directory to write http transcripts to, only written with --verbose.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enables debug logs.")
}

var rootCmd = &cobra.Command{
	Use:   "thermite",
	Short: "thermite fetches tire inventory from distributors and syncs it to the storefront.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "thermite")
		if err != nil {
			serviceutil.Fatal("setup telemetry", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
