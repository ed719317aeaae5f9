package commands

import (
	"log/slog"

	"thermite-middleware/lib/scrapers/wtwd"
	"thermite-middleware/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginTestCmd)
}

var loginTestCmd = &cobra.Command{
	Use:   "login-test",
	Short: "Logs into the wtwd portal without searching, to check the credentials.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		output, err := dumpOutput(dumpDir, "wtwd")
		if err != nil {
			serviceutil.Fatal("failed to create dump output", err)
		}

		_, err = wtwd.NewClient(cmd.Context(), wtwdOptions(cfg, output))
		if err != nil {
			serviceutil.Fatal("login failed", err)
		}
		slog.Info("login succeeded", "username", cfg.Wtwd.Username)
	},
}
