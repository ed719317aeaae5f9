package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"thermite-middleware/internal/pipeline"
	"thermite-middleware/lib/catalog"
	"thermite-middleware/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	fetchSize    string
	fetchOut     string
	fetchSync    bool
	fetchSources []string
)

func init() {
	fetchCmd.Flags().StringVar(&fetchSize, "size", "225/45R17", "The tire size to search for.")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "output.json", "The file to write the fetched tires to.")
	fetchCmd.Flags().BoolVar(&fetchSync, "sync", false, "Publishes the fetched tires to the shopify catalog.")
	fetchCmd.Flags().StringSliceVar(&fetchSources, "sources", defaultSources, "The sources to fetch from, in order.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--size <size>] [--out <output.json>] [--sources wtwd,wtd,tireco] [--sync]",
	Short: "Fetches tires of a size from every source.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		sources, err := openSources(cfg, fetchSources)
		if err != nil {
			serviceutil.Fatal("failed to configure sources", err)
		}

		result := pipeline.Run(cmd.Context(), fetchSize, sources)
		renderReports(result)

		if len(result.Tires) == 0 {
			slog.Warn("no tires were fetched from any source")
			return
		}

		if fetchSync {
			publish(cmd, cfg, result)
		}

		err = pipeline.WriteJSON(fetchOut, result.Tires)
		if err != nil {
			serviceutil.Fatal("failed to write output", err)
		}
		slog.Info("wrote output", "path", fetchOut, "count", len(result.Tires))
	},
}

func publish(cmd *cobra.Command, cfg Config, result pipeline.Result) {
	output, err := dumpOutput(dumpDir, "shopify")
	if err != nil {
		serviceutil.Fatal("failed to create dump output", err)
	}
	publisher, err := catalog.NewShopifyClient(catalog.ShopifyOptions{
		StoreUrl: cfg.Shopify.StoreUrl,
		ApiKey:   cfg.Shopify.ApiKey,
		Password: cfg.Shopify.Password,
		Policy:   cfg.policy(),
		Output:   output,
	})
	if err != nil {
		slog.Error("failed to create catalog client", "err", err)
		return
	}
	err = publisher.Publish(cmd.Context(), result.Tires)
	if err != nil {
		slog.Error("some tires failed to sync", "err", err)
		return
	}
	slog.Info("synced tires to catalog", "count", len(result.Tires))
}

func renderReports(result pipeline.Result) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)

	t.AppendHeader(table.Row{"Source", "Tires", "Duration", "Error"})
	for _, report := range result.Reports {
		errText := ""
		if report.Err != nil {
			errText = report.Err.Error()
		}
		t.AppendRow(table.Row{
			report.Source,
			report.Count,
			report.Duration.Round(time.Millisecond),
			errText,
		})
	}
	t.AppendFooter(table.Row{"Total", len(result.Tires), "", fmt.Sprintf("%d failed", len(result.Failed()))})
	t.Render()

	if len(result.Failed()) > 0 {
		failed := make([]string, len(result.Failed()))
		for i, report := range result.Failed() {
			failed[i] = report.Source
		}
		slog.Warn("some sources failed", "sources", strings.Join(failed, ", "))
	}
}
