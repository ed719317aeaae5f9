package commands

import (
	"context"
	"fmt"
	"strings"

	"thermite-middleware/internal/pipeline"
	"thermite-middleware/lib/restyutil"
	"thermite-middleware/lib/scraper"
	"thermite-middleware/lib/scrapers/tireco"
	"thermite-middleware/lib/scrapers/wtd"
	"thermite-middleware/lib/scrapers/wtwd"

	"golang.org/x/time/rate"
)

// the order sources run in when none are specified
var defaultSources = []string{"wtwd", "wtd", "tireco"}

func wtwdOptions(cfg Config, output restyutil.InstrumentOutput) wtwd.ClientOptions {
	return wtwd.ClientOptions{
		BaseUrl:           cfg.Wtwd.BaseUrl,
		Username:          cfg.Wtwd.Username,
		Password:          cfg.Wtwd.Password,
		Policy:            cfg.policy(),
		RequestsPerSecond: rate.Limit(cfg.Wtwd.RequestsPerSecond),
		Output:            output,
	}
}

func openSource(cfg Config, name string) (pipeline.Source, error) {
	output, err := dumpOutput(dumpDir, name)
	if err != nil {
		return pipeline.Source{}, err
	}

	var open func(ctx context.Context) (scraper.Source, error)
	switch name {
	case "tireco":
		open = func(ctx context.Context) (scraper.Source, error) {
			return tireco.NewClient(tireco.Options{
				BaseUrl: cfg.Tireco.BaseUrl,
				ApiKey:  cfg.Tireco.ApiKey,
				Policy:  cfg.policy(),
				Output:  output,
			})
		}
	case "wtd":
		open = func(ctx context.Context) (scraper.Source, error) {
			return wtd.NewClient(wtd.Options{
				BaseUrl:         cfg.Wtd.BaseUrl,
				AuthType:        cfg.Wtd.AuthType,
				Username:        cfg.Wtd.Username,
				PasswordOrToken: cfg.Wtd.Password,
				Policy:          cfg.policy(),
				Output:          output,
			})
		}
	case "wtwd":
		opts := wtwdOptions(cfg, output)
		open = func(ctx context.Context) (scraper.Source, error) {
			return wtwd.NewClient(ctx, opts)
		}
	default:
		return pipeline.Source{}, fmt.Errorf("unknown source %q, expected one of %s", name, strings.Join(defaultSources, ", "))
	}

	return pipeline.Source{Name: name, Open: open}, nil
}

func openSources(cfg Config, names []string) ([]pipeline.Source, error) {
	var sources []pipeline.Source
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		source, err := openSource(cfg, name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}
