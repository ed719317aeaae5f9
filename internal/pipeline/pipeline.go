// Package pipeline runs each configured source in turn and combines what
// they found.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"thermite-middleware/lib/scraper"
	"thermite-middleware/lib/tire"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/pipeline")

// Source is a source that is only constructed when it is its turn to run,
// constructing some sources (ex. logging into a portal) can fail.
type Source struct {
	Name string
	Open func(ctx context.Context) (scraper.Source, error)
}

// Report is what happened to a single source during a run.
type Report struct {
	Source   string
	Count    int
	Duration time.Duration
	Err      error
}

type Result struct {
	Tires   []tire.Tire
	Reports []Report
}

// Run opens and fetches every source one after another, a source that fails
// is reported and does not affect the others. Tires are in source order.
func Run(ctx context.Context, size string, sources []Source) Result {
	result := Result{Tires: []tire.Tire{}}
	for _, source := range sources {
		if ctx.Err() != nil {
			result.Reports = append(result.Reports, Report{Source: source.Name, Err: ctx.Err()})
			continue
		}

		tires, report := runSource(ctx, size, source)
		result.Tires = append(result.Tires, tires...)
		result.Reports = append(result.Reports, report)
	}
	slog.InfoContext(ctx, "pipeline finished", "size", size, "total", len(result.Tires))
	return result
}

func runSource(ctx context.Context, size string, source Source) ([]tire.Tire, Report) {
	ctx, span := tracer.Start(ctx, "fetch:"+source.Name)
	defer span.End()
	span.SetAttributes(attribute.String("size", size))

	start := time.Now()
	report := Report{Source: source.Name}

	tires, err := fetch(ctx, size, source)
	report.Duration = time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "source failed", "source", source.Name, "err", err)
		report.Err = err
		return nil, report
	}

	span.SetAttributes(attribute.Int("count", len(tires)))
	slog.InfoContext(ctx, "source fetched", "source", source.Name, "count", len(tires), "duration", report.Duration)
	report.Count = len(tires)
	return tires, report
}

func fetch(ctx context.Context, size string, source Source) ([]tire.Tire, error) {
	s, err := source.Open(ctx)
	if err != nil {
		return nil, err
	}
	return s.Fetch(ctx, size)
}

// Failed returns the reports of the sources that failed.
func (r Result) Failed() []Report {
	var failed []Report
	for _, report := range r.Reports {
		if report.Err != nil {
			failed = append(failed, report)
		}
	}
	return failed
}

// WriteJSON writes the tires as an indented json array.
func WriteJSON(path string, tires []tire.Tire) error {
	if tires == nil {
		tires = []tire.Tire{}
	}
	serialized, err := json.MarshalIndent(tires, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, serialized, 0644)
}
