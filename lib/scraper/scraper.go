// Package scraper holds what every source adapter has in common.
//
// each adapter fetch generally has this structure:
// 1. make assertions on input validity.
// 2. transform input into an HTTP request (method, query, auth).
// 3. make the request under the shared retry policy.
// 4. transform the response (json or html) into one Outcome per listing.
// 5. fold the outcomes, keeping only the listings that parsed.
//
// a listing that fails to parse never fails the whole fetch, only a request
// that could not be completed does.
package scraper

import (
	"context"
	"log/slog"

	"thermite-middleware/lib/tire"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Source is a distributor that can be searched for tires by size.
type Source interface {
	Fetch(ctx context.Context, size string) ([]tire.Tire, error)
}

// Outcome is the result of parsing a single listing.
type Outcome struct {
	// position of the listing in the response
	Index int
	Tire  tire.Tire
	Err   error
}

func Ok(index int, t tire.Tire) Outcome {
	return Outcome{Index: index, Tire: t}
}

func Failed(index int, err error) Outcome {
	return Outcome{Index: index, Err: err}
}

var meter = otel.Meter("thermite/scraper")
var parsedCounter, _ = meter.Int64Counter(
	"thermite.tires.parsed",
	metric.WithDescription("listings that were normalized successfully"),
)
var skippedCounter, _ = meter.Int64Counter(
	"thermite.tires.skipped",
	metric.WithDescription("listings that were dropped because they failed to parse"),
)

// Fold keeps the tires of successful outcomes in order, failed outcomes are
// logged and dropped.
func Fold(ctx context.Context, source string, outcomes []Outcome) []tire.Tire {
	tires := make([]tire.Tire, 0, len(outcomes))
	skipped := 0
	for _, o := range outcomes {
		if o.Err != nil {
			skipped++
			slog.DebugContext(
				ctx, "skip listing",
				"source", source,
				"index", o.Index,
				"err", o.Err,
			)
			continue
		}
		tires = append(tires, o.Tire)
	}

	attrs := metric.WithAttributes(attribute.String("source", source))
	parsedCounter.Add(ctx, int64(len(tires)), attrs)
	skippedCounter.Add(ctx, int64(skipped), attrs)

	slog.InfoContext(
		ctx, "parsed listings",
		"source", source,
		"parsed", len(tires),
		"skipped", skipped,
	)
	return tires
}
