package rest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"thermite-middleware/lib/restyutil"
	"thermite-middleware/lib/scraper"
	"thermite-middleware/lib/tire"
)

// Aliases is the ordered list of keys a source may use for one field, the
// first key present in an entry wins.
type Aliases []string

func (a Aliases) lookup(entry map[string]any) (any, bool) {
	for _, key := range a {
		value, ok := entry[key]
		if ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

// Mapping describes where a source keeps its listings and what it calls each
// field of a listing.
type Mapping struct {
	// key of the list of listings in the response object
	ListKey string

	Brand Aliases
	Model Aliases
	Size  Aliases
	Price Aliases
	Stock Aliases
}

// Entries maps every listing in a response body to an outcome. A body that
// is not an object, or has no list under ListKey, has no listings.
func (m Mapping) Entries(ctx context.Context, body restyutil.Body, fallbackSize string) []scraper.Outcome {
	obj, ok := body.Object()
	if !ok {
		slog.WarnContext(ctx, "response is not a json object", "list_key", m.ListKey)
		return nil
	}
	raw, ok := obj[m.ListKey]
	if !ok || raw == nil {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		slog.WarnContext(ctx, "listing field is not a list", "list_key", m.ListKey)
		return nil
	}

	outcomes := make([]scraper.Outcome, len(list))
	for i, item := range list {
		t, err := m.Entry(item, fallbackSize)
		if err != nil {
			outcomes[i] = scraper.Failed(i, err)
			continue
		}
		outcomes[i] = scraper.Ok(i, t)
	}
	return outcomes
}

// Entry maps a single listing, fallbackSize is used when the listing does not
// carry its own size.
func (m Mapping) Entry(item any, fallbackSize string) (tire.Tire, error) {
	entry, ok := item.(map[string]any)
	if !ok {
		return tire.Tire{}, fmt.Errorf("entry is %T, not an object", item)
	}

	brand, err := stringField(entry, "brand", m.Brand, tire.Unknown)
	if err != nil {
		return tire.Tire{}, err
	}
	model, err := stringField(entry, "model", m.Model, tire.Unknown)
	if err != nil {
		return tire.Tire{}, err
	}
	size, err := stringField(entry, "size", m.Size, fallbackSize)
	if err != nil {
		return tire.Tire{}, err
	}
	price, err := floatField(entry, "price", m.Price)
	if err != nil {
		return tire.Tire{}, err
	}
	stock, err := intField(entry, "stock", m.Stock)
	if err != nil {
		return tire.Tire{}, err
	}

	return tire.New(brand, model, size, price, stock)
}

func stringField(entry map[string]any, field string, aliases Aliases, fallback string) (string, error) {
	value, ok := aliases.lookup(entry)
	if !ok {
		return fallback, nil
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, not a string", field, value)
	}
	return str, nil
}

// a missing price is 0, which the tire constructor rejects
func floatField(entry map[string]any, field string, aliases Aliases) (float64, error) {
	value, ok := aliases.lookup(entry)
	if !ok {
		return 0, nil
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", field, err)
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("%s is %T, not a number", field, value)
}

func intField(entry map[string]any, field string, aliases Aliases) (int, error) {
	value, ok := aliases.lookup(entry)
	if !ok {
		return 0, nil
	}
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", field, err)
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("%s is %T, not a number", field, value)
}
