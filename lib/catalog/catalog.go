// Package catalog publishes normalized listings to a storefront's product
// catalog.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"thermite-middleware/lib/tire"
)

type Variant struct {
	// zero until the variant exists in the catalog
	Id int64 `json:"id,omitempty"`
	// shopify takes prices as decimal strings
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// Entry is a single catalog product, it always has exactly one variant.
type Entry struct {
	// zero until the product exists in the catalog
	Id       int64     `json:"id,omitempty"`
	Title    string    `json:"title"`
	BodyHtml string    `json:"body_html"`
	Variants []Variant `json:"variants"`
}

func EntryFromTire(t tire.Tire) Entry {
	return Entry{
		Title:    t.Title(),
		BodyHtml: fmt.Sprintf("<strong>%s</strong> %s - %s", t.Brand, t.Model, t.Size),
		Variants: []Variant{{
			Price:             strconv.FormatFloat(t.Price, 'f', 2, 64),
			InventoryQuantity: t.Stock,
		}},
	}
}

// Publisher creates or updates one catalog entry per listing, entries are
// keyed by title.
type Publisher interface {
	Publish(ctx context.Context, tires []tire.Tire) error
}
