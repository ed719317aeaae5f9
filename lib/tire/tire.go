package tire

import (
	"fmt"
	"math"
	"strings"
)

// Unknown is used in place of a brand or model the source did not provide.
const Unknown = "UNK"

// SizeSeparator must appear in every tire size, it delimits the section
// width from the aspect ratio (ex. 225/45R17).
const SizeSeparator = "/"

// Tire is a single inventory listing, normalized from whatever shape the
// distributor returned it in.
type Tire struct {
	Brand string  `json:"brand"`
	Model string  `json:"model"`
	Size  string  `json:"size"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func (t Tire) Title() string {
	return fmt.Sprintf("%s %s %s", t.Brand, t.Model, t.Size)
}

// ValidationError is returned when a listing violates one of the invariants
// of Tire.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// New validates the given fields and constructs a Tire out of them.
// An empty brand or model is replaced with Unknown.
func New(brand, model, size string, price float64, stock int) (Tire, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		brand = Unknown
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = Unknown
	}
	size = strings.TrimSpace(size)

	if !strings.Contains(size, SizeSeparator) {
		return Tire{}, &ValidationError{
			Field:  "size",
			Value:  size,
			Reason: "size must look like 225/45R17",
		}
	}
	if math.IsNaN(price) || price <= 0 {
		return Tire{}, &ValidationError{
			Field:  "price",
			Value:  price,
			Reason: "price must be greater than 0",
		}
	}
	if stock < 0 {
		return Tire{}, &ValidationError{
			Field:  "stock",
			Value:  stock,
			Reason: "stock must not be negative",
		}
	}

	return Tire{
		Brand: brand,
		Model: model,
		Size:  size,
		Price: price,
		Stock: stock,
	}, nil
}
