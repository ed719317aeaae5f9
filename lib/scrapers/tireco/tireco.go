// Package tireco fetches inventory from the Tireco json api.
package tireco

import (
	"thermite-middleware/lib/restyutil"
	"thermite-middleware/lib/retry"
	"thermite-middleware/lib/scrapers/rest"
)

const DefaultBaseUrl = "https://api.tireco.com/v2/tires"

var Mapping = rest.Mapping{
	ListKey: "inventory",
	Brand:   rest.Aliases{"brand"},
	Model:   rest.Aliases{"model"},
	Size:    rest.Aliases{"size"},
	Price:   rest.Aliases{"price"},
	Stock:   rest.Aliases{"stock"},
}

type Options struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	ApiKey  string
	Policy  retry.Policy
	Output  restyutil.InstrumentOutput
}

func NewClient(opts Options) (*rest.Client, error) {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	return rest.NewClient(rest.ClientOptions{
		Name:    "tireco",
		BaseUrl: baseUrl,
		Auth: rest.Auth{
			Mode:   rest.AuthBearer,
			Secret: opts.ApiKey,
		},
		Mapping: Mapping,
		Policy:  opts.Policy,
		Output:  opts.Output,
	})
}
