// Package wtd fetches inventory from the WTD json api, which accepts either
// basic auth or a bearer token.
package wtd

import (
	"thermite-middleware/lib/restyutil"
	"thermite-middleware/lib/retry"
	"thermite-middleware/lib/scrapers/rest"
)

const DefaultBaseUrl = "https://api.wtdtires.com/v1/inventory"

var Mapping = rest.Mapping{
	ListKey: "results",
	Brand:   rest.Aliases{"brand"},
	Model:   rest.Aliases{"model"},
	Size:    rest.Aliases{"size"},
	Price:   rest.Aliases{"price"},
	Stock:   rest.Aliases{"qty", "stock"},
}

type Options struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// "basic" (default) or "bearer"
	AuthType string
	Username string
	// the password for basic auth, the token for bearer auth
	PasswordOrToken string
	Policy          retry.Policy
	Output          restyutil.InstrumentOutput
}

func NewClient(opts Options) (*rest.Client, error) {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	mode := rest.AuthBasic
	if opts.AuthType != "" && opts.AuthType != string(rest.AuthBasic) {
		mode = rest.AuthBearer
	}

	return rest.NewClient(rest.ClientOptions{
		Name:    "wtd",
		BaseUrl: baseUrl,
		Auth: rest.Auth{
			Mode:     mode,
			Username: opts.Username,
			Secret:   opts.PasswordOrToken,
		},
		Mapping: Mapping,
		Policy:  opts.Policy,
		Output:  opts.Output,
	})
}
