// Package rest is the adapter for distributors that expose their inventory
// as a json api.
package rest

import (
	"context"
	"fmt"

	"thermite-middleware/lib/restyutil"
	"thermite-middleware/lib/retry"
	"thermite-middleware/lib/scraper"
	"thermite-middleware/lib/tire"

	"github.com/go-resty/resty/v2"
)

type AuthMode string

const (
	AuthBearer AuthMode = "bearer"
	AuthBasic  AuthMode = "basic"
)

type Auth struct {
	Mode AuthMode
	// only used by AuthBasic
	Username string
	// the bearer token or the basic auth password
	Secret string
}

type ClientOptions struct {
	Name    string
	BaseUrl string
	Auth    Auth
	Mapping Mapping
	// defaults to retry.Default, classifying restyutil.RecoverableError as
	// recoverable when no classifier is given
	Policy retry.Policy
	Output restyutil.InstrumentOutput
}

type Client struct {
	name    string
	baseUrl string
	auth    Auth
	mapping Mapping
	policy  retry.Policy
	http    *resty.Client
}

var _ scraper.Source = (*Client)(nil)

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		return nil, fmt.Errorf("%s: base url is required", opts.Name)
	}
	if opts.Mapping.ListKey == "" {
		return nil, fmt.Errorf("%s: mapping has no list key", opts.Name)
	}
	switch opts.Auth.Mode {
	case AuthBearer, AuthBasic:
	default:
		return nil, fmt.Errorf("%s: unknown auth mode %q", opts.Name, opts.Auth.Mode)
	}

	policy := opts.Policy
	if policy.Attempts == 0 {
		policy = retry.Default
	}
	if policy.Recoverable == nil {
		policy = policy.WithRecoverable(restyutil.IsRecoverable)
	}

	return &Client{
		name:    opts.Name,
		baseUrl: opts.BaseUrl,
		auth:    opts.Auth,
		mapping: opts.Mapping,
		policy:  policy,
		http: restyutil.NewClient(restyutil.ClientOptions{
			TracerName: "scrapers/" + opts.Name,
			Output:     opts.Output,
		}),
	}, nil
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) request(size string) restyutil.Request {
	req := restyutil.Request{
		Url:     c.baseUrl,
		Query:   map[string]string{},
		Headers: map[string]string{},
	}
	if size != "" {
		req.Query["size"] = size
	}

	switch c.auth.Mode {
	case AuthBasic:
		req.BasicAuth = &restyutil.BasicAuth{
			Username: c.auth.Username,
			Password: c.auth.Secret,
		}
	case AuthBearer:
		req.Headers["Authorization"] = fmt.Sprintf("Bearer %s", c.auth.Secret)
	}
	return req
}

// Fetch lists the inventory, filtered by size if size is not empty.
func (c *Client) Fetch(ctx context.Context, size string) ([]tire.Tire, error) {
	req := c.request(size)
	body, err := retry.Do(ctx, c.policy, func(ctx context.Context) (restyutil.Body, error) {
		return restyutil.Do(ctx, c.http, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: fetch inventory: %w", c.name, err)
	}

	outcomes := c.mapping.Entries(ctx, body, size)
	return scraper.Fold(ctx, c.name, outcomes), nil
}
