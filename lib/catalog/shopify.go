package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"thermite-middleware/lib/restyutil"
	"thermite-middleware/lib/retry"
	"thermite-middleware/lib/tire"

	"github.com/go-resty/resty/v2"
)

const (
	apiPrefix    = "/admin/api/2024-01"
	productsPath = apiPrefix + "/products.json"
)

func productPath(id int64) string {
	return fmt.Sprintf("%s/products/%d.json", apiPrefix, id)
}

type ShopifyOptions struct {
	// the store's domain (ex. thermite.myshopify.com), https is assumed when
	// no scheme is given
	StoreUrl string
	ApiKey   string
	Password string
	// defaults to retry.Default, classifying restyutil.RecoverableError as
	// recoverable when no classifier is given
	Policy retry.Policy
	Output restyutil.InstrumentOutput
}

type ShopifyClient struct {
	auth   restyutil.BasicAuth
	policy retry.Policy
	http   *resty.Client
}

var _ Publisher = (*ShopifyClient)(nil)

func NewShopifyClient(opts ShopifyOptions) (*ShopifyClient, error) {
	if opts.StoreUrl == "" {
		return nil, fmt.Errorf("shopify: store url is required")
	}
	if opts.ApiKey == "" || opts.Password == "" {
		return nil, fmt.Errorf("shopify: api key and password are required")
	}

	storeUrl := strings.TrimSuffix(opts.StoreUrl, "/")
	if !strings.Contains(storeUrl, "://") {
		storeUrl = "https://" + storeUrl
	}

	policy := opts.Policy
	if policy.Attempts == 0 {
		policy = retry.Default
	}
	if policy.Recoverable == nil {
		policy = policy.WithRecoverable(restyutil.IsRecoverable)
	}

	return &ShopifyClient{
		auth: restyutil.BasicAuth{
			Username: opts.ApiKey,
			Password: opts.Password,
		},
		policy: policy,
		http: restyutil.NewClient(restyutil.ClientOptions{
			BaseUrl:    storeUrl,
			TracerName: "catalog/shopify",
			Output:     opts.Output,
		}),
	}, nil
}

type productRequest struct {
	Product Entry `json:"product"`
}

// find looks up the product with the exact title, the ids are zero when
// there is none.
func (c *ShopifyClient) find(ctx context.Context, title string) (productId, variantId int64, err error) {
	body, err := restyutil.Do(ctx, c.http, restyutil.Request{
		Url: productsPath,
		Query: map[string]string{
			"title":  title,
			"fields": "id,title,variants",
		},
		BasicAuth: &c.auth,
	})
	if err != nil {
		return 0, 0, err
	}

	obj, ok := body.Object()
	if !ok {
		return 0, 0, fmt.Errorf("product search returned %q", body.Text)
	}
	products, _ := obj["products"].([]any)
	for _, p := range products {
		product, ok := p.(map[string]any)
		if !ok || product["title"] != title {
			continue
		}
		productId = jsonId(product["id"])
		if variants, ok := product["variants"].([]any); ok && len(variants) > 0 {
			if variant, ok := variants[0].(map[string]any); ok {
				variantId = jsonId(variant["id"])
			}
		}
		return productId, variantId, nil
	}
	return 0, 0, nil
}

func jsonId(value any) int64 {
	id, _ := value.(float64)
	return int64(id)
}

// upsert updates the product with the entry's title if there is one and
// creates it otherwise.
func (c *ShopifyClient) upsert(ctx context.Context, entry Entry) (bool, error) {
	productId, variantId, err := c.find(ctx, entry.Title)
	if err != nil {
		return false, err
	}

	req := restyutil.Request{
		Method:    resty.MethodPost,
		Url:       productsPath,
		BasicAuth: &c.auth,
	}
	created := productId == 0
	if !created {
		entry.Id = productId
		entry.Variants[0].Id = variantId
		req.Method = resty.MethodPut
		req.Url = productPath(productId)
	}
	req.Body = productRequest{Product: entry}

	_, err = restyutil.Do(ctx, c.http, req)
	return created, err
}

// Publish creates or updates a product for each listing, a listing that
// fails to publish does not stop the ones after it.
func (c *ShopifyClient) Publish(ctx context.Context, tires []tire.Tire) error {
	var errs []error
	for _, t := range tires {
		entry := EntryFromTire(t)
		created, err := retry.Do(ctx, c.policy, func(ctx context.Context) (bool, error) {
			return c.upsert(ctx, entry)
		})
		if err != nil {
			if ctx.Err() != nil {
				errs = append(errs, ctx.Err())
				break
			}
			slog.WarnContext(ctx, "failed to publish product", "title", entry.Title, "err", err)
			errs = append(errs, fmt.Errorf("shopify: publish %q: %w", entry.Title, err))
			continue
		}
		slog.InfoContext(ctx, "published product", "title", entry.Title, "created", created)
	}
	return errors.Join(errs...)
}
