package wtwd

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"thermite-middleware/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// session is the cookie jar and headers the portal knows us by, it is only
// ever used by the Client that logged it in.
type session struct {
	baseUrl *url.URL
	http    *resty.Client
}

type sessionOptions struct {
	baseUrl           string
	timeout           time.Duration
	requestsPerSecond rate.Limit
	output            restyutil.InstrumentOutput
}

func newSession(opts sessionOptions) (*session, error) {
	baseUrl, err := url.Parse(opts.baseUrl)
	if err != nil {
		return nil, err
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", opts.baseUrl)
	}

	httpClient := restyutil.NewClient(restyutil.ClientOptions{
		BaseUrl:    opts.baseUrl,
		UserAgent:  browserUserAgent,
		Timeout:    opts.timeout,
		TracerName: "scrapers/wtwd",
		Output:     opts.output,
	})
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	// burst >= 1 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(opts.requestsPerSecond, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	return &session{baseUrl: baseUrl, http: httpClient}, nil
}

func (s *session) url(path string) string {
	return s.baseUrl.ResolveReference(&url.URL{Path: path}).String()
}

// fetchPage makes a request with the session and parses the response as
// html.
func fetchPage(ctx context.Context, s *session, req restyutil.Request) (*goquery.Document, error) {
	body, err := restyutil.Do(ctx, s.http, req)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body.Text))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", req.Url, err)
	}
	return doc, nil
}
