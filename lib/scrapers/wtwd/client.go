// Package wtwd scrapes inventory from the WTWD dealer portal, a DNN
// (ASP.NET) site with no api. Listings are read off the Telerik grid the
// shop page renders after logging in.
package wtwd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"thermite-middleware/lib/htmlutil"
	"thermite-middleware/lib/restyutil"
	"thermite-middleware/lib/retry"
	"thermite-middleware/lib/scraper"
	"thermite-middleware/lib/textutil"
	"thermite-middleware/lib/tire"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseUrl = "http://www.shopwtwd.com"
	LoginPath      = "/Login.aspx"
	SearchPath     = "/Shop.aspx"
)

const (
	usernameField    = "dnn$ctr$Login$Login_ICGCustom$textUsername"
	passwordField    = "dnn$ctr$Login$Login_ICGCustom$textPassword"
	loginButtonField = "dnn$ctr$Login$Login_ICGCustom$btnLogin"
	// the tire size input of the shop page's search form
	sizeComboBoxField = "dnn$ctr3203$TireSearchView$TireSizeARadComboBox"
)

var tracer = otel.Tracer("scrapers/wtwd")

// hidden ASP.NET form fields that must be echoed back on every post
var formTokens = []string{
	"__VIEWSTATE",
	"__VIEWSTATEGENERATOR",
	"__EVENTVALIDATION",
	"__RequestVerificationToken",
}

// any of these in the page after logging in means the login went through
var signedInIndicators = []string{"logout", "log out", "sign out", "signout"}

// LoginError means the portal did not accept the login, the client that was
// being constructed is not usable.
type LoginError struct {
	Reason string
	Err    error
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wtwd: login failed: %s: %s", e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("wtwd: login failed: %s", e.Reason)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl  string
	Username string
	Password string
	// defaults to retry.Default, classifying restyutil.RecoverableError as
	// recoverable when no classifier is given
	Policy retry.Policy
	// defaults to DefaultLayout
	Layout *Layout
	// defaults to 2
	RequestsPerSecond rate.Limit
	// defaults to restyutil.DefaultTimeout
	Timeout time.Duration
	Output  restyutil.InstrumentOutput
}

// Client is a logged in portal session. It is not safe for concurrent use.
type Client struct {
	session *session
	policy  retry.Policy
	layout  Layout
}

var _ scraper.Source = (*Client)(nil)

// NewClient logs into the portal, a client is only returned if the login
// succeeded.
func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.Username == "" || opts.Password == "" {
		return nil, &LoginError{Reason: "username and password are required"}
	}

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	requestsPerSecond := opts.RequestsPerSecond
	if requestsPerSecond == 0 {
		requestsPerSecond = 2
	}
	policy := opts.Policy
	if policy.Attempts == 0 {
		policy = retry.Default
	}
	if policy.Recoverable == nil {
		policy = policy.WithRecoverable(restyutil.IsRecoverable)
	}
	layout := DefaultLayout
	if opts.Layout != nil {
		layout = *opts.Layout
	}

	s, err := newSession(sessionOptions{
		baseUrl:           baseUrl,
		timeout:           opts.Timeout,
		requestsPerSecond: requestsPerSecond,
		output:            opts.Output,
	})
	if err != nil {
		return nil, &LoginError{Reason: "create session", Err: err}
	}

	err = login(ctx, s, opts.Username, opts.Password)
	if err != nil {
		return nil, err
	}

	return &Client{
		session: s,
		policy:  policy,
		layout:  layout,
	}, nil
}

func login(ctx context.Context, s *session, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:login")
	defer span.End()

	doc, err := fetchPage(ctx, s, restyutil.Request{Url: LoginPath})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return &LoginError{Reason: "fetch login page", Err: err}
	}

	form := htmlutil.InputValues(doc, formTokens...)
	form[usernameField] = username
	form[passwordField] = password
	form[loginButtonField] = "Login"
	form["__EVENTTARGET"] = ""
	form["__EVENTARGUMENT"] = ""
	form["ScrollTop"] = ""
	form["__dnnVariable"] = ""

	s.http.SetHeaders(map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Referer":         s.url(LoginPath),
		"DNNVariables":    "",
	})

	body, err := restyutil.Do(ctx, s.http, restyutil.Request{
		Method:   resty.MethodPost,
		Url:      LoginPath,
		FormData: form,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login form")
		return &LoginError{Reason: "submit login form", Err: err}
	}

	if !signedIn(body.Text, username) {
		span.SetStatus(codes.Error, "no signed in indicator")
		return &LoginError{Reason: "response has no signed in indicator"}
	}
	slog.InfoContext(ctx, "logged into wtwd", "username", username)
	return nil
}

func signedIn(page, username string) bool {
	return textutil.ContainsAny(page, signedInIndicators...) ||
		textutil.ContainsAny(page, username)
}

// Fetch searches the portal for the given size. The portal cannot list its
// inventory without a size, so an empty size has no results.
func (c *Client) Fetch(ctx context.Context, size string) ([]tire.Tire, error) {
	if size == "" {
		return []tire.Tire{}, nil
	}

	compact := CompactSize(size)
	outcomes, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]scraper.Outcome, error) {
		return search(ctx, c.session, compact, c.layout)
	})
	if err != nil {
		return nil, fmt.Errorf("wtwd: search %s: %w", size, err)
	}

	return scraper.Fold(ctx, "wtwd", outcomes), nil
}

// search has no outcomes when the results grid cannot be found, a page
// without results and a page whose structure changed look the same.
func search(ctx context.Context, s *session, compact string, layout Layout) ([]scraper.Outcome, error) {
	ctx, span := tracer.Start(ctx, "client:search")
	defer span.End()
	span.SetAttributes(attribute.String("size", compact))

	doc, err := fetchPage(ctx, s, restyutil.Request{
		Url: SearchPath,
		Query: map[string]string{
			"TireSizeA": compact,
			"Search":    compact,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch search page")
		return nil, err
	}

	table, ok := LocateTable(doc)
	if !ok {
		slog.DebugContext(ctx, "no results table on search page, trying form search")
		table, ok = formSearch(ctx, s, compact)
	}
	if !ok {
		slog.DebugContext(ctx, "no results table found", "size", compact)
		return nil, nil
	}

	outcomes := ParseRows(table, layout)
	span.SetAttributes(attribute.Int("rows", len(outcomes)))
	slog.DebugContext(ctx, "found candidate rows", "count", len(outcomes))
	return outcomes, nil
}

// formSearch posts the shop page's own search form, some searches only
// render a grid this way.
func formSearch(ctx context.Context, s *session, compact string) (*goquery.Selection, bool) {
	ctx, span := tracer.Start(ctx, "client:formSearch")
	defer span.End()

	doc, err := fetchPage(ctx, s, restyutil.Request{Url: SearchPath})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch search form")
		slog.DebugContext(ctx, "form search failed", "err", err)
		return nil, false
	}

	form := htmlutil.InputValues(doc, formTokens...)
	form[sizeComboBoxField] = compact
	form["Search"] = compact

	doc, err = fetchPage(ctx, s, restyutil.Request{
		Method:   resty.MethodPost,
		Url:      SearchPath,
		FormData: form,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit search form")
		slog.DebugContext(ctx, "form search failed", "err", err)
		return nil, false
	}
	return LocateTable(doc)
}

// IsLoginError reports whether err is a LoginError.
func IsLoginError(err error) bool {
	var loginErr *LoginError
	return errors.As(err, &loginErr)
}
