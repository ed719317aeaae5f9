package restyutil

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

const (
	DefaultUserAgent = "ThermiteMiddleware/4.0"
	DefaultTimeout   = 10 * time.Second
)

type ClientOptions struct {
	BaseUrl   string
	UserAgent string
	// defaults to DefaultTimeout
	Timeout time.Duration
	// defaults to "restyutil"
	TracerName string
	// if nil, request transcripts are not kept
	Output InstrumentOutput
}

// NewClient creates the http client shared by a source adapter, it comes with
// default headers, a fixed timeout and request instrumentation.
func NewClient(opts ClientOptions) *resty.Client {
	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	client.SetTimeout(timeout)

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "restyutil"
	}
	InstrumentClient(client, otel.Tracer(tracerName), opts.Output)

	return client
}
