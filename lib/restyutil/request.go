package restyutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

type BasicAuth struct {
	Username string
	Password string
}

// Request describes a single http request made through Do.
type Request struct {
	Method  string
	Url     string
	Query   map[string]string
	Headers map[string]string
	// form data is sent urlencoded, it is ignored when Body is set
	FormData  map[string]string
	Body      any
	BasicAuth *BasicAuth
}

// Body is a response body, Json is nil when the body could not be decoded
// as json.
type Body struct {
	Json any
	Text string
}

// Object returns the body as a json object, if it is one.
func (b Body) Object() (map[string]any, bool) {
	obj, ok := b.Json.(map[string]any)
	return obj, ok
}

// RecoverableError is a transient transport failure or a non-2xx response,
// it is the error kind retry policies consider for another attempt.
type RecoverableError struct {
	Method string
	Url    string
	// zero when no response was received
	Status int
	Err    error
}

func (e *RecoverableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Url, e.Status)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Url, e.Err.Error())
}

func (e *RecoverableError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err wraps a RecoverableError.
func IsRecoverable(err error) bool {
	var recoverable *RecoverableError
	return errors.As(err, &recoverable)
}

// Do sends the request and decodes its body.
func Do(ctx context.Context, client *resty.Client, req Request) (Body, error) {
	method := req.Method
	if method == "" {
		method = resty.MethodGet
	}

	r := client.R().
		SetContext(ctx).
		SetQueryParams(req.Query).
		SetHeaders(req.Headers)
	if req.BasicAuth != nil {
		r.SetBasicAuth(req.BasicAuth.Username, req.BasicAuth.Password)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	} else if len(req.FormData) > 0 {
		r.SetFormData(req.FormData)
	}

	res, err := r.Execute(method, req.Url)
	if err != nil {
		return Body{}, &RecoverableError{
			Method: method,
			Url:    req.Url,
			Err:    err,
		}
	}
	if !res.IsSuccess() {
		return Body{}, &RecoverableError{
			Method: method,
			Url:    req.Url,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("unexpected status: %s", res.Status()),
		}
	}

	return decodeBody(res.Body()), nil
}

func decodeBody(raw []byte) Body {
	body := Body{Text: string(raw)}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		body.Json = decoded
	}
	return body
}
