package transport

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Request is one outgoing HTTP call, fully resolved: no variable tokens and
// no path templates remain by the time it reaches a Transport.
type Request struct {
	Method  string
	URL     string
	Query   map[string]string
	Headers map[string]string
	Body    []byte
}

// BuildURL merges query parameters into the request URL.
func (r *Request) BuildURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	q := u.Query()
	for k, v := range r.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Response is the raw outcome of one HTTP call.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// BodyJSON decodes the body; the error is the caller's signal that the
// response was not JSON after all.
func (r *Response) BodyJSON() (any, error) {
	var out any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Header performs a case-insensitive header lookup.
func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

// IsJSON reports whether the response declares a JSON content type or, for
// servers that skip the header, whether the body parses as JSON.
func (r *Response) IsJSON() bool {
	if strings.Contains(r.ContentType(), "application/json") {
		return true
	}
	return len(r.Body) > 0 && json.Valid(r.Body)
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// Transport executes HTTP calls. Implementations must honor ctx
// cancellation; both an error return and a non-2xx response are failure
// signals the runner normalizes into step results.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}
