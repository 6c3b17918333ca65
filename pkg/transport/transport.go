// Package transport carries encoded requests to the provider API. The
// core is transport-agnostic: anything that can send a method, path, and
// body and hand back a status code and decoded body satisfies it. Two
// implementations are provided, a direct HTTP client and an SSH-tunneled
// client for bastion-guarded endpoints.
package transport

import (
	"context"
	"time"
)

// Response is a decoded provider reply.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the raw response body.
	Body []byte
}

// OK reports whether the status code indicates success.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends a single request to the provider and returns its reply.
// Implementations must honor context cancellation. A non-2xx reply is
// returned as a Response, not an error; errors are reserved for failures
// to obtain a reply at all.
type Transport interface {
	Send(ctx context.Context, method, path string, body []byte) (*Response, error)
}

// Config holds settings shared by the transport implementations.
type Config struct {
	// Endpoint is the base URL of the provider API.
	Endpoint string

	// UserAgent identifies the client in outbound requests.
	UserAgent string

	// Token is the bearer token attached to every request. Credential
	// acquisition is out of scope; the caller supplies a valid token.
	Token string

	// Timeout bounds a single request/response exchange. Zero means no
	// per-request timeout beyond the caller's context.
	Timeout time.Duration

	// Bastion, when non-nil, routes all requests through an SSH tunnel.
	Bastion *BastionConfig
}

// SendError reports a failure to complete an exchange with the provider,
// as opposed to a reply carrying an error status.
type SendError struct {
	// Op is the failing stage, e.g. "dial", "request", "read".
	Op string

	// Err is the underlying error.
	Err error
}

func (e *SendError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}
