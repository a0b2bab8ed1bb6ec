// Package httpkit is the HTTP surface modules mount against; it re-exports the platform
// router seam and adapts plain handlers to the response envelope
package httpkit

import (
	"net/http"

	phttp "agentpulse/internal/platform/net/http"
	"agentpulse/internal/platform/net/http/bind"
)

type (
	// Router is the platform router seam
	Router = phttp.Router

	// Handler is the platform handler type
	Handler = phttp.Handler

	// Response lets a handler choose its own status
	Response = phttp.Response
)

// envelope wraps out in a 200 unless the handler already built a Response
func envelope(out any, err error) Response {
	if err != nil {
		return phttp.Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return phttp.OK(out)
}

// JSON binds and validates T from the body, then envelopes the handler result
func JSON[T any](fn func(*http.Request, T) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return phttp.Error(err)
		}
		return envelope(fn(r, in))
	})
}

// Call adapts a handler that reads no body
func Call(fn func(*http.Request) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) Response { return envelope(fn(r)) })
}
