// Package xhttp provides helpers around net/http shared by the upstream
// client and the proxy server.
package xhttp

import (
	"fmt"
	"net/http"
)

// Client is the interface of a http client.
type Client interface {
	Do(*http.Request) (*http.Response, error)
}

// CheckRequestBodyRewindable verifies the request body can be replayed, which
// is required before a request may be retried with authorization.
func CheckRequestBodyRewindable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody == nil {
		return fmt.Errorf("%s %s: request body is not rewindable", req.Method, req.URL.Redacted())
	}
	return nil
}

// CloseAndSkipError closes the closer and discards the close error.
func CloseAndSkipError(closer interface{ Close() error }) {
	_ = closer.Close()
}
