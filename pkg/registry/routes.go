// Package registry models the Docker Registry HTTP API v2 surface: the
// route endpoints the proxy calls on upstreams and the path grammar it
// serves to clients.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	stdurl "net/url"
	"regexp"
	"strings"

	"github.com/opencontainers/go-digest"
)

// RouteDescriptor is a descriptor for a route endpoint api.
type RouteDescriptor struct {
	// ID is the endpoint identifier from the distribution spec.
	ID string
	// Method is the HTTP method for the route endpoint api.
	Method string
	// PathPattern is the HTTP path pattern for the route endpoint api.
	PathPattern string
	// SuccessCodes is the list of HTTP status codes that indicate success.
	SuccessCodes []int
	// FailureCodes is the list of HTTP status codes that indicate failure.
	FailureCodes []int
}

var (
	// RoutePing is the route descriptor to ping a registry.
	RoutePing = RouteDescriptor{
		ID:           "end-1",
		Method:       http.MethodGet,
		PathPattern:  "/v2/",
		SuccessCodes: []int{http.StatusOK},                                // 200
		FailureCodes: []int{http.StatusNotFound, http.StatusUnauthorized}, // 404/401
	}
	// RouteManifestsGet is the route descriptor for the manifests to fetch.
	RouteManifestsGet = RouteDescriptor{
		ID:           "end-3",
		Method:       http.MethodGet,
		PathPattern:  "/v2/{name}/manifests/{reference}",
		SuccessCodes: []int{http.StatusOK},       // 200
		FailureCodes: []int{http.StatusNotFound}, // 404
	}
	// RouteManifestsHead is the route descriptor for the manifests to stat.
	RouteManifestsHead = RouteDescriptor{
		ID:           "end-3",
		Method:       http.MethodHead,
		PathPattern:  "/v2/{name}/manifests/{reference}",
		SuccessCodes: []int{http.StatusOK},       // 200
		FailureCodes: []int{http.StatusNotFound}, // 404
	}
	// RouteBlobsGet is the route descriptor for the blobs to fetch.
	RouteBlobsGet = RouteDescriptor{
		ID:           "end-2",
		Method:       http.MethodGet,
		PathPattern:  "/v2/{name}/blobs/{digest}",
		SuccessCodes: []int{http.StatusOK},       // 200
		FailureCodes: []int{http.StatusNotFound}, // 404
	}
	// RouteBlobsHead is the route descriptor for the blobs to stat.
	RouteBlobsHead = RouteDescriptor{
		ID:           "end-2",
		Method:       http.MethodHead,
		PathPattern:  "/v2/{name}/blobs/{digest}",
		SuccessCodes: []int{http.StatusOK},       // 200
		FailureCodes: []int{http.StatusNotFound}, // 404
	}
	// RouteBlobsUploadsPost is the route descriptor to start a blob upload.
	RouteBlobsUploadsPost = RouteDescriptor{
		ID:           "end-4a",
		Method:       http.MethodPost,
		PathPattern:  "/v2/{name}/blobs/uploads/",
		SuccessCodes: []int{http.StatusAccepted}, // 202
		FailureCodes: []int{http.StatusNotFound}, // 404
	}
	// RouteBlobsUploadsPut is the route descriptor to complete a blob upload.
	RouteBlobsUploadsPut = RouteDescriptor{
		ID:           "end-6",
		Method:       http.MethodPut,
		PathPattern:  "/v2/{name}/blobs/uploads/{session}",
		SuccessCodes: []int{http.StatusCreated},  // 201
		FailureCodes: []int{http.StatusNotFound}, // 404
	}
)

// NewRouteBuilder returns a *RouteBuilder against the given upstream base URL,
// e.g. "https://registry-1.docker.io".
func NewRouteBuilder(baseURL string) *RouteBuilder {
	return &RouteBuilder{BaseURL: baseURL}
}

// RouteBuilder fills route path patterns with concrete parameters and builds
// paths, URLs and requests for a route endpoint.
type RouteBuilder struct {
	BaseURL   string
	Name      string
	Reference string
	Digest    digest.Digest
	Session   string
	Body      io.Reader
}

func (rb *RouteBuilder) WithName(name string) *RouteBuilder {
	rb.Name = name
	return rb
}

func (rb *RouteBuilder) WithReference(reference string) *RouteBuilder {
	rb.Reference = reference
	return rb
}

func (rb *RouteBuilder) WithDigest(dgst digest.Digest) *RouteBuilder {
	rb.Digest = dgst
	return rb
}

func (rb *RouteBuilder) WithSession(session string) *RouteBuilder {
	rb.Session = session
	return rb
}

func (rb *RouteBuilder) WithBody(body io.Reader) *RouteBuilder {
	rb.Body = body
	return rb
}

func (rb *RouteBuilder) replace(pattern string) string {
	replacements := map[string]string{
		"{name}":      rb.Name,
		"{reference}": rb.Reference,
		"{digest}":    rb.Digest.String(),
		"{session}":   rb.Session,
	}
	for k, v := range replacements {
		if v != "" {
			pattern = strings.Replace(pattern, k, v, -1)
		}
	}
	return pattern
}

// BuildPath returns the route path with all parameters filled in.
func (rb *RouteBuilder) BuildPath(route RouteDescriptor) (string, error) {
	path := rb.replace(route.PathPattern)
	if err := validateRoutePath(path); err != nil {
		return "", err
	}
	return path, nil
}

// BuildURL returns the full upstream URL for the route.
func (rb *RouteBuilder) BuildURL(route RouteDescriptor) (*stdurl.URL, error) {
	routePath, err := rb.BuildPath(route)
	if err != nil {
		return nil, err
	}
	urlStr := strings.TrimSuffix(rb.BaseURL, "/") + "/" + strings.TrimPrefix(routePath, "/")
	return stdurl.Parse(urlStr)
}

// BuildRequest returns an *http.Request for the route.
func (rb *RouteBuilder) BuildRequest(ctx context.Context, route RouteDescriptor) (*http.Request, error) {
	url, err := rb.BuildURL(route)
	if err != nil {
		return nil, err
	}
	body := rb.Body
	if body == nil {
		body = http.NoBody
	}
	return http.NewRequestWithContext(ctx, route.Method, url.String(), body)
}

var (
	routePathValidatePattern = `\{name\}|\{reference\}|\{digest\}|\{session\}|/{2,}`
	routePathValidateRegex   = regexp.MustCompile(routePathValidatePattern)
)

// validateRoutePath returns an error if the path still contains unfilled
// parameters or duplicated slashes.
func validateRoutePath(path string) error {
	// "/blobs/uploads/" legitimately ends with a slash
	trimmed := strings.TrimSuffix(path, "/")
	matches := routePathValidateRegex.FindAllString(trimmed, -1)
	if len(matches) == 0 {
		return nil
	}
	return fmt.Errorf("invalid route path: %s", path)
}
