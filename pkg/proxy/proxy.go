// Package proxy forwards Docker Registry v2 requests to upstream registries,
// resolving the upstream from the repository name.
package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/regproxy/regproxy/pkg/errdefs"
	"github.com/regproxy/regproxy/pkg/registry"
	"github.com/regproxy/regproxy/pkg/registry/remote"
	"github.com/regproxy/regproxy/pkg/util/xhttp"
	"github.com/regproxy/regproxy/pkg/xlog"
)

// DefaultRegistry is the upstream used when the repository name carries no
// registry host.
const DefaultRegistry = "https://registry-1.docker.io"

// Doer sends an HTTP request. *remote.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Proxy resolves repository names to upstream registries and forwards
// Registry v2 operations.
type Proxy struct {
	client           Doer
	defaultRegistry  string
	defaultNamespace string

	requests *xsync.Counter
	failures *xsync.Counter
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithClient sets the upstream HTTP client.
func WithClient(client Doer) Option {
	return func(p *Proxy) { p.client = client }
}

// WithDefaultRegistry sets the upstream base URL for repository names without
// an embedded registry host.
func WithDefaultRegistry(baseURL string) Option {
	return func(p *Proxy) { p.defaultRegistry = strings.TrimSuffix(baseURL, "/") }
}

// WithDefaultNamespace sets the namespace prefixed onto bare single-segment
// repository names sent to the default registry, e.g. "library".
func WithDefaultNamespace(namespace string) Option {
	return func(p *Proxy) { p.defaultNamespace = namespace }
}

// New creates a Proxy. Without options it forwards anonymously to
// DefaultRegistry.
func New(opts ...Option) *Proxy {
	p := &Proxy{
		client:          remote.NewClient(),
		defaultRegistry: DefaultRegistry,
		requests:        xsync.NewCounter(),
		failures:        xsync.NewCounter(),
	}
	for _, apply := range opts {
		apply(p)
	}
	return p
}

// Stats is a snapshot of the proxy counters.
type Stats struct {
	Requests int64 `json:"requests"`
	Failures int64 `json:"failures"`
}

// Stats returns the current counter values.
func (p *Proxy) Stats() Stats {
	return Stats{Requests: p.requests.Value(), Failures: p.failures.Value()}
}

// Resolve maps a repository name from a client request to the upstream base
// URL and the repository name to use against that upstream. Names whose first
// segment looks like a host ("ghcr.io/owner/app") address that host directly;
// everything else goes to the default registry, with the default namespace
// applied to bare names ("nginx" to "library/nginx").
func (p *Proxy) Resolve(name string) (baseURL, upstreamName string) {
	first, rest, found := strings.Cut(name, "/")
	if found && strings.ContainsAny(first, ".:") {
		return "https://" + first, rest
	}
	if !found && p.defaultNamespace != "" {
		name = p.defaultNamespace + "/" + name
	}
	return p.defaultRegistry, name
}

// GetManifest forwards a manifest fetch. The caller owns the response body.
func (p *Proxy) GetManifest(ctx context.Context, name, reference string) (*http.Response, error) {
	return p.forwardManifest(ctx, registry.RouteManifestsGet, name, reference)
}

// HeadManifest forwards a manifest existence check.
func (p *Proxy) HeadManifest(ctx context.Context, name, reference string) (*http.Response, error) {
	return p.forwardManifest(ctx, registry.RouteManifestsHead, name, reference)
}

func (p *Proxy) forwardManifest(ctx context.Context, route registry.RouteDescriptor, name, reference string) (*http.Response, error) {
	baseURL, upstreamName := p.Resolve(name)
	req, err := registry.NewRouteBuilder(baseURL).
		WithName(upstreamName).
		WithReference(reference).
		BuildRequest(ctx, route)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "build manifest request: %w", err)
	}
	for _, accept := range registry.ManifestAcceptValues() {
		req.Header.Add("Accept", accept)
	}
	return p.forward(ctx, req)
}

// GetBlob forwards a blob fetch. The body is streamed, not buffered.
func (p *Proxy) GetBlob(ctx context.Context, name string, dgst digest.Digest) (*http.Response, error) {
	return p.forwardBlob(ctx, registry.RouteBlobsGet, name, dgst)
}

// HeadBlob forwards a blob existence check.
func (p *Proxy) HeadBlob(ctx context.Context, name string, dgst digest.Digest) (*http.Response, error) {
	return p.forwardBlob(ctx, registry.RouteBlobsHead, name, dgst)
}

func (p *Proxy) forwardBlob(ctx context.Context, route registry.RouteDescriptor, name string, dgst digest.Digest) (*http.Response, error) {
	baseURL, upstreamName := p.Resolve(name)
	req, err := registry.NewRouteBuilder(baseURL).
		WithName(upstreamName).
		WithDigest(dgst).
		BuildRequest(ctx, route)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "build blob request: %w", err)
	}
	return p.forward(ctx, req)
}

// InitiateBlobUpload forwards a blob upload start to the upstream.
func (p *Proxy) InitiateBlobUpload(ctx context.Context, name string) (*http.Response, error) {
	baseURL, upstreamName := p.Resolve(name)
	req, err := registry.NewRouteBuilder(baseURL).
		WithName(upstreamName).
		BuildRequest(ctx, registry.RouteBlobsUploadsPost)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "build upload request: %w", err)
	}
	return p.forward(ctx, req)
}

// CompleteBlobUpload forwards a monolithic blob upload completion. The body
// is buffered so the request can be replayed after an auth challenge.
func (p *Proxy) CompleteBlobUpload(ctx context.Context, name, session, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	baseURL, upstreamName := p.Resolve(name)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "read upload body: %w", err)
	}
	req, err := registry.NewRouteBuilder(baseURL).
		WithName(upstreamName).
		WithSession(session).
		WithBody(bytes.NewReader(data)).
		BuildRequest(ctx, registry.RouteBlobsUploadsPut)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "build upload request: %w", err)
	}
	req.URL.RawQuery = rawQuery
	for _, key := range []string{"Content-Type", "Content-Range"} {
		if value := header.Get(key); value != "" {
			req.Header.Set(key, value)
		}
	}
	return p.forward(ctx, req)
}

func (p *Proxy) forward(ctx context.Context, req *http.Request) (*http.Response, error) {
	p.requests.Inc()
	xlog.C(ctx).Debug("forwarding to upstream",
		"method", req.Method, "url", req.URL.String())
	resp, err := p.client.Do(req)
	if err != nil {
		p.failures.Inc()
		return nil, errdefs.Newf(errdefs.ErrUnavailable, "upstream request failed: %w", err)
	}
	return resp, nil
}

// CheckHealth pings the default registry. A 401 still proves the upstream is
// reachable and speaking the v2 protocol.
func (p *Proxy) CheckHealth(ctx context.Context) error {
	req, err := registry.NewRouteBuilder(p.defaultRegistry).
		BuildRequest(ctx, registry.RoutePing)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return errdefs.Newf(errdefs.ErrUnavailable, "upstream ping failed: %w", err)
	}
	defer xhttp.CloseAndSkipError(resp.Body)
	return xhttp.Success(resp, http.StatusOK, http.StatusUnauthorized)
}

// DefaultRegistryURL returns the configured default upstream base URL.
func (p *Proxy) DefaultRegistryURL() string {
	return p.defaultRegistry
}
