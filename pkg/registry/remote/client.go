// Package remote implements an HTTP client for upstream registries that
// transparently runs the distribution token authentication flow.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/regproxy/regproxy/pkg/errdefs"
	"github.com/regproxy/regproxy/pkg/util/xcache"
	"github.com/regproxy/regproxy/pkg/util/xhttp"
	"github.com/regproxy/regproxy/pkg/xlog"
)

// maxAuthResponseBytes limits the size of the token endpoint response body.
const maxAuthResponseBytes int64 = 128 * 1024 // 128 KiB

// AuthConfig carries credentials for one upstream registry host.
type AuthConfig struct {
	// Username and Password are sent as Basic auth to the token endpoint.
	Username string
	Password string
	// RegistryToken, when set, is used as a Bearer token directly and no
	// token endpoint round trip is made.
	RegistryToken string
}

// AuthProvider returns the credentials for a registry host. Returning a zero
// AuthConfig means anonymous access.
type AuthProvider func(ctx context.Context, host string) AuthConfig

// Client wraps an HTTP client and retries unauthorized requests after
// resolving the WWW-Authenticate challenge.
type Client struct {
	client       xhttp.Client
	userAgent    string
	authProvider AuthProvider

	// challenges caches the parsed challenge per registry host so follow-up
	// requests can be authorized without a extra 401 round trip.
	challenges xcache.Cache[Challenge]
	// tokens caches fetched bearer tokens keyed by host and scope.
	tokens xcache.Cache[string]
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client xhttp.Client) ClientOption {
	return func(c *Client) { c.client = client }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithAuthProvider sets the credential source for upstream hosts.
func WithAuthProvider(provider AuthProvider) ClientOption {
	return func(c *Client) { c.authProvider = provider }
}

// NewClient creates a Client ready for anonymous access unless an
// AuthProvider is supplied.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		client:     http.DefaultClient,
		userAgent:  "regproxy",
		challenges: xcache.NewMemory[Challenge](),
		tokens:     xcache.NewMemory[string](),
	}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

// Do sends the request and, when the upstream answers 401 with a bearer
// challenge, fetches a token and retries once. The caller owns the response
// body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := xhttp.CheckRequestBodyRewindable(req); err != nil {
		return nil, err
	}
	ctx := req.Context()
	host := req.URL.Host
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	// Use the cached challenge for the host when we have one so the common
	// path is a single round trip.
	if challenge, ok := c.challenges.Get(ctx, host); ok {
		if err := c.setAuthorization(ctx, req, challenge); err != nil {
			return nil, err
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, xhttp.MakeRequestError(req, err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	challenge := ParseChallenge(resp.Header.Get("WWW-Authenticate"))
	if challenge.Scheme == SchemeUnknown {
		return resp, nil
	}
	xhttp.CloseAndSkipError(resp.Body)
	c.challenges.Set(ctx, host, challenge)
	// The previous token, if any, was rejected.
	c.tokens.Delete(ctx, tokenCacheKey(host, challenge))

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	if err := c.setAuthorization(ctx, retry, challenge); err != nil {
		return nil, err
	}
	resp, err = c.client.Do(retry)
	if err != nil {
		return nil, xhttp.MakeRequestError(retry, err)
	}
	return resp, nil
}

func (c *Client) setAuthorization(ctx context.Context, req *http.Request, challenge Challenge) error {
	host := req.URL.Host
	auth := AuthConfig{}
	if c.authProvider != nil {
		auth = c.authProvider(ctx, host)
	}
	switch challenge.Scheme {
	case SchemeBasic:
		if auth.Username != "" || auth.Password != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
	case SchemeBearer:
		if auth.RegistryToken != "" {
			req.Header.Set("Authorization", "Bearer "+auth.RegistryToken)
			return nil
		}
		token, ok := c.tokens.Get(ctx, tokenCacheKey(host, challenge), xcache.WithLoader(
			func(ctx context.Context, _ string) (string, bool) {
				token, err := c.fetchToken(ctx, challenge, auth)
				if err != nil {
					xlog.C(ctx).Warn("fetch upstream token failed", "host", host, "error", err)
					return "", false
				}
				return token, true
			}))
		if !ok {
			return errdefs.Newf(errdefs.ErrUnauthorized, "no bearer token available for %q", host)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case SchemeUnknown:
	}
	return nil
}

// fetchToken asks the realm announced in the challenge for a bearer token.
func (c *Client) fetchToken(ctx context.Context, challenge Challenge, auth AuthConfig) (string, error) {
	realm := challenge.Parameters["realm"]
	if realm == "" {
		return "", errdefs.Newf(errdefs.ErrUnauthorized, "bearer challenge has no realm")
	}
	realmURL, err := url.Parse(realm)
	if err != nil {
		return "", errdefs.Newf(errdefs.ErrInvalidParameter, "parse realm %q: %w", realm, err)
	}
	query := realmURL.Query()
	if service := challenge.Parameters["service"]; service != "" {
		query.Set("service", service)
	}
	for _, scope := range splitScopes(challenge.Parameters["scope"]) {
		query.Add("scope", scope)
	}
	realmURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, realmURL.String(), nil)
	if err != nil {
		return "", err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if auth.Username != "" || auth.Password != "" {
		req.SetBasicAuth(auth.Username, auth.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", xhttp.MakeRequestError(req, err)
	}
	defer xhttp.CloseAndSkipError(resp.Body)
	if err := xhttp.Success(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	var payload struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errdefs.Newf(errdefs.ErrUnauthorized, "decode token response: %w", err)
	}
	token := payload.Token
	if token == "" {
		token = payload.AccessToken
	}
	if token == "" {
		return "", errdefs.Newf(errdefs.ErrUnauthorized, "token response contains no token")
	}
	return token, nil
}

// splitScopes splits the space separated scope parameter.
func splitScopes(scope string) []string {
	return strings.Fields(scope)
}

func tokenCacheKey(host string, challenge Challenge) string {
	return host + "\n" + challenge.Parameters["scope"]
}

// cloneRequest rebuilds the request for the authorized retry, rewinding the
// body when one is present.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "request body is not rewindable")
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}
