package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/regproxy/regproxy/pkg/events"
	"github.com/regproxy/regproxy/pkg/proxy"
	"github.com/regproxy/regproxy/pkg/registry"
	"github.com/regproxy/regproxy/pkg/util/xhttp"
	"github.com/regproxy/regproxy/pkg/xlog"
)

// handlePing answers the version check endpoint.
func (s *Server) handlePing(c *gin.Context) {
	c.Header("Docker-Distribution-Api-Version", "registry/2.0")
	c.JSON(http.StatusOK, gin.H{})
}

// handleV2 dispatches /v2/{rest} requests. Repository names may contain
// slashes, so gin cannot route these endpoints itself.
func (s *Server) handleV2(c *gin.Context) {
	start := time.Now()
	rest := strings.Trim(c.Param("rest"), "/")
	ctx := c.Request.Context()
	method := c.Request.Method

	if rest == "" {
		if method != http.MethodGet && method != http.MethodHead {
			s.writeV2Error(c, http.StatusMethodNotAllowed, "UNSUPPORTED", "method not allowed")
			return
		}
		s.handlePing(c)
		return
	}
	endpoint := registry.ParseV2Path(rest)

	var (
		resp *http.Response
		err  error
		kind events.Kind
	)
	switch {
	case endpoint.Kind == registry.V2EndpointManifest && method == http.MethodGet:
		kind = events.KindManifest
		resp, err = s.proxy.GetManifest(ctx, endpoint.Name, endpoint.Reference)
	case endpoint.Kind == registry.V2EndpointManifest && method == http.MethodHead:
		kind = events.KindManifest
		resp, err = s.proxy.HeadManifest(ctx, endpoint.Name, endpoint.Reference)
	case endpoint.Kind == registry.V2EndpointBlob && method == http.MethodGet:
		kind = events.KindBlob
		resp, err = s.proxy.GetBlob(ctx, endpoint.Name, digest.Digest(endpoint.Digest))
	case endpoint.Kind == registry.V2EndpointBlob && method == http.MethodHead:
		kind = events.KindBlob
		resp, err = s.proxy.HeadBlob(ctx, endpoint.Name, digest.Digest(endpoint.Digest))
	case endpoint.Kind == registry.V2EndpointBlobUploadInit && method == http.MethodPost:
		kind = events.KindUpload
		resp, err = s.proxy.InitiateBlobUpload(ctx, endpoint.Name)
	case endpoint.Kind == registry.V2EndpointBlobUploadComplete && method == http.MethodPut:
		kind = events.KindUpload
		resp, err = s.proxy.CompleteBlobUpload(ctx,
			endpoint.Name, endpoint.Session, c.Request.URL.RawQuery,
			c.Request.Header, c.Request.Body)
	default:
		s.writeV2Error(c, http.StatusNotFound, "UNSUPPORTED", "unsupported v2 endpoint")
		return
	}
	if err != nil {
		xlog.C(ctx).Warn("proxy request failed", "error", err)
		s.writeV2Error(c, http.StatusBadGateway, "UNAVAILABLE", "upstream request failed")
		return
	}
	defer xhttp.CloseAndSkipError(resp.Body)

	s.relay(c, resp)
	s.recordEvent(c, kind, resp.StatusCode, time.Since(start))
}

// relay copies the upstream response to the client, dropping hop-by-hop
// headers and streaming the body.
func (s *Server) relay(c *gin.Context, resp *http.Response) {
	proxy.CopyRelayHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	if c.Request.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		xlog.C(c.Request.Context()).Debug("relay interrupted", "error", err)
	}
}

// v2Error mirrors the distribution error envelope.
type v2Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeV2Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"errors": []v2Error{{Code: code, Message: message}}})
}

func (s *Server) recordEvent(c *gin.Context, kind events.Kind, status int, duration time.Duration) {
	s.events.Enqueue(events.Event{
		ID:       uuid.NewString(),
		Kind:     kind,
		Method:   c.Request.Method,
		Path:     c.Request.URL.Path,
		Status:   status,
		Duration: duration.String(),
		Time:     time.Now().UTC(),
	})
}

// handleEvents drains and returns the recent proxied-request feed.
func (s *Server) handleEvents(c *gin.Context) {
	drained := s.events.Drain()
	if drained == nil {
		drained = []events.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": drained, "dropped": s.events.Dropped()})
}

// handleStats reports the proxy counters.
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.proxy.Stats())
}
