package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regproxy/regproxy/pkg/config"
	"github.com/regproxy/regproxy/pkg/events"
	"github.com/regproxy/regproxy/pkg/proxy"
)

// newTestServer builds a Server proxying to the given upstream base URL.
func newTestServer(t *testing.T, upstreamURL string, opts ...Option) *Server {
	t.Helper()
	cfg := config.Default()
	opts = append([]Option{
		WithProxy(proxy.New(proxy.WithDefaultRegistry(upstreamURL))),
		WithEventQueue(events.NewQueue(16)),
	}, opts...)
	return New(cfg, opts...)
}

func doRequest(s *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	rec := doRequest(s, http.MethodGet, "/v2/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "registry/2.0", rec.Header().Get("Docker-Distribution-Api-Version"))
}

func TestHealthz(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer upstream.Close()

		s := newTestServer(t, upstream.URL)
		rec := doRequest(s, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status   string `json:"status"`
			Registry struct {
				URL     string `json:"url"`
				Healthy bool   `json:"healthy"`
			} `json:"registry"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, upstream.URL, body.Registry.URL)
		assert.True(t, body.Registry.Healthy)
	})
	t.Run("Degraded", func(t *testing.T) {
		s := newTestServer(t, "http://127.0.0.1:1")
		rec := doRequest(s, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	})
	t.Run("FirstProbeRunsOnce", func(t *testing.T) {
		var pings atomic.Int64
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			pings.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer upstream.Close()

		s := newTestServer(t, upstream.URL)
		var wg sync.WaitGroup
		for n := 0; n < 8; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := doRequest(s, http.MethodGet, "/healthz", nil)
				assert.Equal(t, http.StatusOK, rec.Code)
			}()
		}
		wg.Wait()
		// concurrent first probes share one upstream ping
		assert.Equal(t, int64(1), pings.Load())
	})
}

func TestV2ManifestProxied(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/team/app/manifests/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/vnd.docker.distribution.manifest.v2+json")
		w.Header().Set("Docker-Content-Digest", "sha256:feedface")
		w.Write([]byte(`{"schemaVersion":2}`))
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	rec := doRequest(s, http.MethodGet, "/v2/team/app/manifests/latest", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"schemaVersion":2}`, rec.Body.String())
	assert.Equal(t, "sha256:feedface", rec.Header().Get("Docker-Content-Digest"))
	assert.Empty(t, rec.Header().Get("Connection"))
}

func TestV2BareNameNormalizedByDefault(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := config.Default()
	p := proxy.New(
		proxy.WithDefaultRegistry(upstream.URL),
		proxy.WithDefaultNamespace(cfg.Proxy.DefaultNamespace),
	)
	s := New(cfg, WithProxy(p), WithEventQueue(events.NewQueue(16)))

	rec := doRequest(s, http.MethodGet, "/v2/nginx/manifests/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/v2/library/nginx/manifests/latest", gotPath)
}

func TestV2UpstreamStatusRelayed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	rec := doRequest(s, http.MethodGet, "/v2/missing/app/manifests/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestV2UnsupportedPath(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	rec := doRequest(s, http.MethodGet, "/v2/manifests/latest", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNSUPPORTED")
}

func TestV2UpstreamUnreachable(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	rec := doRequest(s, http.MethodGet, "/v2/team/app/manifests/latest", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestEventsFeed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	doRequest(s, http.MethodGet, "/v2/team/app/manifests/latest", nil)

	rec := doRequest(s, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []events.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, events.KindManifest, body.Events[0].Kind)
	assert.Equal(t, "/v2/team/app/manifests/latest", body.Events[0].Path)
	assert.Equal(t, http.StatusOK, body.Events[0].Status)
	assert.NotEmpty(t, body.Events[0].ID)

	// drained on read
	rec = doRequest(s, http.MethodGet, "/api/events", nil)
	assert.Contains(t, rec.Body.String(), `"events":[]`)
}

func TestStats(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	doRequest(s, http.MethodGet, "/v2/team/app/manifests/latest", nil)
	doRequest(s, http.MethodHead, "/v2/team/app/manifests/latest", nil)

	rec := doRequest(s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requests":2`)
}

func TestStaticFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "index.html", []byte("<html>regproxy</html>"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "app.js", []byte("console.log('hi')"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "notes.dat", []byte("secret"), 0o644))

	s := newTestServer(t, "http://127.0.0.1:1", WithStaticFS(fsys))

	t.Run("IndexForRoot", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<html>regproxy</html>", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
	t.Run("NamedFile", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/app.js", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "console.log('hi')", rec.Body.String())
	})
	t.Run("ExtensionNotWhitelisted", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/notes.dat", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("Missing", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/nope.css", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("TraversalRejected", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/static/../../etc/passwd.txt", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("ByteRange", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/index.html", http.Header{"Range": {"bytes=0-5"}})
		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "<html>", rec.Body.String())
		assert.Equal(t, "bytes 0-5/21", rec.Header().Get("Content-Range"))
	})
	t.Run("BadRange", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/index.html", http.Header{"Range": {"bytes=99-100"}})
		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
		assert.Equal(t, "bytes */21", rec.Header().Get("Content-Range"))
	})
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	rec := doRequest(s, http.MethodGet, "/v2/", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.False(t, strings.Contains(rec.Header().Get("X-Request-Id"), " "))
}
