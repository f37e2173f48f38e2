package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/regproxy/regproxy/pkg/appinfo"
	"github.com/regproxy/regproxy/pkg/proxy"
	"github.com/regproxy/regproxy/pkg/util/xsched"
	"github.com/regproxy/regproxy/pkg/xlog"
)

// healthState caches the upstream health so health probes do not hammer the
// upstream. Probes trigger a debounced refresh and read the cached result.
type healthState struct {
	proxy     *proxy.Proxy
	debouncer *xsched.Debouncer[context.Context]

	first sync.Once

	mu      sync.Mutex
	healthy bool
	checked time.Time
}

func newHealthState(p *proxy.Proxy, delay time.Duration) *healthState {
	h := &healthState{proxy: p}
	h.debouncer = xsched.NewDebouncer(delay, h.refresh)
	return h
}

// refresh pings the upstream and stores the result.
func (h *healthState) refresh(ctx context.Context) {
	err := h.proxy.CheckHealth(ctx)
	if err != nil {
		xlog.C(ctx).Warn("upstream health check failed", "error", err)
	}
	h.mu.Lock()
	h.healthy = err == nil
	h.checked = time.Now()
	h.mu.Unlock()
}

// warm runs the first upstream probe. Concurrent callers share a single
// probe; later calls are no-ops.
func (h *healthState) warm(ctx context.Context) (ran bool) {
	h.first.Do(func() {
		h.refresh(ctx)
		ran = true
	})
	return ran
}

// snapshot returns the cached state. The first call probes synchronously,
// every later call only triggers a debounced refresh.
func (h *healthState) snapshot(ctx context.Context) (healthy bool, checked time.Time) {
	if !h.warm(ctx) {
		h.debouncer.Trigger(context.WithoutCancel(ctx))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.healthy, h.checked
}

func (h *healthState) stop() {
	h.debouncer.Stop()
}

type healthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Registry  registryHealth `json:"registry"`
	Timestamp time.Time      `json:"timestamp"`
}

type registryHealth struct {
	URL     string `json:"url"`
	Healthy bool   `json:"healthy"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	healthy, _ := s.health.snapshot(c.Request.Context())

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, healthResponse{
		Status:  status,
		Version: appinfo.ShortVersion(),
		Registry: registryHealth{
			URL:     s.proxy.DefaultRegistryURL(),
			Healthy: healthy,
		},
		Timestamp: time.Now().UTC(),
	})
}
