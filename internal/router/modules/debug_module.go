package modules

import (
	"context"
	"expvar"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/calcount/calcount-api/pkg/helpers"
	"github.com/calcount/calcount-api/pkg/response"
)

var startedAt = time.Now()

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// DebugModule exposes liveness, expvar and Prometheus metrics.
type DebugModule struct {
	Engine         *gin.Engine
	MetricsEnabled bool
	Checks         map[string]HealthCheck
	Logger         *logrus.Logger
}

func NewDebugModule(engine *gin.Engine, metricsEnabled bool) *DebugModule {
	return &DebugModule{Engine: engine, MetricsEnabled: metricsEnabled, Checks: map[string]HealthCheck{}}
}

// WithCheck registers a named dependency check reported by /api/health.
func (m *DebugModule) WithCheck(name string, check HealthCheck) *DebugModule {
	if check != nil {
		m.Checks[name] = check
	}
	return m
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.health)

	if !m.MetricsEnabled {
		return
	}
	rg.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	if m.Engine != nil {
		m.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func (m *DebugModule) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(m.Checks))
	for name := range m.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := m.Checks[name](ctx); err != nil {
			healthy = false
			deps[name] = "down"
			if m.Logger != nil {
				helpers.LogError(m.Logger, "health check failed", err, logrus.Fields{"dependency": name})
			}
			continue
		}
		deps[name] = "up"
	}

	body := gin.H{
		"status":       "ok",
		"uptime":       time.Since(startedAt).Round(time.Second).String(),
		"dependencies": deps,
	}
	if !healthy {
		body["status"] = "degraded"
		response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", response.ErrorBody{Code: "unhealthy", Details: body})
		return
	}
	response.Success(c, http.StatusOK, body, "healthy", nil)
}
