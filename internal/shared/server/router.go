package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimola/kimola-go/internal/report"
	"github.com/kimola/kimola-go/internal/services/health"
	"github.com/kimola/kimola-go/internal/shared/config"
	"github.com/kimola/kimola-go/internal/shared/metrics"
	"github.com/kimola/kimola-go/internal/shared/server/middleware"
	"github.com/kimola/kimola-go/internal/shared/server/respond"
	"github.com/kimola/kimola-go/internal/usage"
)

// Rate limit groups.
const (
	GroupRead     = "DEFAULT"
	GroupUpstream = "UPSTREAM"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config        config.Config
	Health        *health.Service
	UsageHandler  *usage.Handler
	ReportHandler *report.Handler
	Limiter       *middleware.RateLimiter
}

// DefaultRateLimits allows generous reads and throttles routes that spend
// Kimola API calls.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		GroupRead:     {Rate: 10, Burst: 30},
		GroupUpstream: {Rate: 0.2, Burst: 3},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigins),
	)

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}
	rules := DefaultRateLimits()

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		st := healthSvc.Status(c.Request.Context())
		code := http.StatusOK
		if !st.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, st)
	})
	api.GET("/metrics", metrics.Handler())

	read := api.Group("")
	read.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: GroupRead,
		Limiter:      limiter,
	}))
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(read)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(read)
	}

	operator := api.Group("")
	operator.Use(
		middleware.Auth(deps.Config.MonitorToken),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: GroupUpstream,
			Limiter:      limiter,
		}),
	)
	registerMeRoutes(operator)
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterOperatorRoutes(operator)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterOperatorRoutes(operator)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
