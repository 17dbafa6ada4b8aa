package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/caresync/portal-api/internal/handler"
	audithandler "github.com/caresync/portal-api/internal/handler/audit"
	"github.com/caresync/portal-api/internal/middleware"
)

type AuthHandler interface {
	RegisterPublicRoutes(*gin.RouterGroup, ...gin.HandlerFunc)
	RegisterProtectedRoutes(*gin.RouterGroup)
}

type PractitionerHandler interface {
	RegisterRoutes(*gin.RouterGroup, *middleware.AuthMiddleware)
}

type PresenceHandler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimit      middleware.RateLimiterConfig
	LoginRateLimit middleware.RateLimiterConfig
	CORSConfig     middleware.CORSConfig
	RequestTimeout time.Duration
	MetricsPrefix  string
}

type Router struct {
	engine         *gin.Engine
	auth           *middleware.AuthMiddleware
	authH          AuthHandler
	practitionerH  PractitionerHandler
	presenceH      PresenceHandler
	auditH         *audithandler.Handler
	h              *handler.Handler
	config         RouterConfig
	metrics        *routerMetrics
	loginRateLimit *middleware.RateLimiter
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH AuthHandler,
	practitionerH PractitionerHandler,
	presenceH PresenceHandler,
	auditH *audithandler.Handler,
	h *handler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		authH:         authH,
		practitionerH: practitionerH,
		presenceH:     presenceH,
		auditH:        auditH,
		h:             h,
		config:        config,
		metrics:       initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	rateLimiter := middleware.NewRateLimiter(config.RateLimit)
	engine.Use(rateLimiter.RateLimit())
	r.loginRateLimit = middleware.NewRateLimiter(config.LoginRateLimit)

	engine.NoRoute(middleware.NotFound())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	// The presence stream holds its connection open, so it is mounted
	// outside the request timeout.
	stream := api.Group("", r.auth.Authenticate())
	r.presenceH.RegisterRoutes(stream)

	timed := api.Group("", middleware.Timeout(r.config.RequestTimeout))

	r.authH.RegisterPublicRoutes(timed, r.loginRateLimit.RateLimit())

	protected := timed.Group("", r.auth.Authenticate())
	r.authH.RegisterProtectedRoutes(protected)
	r.practitionerH.RegisterRoutes(protected, r.auth)
	r.auditH.RegisterRoutes(protected, r.auth)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
