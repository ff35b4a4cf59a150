package app

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ccastromar/barberchat/internal/agent"
	"github.com/ccastromar/barberchat/internal/config"
	"github.com/ccastromar/barberchat/internal/health"
	"github.com/ccastromar/barberchat/internal/logx"
	"github.com/ccastromar/barberchat/internal/metrics"
	"github.com/ccastromar/barberchat/internal/runtime"
)

type HTTPServer struct {
	srv     *http.Server
	limiter *rateLimiterStore
}

// httpPort overrides PORT when set (CLI flag -port).
var httpPort = ""

// SetHTTPPort allows overriding the configured HTTP port before starting the app.
func SetHTTPPort(p string) {
	if p == "" {
		return
	}
	httpPort = p
}

func listenAddr(env *config.EnvVars) string {
	if httpPort != "" {
		return ":" + httpPort
	}
	return ":" + strconv.Itoa(env.Port)
}

func NewHTTPServer(env *config.EnvVars, apiAgent *agent.APIAgent, rt *runtime.Runtime) *HTTPServer {
	if env.AppEnv != "dev" && env.AppEnv != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := newRateLimiterStore(env.RateLimitRPS, env.RateLimitBurst)

	r := gin.New()
	r.Use(recoveryMiddleware(), requestLogger(), secureHeaders(), corsMiddleware(env.CORSAllowedOrigins))

	r.GET("/health", health.NewInfoHandler(rt))
	r.GET("/health/live", health.LiveHandler)
	r.GET("/health/ready", health.NewReadyHandler(rt))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiAgent.RegisterHTTP(r.Group("/", rateLimitMiddleware(limiter)))

	return &HTTPServer{
		limiter: limiter,
		srv: &http.Server{
			Addr:              listenAddr(env),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       env.ReadTimeout,
			WriteTimeout:      env.WriteTimeout,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1MB
		},
	}
}

func (h *HTTPServer) Handler() http.Handler { return h.srv.Handler }

func (h *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logx.Info("HTTP", "listening on %s", h.srv.Addr)
		errCh <- h.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logx.Info("HTTP", "shutting down server...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.srv.Shutdown(shutCtx)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

var requestIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// requestLogger assigns X-Request-ID (keeping a well-formed incoming one),
// logs the request and records HTTP metrics.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if !requestIDRe.MatchString(id) {
			id = uuid.NewString()
		}
		c.Set(agent.RequestIDKey, id)
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, path, status).Observe(elapsed.Seconds())
		logx.L(id, "HTTP", "%s %s status=%s dur=%v", c.Request.Method, c.Request.URL.Path, status, elapsed)
	}
}

func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		logx.Error("HTTP", "panic recovered: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	})
}

// secureHeaders adds basic hardening: common security headers and no TRACE.
func secureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodTrace {
			c.AbortWithStatus(http.StatusMethodNotAllowed)
			return
		}
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		// HSTS only when TLS is enabled
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Next()
	}
}
