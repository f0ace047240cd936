package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"taskapi/internal/apperror"
	"taskapi/internal/auth"
	"taskapi/internal/tasks"
	"taskapi/internal/validation"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP layer.
type Options struct {
	// Development exposes unexpected error details in responses.
	Development bool
	// AuthGate requires a bearer token on the task listing route.
	AuthGate    bool
	CORSOrigins []string
	// RateLimit and RateBurst bound requests per client IP on /api/user.
	// A zero RateLimit disables limiting.
	RateLimit rate.Limit
	RateBurst int
}

// Server provides HTTP handlers for the task and user APIs.
type Server struct {
	engine *gin.Engine
	tasks  *tasks.Service
	users  *auth.Service
	store  Pinger
	logger *slog.Logger
	opts   Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(taskSvc *tasks.Service, userSvc *auth.Service, store Pinger, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))
	if len(opts.CORSOrigins) > 0 {
		router.Use(corsMiddleware(opts.CORSOrigins))
	}

	srv := &Server{
		engine: router,
		tasks:  taskSvc,
		users:  userSvc,
		store:  store,
		logger: logger,
		opts:   opts,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the user and task routers.
func (s *Server) registerRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "hello world")
	})

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		user := api.Group("/user")
		if s.opts.RateLimit > 0 {
			user.Use(rateLimiter(s.opts.RateLimit, s.opts.RateBurst))
		}
		{
			user.POST("/register", s.handleRegister)
			user.POST("/login", s.handleLogin)
		}

		task := api.Group("/task")
		{
			if s.opts.AuthGate {
				task.GET("/task", requireAuth(s.users), s.handleListTasks)
			} else {
				task.GET("/task", s.handleListTasks)
			}
			task.GET("/task/:id", s.handleGetTask)
			task.POST("/create", s.handleCreateTask)
			task.POST("/update/:id", s.handleUpdateTask)
			task.POST("/create/subtask/:id", s.handleAddSubTask)
			task.POST("/update/subtask/:id", s.handleUpdateSubTask)
			task.POST("/delete/:id", s.handleDeleteTask)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Endpoint not found"})
			return
		}
		c.String(http.StatusNotFound, "not found")
	})
}

// handleHealth reports readiness based on the store connection.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindPayload decodes the request body as a JSON object. An empty body
// yields a nil payload.
func (s *Server) bindPayload(c *gin.Context) (validation.Payload, bool) {
	var payload validation.Payload
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Info("invalid request body", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON payload"})
		return nil, false
	}
	return payload, true
}

// respondError logs the error and writes the task API error envelope.
// Unexpected errors only carry their detail in development mode.
func (s *Server) respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := apperror.As(err); ok {
		s.logger.Info("request rejected",
			slog.String("path", c.FullPath()),
			slog.Int("status", appErr.Status),
			slog.String("message", appErr.Message))
		c.JSON(appErr.Status, gin.H{"success": false, "message": appErr.Message})
		return
	}

	s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	body := gin.H{"success": false, "message": fallback}
	if s.opts.Development {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// respondSuccess wraps a payload in the task API success envelope.
func respondSuccess(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}
