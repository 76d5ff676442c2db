package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/file-portal-backend/internal/conf"
	"github.com/lk2023060901/file-portal-backend/internal/download/service"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Options are the collaborators of the HTTP server
type Options struct {
	Downloads *service.DownloadService
	Verifier  identity.Verifier
	// Limiter may be nil, in which case validation is not rate limited
	Limiter SlidingWindow
	Checks  map[string]HealthCheck
}

type HTTPServer struct {
	server *http.Server
	router *gin.Engine
	logger *logger.Logger
	checks map[string]HealthCheck
}

func NewHTTPServer(config *conf.Config, log *logger.Logger, opts Options) *HTTPServer {
	if config.Server.Mode != "" {
		gin.SetMode(config.Server.Mode)
	}

	s := &HTTPServer{
		router: gin.New(),
		logger: log,
		checks: opts.Checks,
	}
	s.routes(config, opts)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   config.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Download-Code", "X-File-Size", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	})

	s.server = &http.Server{
		Addr:         config.Server.Addr(),
		Handler:      corsHandler.Handler(s.router),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes(config *conf.Config, opts Options) {
	r := s.router
	r.Use(logger.GinRecovery(s.logger))
	r.Use(logger.GinLoggerWithConfig(s.logger, logger.MiddlewareOptions{SkipPaths: []string{"/health", "/api/hello"}}))
	r.Use(SecurityHeaders())

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/hello", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "File portal API is running"})
	})
	api.Use(Identity(opts.Verifier, s.logger))

	svc := opts.Downloads
	api.GET("/auth/user", svc.WhoAmI)

	downloads := api.Group("/downloads")
	validate := []gin.HandlerFunc{svc.Validate}
	if opts.Limiter != nil && config.RateLimit.Enabled {
		limiter := RateLimiter(opts.Limiter, RateLimiterConfig{
			MaxRequests: config.RateLimit.ValidateLimit,
			Window:      config.RateLimit.ValidateWindow,
			Scope:       "validate",
		}, s.logger)
		validate = append([]gin.HandlerFunc{limiter}, validate...)
	}
	downloads.POST("/validate", validate...)
	downloads.GET("/file/:id", svc.Fetch)
	downloads.GET("/presigned/:id", svc.Presign)
	downloads.GET("/logs", svc.ListLogs)

	admin := downloads.Group("/admin")
	admin.POST("/generate-code", svc.Issue)
	admin.POST("/generate-codes", svc.IssueBatch)
	admin.POST("/upload", svc.Upload)
	admin.GET("/files", svc.ListFiles)
	admin.GET("/logs", svc.ListAdminLogs)
	admin.DELETE("/delete-log/:id", svc.DeleteLog)
}

// Handler returns the complete handler chain, CORS included
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
