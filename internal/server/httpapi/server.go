// Package httpapi exposes the identity service over HTTP: registration,
// login, logout, token verification, profile management, operator stats,
// and a health probe.
package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/brestid/internal/logging"
	"github.com/dmitrijs2005/brestid/internal/server/config"
	"github.com/dmitrijs2005/brestid/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// Server wires the auth service into a gin router and manages the
// http.Server lifecycle.
type Server struct {
	config *config.Config
	logger logging.Logger
	auth   *services.AuthService
	db     *sql.DB
}

// NewServer returns a Server ready to Run. The db handle is used by the
// health probe only.
func NewServer(cfg *config.Config, logger logging.Logger, auth *services.AuthService, db *sql.DB) *Server {
	return &Server{config: cfg, logger: logger, auth: auth, db: db}
}

// Router builds the gin engine with CORS, routes, and the 404 handler.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(s.config.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(s.corsConfig()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/logout", s.requireAuth(), s.handleLogout)
		authGroup.GET("/verify", s.requireAuth(), s.handleVerify)
	}

	api := router.Group("/api")
	api.Use(s.requireAuth())
	{
		api.GET("/profile", s.handleGetProfile)
		api.PUT("/profile", s.handleUpdateProfile)
	}

	admin := router.Group("/admin")
	admin.Use(s.requireAuth(), s.requireAdmin())
	{
		admin.GET("/stats", s.handleAdminStats)
	}

	router.GET("/health", s.handleHealth)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
	})

	return router
}

// corsConfig builds the CORS policy from the configured allow-list.
// gin-contrib/cors rejects AllowAllOrigins together with credentials, so a
// wildcard entry switches credentials off.
func (s *Server) corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}

	if slices.Contains(s.config.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
		return corsConfig
	}

	corsConfig.AllowOrigins = s.config.AllowedOrigins
	corsConfig.AllowCredentials = true
	return corsConfig
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.EndpointAddr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting http server", "addr", s.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	s.logger.Info(shutdownCtx, "shutting down http server")
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
