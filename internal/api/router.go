package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/app"
	iauth "github.com/hadbitapp/hadbit-server/internal/auth"
	"github.com/hadbitapp/hadbit-server/internal/handlers"
	"github.com/hadbitapp/hadbit-server/internal/middleware"
	"github.com/hadbitapp/hadbit-server/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Public endpoints
	r.GET("/health", handlers.Health(db))
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	tree, err := services.NewTreeService(db)
	if err != nil {
		return nil, err
	}
	items, err := services.NewItemService(db, tree)
	if err != nil {
		return nil, err
	}
	logs, err := services.NewLogService(db)
	if err != nil {
		return nil, err
	}
	migration, err := services.NewMigrationService(db)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerItemRoutes(api, handlers.NewItemHandler(items, tree))
	registerLogRoutes(api, handlers.NewLogHandler(logs))
	registerMigrationRoutes(api, handlers.NewMigrationHandler(migration))

	return r, nil
}
