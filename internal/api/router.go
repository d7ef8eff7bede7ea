package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/app"
	iauth "github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/internal/guards"
	"github.com/freshapi/freshapi/internal/handlers"
	"github.com/freshapi/freshapi/internal/middleware"
	"github.com/freshapi/freshapi/internal/permissions"
	"github.com/freshapi/freshapi/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers the access-control routes.
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

	resolver, err := permissions.NewResolver(db)
	if err != nil {
		return nil, err
	}
	guard, err := guards.New(resolver)
	if err != nil {
		return nil, err
	}
	loaderOpts := cfg.Authz.LoaderOptions()
	access, err := services.NewAccessService(db, guard, resolver, services.AccessServiceOptions{
		Resource: loaderOpts.DefaultResource,
	})
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, db)
	registerMetricsRoutes(r, cfg.Monitoring.Prometheus)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt), middleware.Loaders(resolver, loaderOpts))

	permHandler, err := handlers.NewPermissionHandler(access)
	if err != nil {
		return nil, err
	}
	registerPermissionRoutes(api, permHandler, guard, loaderOpts.DefaultResource)

	userHandler, err := handlers.NewUserHandler(access)
	if err != nil {
		return nil, err
	}
	registerUserRoutes(api, userHandler, guard, loaderOpts.DefaultResource)

	roleHandler, err := handlers.NewRoleHandler(access)
	if err != nil {
		return nil, err
	}
	registerRoleRoutes(api, roleHandler, guard, loaderOpts.DefaultResource)

	resourceHandler, err := handlers.NewResourceHandler(access)
	if err != nil {
		return nil, err
	}
	registerResourceRoutes(api, resourceHandler, guard, loaderOpts.DefaultResource)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
