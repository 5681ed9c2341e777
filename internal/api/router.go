package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/renewhub/renewhub/internal/auth"
	"github.com/renewhub/renewhub/internal/handlers"
	"github.com/renewhub/renewhub/internal/middleware"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/internal/sweep"
)

// Deps bundles the constructed services the router wires into handlers.
type Deps struct {
	DB         *gorm.DB
	Users      *services.UserService
	Categories *services.CategoryService
	Inventory  *services.InventoryService
	Settings   *services.SettingsService
	Logs       *services.LogService
	Dashboard  *services.DashboardService
	Reports    *services.ReportService
	Dispatcher *sweep.Dispatcher
	Sweeper    *sweep.Sweeper
	JWT        *iauth.JWTService
}

// NewDeps constructs the full service graph over the database handle.
func NewDeps(db *gorm.DB, jwt *iauth.JWTService, sweepOpts ...sweep.Option) (*Deps, error) {
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	categories, err := services.NewCategoryService(db)
	if err != nil {
		return nil, err
	}
	settings, err := services.NewSettingsService(db)
	if err != nil {
		return nil, err
	}
	inventory, err := services.NewInventoryService(db, categories, settings)
	if err != nil {
		return nil, err
	}
	logs, err := services.NewLogService(db)
	if err != nil {
		return nil, err
	}
	dashboard, err := services.NewDashboardService(db)
	if err != nil {
		return nil, err
	}
	reports, err := services.NewReportService(db)
	if err != nil {
		return nil, err
	}
	dispatcher, err := sweep.NewDispatcher(logs)
	if err != nil {
		return nil, err
	}
	sweeper, err := sweep.NewSweeper(inventory, settings, dispatcher, sweepOpts...)
	if err != nil {
		return nil, err
	}

	return &Deps{
		DB:         db,
		Users:      users,
		Categories: categories,
		Inventory:  inventory,
		Settings:   settings,
		Logs:       logs,
		Dashboard:  dashboard,
		Reports:    reports,
		Dispatcher: dispatcher,
		Sweeper:    sweeper,
		JWT:        jwt,
	}, nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps *Deps) (*gin.Engine, error) {
	if deps == nil {
		return nil, fmt.Errorf("router dependencies must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Settings, deps.Dispatcher, deps.JWT)
	settingsHandler := handlers.NewSettingsHandler(deps.Settings, deps.Dispatcher)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	r.GET("/api/settings/public", settingsHandler.Public)

	// Authenticated routes
	requireAuth := middleware.Auth(deps.JWT)
	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	serviceHandler := handlers.NewServiceHandler(deps.Inventory, deps.Settings, deps.Dispatcher)
	svcs := api.Group("/services")
	{
		svcs.GET("", serviceHandler.List)
		svcs.POST("", serviceHandler.Create)
		svcs.GET("/:id", serviceHandler.Get)
		svcs.PUT("/:id", serviceHandler.Update)
		svcs.DELETE("/:id", serviceHandler.Delete)
		svcs.POST("/:id/send-reminder", serviceHandler.SendReminder)
	}

	categoryHandler := handlers.NewCategoryHandler(deps.Categories, deps.Inventory)
	categories := api.Group("/categories")
	{
		categories.GET("", categoryHandler.List)
		categories.GET("/with-services", categoryHandler.WithServices)
		categories.POST("", categoryHandler.Create)
		categories.PUT("/:id", categoryHandler.Update)
		categories.DELETE("/:id", categoryHandler.Delete)
	}

	api.GET("/notification-logs", handlers.NewLogHandler(deps.Logs).List)
	api.GET("/dashboard/stats", handlers.NewDashboardHandler(deps.Dashboard).Stats)
	api.POST("/check-expiring", handlers.NewSweepHandler(deps.Sweeper).Run)
	api.GET("/reports/export", handlers.NewReportHandler(deps.Reports).Export)

	// Admin-only routes
	admin := api.Group("")
	admin.Use(middleware.RequireAdmin())

	userHandler := handlers.NewUserHandler(deps.Users)
	users := admin.Group("/users")
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	admin.GET("/settings", settingsHandler.Get)
	admin.PUT("/settings", settingsHandler.Update)
	admin.POST("/settings/test-email", settingsHandler.TestEmail)

	return r, nil
}
