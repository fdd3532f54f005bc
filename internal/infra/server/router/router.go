// Package router sets up the HTTP routing for the application.
package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/business-planner/backend/internal/infra/metrics"
	"github.com/business-planner/backend/internal/integration/entrypoint/controller"
	"github.com/business-planner/backend/internal/integration/entrypoint/middleware"
)

// Options configures cross-cutting router behavior.
type Options struct {
	Environment    string
	ServiceName    string
	AllowedOrigins []string
	TracingEnabled bool
	MetricsEnabled bool
}

// Router holds the Gin engine and controller dependencies.
type Router struct {
	engine               *gin.Engine
	healthController     *controller.HealthController
	authController       *controller.AuthController
	userController       *controller.UserController
	planController       *controller.PlanController
	competitorController *controller.CompetitorController
	loginRateLimiter     *middleware.RateLimiter
	aiRateLimiter        *middleware.RateLimiter
	authMiddleware       *middleware.AuthMiddleware
}

// NewRouter creates a new router instance with all dependencies.
func NewRouter(
	healthController *controller.HealthController,
	authController *controller.AuthController,
	userController *controller.UserController,
	planController *controller.PlanController,
	competitorController *controller.CompetitorController,
	loginRateLimiter *middleware.RateLimiter,
	aiRateLimiter *middleware.RateLimiter,
	authMiddleware *middleware.AuthMiddleware,
) *Router {
	return &Router{
		healthController:     healthController,
		authController:       authController,
		userController:       userController,
		planController:       planController,
		competitorController: competitorController,
		loginRateLimiter:     loginRateLimiter,
		aiRateLimiter:        aiRateLimiter,
		authMiddleware:       authMiddleware,
	}
}

// Setup configures and returns the Gin engine with all routes.
func (r *Router) Setup(opts Options) *gin.Engine {
	switch opts.Environment {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r.engine = gin.New()
	r.engine.Use(gin.Logger(), gin.Recovery())
	if opts.TracingEnabled {
		r.engine.Use(otelgin.Middleware(opts.ServiceName))
	}
	if opts.MetricsEnabled {
		r.engine.Use(metrics.Middleware())
	}
	if len(opts.AllowedOrigins) > 0 {
		r.engine.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.setupHealthRoutes(opts.MetricsEnabled)
	r.setupAPIRoutes()

	return r.engine
}

// setupHealthRoutes configures health check and metrics endpoints.
func (r *Router) setupHealthRoutes(metricsEnabled bool) {
	if r.healthController != nil {
		r.engine.GET("/health", r.healthController.Check)
	}
	if metricsEnabled {
		r.engine.GET("/metrics", metrics.Handler())
	}
}

// setupAPIRoutes configures the main API routes.
func (r *Router) setupAPIRoutes() {
	v1 := r.engine.Group("/api/v1")

	if r.authController != nil {
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.limit(r.loginRateLimiter), r.authController.Login)
			auth.POST("/refresh", r.authController.RefreshToken)
			auth.POST("/logout", r.authController.Logout)
			auth.POST("/forgot-password", r.limit(r.loginRateLimiter), r.authController.ForgotPassword)
			auth.POST("/reset-password", r.authController.ResetPassword)
		}
	}

	if r.authMiddleware == nil {
		return
	}

	if r.userController != nil {
		users := v1.Group("/users")
		users.Use(r.authMiddleware.Authenticate())
		{
			users.DELETE("/me", r.userController.DeleteAccount)
		}
	}

	plans := v1.Group("/plans")
	plans.Use(r.authMiddleware.Authenticate())

	if r.planController != nil {
		plans.GET("", r.planController.List)
		plans.POST("", r.planController.Create)
		plans.GET("/:id", r.planController.Get)
		plans.PUT("/:id", r.planController.Update)
		plans.DELETE("/:id", r.planController.Delete)

		plans.GET("/:id/state", r.planController.State)
		plans.POST("/:id/undo", r.planController.Undo)
		plans.POST("/:id/redo", r.planController.Redo)
		plans.POST("/:id/shortcut", r.planController.Shortcut)
		plans.POST("/:id/flush", r.planController.Flush)

		projections := plans.Group("/:id/projections")
		{
			projections.POST("/client-count", r.planController.ChangeClientCount)
			projections.POST("/margin", r.planController.ChangeMargin)
			projections.POST("/schedule", r.planController.RebuildSchedule)
			projections.GET("/summary", r.planController.ProjectionSummary)
		}

		plans.GET("/:id/versions", r.planController.ListVersions)
		plans.POST("/:id/versions/:versionId/restore", r.planController.RestoreVersion)
		plans.POST("/:id/share", r.limit(r.aiRateLimiter), r.planController.Share)
	}

	if r.competitorController != nil {
		competitors := plans.Group("/:id/competitors")
		{
			competitors.POST("/scan", r.limit(r.aiRateLimiter), r.competitorController.StartScan)
			competitors.GET("/scan/status", r.competitorController.ScanStatus)
			competitors.POST("/deep-dive", r.limit(r.aiRateLimiter), r.competitorController.DeepDiveAll)
			competitors.POST("/gap-analysis", r.competitorController.GapAnalysis)
			competitors.POST("/:name/deep-dive", r.limit(r.aiRateLimiter), r.competitorController.DeepDive)
		}
	}
}

// limit returns the limiter's middleware, or a pass-through when it is nil.
func (r *Router) limit(rl *middleware.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
