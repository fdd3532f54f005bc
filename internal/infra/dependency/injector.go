// Package dependency provides dependency injection for the application.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/business-planner/backend/config"
	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	"github.com/business-planner/backend/internal/application/usecase/auth"
	competitoruc "github.com/business-planner/backend/internal/application/usecase/competitor"
	planuc "github.com/business-planner/backend/internal/application/usecase/plan"
	"github.com/business-planner/backend/internal/domain/plandata"
	"github.com/business-planner/backend/internal/infra/metrics"
	"github.com/business-planner/backend/internal/infra/server/router"
	"github.com/business-planner/backend/internal/integration/adapters"
	"github.com/business-planner/backend/internal/integration/cache"
	"github.com/business-planner/backend/internal/integration/email"
	"github.com/business-planner/backend/internal/integration/email/templates"
	"github.com/business-planner/backend/internal/integration/entrypoint/controller"
	"github.com/business-planner/backend/internal/integration/entrypoint/middleware"
	"github.com/business-planner/backend/internal/integration/persistence"
)

// Overrides replaces external collaborators, mainly for tests.
type Overrides struct {
	AIService   adapter.AIAnalysisService
	EmailSender adapter.EmailSender
	Redis       *redis.Client
}

// Injector holds all application dependencies.
type Injector struct {
	Config      *config.Config
	DB          *gorm.DB
	Router      *router.Router
	Registry    *planstate.Registry
	EmailWorker *email.Worker

	startScan   *competitoruc.StartMarketScanUseCase
	redis       *redis.Client
	stopCleanup chan struct{}
}

// NewInjector creates a new dependency injector with all dependencies wired.
func NewInjector(cfg *config.Config, db *gorm.DB, overrides Overrides) (*Injector, error) {
	// Repositories
	userRepo := persistence.NewUserRepository(db)
	tokenRepo := persistence.NewTokenRepository(db)
	planRepo := persistence.NewPlanRepository(db)
	emailQueueRepo := persistence.NewEmailQueueRepository(db)

	// Adapters and services
	passwordService := adapters.NewPasswordService(cfg.JWT.BcryptCost)
	tokenService := adapters.NewTokenService(cfg.JWT.Secret, adapters.TokenDurations{
		Access:            cfg.JWT.AccessTokenExpiry,
		Refresh:           cfg.JWT.RefreshTokenExpiry,
		RememberMeAccess:  cfg.JWT.RememberMeAccessExpiry,
		RememberMeRefresh: cfg.JWT.RememberMeRefreshExpiry,
	}, tokenRepo)
	resetTokenService := adapters.NewPasswordResetTokenService(tokenRepo)
	emailService := email.NewService(emailQueueRepo)

	aiService, err := newAIService(cfg, overrides.AIService)
	if err != nil {
		return nil, err
	}

	redisClient, err := newRedisClient(cfg.Redis, overrides.Redis)
	if err != nil {
		return nil, err
	}
	var scanTracker adapter.ScanTracker
	if redisClient != nil {
		scanTracker = cache.NewRedisScanTracker(redisClient)
	} else {
		slog.Warn("Redis not configured, tracking market scans in memory")
		scanTracker = competitoruc.NewInMemoryScanTracker()
	}

	// Plan state
	storeOpts := planstate.DefaultOptions()
	if cfg.Plan.HistoryLimit > 0 {
		storeOpts.HistoryLimit = cfg.Plan.HistoryLimit
	}
	if cfg.Plan.MaxSaveAttempts > 0 {
		storeOpts.MaxSaveAttempts = cfg.Plan.MaxSaveAttempts
	}
	if cfg.Plan.RetryBaseDelay > 0 {
		storeOpts.RetryBaseDelay = cfg.Plan.RetryBaseDelay
	}
	if cfg.Plan.SaveTimeout > 0 {
		storeOpts.SaveTimeout = cfg.Plan.SaveTimeout
	}
	if cfg.Telemetry.MetricsEnabled {
		storeOpts.OnSaveResult = metrics.ObserveSave
	}
	registry := planstate.NewRegistry(planRepo, storeOpts)
	validation := plandata.ValidationOptions{StrictPriceRanges: cfg.Plan.StrictPriceRanges}

	// Auth use cases
	registerUseCase := auth.NewRegisterUserUseCase(userRepo, passwordService, tokenService)
	loginUseCase := auth.NewLoginUserUseCase(userRepo, passwordService, tokenService)
	refreshTokenUseCase := auth.NewRefreshTokenUseCase(tokenService)
	logoutUseCase := auth.NewLogoutUserUseCase(tokenService)
	forgotPasswordUseCase := auth.NewForgotPasswordUseCase(userRepo, resetTokenService, emailService, cfg.Email.AppBaseURL)
	resetPasswordUseCase := auth.NewResetPasswordUseCase(userRepo, passwordService, resetTokenService, tokenService)
	deleteAccountUseCase := auth.NewDeleteAccountUseCase(userRepo, passwordService, tokenService, planRepo, registry)

	// Plan use cases
	createPlanUseCase := planuc.NewCreatePlanUseCase(planRepo, validation)
	getPlanUseCase := planuc.NewGetPlanUseCase(registry)
	listPlansUseCase := planuc.NewListPlansUseCase(planRepo)
	updatePlanUseCase := planuc.NewUpdatePlanUseCase(registry, validation)
	deletePlanUseCase := planuc.NewDeletePlanUseCase(planRepo, registry)
	historyUseCase := planuc.NewHistoryUseCase(registry)
	recalculateUseCase := planuc.NewRecalculateProjectionsUseCase(registry)
	summaryUseCase := planuc.NewProjectionSummaryUseCase(registry)
	versionsUseCase := planuc.NewVersionsUseCase(planRepo, registry)
	shareUseCase := planuc.NewSharePlanUseCase(registry, userRepo, emailService, cfg.Email.AppBaseURL)

	// Competitor use cases
	startScanUseCase := competitoruc.NewStartMarketScanUseCase(registry, aiService, scanTracker)
	scanStatusUseCase := competitoruc.NewGetScanStatusUseCase(registry, scanTracker)
	deepDiveUseCase := competitoruc.NewDeepDiveUseCase(registry, aiService)
	gapAnalysisUseCase := competitoruc.NewGapAnalysisUseCase(registry)

	// Controllers
	healthChecks := map[string]controller.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		healthChecks["cache"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	healthController := controller.NewHealthController(healthChecks)

	authController := controller.NewAuthController(
		registerUseCase,
		loginUseCase,
		refreshTokenUseCase,
		logoutUseCase,
		forgotPasswordUseCase,
		resetPasswordUseCase,
	)

	userController := controller.NewUserController(
		deleteAccountUseCase,
	)

	planController := controller.NewPlanController(
		createPlanUseCase,
		getPlanUseCase,
		listPlansUseCase,
		updatePlanUseCase,
		deletePlanUseCase,
		historyUseCase,
		recalculateUseCase,
		summaryUseCase,
		versionsUseCase,
		shareUseCase,
	)

	competitorController := controller.NewCompetitorController(
		startScanUseCase,
		scanStatusUseCase,
		deepDiveUseCase,
		gapAnalysisUseCase,
	)

	stopCleanup := make(chan struct{})
	if cfg.Plan.IdleTTL > 0 {
		registry.StartEviction(cfg.Plan.IdleTTL/2, cfg.Plan.IdleTTL, stopCleanup)
	}

	var loginRateLimiter, aiRateLimiter *middleware.RateLimiter
	if cfg.Server.Environment == "e2e" || cfg.Server.Environment == "test" {
		loginRateLimiter = middleware.NewRateLimiterWithConfig(1000, time.Minute)
		aiRateLimiter = middleware.NewKeyedRateLimiter(1000, time.Minute, middleware.UserKey)
	} else {
		loginRateLimiter = middleware.NewRateLimiter()
		aiRateLimiter = middleware.NewKeyedRateLimiter(cfg.AI.RateLimit, cfg.AI.RateLimitWindow, middleware.UserKey)
	}
	if redisClient != nil {
		counter := cache.NewRedisWindowCounter(redisClient)
		loginRateLimiter.WithCounter("auth", counter)
		aiRateLimiter.WithCounter("ai", counter)
	} else {
		memory := middleware.NewMemoryCounter()
		memory.StartCleanup(time.Minute, stopCleanup)
		loginRateLimiter.WithCounter("auth", memory)
		aiRateLimiter.WithCounter("ai", memory)
	}
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	r := router.NewRouter(
		healthController,
		authController,
		userController,
		planController,
		competitorController,
		loginRateLimiter,
		aiRateLimiter,
		authMiddleware,
	)

	// Email worker
	var emailWorker *email.Worker
	if cfg.Email.WorkerEnabled {
		emailWorker, err = newEmailWorker(cfg.Email, emailQueueRepo, overrides.EmailSender)
		if err != nil {
			return nil, err
		}
	}

	return &Injector{
		Config:      cfg,
		DB:          db,
		Router:      r,
		Registry:    registry,
		EmailWorker: emailWorker,
		startScan:   startScanUseCase,
		redis:       redisClient,
		stopCleanup: stopCleanup,
	}, nil
}

func newAIService(cfg *config.Config, override adapter.AIAnalysisService) (adapter.AIAnalysisService, error) {
	service := override
	if service == nil {
		gemini, err := adapters.NewGeminiService(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI service: %w", err)
		}
		if !gemini.IsAvailable() {
			slog.Warn("GEMINI_API_KEY not set, competitor research is disabled")
		}
		service = gemini
	}
	if cfg.Telemetry.MetricsEnabled {
		service = metrics.InstrumentAI(service)
	}
	return service, nil
}

func newRedisClient(cfg config.RedisConfig, override *redis.Client) (*redis.Client, error) {
	if override != nil {
		return override, nil
	}
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return redis.NewClient(opts), nil
}

func newEmailWorker(cfg config.EmailConfig, queue adapter.EmailQueueRepository, sender adapter.EmailSender) (*email.Worker, error) {
	if sender == nil {
		if cfg.ResendAPIKey != "" {
			client, err := email.NewResendClientWithBaseURL(cfg.ResendAPIKey, cfg.FromName, cfg.FromEmail, cfg.ResendBaseURL)
			if err != nil {
				return nil, err
			}
			sender = client
		} else {
			slog.Warn("RESEND_API_KEY not set, emails are recorded but not sent")
			sender = email.NewRecordingSender()
		}
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	workerConfig := email.DefaultWorkerConfig()
	if cfg.PollInterval > 0 {
		workerConfig.PollInterval = cfg.PollInterval
	}
	if cfg.BatchSize > 0 {
		workerConfig.BatchSize = cfg.BatchSize
	}
	workerConfig.RetainSent = cfg.RetainSent

	return email.NewWorker(queue, sender, renderer, workerConfig), nil
}

// Shutdown waits for background scans, flushes open plans and closes the
// Redis connection.
func (i *Injector) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		i.startScan.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Market scans still running at shutdown")
	}

	close(i.stopCleanup)

	var errs []error
	if err := i.Registry.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush plans: %w", err))
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
