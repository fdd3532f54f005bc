//go:build integration

// Package steps provides step definitions for BDD integration tests.
package steps

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"github.com/business-planner/backend/config"
	"github.com/business-planner/backend/internal/infra/dependency"
	"github.com/business-planner/backend/internal/infra/server/router"
	"github.com/business-planner/backend/internal/integration/persistence/model"
	"github.com/business-planner/backend/test/integration/mock"
)

const (
	testJWTSecret   = "test-jwt-secret-key-for-testing-purposes"
	testTokenIssuer = "business-planner"
	testSchema      = "business_planner"
)

type testContext struct {
	uri          string
	headers      map[string]string
	client       *http.Client
	response     *response
	db           *mock.Db
	ai           *mock.AIService
	emailAPI     *mock.ApiMock
	accessToken  string
	refreshToken string
	resetToken   string
	expiredToken string

	currentUserID uuid.UUID
	currentPlanID string
	versionIDs    []string
}

type response struct {
	status int
	body   any
}

// suite holds the server shared by every scenario.
type suite struct {
	db       *mock.Db
	ai       *mock.AIService
	emailAPI *mock.ApiMock
	injector *dependency.Injector
	uri      string
	err      error
}

var (
	serverInit sync.Once
	shared     suite
)

// InitializeTestSuite boots the API once for the whole run.
func InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		startServer()
	})

	ctx.AfterSuite(func() {
		if shared.injector == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shared.injector.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down test injector", "error", err)
		}
		shared.emailAPI.Close()
		mock.StopRedis()
	})
}

// InitializeScenario registers all step definitions.
func InitializeScenario(ctx *godog.ScenarioContext) {
	test := &testContext{
		client: &http.Client{Timeout: 10 * time.Second},
	}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		if err := test.before(); err != nil {
			return ctx, err
		}
		return ctx, nil
	})

	registerHTTPSteps(ctx, test)
	registerAccountSteps(ctx, test)
	registerPlanSteps(ctx, test)
}

func (t *testContext) before() error {
	startServer()
	if shared.err != nil {
		return shared.err
	}

	t.uri = shared.uri
	t.db = shared.db
	t.ai = shared.ai
	t.emailAPI = shared.emailAPI
	t.headers = make(map[string]string)
	t.response = nil
	t.accessToken = ""
	t.refreshToken = ""
	t.resetToken = ""
	t.expiredToken = ""
	t.currentUserID = uuid.Nil
	t.currentPlanID = ""
	t.versionIDs = nil

	t.ai.Reset()
	t.emailAPI.ClearResponses("POST", "/emails")
	t.emailAPI.SetResponse(-1, "POST", "/emails", http.StatusOK, map[string]any{"id": uuid.NewString()})
	if err := mock.ClearRedis(mock.NewRedis()); err != nil {
		return err
	}
	return t.db.ClearDB()
}

func startServer() {
	serverInit.Do(func() {
		shared.err = bootServer()
	})
}

func bootServer() error {
	shared.db = mock.NewDb(testSchema, map[string]any{
		"users":                 &model.UserModel{},
		"refresh_tokens":        &model.RefreshTokenModel{},
		"password_reset_tokens": &model.PasswordResetTokenModel{},
		"plans":                 &model.PlanModel{},
		"plan_versions":         &model.PlanVersionModel{},
		"email_queue":           &model.EmailQueueModel{},
	})
	shared.ai = mock.NewAIService()
	shared.emailAPI = mock.NewApiServer()
	shared.emailAPI.Start()

	port, err := findAvailablePort()
	if err != nil {
		return err
	}

	cfg := testConfig(port, shared.emailAPI.GetUrl())
	injector, err := dependency.NewInjector(cfg, shared.db.DbConn, dependency.Overrides{
		AIService: shared.ai,
		Redis:     mock.NewRedis(),
	})
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	shared.injector = injector

	engine := injector.Router.Setup(router.Options{
		Environment:    cfg.Server.Environment,
		ServiceName:    cfg.Telemetry.ServiceName,
		MetricsEnabled: cfg.Telemetry.MetricsEnabled,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
	go func() {
		_ = server.ListenAndServe()
	}()

	shared.uri = fmt.Sprintf("http://localhost:%d", port)
	return waitForHealthy(shared.uri)
}

func testConfig(port int, emailAPIURL string) *config.Config {
	_ = os.Setenv("ENV", "test")

	cfg := config.Load()
	cfg.Server.Port = port
	cfg.Server.Environment = "test"
	cfg.Redis.URL = ""
	cfg.JWT.Secret = testJWTSecret
	cfg.JWT.BcryptCost = 4
	cfg.Plan.RetryBaseDelay = 10 * time.Millisecond
	cfg.Email.ResendAPIKey = "re_test_key"
	cfg.Email.ResendBaseURL = emailAPIURL
	cfg.Email.WorkerEnabled = true
	cfg.Email.AppBaseURL = "http://planner.test"
	cfg.Telemetry.OTelEnabled = false
	cfg.Telemetry.MetricsEnabled = true
	return cfg
}

func waitForHealthy(uri string) error {
	for i := 0; i < 50; i++ {
		resp, err := http.Get(uri + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server at %s never became healthy", uri)
}

func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
