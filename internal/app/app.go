package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uniedit/ghiblify/internal/adapter/outbound/replicate"
	"github.com/uniedit/ghiblify/internal/module/generation"
	"github.com/uniedit/ghiblify/internal/module/ledger"
	"github.com/uniedit/ghiblify/internal/shared/config"
	apperrors "github.com/uniedit/ghiblify/internal/shared/errors"
	"github.com/uniedit/ghiblify/internal/shared/httpclient"
	"github.com/uniedit/ghiblify/internal/shared/logger"
	"github.com/uniedit/ghiblify/internal/shared/metrics"
	"github.com/uniedit/ghiblify/internal/shared/middleware"
	"github.com/uniedit/ghiblify/internal/shared/response"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// App represents the application.
type App struct {
	config    *config.Config
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics

	docs *Documents

	// Modules
	ledger            *ledger.DocumentLedger
	orchestrator      *generation.Orchestrator
	ledgerHandler     *ledger.Handler
	generationHandler *generation.Handler
}

// New creates a new application instance.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize logger
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	// Initialize zap logger for modules that use zap
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		registry:  registry,
		metrics:   metrics.New("ghiblify", registry),
	}

	if err := app.initModules(ctx); err != nil {
		app.Stop()
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.router = app.setupRouter()
	return app, nil
}

// initModules wires backends, the ledger and the orchestrator.
func (a *App) initModules(ctx context.Context) error {
	docs, err := OpenDocuments(ctx, a.config, a.zapLogger)
	if err != nil {
		return err
	}
	a.docs = docs

	a.ledger = ledger.NewDocumentLedger(docs.Port, a.metrics, a.zapLogger)
	a.ledgerHandler = ledger.NewHandler(a.ledger)

	rc := a.config.Replicate
	if rc.Token == "" {
		a.zapLogger.Warn("replicate token is empty; predictions will be rejected")
	}
	predictor := replicate.NewClient(replicate.Config{
		BaseURL:          rc.BaseURL,
		Token:            rc.Token,
		FailureThreshold: rc.BreakerFailureThreshold,
		BreakerTimeout:   rc.BreakerTimeout,
	}, httpclient.New(a.config.HTTPClient), a.zapLogger)

	a.orchestrator = generation.NewOrchestrator(predictor, a.ledger, generation.Config{
		Prompt: generation.PromptConfig{
			Version: rc.Version,
			Prompt:  rc.Prompt,
			Weights: rc.Weights,
		},
		PollInterval: rc.PollInterval,
		MaxAttempts:  rc.MaxAttempts,
		Timeout:      rc.Timeout,
	}, a.metrics, a.zapLogger)

	archiver, err := newArchiver(ctx, a.config)
	if err != nil {
		return err
	}
	a.generationHandler = generation.NewHandler(a.orchestrator, archiver, a.config.Upload.MaxSize, a.zapLogger)

	return nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	// Set Gin mode based on environment
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if a.config.Upload.MaxSize > 0 {
		r.MaxMultipartMemory = a.config.Upload.MaxSize
	}

	// Apply global middleware
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, apperrors.NotFound("route"))
	})

	api := r.Group("", middleware.UserID(a.config.API.DefaultUserID))
	a.generationHandler.RegisterRoutes(api)
	a.ledgerHandler.RegisterRoutes(api)

	return r
}

// health reports ok when the users document can be read.
func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if _, err := a.docs.Port.Load(ctx, ledger.UsersDocument); err != nil {
		_ = c.Error(err)
		response.Fail(c, apperrors.ServiceUnavailable("ledger unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ledger": a.docs.Backend})
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases connections and flushes logs.
func (a *App) Stop() {
	// Sync zap logger
	if a.zapLogger != nil {
		_ = a.zapLogger.Sync()
	}

	if a.docs != nil {
		a.docs.Close()
	}
}
