package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"propfirm/internal/config"
	cronrunner "propfirm/internal/cron"
	"propfirm/internal/db"
	"propfirm/internal/handler"
	"propfirm/internal/logger"
	"propfirm/internal/metrics"
	gormrepository "propfirm/internal/repository/gorm"
	"propfirm/internal/service"
	"propfirm/internal/stream"
)

func main() {
	cfgPath := os.Getenv("PF_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PF_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	collector := metrics.NewCollector()

	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = stream.NewHub(cfg.Stream.Buffer, logger)
	}

	evaluator := service.NewEvaluationService(store, logger, cfg.Evaluator)
	evaluator.Collector = collector
	evaluator.Stream = hub
	ledger := service.NewLedgerService(evaluator, logger)
	admin := service.NewAdminService(evaluator, logger, hub)
	sweeper := service.NewSweeper(store, evaluator, logger, cfg.Evaluator.Workers)
	sweeper.Collector = collector

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Collector: collector}
	healthHandler.Register(router)
	challengeHandler := &handler.ChallengeHandler{Repo: store}
	challengeHandler.Register(router)
	accountHandler := &handler.AccountHandler{
		Repo:            store,
		Evaluator:       evaluator,
		DefaultTimezone: cfg.Evaluator.DefaultTimezone,
	}
	accountHandler.Register(router)
	recordHandler := &handler.RecordHandler{Repo: store}
	recordHandler.Register(router)
	riskHandler := &handler.RiskHandler{Evaluator: evaluator}
	riskHandler.Register(router)
	eventHandler := handler.NewEventHandler(ledger, cfg.Ingest.RatePerSecond, cfg.Ingest.Burst)
	eventHandler.Register(router)
	adminHandler := &handler.AdminHandler{Admin: admin}
	adminHandler.Register(router)
	if hub != nil {
		streamHandler := &handler.StreamHandler{Hub: hub, Logger: logger}
		streamHandler.Register(router)
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Evaluator.Enabled {
		if cfg.Cron.Enabled {
			cronRunner := cronrunner.New(logger, ctx)
			_, err = cronRunner.Add(cfg.Cron.Sweep, func(ctx context.Context) {
				sweeper.RunOnce(ctx)
			})
			if err != nil {
				logger.Warn("cron register sweep failed", zap.Error(err))
			}
			cronRunner.Start()
			defer cronRunner.Stop()
		} else {
			go sweeper.Run(ctx, cfg.Evaluator.SweepInterval)
		}
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
