package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	installmentapp "github.com/goldbooks/backend/internal/application/installment"
	"github.com/goldbooks/backend/internal/domain/installment/acl"
	"github.com/goldbooks/backend/internal/infrastructure/config"
	"github.com/goldbooks/backend/internal/infrastructure/logger"
	"github.com/goldbooks/backend/internal/infrastructure/persistence"
	"github.com/goldbooks/backend/internal/infrastructure/pricing"
	"github.com/goldbooks/backend/internal/infrastructure/scheduler"
	"github.com/goldbooks/backend/internal/interfaces/http/handler"
	"github.com/goldbooks/backend/internal/interfaces/http/middleware"
	"github.com/goldbooks/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// dueSoonWindow widens the aging report's current bucket so installments due
// within the next week surface as DUE_SOON.
const dueSoonWindow = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting goldbooks backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if !cfg.IsProduction() {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	invoiceGateway := persistence.NewGormInvoiceGateway(db.DB)
	goldPrice := newGoldPriceProvider(cfg, log)

	paymentService := installmentapp.NewPaymentService(installmentRepo, invoiceGateway, goldPrice, log)
	planService := installmentapp.NewPlanService(installmentRepo, invoiceGateway, log)
	bulkPaymentService := installmentapp.NewBulkPaymentService(paymentService, log)
	balanceService := installmentapp.NewBalanceService(installmentRepo, invoiceGateway)
	statisticsService := installmentapp.NewStatisticsService(installmentRepo, dueSoonWindow)
	overdueService := installmentapp.NewOverdueService(installmentRepo, log)

	overdueScheduler := scheduler.NewOverdueScheduler(overdueService, cfg.Sweeper, log)
	if err := overdueScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start overdue scheduler", zap.Error(err))
	}
	defer func() {
		if err := overdueScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping overdue scheduler", zap.Error(err))
		}
	}()

	installmentHandler := handler.NewInstallmentHandler(
		planService,
		paymentService,
		bulkPaymentService,
		balanceService,
		statisticsService,
		overdueService,
		installmentRepo,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tenant())

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(installmentHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newGoldPriceProvider prefers the Redis-backed price feed and falls back to
// the configured static price when Redis is unreachable at boot.
func newGoldPriceProvider(cfg *config.Config, log *zap.Logger) acl.GoldPriceProvider {
	provider, err := pricing.NewRedisGoldPriceProvider(cfg.Redis, cfg.GoldPrice, log)
	if err == nil {
		return provider
	}

	log.Warn("Redis gold price feed unavailable", zap.Error(err))
	if cfg.GoldPrice.StaticPrice != "" {
		price, perr := decimal.NewFromString(cfg.GoldPrice.StaticPrice)
		if perr == nil {
			log.Info("Using static gold price", zap.String("price", price.String()))
			return pricing.NewStaticGoldPriceProvider(price)
		}
		log.Error("Invalid static gold price", zap.Error(perr))
	}
	log.Fatal("No gold price source available", zap.Error(err))
	return nil
}
