package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appinv "github.com/commercehub/backend/internal/application/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/commercehub/backend/internal/infrastructure/cache"
	"github.com/commercehub/backend/internal/infrastructure/config"
	"github.com/commercehub/backend/internal/infrastructure/logger"
	"github.com/commercehub/backend/internal/infrastructure/persistence"
	"github.com/commercehub/backend/internal/infrastructure/scheduler"
	"github.com/commercehub/backend/internal/interfaces/http/handler"
	"github.com/commercehub/backend/internal/interfaces/http/middleware"
	"github.com/commercehub/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("starting inventory ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithGormLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	balanceRepo := persistence.NewGormBalanceRepository(db.DB)
	layerRepo := persistence.NewGormLayerRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	reservationRepo := persistence.NewGormReservationRepository(db.DB)
	transferRepo := persistence.NewGormTransferRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Idempotency store: Redis when configured, in-process otherwise
	var idempotencyStore shared.IdempotencyStore
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisStore.Close()
		idempotencyStore = redisStore
		log.Info("using redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
	} else {
		memStore := cache.NewInMemoryIdempotencyStore()
		defer memStore.Close()
		idempotencyStore = memStore
		log.Info("using in-memory idempotency store")
	}

	eventBus := shared.NewInProcessEventBus()

	// Application services
	ledgerService := appinv.NewLedgerService(txScope, balanceRepo, layerRepo, movementRepo, log)
	ledgerService.SetIdempotencyStore(idempotencyStore)
	ledgerService.SetIdempotencyTTL(cfg.Idempotency.TTL)
	ledgerService.SetBackorderPolicy(appinv.NewBackorderPolicy(cfg.Backorder.AllowedReferenceTypes))
	ledgerService.SetEventPublisher(eventBus)

	reservationService := appinv.NewReservationService(txScope, reservationRepo, log)
	reservationService.SetDefaultTTL(cfg.Reservation.DefaultTTL)
	reservationService.SetEventPublisher(eventBus)

	transferService := appinv.NewTransferService(txScope, transferRepo, log)
	transferService.SetEventPublisher(eventBus)

	sweepService := appinv.NewReservationSweepService(txScope, reservationRepo, cartRepo, log)
	sweepService.SetBatchSize(cfg.Sweep.BatchSize)
	sweepService.SetCartMaxAge(cfg.Sweep.CartMaxAge)
	sweepService.SetEventPublisher(eventBus)

	// Background sweep for expired reservations and stale carts
	var sweepScheduler *scheduler.SweepScheduler
	if cfg.Sweep.Enabled {
		sweepScheduler = scheduler.NewSweepScheduler(scheduler.SweepSchedulerConfig{
			Interval: cfg.Sweep.Interval,
		}, sweepService, log)
		if err := sweepScheduler.Start(context.Background()); err != nil {
			log.Fatal("failed to start sweep scheduler", zap.Error(err))
		}
	}

	// HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("invalid trusted proxies", zap.Error(err))
		}
	}

	engine.GET("/health", healthHandler(db))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewLedgerHandler(ledgerService)).
		Register(handler.NewReservationHandler(reservationService)).
		Register(handler.NewTransferHandler(transferService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweepScheduler != nil {
		if err := sweepScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("sweep scheduler stop", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"time":   time.Now().UTC().Format(time.RFC3339),
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().UTC().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
