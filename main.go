package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-pos-api/config"
	"restaurant-pos-api/events"
	"restaurant-pos-api/handlers"
	"restaurant-pos-api/jobs"
	"restaurant-pos-api/middleware"
	"restaurant-pos-api/realtime"
	"restaurant-pos-api/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.InitLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// Initialize database
	config.InitDB(cfg)
	if err := config.SeedDefaults(config.DB, cfg.System.AdminEmail, cfg.System.AdminPassword); err != nil {
		zap.L().Fatal("Failed to seed defaults", zap.Error(err))
	}
	if cfg.System.SeedDemo {
		if err := config.SeedDemo(config.DB); err != nil {
			zap.L().Fatal("Failed to seed demo data", zap.Error(err))
		}
	}

	publisher, err := events.Connect(cfg.Events.NatsURL)
	if err != nil {
		zap.L().Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer publisher.Close()

	taxRate, _ := cfg.TaxRate()
	loc := cfg.Location()
	handlers.Init(handlers.Deps{
		Publisher:    publisher,
		Hub:          realtime.NewHub(),
		TaxRate:      taxRate,
		PaymentDelay: cfg.Payment.Delay,
		Location:     loc,
	})

	scheduler := jobs.NewScheduler(config.DB, loc, cfg.System.HistoryDays)
	if err := scheduler.Start(); err != nil {
		zap.L().Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", handlers.IdempotencyHeader},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Restaurant POS API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"admin", "manager", "waiter", "kitchen", "cashier"},
		})
	})

	// Register all routes
	routes.SetupRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("Server running", zap.String("addr", "http://localhost:"+cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		zap.L().Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		zap.L().Error("Server stopped with error", zap.Error(err))
	}
}
