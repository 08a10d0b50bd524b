package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/api"
	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/cron"
	"github.com/Marga-Ghale/ora-family-backend/internal/db"
	"github.com/Marga-Ghale/ora-family-backend/internal/email"
	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/notification"
	"github.com/Marga-Ghale/ora-family-backend/internal/seed"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/Marga-Ghale/ora-family-backend/internal/socket"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// ============================================
	// Load environment and configuration
	// ============================================
	envErr := godotenv.Load()
	cfg := config.Load()

	appLog := logger.New("ora-family-api", cfg.LogLevel, cfg.IsProduction())
	log := appLog.Component("Main")
	if envErr != nil {
		log.Debug("no .env file found, using environment variables")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============================================
	// Storage
	// ============================================
	store, storeKind, err := db.OpenStore(ctx, cfg.DatabaseURL, cfg.MigrationsPath, appLog.Component("DB"))
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer store.Close()

	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(ctx, cfg.RedisURL, appLog.Component("Redis"))
		if err != nil {
			log.WithError(err).Warn("failed to connect to Redis, continuing without cache")
			redisDB = nil
		} else {
			defer redisDB.Close()
		}
	}

	// ============================================
	// Email
	// ============================================
	mailer, err := email.New(ctx, email.ProviderConfig{
		Provider: cfg.EmailProvider,
		SMTP: email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
		},
		AWSRegion: cfg.AWSRegion,
		SESFrom:   cfg.SESFrom,
	}, appLog.Component("Email"))
	if err != nil {
		log.WithError(err).Fatal("failed to configure email")
	}

	// ============================================
	// WebSocket hub
	// ============================================
	hub := socket.NewHub(appLog.Component("WebSocket"))
	go hub.Run(ctx)

	// ============================================
	// Services
	// ============================================
	m := metrics.New("ora")
	deps := &service.ServiceDeps{
		Config:  cfg,
		Store:   store,
		Logger:  appLog,
		Metrics: m,
		Mailer:  mailer,
		Events:  notification.NewService(socket.NewBroadcaster(hub), appLog.Component("Notification")),
	}
	if redisDB != nil {
		deps.Cache = redisDB
	}
	services := service.NewServices(deps)

	// ============================================
	// Development fixtures
	// ============================================
	if cfg.SeedFile != "" {
		fixture, err := seed.Load(cfg.SeedFile)
		if err != nil {
			log.WithError(err).Fatal("failed to load seed file")
		}
		if _, err := seed.NewSeeder(services, store, appLog.Component("Seed")).Apply(ctx, fixture); err != nil {
			log.WithError(err).Fatal("seeding failed")
		}
	}

	// ============================================
	// Scheduled jobs
	// ============================================
	if cfg.CronEnabled {
		scheduler := cron.NewScheduler(services.Task, services.Auth, cron.Options{
			AutoPenalty: cfg.AutoPenaltyEnabled,
		}, appLog.Component("Cron"))
		if err := scheduler.Start(); err != nil {
			log.WithError(err).Fatal("failed to start scheduler")
		}
		defer scheduler.Stop()
	}

	// ============================================
	// HTTP server
	// ============================================
	router := api.NewRouter(api.RouterDeps{
		Config:    cfg,
		Services:  services,
		Logger:    appLog,
		Metrics:   m,
		WebSocket: socket.NewHandler(hub, services.Auth, cfg.CORSOrigins).HandleWebSocket,
		Health: func() map[string]interface{} {
			return map[string]interface{}{
				"store":     storeKind,
				"cache":     redisDB != nil,
				"websocket": hub.ConnectedClients(),
			}
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		os.Exit(1)
	}
	log.Info("server exited")
}
