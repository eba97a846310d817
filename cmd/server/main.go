package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridepool/internal/config"
	"ridepool/internal/handlers"
	"ridepool/internal/middleware"
	"ridepool/internal/repositories/mongodb"
	"ridepool/internal/services"
	"ridepool/internal/utils"
	"ridepool/pkg/cache"
	"ridepool/pkg/database"
	"ridepool/pkg/logger"
	"ridepool/pkg/mailer"
	"ridepool/pkg/sms"
	"ridepool/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to mongodb")
	}
	defer db.Close()

	if err := database.NewMigrator(db.Database).Up(); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisCache.Close()

	smsProvider, err := buildSMSProvider(cfg.SMS)
	if err != nil {
		log.WithError(err).Fatal("failed to init sms provider")
	}

	smtpMailer := mailer.NewSMTPMailer(&mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.FromEmail,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	})

	clock := utils.NewClock()

	userRepo := mongodb.NewUserRepository(db, redisCache, clock)
	otpRepo := mongodb.NewOTPRepository(db, clock)
	rideRepo := mongodb.NewRideRepository(db, clock)
	ratingRepo := mongodb.NewRatingRepository(db, clock)
	chatRepo := mongodb.NewChatRepository(db, clock)

	registrationService := services.NewRegistrationService(
		userRepo,
		otpRepo,
		redisCache,
		services.NewSMSService(smsProvider, log),
		services.NewEmailService(smtpMailer, log),
		cfg.Security.JWTSecret,
		clock,
		utils.GenerateDigitCode,
		log,
	)
	rideService := services.NewRideService(rideRepo, ratingRepo, chatRepo, userRepo, registrationService, log)

	authHandler := handlers.NewAuthHandler(registrationService)
	rideHandler := handlers.NewRideHandler(rideService)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, authHandler, cfg.Security.JWTSecret)
		routes.SetupRideRoutes(v1, rideHandler, cfg.Security.JWTSecret)
	}

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"mongodb": "ok", "redis": "ok"}
		if err := db.Ping(); err != nil {
			checks["mongodb"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redisCache.Ping(c.Request.Context()); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":  http.StatusText(status),
			"version": cfg.App.Version,
			"checks":  checks,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		log.Infof("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}

func buildSMSProvider(cfg *config.SMSConfig) (sms.SMSProvider, error) {
	switch cfg.Provider {
	case "aws", "sns":
		return sms.NewAWSSNSProvider(cfg.AWS.Region)
	default:
		return sms.NewTwilioProvider(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber), nil
	}
}
