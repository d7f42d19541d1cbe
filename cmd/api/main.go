package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"account-lifecycle/internal/config"
	"account-lifecycle/internal/db"
	"account-lifecycle/internal/email"
	apihttp "account-lifecycle/internal/http"
	"account-lifecycle/internal/repository"
	"account-lifecycle/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			_ = client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()
		}
		cancel()
	}

	userRepo := repository.NewPgUserRepository(pool)

	var codeStore service.VerificationStore
	switch cfg.VerificationStore {
	case config.StoreRedis:
		if redisClient == nil {
			logger.Fatal("verification store redis requires a reachable REDIS_ADDR")
		}
		codeStore = service.NewRedisVerificationStore(redisClient)
	case config.StoreMemory:
		logger.Warn("verification codes kept in memory; they will not survive a restart")
		codeStore = service.NewMemoryVerificationStore()
	default:
		codeStore = repository.NewPgVerificationCodeRepository(pool)
	}

	var requestLimiter service.RequestLimiter
	if redisClient != nil {
		requestLimiter = service.NewRedisRequestLimiter(redisClient, logger, "rl:", cfg.ResetRateWindow, cfg.ResetRateLimit)
	} else {
		requestLimiter = service.NewRequestLimiter(cfg.ResetRateWindow, cfg.ResetRateLimit)
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}
	dispatcher := email.NewDispatcher(logger, emailSender, cfg.SMTPSendTimeout)
	defer dispatcher.Close()

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)

	accountSvc := service.NewAccountService(
		logger,
		userRepo,
		codeStore,
		service.NewBcryptHasher(cfg.BcryptCost),
		service.NewCodeGenerator(),
		jwtSvc,
		dispatcher,
		requestLimiter,
		service.AccountOptions{
			BaseURL:              cfg.AppBaseURL,
			VerifyCodeTTL:        cfg.VerifyCodeTTL,
			ResetCodeTTL:         cfg.ResetCodeTTL,
			RequireVerifiedLogin: cfg.RequireVerifiedLogin,
		},
	)
	userHandler := apihttp.NewUserHandler(logger, accountSvc)
	router := apihttp.NewRouter(logger, userHandler, jwtSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("verification_store", cfg.VerificationStore),
		zap.Bool("require_verified_login", cfg.RequireVerifiedLogin),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
