package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/resultrelay.net/internal/adapter/crypto"
	"gitlab.com/resultrelay.net/internal/adapter/postgres/jobrepository"
	"gitlab.com/resultrelay.net/internal/adapter/postgres/userrepository"
	"gitlab.com/resultrelay.net/internal/adapter/redis/replayguard"
	s3adapter "gitlab.com/resultrelay.net/internal/adapter/s3"
	"gitlab.com/resultrelay.net/internal/config"
	auth2 "gitlab.com/resultrelay.net/internal/core/services/auth"
	"gitlab.com/resultrelay.net/internal/core/services/result"
	logger2 "gitlab.com/resultrelay.net/internal/global/logger"
	authhandler "gitlab.com/resultrelay.net/internal/handlers/auth"
	http2 "gitlab.com/resultrelay.net/internal/http"
	"gitlab.com/resultrelay.net/internal/webhook"
	"gitlab.com/resultrelay.net/internal/ws"
	"gitlab.com/resultrelay.net/internal/ws/registry"
)

func main() {
	InitReader()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger2.Info("Starting result relay service")

	logger := logger2.Logger

	sysCfg := config.NewSystemConfig()
	ctxBg := context.Background()

	db, err := setupDatabase(sysCfg)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})
	defer redisClient.Close()

	// SECONDARY PORTS
	jobPort := jobrepository.NewJobRepository(db, logger)
	userPort := userrepository.New(db, logger)
	guard := replayguard.NewGuard(redisClient, logger)
	presigner, err := s3adapter.NewPresigner(ctxBg, sysCfg.S3Config, logger)
	if err != nil {
		panic(err)
	}

	// primary ports
	jwtProvider := crypto.NewJWTService(sysCfg.JwtConfig)

	// services
	connRegistry := registry.New(logger, registry.WithWriteTimeout(sysCfg.HTTPConfig.PushWriteTimeout))
	resultSvc := result.NewResultService(jobPort, presigner, connRegistry, logger)
	verifier := webhook.NewVerifier(sysCfg.WebhookConfig, guard, logger)
	ggAuth := auth2.NewGoogleAuthService(userPort, jwtProvider)
	localAuth := auth2.NewLocalAuthService(userPort, jwtProvider)

	wsHandler := ws.NewHandler(connRegistry, jwtProvider, jobPort, logger,
		ws.WithHandshakeReadTimeout(sysCfg.HTTPConfig.HandshakeReadTimeout))

	serviceProvider := http2.NewServiceProvider(
		resultSvc,
		verifier,
		jobPort,
		jwtProvider,
		wsHandler,
		authhandler.NewHandler(sysCfg.GGAuthConfig),
		ggAuth,
		localAuth,
	)

	// server
	httpServer := http2.NewServer(sysCfg.HTTPConfig.Port, "resultRelay", *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}
	httpServer.Start(ctxBg)

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(ctxBg, 5*time.Second)
	defer cancel()
	connRegistry.CloseAll()
	httpServer.Stop(ctx)

	logger.Info("successfully shutdown server")
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(cfg *config.AppConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.PostgresConfig.Url)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func InitReader() {
	if len(os.Args) < 2 {
		// no env name supplied; rely on the process environment
		return
	}
	environment := os.Args[1]
	if err := godotenv.Load(environment + ".env"); err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
