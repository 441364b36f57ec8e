package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	c "github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/telemetry"
	s "github.com/fjod/go_cart/storefront/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", cfg.ServiceName).Logger()

	ctx := context.Background()

	tp, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracer provider shutdown failed")
		}
	}()

	// Carts
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoDB.Client().Disconnect(context.Background())

	cartRepo := repository.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create cart indexes")
	}
	log.Info().Str("db", cfg.MongoDBName).Msg("connected to MongoDB")

	// Catalog and reviews
	cred := cfg.PostgresCredentials()
	sqlDB, err := repository.ConnectPostgres(ctx, cred)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Postgres")
	}
	catalog := repository.NewCatalogRepository(sqlDB)
	defer catalog.Close()

	if err := catalog.RunMigrations(cred); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Str("db", cred.DBName).Msg("catalog migrations applied")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	cartCache := c.NewRedisCache(redisClient, cfg.CartCacheTTL)

	// Left as a nil interface when Kafka is not configured; services skip
	// invalidation then.
	var notifier s.Invalidator
	if len(cfg.KafkaBrokers) > 0 {
		publisher := notify.NewPublisher(cfg.InvalidationTopic, log, cfg.KafkaBrokers...)
		defer publisher.Close()
		notifier = publisher
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, product invalidation disabled")
	}

	policy, err := cfg.PricingPolicy()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid pricing policy")
	}

	carts := s.NewCartService(cartRepo, cartCache, catalog, notifier, policy, log)
	reviews := s.NewReviewService(catalog, notifier, log)
	products := s.NewProductService(catalog)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	var wg sync.WaitGroup

	if len(cfg.KafkaBrokers) > 0 {
		sessions := poller.NewPoller(carts, cfg.SessionEventsTopic, cfg.SessionConsumerGroup, log, cfg.KafkaBrokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sessions.Close()
			sessions.Run(runCtx)
		}()
	}

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, all callers are anonymous")
	}

	router := h.NewRouter(h.Deps{
		Log:            log,
		Auth:           auth.NewAuthenticator(cfg.JWTSecret, cfg.SecureCookie),
		Carts:          carts,
		Reviews:        reviews,
		Products:       products,
		RequestTimeout: cfg.RequestTimeout,
		ServiceName:    cfg.ServiceName,
		Tracer:         tp,
		Propagator:     telemetry.Propagator(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	stop()
	wg.Wait()

	log.Info().Msg("server exited")
}
