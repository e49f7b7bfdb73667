package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/adoption"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/auth"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/config"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/db"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/identity"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/logger"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/middleware"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/pgstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dog-adoption-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}

	guard := auth.NewGuard(tokens, be.users, cfg.AuthStrict)
	users := identity.NewService(be.users, tokens, log.Named("identity"))
	dogs := adoption.NewEngine(be.dogs, be.users, adoption.Options{
		DefaultPageSize: cfg.PageSizeDefault,
		MaxPageSize:     cfg.PageSizeMax,
	}, log.Named("adoption"))

	apiLimiter := middleware.NewLimiterStore(middleware.PerWindow(cfg.RateLimitMax, cfg.RateLimitWindow), cfg.RateLimitMax, time.Minute)
	defer apiLimiter.Stop()
	// small burst to allow a couple of quick retries
	authLimiter := middleware.NewLimiterStore(middleware.PerMinute(cfg.AuthRateLimitRPM), 3, time.Minute)
	defer authLimiter.Stop()

	opts := routerOptions{
		AppEnv:         cfg.AppEnv,
		Production:     cfg.IsProduction(),
		TrustProxy:     cfg.TrustProxy,
		AllowedOrigins: cfg.AllowedOrigins,
		BodyLimit:      cfg.BodyLimitBytes,
		APILimiter:     apiLimiter,
		AuthLimiter:    authLimiter,
	}
	if cfg.RateLimitStatsAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimitStatsAddr,
			Password: cfg.RateLimitStatsPass,
			DB:       cfg.RateLimitStatsDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}
		opts.Stats = middleware.NewRedisStats(rdb, "ratelimit:stats", 24*time.Hour)
	}

	srv := newServer(users, dogs, guard, be.pinger, log, opts)
	httpServer := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.ServerAddress), zap.String("store", cfg.StoreDriver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.GRPCHealthAddress != "" {
		grpcServer, hs := newHealthServer(log.Named("grpc"))
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddress)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPCHealthAddress, err)
		}
		go watchStore(ctx, hs, be.pinger, 15*time.Second, log.Named("health"))
		go func() {
			log.Info("gRPC health server listening", zap.String("addr", cfg.GRPCHealthAddress))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		defer grpcServer.GracefulStop()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// userStore is everything the services need from the user side of a backend.
type userStore interface {
	identity.UserStore
	auth.UserLookup
	adoption.UserDirectory
}

// backend is one storage driver's implementation of the stores.
type backend struct {
	users  userStore
	dogs   adoption.DogStore
	pinger pinger
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		connCtx, cancel := context.WithTimeout(ctx, cfg.DBConnectionTimeout)
		defer cancel()
		client, err := db.New(connCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		// Ensure indexes exist
		if err := client.CreateIndexes(connCtx); err != nil {
			_ = client.Close(context.Background())
			return nil, fmt.Errorf("create indexes: %w", err)
		}
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
		return &backend{
			users:  data.NewUsersStore(client.UsersCollection()),
			dogs:   data.NewDogsStore(client.DogsCollection()),
			pinger: client,
			close:  func() { _ = client.Close(context.Background()) },
		}, nil

	case config.DriverPostgres:
		store, err := pgstore.Open(ctx, cfg.DatabaseDSN, cfg.DBConnectionTimeout)
		if err != nil {
			return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("connected to PostgreSQL")
		return &backend{
			users:  store,
			dogs:   store,
			pinger: store,
			close:  func() { _ = store.Close() },
		}, nil

	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		store := data.NewMemoryStore()
		return &backend{users: store, dogs: store, pinger: store, close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newTokenManager(cfg *config.Config) (*auth.JWTManager, error) {
	// JWT_KEYS (kid:secret,kid2:secret2) enables rotation; JWT_SECRET is the
	// single-key fallback
	if cfg.JWTKeys != "" {
		keys, err := auth.ParseKeys(cfg.JWTKeys)
		if err != nil {
			return nil, fmt.Errorf("parse JWT_KEYS: %w", err)
		}
		return auth.NewJWTManagerFromKeys(keys, cfg.JWTActiveKid, cfg.JWTTTL), nil
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL), nil
}
