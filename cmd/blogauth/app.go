package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/blogauth/internal/db"
	"github.com/nkiryanov/blogauth/internal/handlers"
	"github.com/nkiryanov/blogauth/internal/handlers/carrier"
	"github.com/nkiryanov/blogauth/internal/logger"
	"github.com/nkiryanov/blogauth/internal/ratelimit"
	"github.com/nkiryanov/blogauth/internal/repository"
	"github.com/nkiryanov/blogauth/internal/repository/memory"
	"github.com/nkiryanov/blogauth/internal/repository/postgres"
	"github.com/nkiryanov/blogauth/internal/service/auth"
	"github.com/nkiryanov/blogauth/internal/service/auth/tokencodec"
	"github.com/nkiryanov/blogauth/internal/service/auth/verifier"
	"github.com/nkiryanov/blogauth/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger

	// Called in reverse order after server stopped
	closers []func()
}

func NewServerApp(ctx context.Context, c *Config) (_ *ServerApp, err error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, Logger: log}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	// Initialize storage: postgres if configured, memory otherwise
	var storage repository.Storage
	if c.DatabaseDSN != "" {
		pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		storage = postgres.NewStorage(pool)
	} else {
		log.Warn("database is not configured, sessions are kept in memory and lost on restart")
		storage = memory.NewStorage()
	}

	// Initialize refresh rate limiter if redis configured
	authConfig := auth.Config{
		RevokeFamilyOnReuse: c.RevokeFamilyOnReuse,
		Logger:              log.WithGroup("auth"),
	}
	if c.RedisURL != "" {
		limiter, closeFn, err := newLimiter(ctx, c)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closeFn)
		authConfig.Limiter = limiter
	}

	// Initialize services
	codec, err := tokencodec.New(tokencodec.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTTL,
		RefreshTTL: c.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}
	v := verifier.New(codec)

	userService, err := user.NewService(user.DefaultHasher, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating user service. Err: %w", err)
	}
	authService, err := auth.NewService(authConfig, codec, v, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	binder := carrier.New(carrier.Config{
		AccessTTL:  codec.AccessTTL(),
		RefreshTTL: codec.RefreshTTL(),
		Secure:     c.CookieSecure,
	})

	app.Handler = handlers.NewRouter(authService, userService, binder, v, log)

	return app, nil
}

func newLimiter(ctx context.Context, c *Config) (*ratelimit.Limiter, func(), error) {
	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url. Err: %w", err)
	}

	client := redis.NewClient(opts)
	closeFn := func() { _ = client.Close() }

	if err := client.Ping(ctx).Err(); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
	}

	limiter := ratelimit.New(client, ratelimit.Config{
		MaxAttempts: c.RefreshRateLimit,
		Window:      c.RefreshRateWindow,
	})
	return limiter, closeFn, nil
}

func (s *ServerApp) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.Logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
