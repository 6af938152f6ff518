// Package apiapp assembles the HTTP API process: config, infrastructure
// clients, services and routes. Optional backends degrade with a warning so
// the process still starts; the affected endpoints answer with errors.
package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Appeals-service/Appeals-service/internal/clients/authclient"
	"github.com/Appeals-service/Appeals-service/internal/config"
	"github.com/Appeals-service/Appeals-service/internal/infra/httpclient"
	"github.com/Appeals-service/Appeals-service/internal/infra/rabbitmq"
	s3infra "github.com/Appeals-service/Appeals-service/internal/infra/s3"
	pgrepo "github.com/Appeals-service/Appeals-service/internal/repo/postgres"
	redrepo "github.com/Appeals-service/Appeals-service/internal/repo/redis"
	appealsvc "github.com/Appeals-service/Appeals-service/internal/services/appeals"
	authsvc "github.com/Appeals-service/Appeals-service/internal/services/auth"
	"github.com/Appeals-service/Appeals-service/internal/services/dispatch"
	userssvc "github.com/Appeals-service/Appeals-service/internal/services/users"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	broker     *rabbitmq.Client
	dispatcher *dispatch.Dispatcher
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	var redisClient *goredis.Client
	if c, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warn("redis init failed, continuing without cache", zap.Error(err))
	} else {
		redisClient = c
	}

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	var broker *rabbitmq.Client
	if b, err := rabbitmq.Connect(rabbitmq.Config{
		URL:                 cfg.Broker.URL,
		Exchange:            cfg.Broker.Exchange,
		NotificationQueue:   cfg.Broker.NotificationQueue,
		NotificationRouting: cfg.Broker.NotificationRouting,
		LogsQueue:           cfg.Broker.LogsQueue,
		LogsRouting:         cfg.Broker.LogsRouting,
	}); err != nil {
		log.Warn("broker init failed, continuing without publishing", zap.Error(err))
	} else {
		broker = b
	}

	gateway := authclient.New(httpclient.New(httpclient.Config{
		BaseURL:    cfg.Authorization.BaseURL,
		Timeout:    cfg.Authorization.Timeout,
		RetryCount: cfg.Authorization.RetryCount,
		RetryDelay: cfg.Authorization.RetryDelay,
	}, log))

	appealRepo := pgrepo.NewAppealRepo(pool)
	photoStorage := dispatch.NewS3Storage(s3Client, cfg.S3.Bucket)

	var brokerPublisher dispatch.Broker
	if broker != nil {
		brokerPublisher = broker
	}
	dispatcher := dispatch.New(photoStorage, brokerPublisher, cfg.ServiceName, log)

	authService := authsvc.NewService(gateway, log)
	userService := userssvc.NewService(gateway, log)
	appealService := appealsvc.NewService(appealRepo, dispatcher, gateway, log)
	if redisClient != nil {
		appealService.AttachCache(redrepo.NewCacheRepo(redisClient), cfg.Cache.TTL)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AppealService: appealService,
		UserService:   userService,
		AuthService:   authService,
		AppealRepo:    appealRepo,
		Logger:        log,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		broker:     broker,
		dispatcher: dispatcher,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server, waits for in-flight background jobs, then tears
// down infrastructure connections.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
