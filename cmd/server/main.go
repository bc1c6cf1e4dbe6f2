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
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"github.com/lingocrowd/contribution_control/internal/asset"
	"github.com/lingocrowd/contribution_control/internal/cfg"
	"github.com/lingocrowd/contribution_control/internal/correction"
	"github.com/lingocrowd/contribution_control/internal/events"
	"github.com/lingocrowd/contribution_control/internal/httpapi"
	"github.com/lingocrowd/contribution_control/internal/ingest"
	"github.com/lingocrowd/contribution_control/internal/lifecycle"
	applogger "github.com/lingocrowd/contribution_control/internal/logger"
	"github.com/lingocrowd/contribution_control/internal/store"
	"github.com/lingocrowd/contribution_control/internal/task"
)

func main() {
	conf, err := cfg.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := applogger.New(conf.Env, conf.LogLevel, "contribution-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(conf, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("server stopped")
}

func run(conf cfg.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(conf.DB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := store.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	st := store.New(db)

	var redisClient *redis.Client
	if conf.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	var dispatcher *events.Dispatcher
	if brokers := conf.KafkaBrokers(); len(brokers) > 0 {
		dispatcher = events.NewDispatcher(events.NewKafkaProducer(brokers, conf.Kafka.Topic), logger)
		defer func() {
			if err := dispatcher.Close(); err != nil {
				logger.Error().Err(err).Msg("close lifecycle event producer")
			}
		}()
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not set, lifecycle events are not published")
	}

	uploader, closeAssets, err := openAssets(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer closeAssets()

	tasks := task.NewTaskService(st.Repositories().Tasks, logger)
	coordinator := lifecycle.NewCoordinator(st, dispatcher, logger)
	corrections := correction.NewRouter(st, coordinator, logger)

	pipelineOpts := []ingest.Option{
		ingest.WithChunkSize(conf.Ingest.ChunkSize),
		ingest.WithDispatcher(dispatcher),
	}
	if redisClient != nil && conf.Ingest.DedupTTL > 0 {
		pipelineOpts = append(pipelineOpts, ingest.WithGuard(ingest.NewRedisGuard(redisClient, conf.Ingest.DedupTTL)))
	}
	pipeline := ingest.NewPipeline(st, uploader, logger, pipelineOpts...)

	var revocations httpapi.RevocationList
	if redisClient != nil {
		revocations = httpapi.NewRedisRevocations(redisClient)
	}
	verifier, err := httpapi.NewVerifier(conf.JWT.Secret, revocations)
	if err != nil {
		return err
	}

	rateLimiter := httpapi.NewRateLimiter(conf.HTTP.RateLimitRequests, conf.HTTP.RateLimitWindow, conf.HTTP.TrustProxyHeaders)
	router, err := httpapi.New(httpapi.Dependencies{
		Store:       st,
		Tasks:       tasks,
		Coordinator: coordinator,
		Corrections: corrections,
		Ingest:      pipeline,
		Verifier:    verifier,
		Logger:      logger,
		Middleware: []func(http.Handler) http.Handler{
			httpapi.AccessLog(logger),
			httpapi.SecurityHeaders,
			httpapi.NewCORS(httpapi.CORSOptions{
				AllowedOrigins:   cfg.SplitCSV(conf.HTTP.CORSAllowedOrigins),
				AllowCredentials: true,
			}),
			rateLimiter.Middleware,
			httpapi.RequestSizeLimit(conf.HTTP.MaxBodyBytes, "/tasks/batch"),
		},
		MaxUploadBytes: conf.HTTP.MaxUploadBytes,
		Ping:           sqlDB.PingContext,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTP.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcListener, err := net.Listen("tcp", ":"+conf.GRPC.Port)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", grpcListener.Addr().String()).Msg("gRPC server listening")
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		watchDatabase(gctx, db, healthServer, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.HTTP.ShutdownTimeout)
		defer cancel()
		healthServer.Shutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
		grpcServer.GracefulStop()
		return nil
	})
	return g.Wait()
}

// openAssets wires object storage and its metadata collection. Both are
// optional; without storage, archive batches are refused.
func openAssets(ctx context.Context, conf cfg.Config, logger zerolog.Logger) (asset.Uploader, func(), error) {
	noop := func() {}
	if conf.Minio.Endpoint == "" {
		logger.Warn().Msg("MINIO_ENDPOINT not set, archive ingestion disabled")
		return nil, noop, nil
	}

	storage, err := asset.NewMinioStorage(
		conf.Minio.Endpoint,
		conf.Minio.AccessKey,
		conf.Minio.SecretKey,
		conf.Minio.UseSSL,
		conf.Minio.Bucket,
		conf.Minio.PublicURL,
	)
	if err != nil {
		return nil, noop, fmt.Errorf("init minio: %w", err)
	}

	if conf.Mongo.URI == "" {
		return asset.NewUploader(storage, nil, logger), noop, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(conf.Mongo.URI))
	if err != nil {
		return nil, noop, fmt.Errorf("connect mongo: %w", err)
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("mongo disconnect")
		}
	}
	coll := client.Database(conf.Mongo.Database).Collection(conf.Mongo.Collection)
	return asset.NewUploader(storage, asset.NewMetadataRepository(coll), logger), closeFn, nil
}

// watchDatabase keeps the gRPC health status in line with database reachability.
func watchDatabase(ctx context.Context, db *gorm.DB, hs *health.Server, logger zerolog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if status != last {
			hs.SetServingStatus("", status)
			logger.Info().Str("status", status.String()).Msg("health status changed")
			last = status
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
