package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	uploaderv1 "github.com/Yulian302/lfusys-services-recordings/api/uploader/v1"
	"github.com/Yulian302/lfusys-services-recordings/auth"
	"github.com/Yulian302/lfusys-services-recordings/config"
	"github.com/Yulian302/lfusys-services-recordings/handlers"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/metrics"
	"github.com/Yulian302/lfusys-services-recordings/queues"
	"github.com/Yulian302/lfusys-services-recordings/tracing"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// base64 inflates JSON-carried bytes by 4/3; leave room for the envelope.
const messageOverhead = 64 * 1024

type App struct {
	Server       *grpc.Server
	HealthServer *grpchealth.Server
	Metrics      *metrics.Server

	DynamoDB *dynamodb.Client
	Redis    redis.UniversalClient
	Sqs      *sqs.Client

	Config    config.Config
	AwsConfig aws.Config
	Registry  *prometheus.Registry
	Tokens    *auth.TokenManager

	Services       *Services
	TracerProvider *trace.TracerProvider
	Logger         logging.Logger

	listener net.Listener
	cancel   context.CancelFunc
}

func SetupApp(ctx context.Context) (*App, error) {
	cfg := config.LoadConfig()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logging.NewSlogLogger(logging.CreateAppLogger(cfg.Env))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:   cfg,
		Registry: registry,
		Tokens:   auth.NewTokenManager(cfg.JWTSecret, cfg.TokenIssuer, cfg.TokenTTL),
		Logger:   appLogger,
	}

	if cfg.NeedsAWS() {
		awsCfg, err := initAWS(ctx, *cfg.AWSConfig)
		if err != nil {
			return nil, err
		}
		app.AwsConfig = awsCfg
		app.DynamoDB = initDynamo(awsCfg)
		if cfg.UploadsNotificationsQueueName != "" {
			app.Sqs = initSqs(awsCfg)
		}
	}

	if cfg.RedisConfig.HOST != "" {
		app.Redis = initRedis(*cfg.RedisConfig)
	} else if cfg.SessionStore == config.SessionStoreRedis {
		return nil, errors.New("REDIS_HOST is required for redis session store")
	}

	if app.Config.Tracing {
		tp, err := tracing.InitTracer(ctx, "recordings", cfg.TracingAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}
		appLogger.Info("tracing enabled", "addr", cfg.TracingAddr)

		app.TracerProvider = tp
	}

	services, err := BuildServices(ctx, app)
	if err != nil {
		return nil, err
	}
	app.Services = services

	if err := app.setupServers(); err != nil {
		return nil, err
	}

	return app, nil
}

// setupServers builds everything Shutdown touches, so Run only serves.
func (a *App) setupServers() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	maxMsg := int(max(a.Config.MaxFileSize, a.Config.DefaultChunkSize)*4/3) + messageOverhead
	a.Server = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			handlers.UnaryErrorInterceptor(a.Logger),
			handlers.UnaryAuthInterceptor(a.Tokens),
		),
		grpc.MaxRecvMsgSize(maxMsg),
	)
	a.createHealthServer(ctx)
	a.RegisterHandlers()

	a.Metrics = metrics.NewServer(a.Config.MetricsAddr, a.Registry)

	l, err := net.Listen("tcp", a.Config.SessionGRPCAddr)
	if err != nil {
		cancel()
		return err
	}
	a.listener = l

	if err := a.Services.Start(a.Config.SweepSchedule); err != nil {
		cancel()
		l.Close()
		return err
	}
	return nil
}

func (a *App) Run() error {
	go func() {
		if err := a.Metrics.Start(); err != nil {
			a.Logger.Error("metrics server stopped", "error", err)
		}
	}()

	a.Logger.Info("grpc server started", "addr", a.Config.SessionGRPCAddr)
	return a.Server.Serve(a.listener)
}

func (a *App) createHealthServer(ctx context.Context) {
	a.HealthServer = grpchealth.NewServer()

	// start pessimistic
	a.HealthServer.SetServingStatus(
		"",
		healthpb.HealthCheckResponse_NOT_SERVING,
	)
	healthpb.RegisterHealthServer(a.Server, a.HealthServer)

	checks := a.Services.Stores.readinessChecks()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := healthpb.HealthCheckResponse_SERVING

				for _, c := range checks {
					cctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
					err := c.IsReady(cctx)
					cancel()

					if err != nil {
						a.Logger.Warn("readiness check failed", "store", c.Name(), "error", err)
						status = healthpb.HealthCheckResponse_NOT_SERVING
						break
					}
				}

				a.HealthServer.SetServingStatus("", status)
				a.HealthServer.SetServingStatus(uploaderv1.ServiceName, status)
			}
		}
	}()
}

func initAWS(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return awsCfg, nil
}

func initDynamo(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

func initRedis(cfg config.RedisConfig) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.HOST},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func initSqs(cfg aws.Config) *sqs.Client {
	return sqs.NewFromConfig(cfg)
}

// queueURL builds the regional URL when the account is known and asks SQS
// otherwise, which also covers LocalStack.
func (a *App) queueURL(ctx context.Context) (string, error) {
	name := a.Config.UploadsNotificationsQueueName
	if a.Config.AccountID != "" && a.Config.AWSConfig.Endpoint == "" {
		return fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", a.Config.Region, a.Config.AccountID, name), nil
	}
	return queues.ResolveQueueURL(ctx, a.Sqs, name)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("starting graceful shutdown")

	if a.cancel != nil {
		a.cancel()
	}

	if a.Server != nil {
		done := make(chan struct{})
		go func() {
			a.Server.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			a.Server.Stop() // force
		}
	}

	// Serve closes it too; this covers a Run that never got to Serve
	if a.listener != nil {
		_ = a.listener.Close()
	}

	if a.Metrics != nil {
		if err := a.Metrics.Shutdown(ctx); err != nil {
			a.Logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if a.Services != nil {
		if err := a.Services.Shutdown(ctx); err != nil {
			a.Logger.Error("services shutdown error", "error", err)
		}
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}

	if a.TracerProvider != nil {
		if err := a.TracerProvider.Shutdown(ctx); err != nil {
			a.Logger.Error("tracer shutdown error", "error", err)
		}
	}

	a.Logger.Info("graceful shutdown complete")
	return nil
}

func (a *App) RegisterHandlers() {
	uploaderv1.RegisterUploaderServer(a.Server, a.Services.UploadHandler)
}
