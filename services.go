package main

import (
	"context"
	"fmt"

	uploaderv1 "github.com/Yulian302/lfusys-services-recordings/api/uploader/v1"
	"github.com/Yulian302/lfusys-services-recordings/caching"
	"github.com/Yulian302/lfusys-services-recordings/config"
	"github.com/Yulian302/lfusys-services-recordings/handlers"
	"github.com/Yulian302/lfusys-services-recordings/health"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/metrics"
	"github.com/Yulian302/lfusys-services-recordings/queues"
	"github.com/Yulian302/lfusys-services-recordings/services"
	"github.com/Yulian302/lfusys-services-recordings/store"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/spf13/afero"
)

type Stores struct {
	files    store.FileStore
	sessions store.SessionStore
	blobs    store.BlobStore
}

type Services struct {
	Uploads  *services.UploadManager
	Sessions services.SessionService
	Files    services.FileService
	Sweeper  *services.SessionSweeper
	Receiver queues.UploadsNotifyReceiver

	Stores *Stores

	UploadHandler uploaderv1.UploaderServer

	logger logging.Logger
}

type Shutdowner interface {
	Shutdown(context.Context) error
}

func BuildServices(ctx context.Context, app *App) (*Services, error) {
	cfg := app.Config
	l := app.Logger

	stores, err := buildStores(app)
	if err != nil {
		return nil, err
	}
	for _, c := range stores.readinessChecks() {
		l.Info("store selected", "store", c.Name())
	}

	var cachingSvc caching.CachingService
	cachingSvc = caching.NewNullCachingService()
	if app.Redis != nil {
		cachingSvc = caching.NewRedisCachingService(app.Redis)
	}

	catalog := queues.NewFileCatalog(stores.files, cachingSvc, l.With("component", "catalog"))

	var (
		notifier queues.UploadsNotifier
		receiver queues.UploadsNotifyReceiver
	)
	if app.Sqs != nil {
		queueUrl, err := app.queueURL(ctx)
		if err != nil {
			return nil, err
		}
		notifier = queues.NewSqsUploadsNotifier(app.Sqs, queueUrl)
		receiver = queues.NewUploadsNotifyReceiverImpl(context.Background(), app.Sqs, catalog, queueUrl, l.With("component", "uploads_receiver"))
	} else {
		notifier = queues.NewInlineUploadsNotifier(catalog)
	}

	uploadMetrics := metrics.NewUploadMetrics(app.Registry)
	manager := services.NewUploadManager(stores.sessions, stores.blobs, notifier, services.UploadPolicy{
		MaxFileSize:       cfg.MaxFileSize,
		DefaultChunkSize:  cfg.DefaultChunkSize,
		AllowedMimeTypes:  cfg.AllowedMimeTypes,
		AllowedExtensions: cfg.AllowedExtensions,
		SessionTTL:        cfg.SessionTTL,
	}, uploadMetrics, l.With("component", "uploads"))

	sessSvc := services.NewSessionServiceImpl(stores.sessions)
	fileSvc := services.NewFileServiceImpl(stores.files, stores.blobs, cachingSvc, cfg.CacheTTL, l.With("component", "files"))
	sweeper := services.NewSessionSweeper(stores.sessions, manager, cfg.SweepBatchSize, uploadMetrics, l.With("component", "sweeper"))

	handler := handlers.NewGrpcHandler(manager, sessSvc, fileSvc)

	return &Services{
		Uploads:  manager,
		Sessions: sessSvc,
		Files:    fileSvc,
		Sweeper:  sweeper,
		Receiver: receiver,

		Stores: stores,

		UploadHandler: handler,

		logger: l,
	}, nil
}

func buildStores(app *App) (*Stores, error) {
	cfg := app.Config
	s := &Stores{}

	switch cfg.SessionStore {
	case config.SessionStoreDynamo:
		s.sessions = store.NewDynamoSessionStore(app.DynamoDB, cfg.UploadsTableName)
	case config.SessionStoreRedis:
		s.sessions = store.NewRedisSessionStore(app.Redis)
	case config.SessionStoreMemory:
		s.sessions = store.NewMemorySessionStore()
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}

	if cfg.SessionStore == config.SessionStoreMemory {
		s.files = store.NewMemoryFileStore()
	} else {
		s.files = store.NewDynamoFileStore(app.DynamoDB, cfg.FilesTableName)
	}

	switch cfg.BlobStore {
	case config.BlobStoreS3:
		client := store.NewS3Client(app.AwsConfig, "", app.Config.AWSConfig.Endpoint != "")
		s.blobs = store.NewS3BlobStore(client, cfg.S3Config.Bucket, app.Logger.With("component", "s3"))
	case config.BlobStoreMinIO:
		minioCfg := app.AwsConfig.Copy()
		if minioCfg.Region == "" {
			minioCfg.Region = cfg.Region
		}
		minioCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		client := store.NewS3Client(minioCfg, cfg.MinIOConfig.Endpoint, true)
		s.blobs = store.NewS3BlobStore(client, cfg.MinIOConfig.Bucket, app.Logger.With("component", "minio"))
	case config.BlobStoreLocal:
		blobs, err := store.NewLocalBlobStore(afero.NewOsFs(), cfg.BasePath)
		if err != nil {
			return nil, fmt.Errorf("init local blob store: %w", err)
		}
		s.blobs = blobs
	default:
		return nil, fmt.Errorf("unknown blob store %q", cfg.BlobStore)
	}

	return s, nil
}

func (s *Stores) readinessChecks() []health.ReadinessCheck {
	return []health.ReadinessCheck{s.sessions, s.files, s.blobs}
}

// Start launches the background workers: the completion receiver and the
// expiry sweeper.
func (s *Services) Start(sweepSchedule string) error {
	if s.Receiver != nil {
		s.Receiver.Start()
	}
	if err := s.Sweeper.Start(sweepSchedule); err != nil {
		return fmt.Errorf("start session sweeper: %w", err)
	}
	return nil
}

func (s *Services) Shutdown(ctx context.Context) error {
	shutdownIfPossible := func(name string, v any) {
		if sh, ok := v.(Shutdowner); ok {
			if err := sh.Shutdown(ctx); err != nil {
				s.logger.Error("shutdown error", "component", name, "error", err)
			}
		}
	}

	s.logger.Info("shutting down services")

	shutdownIfPossible("session sweeper", s.Sweeper)
	if s.Receiver != nil {
		shutdownIfPossible("uploads receiver", s.Receiver)
	}
	shutdownIfPossible("files store", s.Stores.files)
	shutdownIfPossible("sessions store", s.Stores.sessions)

	s.logger.Info("services shutdown complete")
	return nil
}
