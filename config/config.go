package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SessionStoreDynamo = "dynamodb"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"

	BlobStoreS3    = "s3"
	BlobStoreMinIO = "minio"
	BlobStoreLocal = "local"
)

type Config struct {
	Env         string
	Tracing     bool
	TracingAddr string

	*AWSConfig
	*DynamoDBConfig
	*S3Config
	*MinIOConfig
	*LocalStorageConfig
	*RedisConfig
	*AuthConfig
	*UploadConfig
	*ServiceConfig
}

type AWSConfig struct {
	Region    string
	AccountID string
	// Endpoint overrides every AWS client endpoint, e.g. LocalStack.
	Endpoint string
}

type DynamoDBConfig struct {
	UploadsTableName string
	FilesTableName   string
}

type S3Config struct {
	Bucket string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

type LocalStorageConfig struct {
	BasePath string
}

type RedisConfig struct {
	HOST     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret   string
	TokenIssuer string
	TokenTTL    time.Duration
}

type UploadConfig struct {
	MaxFileSize       int64
	DefaultChunkSize  int64
	AllowedMimeTypes  []string
	AllowedExtensions []string
	SessionTTL        time.Duration
	SweepSchedule     string
	SweepBatchSize    int
}

type ServiceConfig struct {
	SessionGRPCAddr               string
	MetricsAddr                   string
	SessionStore                  string
	BlobStore                     string
	UploadsNotificationsQueueName string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("TRACING", false)
	v.SetDefault("TRACING_ADDR", "localhost:4317")

	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("UPLOADS_TABLE_NAME", "uploads")
	v.SetDefault("FILES_TABLE_NAME", "files")
	v.SetDefault("S3_BUCKET", "recordings")
	v.SetDefault("MINIO_BUCKET", "recordings")
	v.SetDefault("LOCAL_BASE_PATH", "./uploads")

	v.SetDefault("REDIS_HOST", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CACHE_TTL", "5m")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "lfusys")
	v.SetDefault("ACCESS_TOKEN_TTL", "30m")

	v.SetDefault("MAX_FILE_SIZE_MB", 100)
	v.SetDefault("CHUNK_SIZE", 5*1024*1024)
	v.SetDefault("ALLOWED_MIME_TYPES", "audio/webm,audio/wav,audio/mp3,audio/mpeg,audio/ogg,audio/m4a,audio/aac")
	v.SetDefault("ALLOWED_EXTENSIONS", ".webm,.wav,.mp3,.ogg,.m4a,.aac")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SWEEP_SCHEDULE", "@every 10m")
	v.SetDefault("SWEEP_BATCH_SIZE", 100)

	v.SetDefault("SESSION_GRPC_ADDR", ":50051")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("SESSION_STORE", SessionStoreDynamo)
	v.SetDefault("BLOB_STORE", BlobStoreS3)
	v.SetDefault("UPLOADS_NOTIFICATIONS_QUEUE_NAME", "")
}

// LoadConfig reads configuration from the environment. If CONFIG_FILE is set,
// that file is read first and environment variables take precedence.
func LoadConfig() Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		_ = v.ReadInConfig()
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Env:         v.GetString("ENV"),
		Tracing:     v.GetBool("TRACING"),
		TracingAddr: v.GetString("TRACING_ADDR"),
		AWSConfig: &AWSConfig{
			Region:    v.GetString("AWS_REGION"),
			AccountID: v.GetString("AWS_ACCOUNT_ID"),
			Endpoint:  v.GetString("AWS_ENDPOINT"),
		},
		DynamoDBConfig: &DynamoDBConfig{
			UploadsTableName: v.GetString("UPLOADS_TABLE_NAME"),
			FilesTableName:   v.GetString("FILES_TABLE_NAME"),
		},
		S3Config: &S3Config{
			Bucket: v.GetString("S3_BUCKET"),
		},
		MinIOConfig: &MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		LocalStorageConfig: &LocalStorageConfig{
			BasePath: v.GetString("LOCAL_BASE_PATH"),
		},
		RedisConfig: &RedisConfig{
			HOST:     v.GetString("REDIS_HOST"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("REDIS_CACHE_TTL"),
		},
		AuthConfig: &AuthConfig{
			JWTSecret:   v.GetString("JWT_SECRET"),
			TokenIssuer: v.GetString("JWT_ISSUER"),
			TokenTTL:    v.GetDuration("ACCESS_TOKEN_TTL"),
		},
		UploadConfig: &UploadConfig{
			MaxFileSize:       v.GetInt64("MAX_FILE_SIZE_MB") * 1024 * 1024,
			DefaultChunkSize:  v.GetInt64("CHUNK_SIZE"),
			AllowedMimeTypes:  splitList(v.GetString("ALLOWED_MIME_TYPES")),
			AllowedExtensions: splitList(v.GetString("ALLOWED_EXTENSIONS")),
			SessionTTL:        v.GetDuration("SESSION_TTL"),
			SweepSchedule:     v.GetString("SWEEP_SCHEDULE"),
			SweepBatchSize:    v.GetInt("SWEEP_BATCH_SIZE"),
		},
		ServiceConfig: &ServiceConfig{
			SessionGRPCAddr:               v.GetString("SESSION_GRPC_ADDR"),
			MetricsAddr:                   v.GetString("METRICS_ADDR"),
			SessionStore:                  strings.ToLower(v.GetString("SESSION_STORE")),
			BlobStore:                     strings.ToLower(v.GetString("BLOB_STORE")),
			UploadsNotificationsQueueName: v.GetString("UPLOADS_NOTIFICATIONS_QUEUE_NAME"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// NeedsAWS reports whether any selected backend lives in AWS. Outside memory
// mode the file catalog is always DynamoDB.
func (c Config) NeedsAWS() bool {
	return c.SessionStore != SessionStoreMemory ||
		c.BlobStore == BlobStoreS3 ||
		c.UploadsNotificationsQueueName != ""
}

func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.DefaultChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.DefaultChunkSize))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILE_SIZE_MB must be positive"))
	}
	if len(c.AllowedMimeTypes) == 0 {
		errs = append(errs, errors.New("ALLOWED_MIME_TYPES is empty"))
	}

	switch c.SessionStore {
	case SessionStoreDynamo, SessionStoreRedis, SessionStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}

	switch c.BlobStore {
	case BlobStoreS3:
		if c.S3Config.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for s3 blob store"))
		}
	case BlobStoreMinIO:
		if c.MinIOConfig.Endpoint == "" || c.MinIOConfig.Bucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for minio blob store"))
		}
	case BlobStoreLocal:
		if c.BasePath == "" {
			errs = append(errs, errors.New("LOCAL_BASE_PATH is required for local blob store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_STORE %q", c.BlobStore))
	}

	if c.NeedsAWS() && c.Region == "" {
		errs = append(errs, errors.New("AWS_REGION is required"))
	}

	return errors.Join(errs...)
}
