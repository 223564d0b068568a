package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 rejects multipart parts smaller than this, except the last one.
const minMultipartPartSize = 5 * 1024 * 1024

const maxMultipartParts = 10000

// S3API is the subset of *s3.Client the blob store uses.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient

	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	UploadPartCopy(ctx context.Context, in *s3.UploadPartCopyInput, opts ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type S3BlobStore struct {
	client     S3API
	uploader   *manager.Uploader
	bucketName string

	logger logging.Logger
}

// NewS3Client builds an S3 client. A non-empty endpoint with pathStyle
// targets MinIO or another S3-compatible server.
func NewS3Client(cfg aws.Config, endpoint string, pathStyle bool) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})
}

func NewS3BlobStore(client S3API, bucketName string, l logging.Logger) *S3BlobStore {
	return &S3BlobStore{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucketName: bucketName,
		logger:     l,
	}
}

func (s *S3BlobStore) Name() string {
	return "BlobStore[s3:" + s.bucketName + "]"
}

func (s *S3BlobStore) IsReady(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	return err
}

// Put streams r through the multipart uploader, which buffers parts itself,
// so the size hint is not needed.
func (s *S3BlobStore) Put(ctx context.Context, key string, r io.Reader, _ int64) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   r,
	}

	if _, err := s.uploader.Upload(ctx, in); err != nil {
		s.logger.Error("failed to put object", "key", key, "error", err)
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *S3BlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return nil, apperror.WithCause(apperror.ErrBlobNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3BlobStore) Stat(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("key cannot be empty")
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return 0, apperror.WithCause(apperror.ErrBlobNotFound, err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check file existence: %w", err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// Compose concatenates srcs into dst. A single source is copied; sources
// that all satisfy the multipart minimum are joined with UploadPartCopy;
// anything else is streamed through this process.
func (s *S3BlobStore) Compose(ctx context.Context, dst string, srcs []string) (int64, error) {
	if len(srcs) == 0 {
		return 0, fmt.Errorf("no sources to compose into %s", dst)
	}

	sizes := make([]int64, len(srcs))
	var totalSize int64
	for i, key := range srcs {
		size, err := s.Stat(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("source %s: %w", key, err)
		}
		sizes[i] = size
		totalSize += size
	}

	s.logger.Info("composing object", "final_key", dst, "chunk_count", len(srcs), "total_size", totalSize)

	if len(srcs) == 1 {
		return totalSize, s.copySingle(ctx, srcs[0], dst)
	}

	if canMultipartCopy(sizes) {
		return totalSize, s.multipartCopy(ctx, srcs, dst)
	}

	s.logger.Info("small parts, using stream merge", "final_key", dst, "total_size", totalSize)
	return totalSize, s.streamMergeAndPut(ctx, srcs, dst, totalSize)
}

func canMultipartCopy(sizes []int64) bool {
	if len(sizes) > maxMultipartParts {
		return false
	}
	for _, size := range sizes[:len(sizes)-1] {
		if size < minMultipartPartSize {
			return false
		}
	}
	return true
}

func (s *S3BlobStore) copySingle(ctx context.Context, srcKey, dst string) error {
	src := s.bucketName + "/" + srcKey

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucketName),
		Key:        aws.String(dst),
		CopySource: aws.String(src),
	})
	if err != nil {
		s.logger.Error("failed to copy single chunk", "src", src, "dest", dst, "error", err)
		return fmt.Errorf("failed to copy object: %w", err)
	}

	s.logger.Debug("copied single chunk", "src", src, "dest", dst)
	return nil
}

func (s *S3BlobStore) multipartCopy(ctx context.Context, srcs []string, dst string) (err error) {
	s.logger.Info("starting multipart copy", "final_key", dst, "chunk_count", len(srcs))

	createOut, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(dst),
	})
	if err != nil {
		s.logger.Error("failed to create multipart upload", "final_key", dst, "error", err)
		return fmt.Errorf("failed to create multipart upload: %w", err)
	}

	mpuID := aws.ToString(createOut.UploadId)

	defer func() {
		if err != nil {
			s.logger.Warn("aborting multipart upload due to error", "multipart_upload_id", mpuID, "final_key", dst)
			_, abortErr := s.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(s.bucketName),
				Key:      aws.String(dst),
				UploadId: aws.String(mpuID),
			})
			if abortErr != nil {
				s.logger.Error("failed to abort multipart upload", "multipart_upload_id", mpuID, "error", abortErr)
			}
		}
	}()

	completedParts := make([]types.CompletedPart, 0, len(srcs))

	for i, key := range srcs {
		if err = ctx.Err(); err != nil {
			return err
		}

		partNumber := int32(i + 1)
		src := s.bucketName + "/" + key

		upOut, partErr := s.client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:     aws.String(s.bucketName),
			Key:        aws.String(dst),
			UploadId:   aws.String(mpuID),
			PartNumber: aws.Int32(partNumber),
			CopySource: aws.String(src),
		})
		if partErr != nil {
			s.logger.Error("failed to upload part copy", "part_number", partNumber, "src", src, "error", partErr)
			err = fmt.Errorf("failed to upload part %d: %w", partNumber, partErr)
			return err
		}

		completedParts = append(completedParts, types.CompletedPart{
			ETag:       upOut.CopyPartResult.ETag,
			PartNumber: aws.Int32(partNumber),
		})
	}

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(dst),
		UploadId: aws.String(mpuID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	if err != nil {
		s.logger.Error("failed to complete multipart upload", "multipart_upload_id", mpuID, "final_key", dst, "error", err)
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	s.logger.Info("completed multipart copy", "final_key", dst, "parts", len(completedParts))
	return nil
}

func (s *S3BlobStore) streamMergeAndPut(ctx context.Context, srcs []string, dst string, totalSize int64) error {
	pr, pw := io.Pipe()

	go func() {
		defer pw.Close()

		for i, key := range srcs {
			if err := ctx.Err(); err != nil {
				pw.CloseWithError(err)
				return
			}

			s.logger.Debug("streaming chunk", "chunk_index", i, "key", key)

			body, err := s.Open(ctx, key)
			if err != nil {
				pw.CloseWithError(err)
				return
			}

			_, err = io.Copy(pw, body)
			body.Close()
			if err != nil {
				s.logger.Error("failed to copy chunk data", "key", key, "error", err)
				pw.CloseWithError(fmt.Errorf("failed to copy chunk %s: %w", key, err))
				return
			}
		}
	}()

	err := s.Put(ctx, dst, pr, totalSize)
	// unblock the writer if Put gave up early
	pr.CloseWithError(err)
	return err
}

func (s *S3BlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})

	totalDeleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("failed to list objects for deletion", "prefix", prefix, "error", err)
			return fmt.Errorf("failed to list objects for deletion: %w", err)
		}

		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{
				Key: obj.Key,
			})
		}

		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucketName),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			s.logger.Error("failed to delete objects", "prefix", prefix, "batch_size", len(objects), "error", err)
			return fmt.Errorf("failed to delete objects: %w", err)
		}

		totalDeleted += len(objects)
	}

	s.logger.Debug("deleted prefix", "prefix", prefix, "total_deleted", totalDeleted)
	return nil
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
