package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const s3Scheme = "s3"

// objectAPI is the subset of the S3 client the document store calls
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3DocumentStore stores legal documents in an S3-compatible bucket
// (AWS S3, MinIO, RustFS). Refs have the form s3://bucket/key.
type S3DocumentStore struct {
	client        objectAPI
	presign       *s3.PresignClient
	bucket        string
	keyPrefix     string
	maxSize       int64
	presignExpiry time.Duration
	logger        *zap.Logger
}

// S3DocumentStoreOption is a functional option for configuring S3DocumentStore
type S3DocumentStoreOption func(*S3DocumentStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.logger = logger
	}
}

// NewS3DocumentStore creates a store from configuration
func NewS3DocumentStore(ctx context.Context, cfg *config.StorageConfig, opts ...S3DocumentStoreOption) (*S3DocumentStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := newS3DocumentStore(client, cfg)
	store.presign = s3.NewPresignClient(client)
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

func newS3DocumentStore(client objectAPI, cfg *config.StorageConfig) *S3DocumentStore {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3DocumentStore{
		client:        client,
		bucket:        cfg.Bucket,
		keyPrefix:     cfg.KeyPrefix,
		maxSize:       cfg.MaxDocumentSize,
		presignExpiry: expiry,
		logger:        zap.NewNop(),
	}
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating document bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// StoreDocument uploads blob under the task's prefix and returns its ref
func (s *S3DocumentStore) StoreDocument(ctx context.Context, taskID uuid.UUID, meta collections.DocumentMetadata, blob io.Reader) (collections.DocumentRef, error) {
	if err := meta.Validate(); err != nil {
		return "", err
	}
	data, err := readLimited(blob, s.maxSize)
	if err != nil {
		return "", err
	}
	if err := checkSize(meta, int64(len(data)), s.maxSize); err != nil {
		return "", err
	}

	key := objectKey(s.keyPrefix, taskID, meta.FileName)
	metadata := map[string]string{"task-id": taskID.String()}
	if meta.DocumentType != "" {
		metadata["document-type"] = meta.DocumentType
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentTypeOrDefault(meta.ContentType)),
		Metadata:      metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}

	s.logger.Debug("Stored legal document",
		zap.String("task_id", taskID.String()),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return collections.DocumentRef(s3Scheme + "://" + s.bucket + "/" + key), nil
}

// DeleteDocument removes a stored document
func (s *S3DocumentStore) DeleteDocument(ctx context.Context, ref collections.DocumentRef) error {
	bucket, key, err := parseRef(ref, s3Scheme)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// DownloadURL presigns a GET for the document
func (s *S3DocumentStore) DownloadURL(ctx context.Context, ref collections.DocumentRef) (string, time.Time, error) {
	if s.presign == nil {
		return "", time.Time{}, errors.New("presigning is not configured")
	}
	bucket, key, err := parseRef(ref, s3Scheme)
	if err != nil {
		return "", time.Time{}, err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, time.Now().Add(s.presignExpiry), nil
}

// Bucket returns the bucket name
func (s *S3DocumentStore) Bucket() string {
	return s.bucket
}

// Ensure S3DocumentStore implements DocumentStore
var _ collections.DocumentStore = (*S3DocumentStore)(nil)
