// Package blobstore implements sync.BlobStore against an S3-compatible
// object store, specifically Cloudflare R2's documented S3-compatible
// access pattern (custom endpoint, region "auto").
package blobstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lovablehtml/prerender-engine/internal/logger"
)

// Config carries the R2/S3 connection details for the blob store.
type Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Store implements sync.BlobStore with an aws-sdk-go-v2 S3 client pointed
// at Cloudflare R2's S3-compatible endpoint.
type Store struct {
	client *s3.Client
	bucket string
	log    *logger.Logger
}

// New builds an S3 client against https://<account>.r2.cloudflarestorage.com
// with region "auto".
func New(ctx context.Context, cfg Config) (*Store, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &Store{client: client, bucket: cfg.Bucket, log: logger.New("BlobStore")}, nil
}

// Put uploads body to the bucket under key with the given content type,
// cache-control, and flat metadata map.
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType, cacheControl string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
		Metadata:     metadata,
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// Delete removes key from the bucket.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}
