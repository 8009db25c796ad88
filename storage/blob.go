// Package storage persists source documents, computed artifacts, and their
// retention policy in the two-tier scheme spec.md §4.5 describes: small
// payloads inline in Postgres, large payloads routed to an S3-compatible
// blob store (Garage in the original, MinIO/S3 here).
package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobClient is the subset of *s3.Client the blob store needs, narrowed for
// testability the way 2lar-b2's DBClient interface narrows *dynamodb.Client.
type BlobClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// BlobStore wraps a bucket with the key-sanitization and content-type
// inference shared by the source, artifact, and retention services.
type BlobStore struct {
	client BlobClient
	bucket string
}

// NewBlobStore loads the default AWS SDK config (env vars, shared config
// file, or instance profile) and, when endpoint is set, points it at an
// S3-compatible endpoint such as Garage or MinIO instead of AWS.
func NewBlobStore(ctx context.Context, bucket, endpoint string) (*BlobStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &BlobStore{client: client, bucket: bucket}, nil
}

// NewBlobStoreWithClient wires an explicit client, for tests and for
// pointing the same BlobStore logic at a fake in-memory S3.
func NewBlobStoreWithClient(client BlobClient, bucket string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket}
}

func contentTypeForExtension(ext string) string {
	switch ext {
	case "md", "markdown":
		return "text/markdown"
	case "json":
		return "application/json"
	case "html":
		return "text/html"
	default:
		return "text/plain"
	}
}
