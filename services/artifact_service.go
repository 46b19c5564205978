package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
)

// ArtifactStore answers whether the insight script left its output behind.
type ArtifactStore interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// LocalArtifactStore checks the local filesystem
type LocalArtifactStore struct{}

func NewLocalArtifactStore() *LocalArtifactStore {
	return &LocalArtifactStore{}
}

func (s *LocalArtifactStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// HeadObjectAPI is the part of the S3 client the artifact store needs.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3ArtifactStore checks for the artifact as an object key in a bucket,
// for deployments where the script uploads its result instead of writing locally.
type S3ArtifactStore struct {
	client HeadObjectAPI
	bucket string
}

func NewS3ArtifactStore(ctx context.Context, bucket string) (*S3ArtifactStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	// Instrument AWS SDK v2 with X-Ray so HeadObject calls show up as subsegments
	awsv2.AWSV2Instrumentor(&cfg.APIOptions)

	return &S3ArtifactStore{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func NewS3ArtifactStoreWithClient(client HeadObjectAPI, bucket string) *S3ArtifactStore {
	return &S3ArtifactStore{client: client, bucket: bucket}
}

func (s *S3ArtifactStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ObjectKey(path)),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("head s3://%s/%s: %w", s.bucket, ObjectKey(path), err)
}

// ObjectKey maps a relative artifact path to an S3 key
func ObjectKey(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
}

// NewArtifactStore creates the store matching the configured backend
func NewArtifactStore(ctx context.Context, storeType, bucket string) (ArtifactStore, error) {
	switch storeType {
	case "s3":
		return NewS3ArtifactStore(ctx, bucket)
	case "local":
		return NewLocalArtifactStore(), nil
	default:
		return nil, fmt.Errorf("unknown artifact store: %s", storeType)
	}
}
