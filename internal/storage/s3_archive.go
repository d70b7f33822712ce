// Package storage keeps copies of uploaded archives in an S3 compatible
// bucket so a project can be restored or audited after extraction.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/diogopython/Nuvemhost/internal/config"
)

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ArchiveStore writes archives to archives/<project-id>.zip.
type ArchiveStore struct {
	client objectAPI
	bucket string
}

// NewS3ArchiveStore builds a store from configuration. Static credentials
// and a custom endpoint are applied when set, which is how MinIO and other
// S3 compatible servers are reached.
func NewS3ArchiveStore(ctx context.Context, c appconfig.ArchiveStoreConfig) (*ArchiveStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.UsePathStyle
	})
	return &ArchiveStore{client: client, bucket: c.Bucket}, nil
}

// Key returns the object key for a project's archive.
func Key(projectID string) string { return "archives/" + projectID + ".zip" }

// Put uploads size bytes read from r.
func (s *ArchiveStore) Put(ctx context.Context, projectID string, r io.ReaderAt, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(Key(projectID)),
		Body:          io.NewSectionReader(r, 0, size),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("put archive %s: %w", projectID, err)
	}
	return nil
}

// Delete removes a project's archive. Deleting a missing key succeeds.
func (s *ArchiveStore) Delete(ctx context.Context, projectID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(projectID)),
	})
	if err != nil {
		return fmt.Errorf("delete archive %s: %w", projectID, err)
	}
	return nil
}
