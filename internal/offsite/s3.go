// Package offsite replicates backup artifacts to an S3-compatible bucket.
// Supports AWS S3, MinIO, Wasabi, and other S3-compatible services.
package offsite

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sproutbook/internal/backup"
	"sproutbook/internal/config"
)

// S3Uploader copies finished artifacts into a bucket under a key prefix.
type S3Uploader struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Uploader builds an uploader from the offsite configuration. The
// endpoint is optional; when set, path-style addressing is used (MinIO and
// friends require it).
func NewS3Uploader(cfg config.OffsiteConfig) (*S3Uploader, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("offsite s3: bucket is required")
	}
	if cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "" {
		return nil, fmt.Errorf("offsite s3: credentials are required")
	}

	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("offsite s3: failed to load config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.S3Endpoint != "" {
		endpoint := cfg.S3Endpoint
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
		}
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String("https://" + endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)
	return &S3Uploader{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

// Upload copies one artifact into the bucket.
func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader, size int64) error {
	key := name
	if u.prefix != "" {
		key = path.Join(u.prefix, name)
	}

	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("offsite s3: uploading %s: %w", key, err)
	}
	return nil
}

// TestConnection verifies bucket access by heading the bucket.
func (u *S3Uploader) TestConnection(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("offsite s3: failed to access bucket: %w", err)
	}
	return nil
}

// NewUploaderFromConfig creates an uploader based on the offsite type.
// Type "none" (or empty) returns nil; the backup service treats a nil
// uploader as no replication.
func NewUploaderFromConfig(cfg config.OffsiteConfig) (backup.Uploader, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "s3":
		return NewS3Uploader(cfg)
	default:
		return nil, fmt.Errorf("unknown offsite type: %q", cfg.Type)
	}
}
