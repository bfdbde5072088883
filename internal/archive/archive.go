// Package archive keeps a copy of every uploaded spreadsheet in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
)

// Archive stores uploaded files.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// putObjectAPI is the slice of the S3 client the archive uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive writes objects to one bucket.
type S3Archive struct {
	client putObjectAPI
	bucket string
}

// NewS3Archive loads AWS settings for region. A non-empty endpoint
// (LocalStack, MinIO) switches to path-style addressing with static test credentials.
func NewS3Archive(ctx context.Context, bucket, region, endpoint string) (*S3Archive, error) {
	opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(region)}
	if endpoint != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", "")))
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Archive{client: client, bucket: bucket}, nil
}

// Put uploads body under key.
func (a *S3Archive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return nil
}

// NoopArchive discards files. It is used when no bucket is configured.
type NoopArchive struct{}

func (NoopArchive) Put(context.Context, string, []byte, string) error { return nil }

// Key builds the object key of an upload: imports/<yyyy>/<mm>/<job>-<file>.
func Key(jobID, fileName string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("imports/%s/%s-%s", at.UTC().Format("2006/01"), jobID, name)
}

func init() {
	coreServer.RegisterService(constants.ComponentKey.ImportArchive, func(app *coreServer.HTTPApp) (interface{}, error) {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return nil, err
		}
		if cfg.ImportArchiveBucket == "" {
			return NoopArchive{}, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return NewS3Archive(ctx, cfg.ImportArchiveBucket, cfg.S3Region, cfg.S3Endpoint)
	})
}
