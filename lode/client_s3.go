package lode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config locates the dataset in an S3 (or S3-compatible) bucket.
type S3Config struct {
	Bucket string
	Prefix string // key prefix inside the bucket, no trailing slash
	Region string // empty uses the SDK default chain
	// Endpoint overrides the AWS endpoint for MinIO, R2 and similar.
	Endpoint     string
	UsePathStyle bool
}

// Validate checks the bucket name and, when set, the endpoint URL.
func (c *S3Config) Validate() error {
	switch {
	case c.Bucket == "":
		return errors.New("S3 bucket is required")
	case strings.Contains(c.Bucket, "/"):
		return fmt.Errorf("S3 bucket %q must not contain '/'", c.Bucket)
	}
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("S3 endpoint %q must be an http(s) URL", c.Endpoint)
		}
	}
	return nil
}

// URI renders the location as s3://bucket[/prefix].
func (c S3Config) URI() string {
	if c.Prefix == "" {
		return "s3://" + c.Bucket
	}
	return "s3://" + c.Bucket + "/" + c.Prefix
}

// ParseS3Path splits "bucket/prefix" (optionally s3://-prefixed).
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(strings.TrimPrefix(path, "s3://"), "/")
	return bucket, strings.TrimSuffix(prefix, "/")
}

func (c S3Config) loadOptions() []func(*config.LoadOptions) error {
	if c.Region == "" {
		return nil
	}
	return []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
}

func (c S3Config) clientOptions() func(*s3.Options) {
	return func(o *s3.Options) {
		if c.Endpoint != "" {
			endpoint := c.Endpoint
			o.BaseEndpoint = &endpoint
		}
		o.UsePathStyle = c.UsePathStyle
	}
}

// NewS3Factory builds a lode store factory over S3. Credentials come from
// the SDK default chain (env, shared config, instance role).
func NewS3Factory(ctx context.Context, s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, s3cfg.loadOptions()...)
	if err != nil {
		return nil, WrapInitError(fmt.Errorf("failed to load AWS config: %w", err), s3cfg.URI())
	}
	client := s3.NewFromConfig(awsConfig, s3cfg.clientOptions())

	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{Bucket: s3cfg.Bucket, Prefix: s3cfg.Prefix})
	}, nil
}

// NewS3Client creates a client writing to S3.
func NewS3Client(ctx context.Context, cfg Config, s3cfg S3Config) (*LodeClient, error) {
	factory, err := NewS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithFactory(cfg, factory)
}
