package r2

import (
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

	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/logger"
)

const (
	pingTimeout = 5 * time.Second
	// R2 ignores regions but the SDK requires one.
	r2Region = "auto"
)

var (
	errBucketRequired      = errors.New("r2 bucket name is required")
	errCredentialsRequired = errors.New("r2 access key credentials are required")
	errNotInitialized      = errors.New("r2 client not initialized")
	errObjectKeyRequired   = errors.New("object key is required")
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Client wraps the S3 API pointed at a Cloudflare R2 bucket.
type Client struct {
	s3            *s3.Client
	presign       *s3.PresignClient
	defaultBucket string
	uploadExpiry  time.Duration
}

// PresignedUpload carries what a caller needs to PUT an object directly.
type PresignedUpload struct {
	URL       string
	Method    string
	ExpiresAt time.Time
}

// NewClient builds an S3 client against the R2 endpoint and verifies bucket access.
func NewClient(ctx context.Context, cfg config.R2Config, logg *logger.Logger) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errBucketRequired
	}
	if strings.TrimSpace(cfg.AccessKeyID) == "" || strings.TrimSpace(cfg.SecretAccessKey) == "" {
		return nil, errCredentialsRequired
	}

	endpoint := cfg.EndpointURL()
	if endpoint == "" {
		return nil, errors.New("r2 endpoint could not be resolved")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(r2Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading r2 aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	client := &Client{
		s3:            s3Client,
		presign:       s3.NewPresignClient(s3Client),
		defaultBucket: bucket,
		uploadExpiry:  cfg.UploadURLExpiry,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("r2 health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "r2 client initialized")
	}

	return client, nil
}

// DefaultBucket returns the configured bucket name.
func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

// Ping verifies the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.s3 == nil {
		return errNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.defaultBucket),
	})
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", c.defaultBucket, err)
	}
	return nil
}

// PresignUpload returns a time-limited PUT URL for direct client uploads.
func (c *Client) PresignUpload(ctx context.Context, key, contentType string) (*PresignedUpload, error) {
	if c == nil || c.presign == nil {
		return nil, errNotInitialized
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errObjectKeyRequired
	}

	expiry := c.uploadExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.defaultBucket),
		Key:    aws.String(key),
	}
	if ct := strings.TrimSpace(contentType); ct != "" {
		input.ContentType = aws.String(ct)
	}

	req, err := c.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, fmt.Errorf("presigning upload for %q: %w", key, err)
	}

	return &PresignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

// PresignDownload returns a time-limited GET URL for the object.
func (c *Client) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if c == nil || c.presign == nil {
		return "", errNotInitialized
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errObjectKeyRequired
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.defaultBucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presigning download for %q: %w", key, err)
	}
	return req.URL, nil
}

// GetObject streams the object body; callers must close the reader.
func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if c == nil || c.s3 == nil {
		return nil, "", errNotInitialized
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, "", errObjectKeyRequired
	}

	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.defaultBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("fetching object %q: %w", key, err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

// HeadObject reports whether the object exists and its size.
func (c *Client) HeadObject(ctx context.Context, key string) (int64, error) {
	if c == nil || c.s3 == nil {
		return 0, errNotInitialized
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, errObjectKeyRequired
	}

	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.defaultBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("checking object %q: %w", key, err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

// DeleteObject removes the object from the bucket.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	if c == nil || c.s3 == nil {
		return errNotInitialized
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errObjectKeyRequired
	}

	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.defaultBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %q: %w", key, err)
	}
	return nil
}
