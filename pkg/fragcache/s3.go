package fragcache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// metaExpiresAt is the object metadata key holding the Unix expiry time.
const metaExpiresAt = "expires-at"

// S3API is the subset of *s3.Client used by S3Cache.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Cache stores fragments as objects, which lets several render hosts share
// one cache. Expiry is recorded in object metadata and checked on read; pair
// it with a bucket lifecycle rule to reclaim space.
//
// Example usage:
//
//	client := s3.New(s3.Options{Region: "eu-west-1"})
//	cache := fragcache.NewS3Cache(client, "site-fragments", "prod/")
type S3Cache struct {
	client     S3API
	bucket     string
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewS3Cache creates an S3-backed cache writing under prefix in bucket.
func NewS3Cache(client S3API, bucket, prefix string) *S3Cache {
	return &S3Cache{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		defaultTTL: 15 * time.Minute,
		now:        time.Now,
	}
}

// WithDefaultTTL sets the lifetime used when Set is given ttl <= 0.
func (c *S3Cache) WithDefaultTTL(d time.Duration) *S3Cache {
	c.defaultTTL = d
	return c
}

// S3Options describes how to reach a bucket without the shared AWS config
// loader. Empty credentials mean anonymous access.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
	AccessKey string
	SecretKey string
}

// NewS3CacheFromOptions builds the client and the cache in one step.
func NewS3CacheFromOptions(o S3Options) *S3Cache {
	opts := s3.Options{
		Region:       o.Region,
		UsePathStyle: o.PathStyle,
	}
	if o.Endpoint != "" {
		opts.BaseEndpoint = aws.String(o.Endpoint)
	}
	if o.AccessKey != "" {
		creds := aws.Credentials{AccessKeyID: o.AccessKey, SecretAccessKey: o.SecretKey, Source: "docrender"}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return NewS3Cache(s3.New(opts), o.Bucket, o.Prefix)
}

// Get implements Cache.
func (c *S3Cache) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.prefix + key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	defer out.Body.Close()

	if raw, ok := out.Metadata[metaExpiresAt]; ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && c.now().After(time.Unix(unix, 0)) {
			return "", false, nil
		}
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Set implements Cache.
func (c *S3Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.prefix + key),
		Body:        bytes.NewReader([]byte(value)),
		ContentType: aws.String("text/html; charset=utf-8"),
	}
	if ttl > 0 {
		input.Metadata = map[string]string{
			metaExpiresAt: strconv.FormatInt(c.now().Add(ttl).Unix(), 10),
		}
	}

	_, err := c.client.PutObject(ctx, input)
	return err
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
