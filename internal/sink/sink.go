// Package sink writes the finished tree to local disk or S3.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ikh/dicom-tree/internal/config"
)

type Sink interface {
	Write(ctx context.Context, data []byte) error
	String() string
}

// Open picks an S3 sink for s3://bucket/key paths and a file sink for
// anything else.
func Open(ctx context.Context, path string, cfg config.S3Config) (Sink, error) {
	bucket, key, ok := parseS3(path)
	if !ok {
		return FileSink{Path: path}, nil
	}
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &S3Sink{client: client, Bucket: bucket, Key: key}, nil
}

type FileSink struct {
	Path string
}

// Write replaces any existing file at Path.
func (f FileSink) Write(_ context.Context, data []byte) error {
	return os.WriteFile(f.Path, data, 0o644)
}

func (f FileSink) String() string { return f.Path }

type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Sink struct {
	client PutObjectAPI
	Bucket string
	Key    string
}

func NewS3Sink(client PutObjectAPI, bucket, key string) *S3Sink {
	return &S3Sink{client: client, Bucket: bucket, Key: key}
}

func (s *S3Sink) Write(ctx context.Context, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(s.Key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", s.Bucket, s.Key, err)
	}
	return nil
}

func (s *S3Sink) String() string { return "s3://" + s.Bucket + "/" + s.Key }

func parseS3(path string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func contentType(key string) string {
	if strings.HasSuffix(strings.ToLower(key), ".csv") {
		return "text/csv"
	}
	return "application/json"
}

func newS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Custom endpoints use path-style addressing for MinIO compatibility
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint == "" {
			return
		}
		endpoint := cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}
