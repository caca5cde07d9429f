package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ikh/dicom-tree/internal/config"
)

type fakeS3 struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3(t *testing.T) {
	tests := []struct {
		path        string
		bucket, key string
		ok          bool
	}{
		{"s3://bucket/trees/run.json", "bucket", "trees/run.json", true},
		{"s3://bucket/", "", "", false},
		{"s3://bucket", "", "", false},
		{"/tmp/out.json", "", "", false},
		{"out.json", "", "", false},
	}
	for _, tt := range tests {
		bucket, key, ok := parseS3(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.bucket, bucket, tt.path)
		assert.Equal(t, tt.key, key, tt.path)
	}
}

func TestFileSinkOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer"), 0o644))

	s, err := Open(context.Background(), path, config.S3Config{})
	require.NoError(t, err)
	assert.Equal(t, path, s.String())
	require.NoError(t, s.Write(context.Background(), []byte("{}")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestFileSinkUnwritable(t *testing.T) {
	s := FileSink{Path: filepath.Join(t.TempDir(), "missing", "tree.json")}
	assert.Error(t, s.Write(context.Background(), []byte("{}")))
}

func TestS3Sink(t *testing.T) {
	fake := &fakeS3{}
	s := NewS3Sink(fake, "archive", "trees/run.json")
	require.NoError(t, s.Write(context.Background(), []byte(`{"Directory":"/in"}`)))

	assert.Equal(t, "archive", fake.bucket)
	assert.Equal(t, "trees/run.json", fake.key)
	assert.Equal(t, "application/json", fake.contentType)
	assert.Equal(t, `{"Directory":"/in"}`, string(fake.body))
	assert.Equal(t, "s3://archive/trees/run.json", s.String())
}

func TestS3SinkError(t *testing.T) {
	boom := errors.New("access denied")
	s := NewS3Sink(&fakeS3{err: boom}, "archive", "series.csv")
	err := s.Write(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s3://archive/series.csv")
}
