package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Mirror fetches artifacts from an S3 bucket.
// Region and credentials come from the standard AWS config chain;
// ZEPHFLOW_S3_ENDPOINT selects a custom endpoint (MinIO, LocalStack).
type s3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

func newS3Mirror(ctx context.Context, bucket, prefix string) (Mirror, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if ep := os.Getenv("ZEPHFLOW_S3_ENDPOINT"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	}

	return &s3Mirror{
		client: s3.NewFromConfig(awsCfg, clientOpts),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (m *s3Mirror) Fetch(ctx context.Context, object string, w io.Writer) (int64, error) {
	key := m.prefix + object

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("s3 get failed for %s: %w", key, err)
	}
	defer func() { _ = result.Body.Close() }()

	n, err := io.Copy(w, result.Body)
	if err != nil {
		return n, fmt.Errorf("s3 read failed for %s: %w", key, err)
	}
	return n, nil
}
