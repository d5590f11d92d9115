//go:build gcp

package artifacts

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// gcsMirror fetches artifacts from a Google Cloud Storage bucket.
type gcsMirror struct {
	client *storage.Client
	bucket string
	prefix string
}

func newGCSMirror(ctx context.Context, bucket, prefix string) (Mirror, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &gcsMirror{client: client, bucket: bucket, prefix: prefix}, nil
}

func (m *gcsMirror) Fetch(ctx context.Context, object string, w io.Writer) (int64, error) {
	objectPath := m.prefix + object

	reader, err := m.client.Bucket(m.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("gcs get failed for %s: %w", objectPath, err)
	}
	defer func() { _ = reader.Close() }()

	n, err := io.Copy(w, reader)
	if err != nil {
		return n, fmt.Errorf("gcs read failed for %s: %w", objectPath, err)
	}
	return n, nil
}
