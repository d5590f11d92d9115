package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Mirror fetches release artifacts from an object-store mirror. Mirrors are
// used by air-gapped or egress-restricted deployments that sync engine
// releases into their own buckets.
type Mirror interface {
	// Fetch copies the named object to w and returns the byte count.
	Fetch(ctx context.Context, object string, w io.Writer) (int64, error)
}

// OpenMirror opens a mirror from its URL. Supported schemes:
//   - s3://bucket/prefix
//   - gs://bucket/prefix (requires the gcp build tag)
func OpenMirror(ctx context.Context, rawURL string) (Mirror, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mirror URL %q: %w", rawURL, err)
	}

	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("mirror URL %q has no bucket", rawURL)
	}
	prefix := strings.Trim(u.Path, "/")
	if prefix != "" {
		prefix += "/"
	}

	switch u.Scheme {
	case "s3":
		return newS3Mirror(ctx, bucket, prefix)
	case "gs":
		return newGCSMirror(ctx, bucket, prefix)
	default:
		return nil, fmt.Errorf("unsupported mirror scheme %q", u.Scheme)
	}
}
