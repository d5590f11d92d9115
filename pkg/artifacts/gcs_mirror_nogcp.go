//go:build !gcp

package artifacts

import (
	"context"
	"fmt"
)

func newGCSMirror(ctx context.Context, bucket, prefix string) (Mirror, error) {
	return nil, fmt.Errorf("GCS mirror is not enabled in this build (use -tags gcp)")
}
