package s3keep

import (
	"context"

	"github.com/jaeha-choi/s3keep/internal/objstore"
)

// ObjectStore is the public interface for remote object storage.
// Re-exported from internal/objstore for convenience.
type ObjectStore = objstore.Store

// S3Config configures the S3 backend used by Open.
// Re-exported from internal/objstore.
type S3Config = objstore.S3Config

// ErrObjectNotFound reports a key with no object behind it.
var ErrObjectNotFound = objstore.ErrNotFound

// Open creates a Vault backed by an S3 bucket, using the default AWS
// credential chain plus whatever cfg overrides. It verifies the bucket is
// reachable before returning.
func Open(ctx context.Context, cfg S3Config, secretKey []byte, opts ...Option) (*Vault, error) {
	store, err := objstore.NewS3(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.CheckBucket(ctx); err != nil {
		return nil, err
	}
	return New(store, secretKey, opts...)
}
