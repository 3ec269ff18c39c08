package storage

import "context"

// NewR2Adapter builds a Cloudflare R2 adapter. R2 is S3-compatible, so this
// is a thin constructor around S3Adapter with the account-scoped R2
// endpoint and path-style addressing (spec §4.1 "Cloudflare R2").
func NewR2Adapter(ctx context.Context, accountID, accessKeyID, secretAccessKey, bucket string, concurrency int) (*S3Adapter, error) {
	endpoint := "https://" + accountID + ".r2.cloudflarestorage.com"
	return NewS3Adapter(ctx, "auto", endpoint, accessKeyID, secretAccessKey, bucket, concurrency)
}
