package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/brainydb/brainy/errs"
)

// GCSClient is the subset of cloud.google.com/go/storage this adapter
// needs, narrowed for testability.
type GCSClient interface {
	Bucket(name string) *gcs.BucketHandle
}

// liveGCSClient adapts *gcs.Client to GCSClient.
type liveGCSClient struct{ c *gcs.Client }

func (l *liveGCSClient) Bucket(name string) *gcs.BucketHandle { return l.c.Bucket(name) }

// GCSAdapter stores blobs in a Google Cloud Storage bucket.
type GCSAdapter struct {
	client      GCSClient
	bucket      string
	concurrency int
}

// NewGCSAdapter builds a GCS-backed adapter. credentialsJSON may be empty
// to use ambient application-default credentials.
func NewGCSAdapter(ctx context.Context, projectID, credentialsJSON, bucket string, concurrency int) (*GCSAdapter, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errs.Storagef(true, err, "create GCS client")
	}
	if concurrency <= 0 {
		concurrency = 100
	}
	return &GCSAdapter{client: &liveGCSClient{c: client}, bucket: bucket, concurrency: concurrency}, nil
}

func NewGCSAdapterWithClient(client GCSClient, bucket string, concurrency int) *GCSAdapter {
	if concurrency <= 0 {
		concurrency = 100
	}
	return &GCSAdapter{client: client, bucket: bucket, concurrency: concurrency}
}

func (a *GCSAdapter) Read(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errNilAdapterPath
	}
	r, err := a.client.Bucket(a.bucket).Object(path).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, errs.NotFoundf("no object at %q", path)
	}
	if err != nil {
		return nil, errs.Storagef(true, err, "open reader %q", path)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Storagef(true, err, "read %q", path)
	}
	return data, nil
}

func (a *GCSAdapter) Write(ctx context.Context, path string, data []byte) error {
	if path == "" {
		return errNilAdapterPath
	}
	w := a.client.Bucket(a.bucket).Object(path).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return errs.Storagef(true, err, "write %q", path)
	}
	if err := w.Close(); err != nil {
		return errs.Storagef(true, err, "close writer %q", path)
	}
	return nil
}

func (a *GCSAdapter) Delete(ctx context.Context, path string) error {
	err := a.client.Bucket(a.bucket).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return errs.Storagef(true, err, "delete %q", path)
	}
	return nil
}

func (a *GCSAdapter) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := a.client.Bucket(a.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var out []ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.Storagef(true, err, "list %q", prefix)
		}
		out = append(out, ObjectInfo{Path: attrs.Name, Size: attrs.Size})
	}
	return out, nil
}

func (a *GCSAdapter) ReadBatch(ctx context.Context, paths []string) (map[string][]byte, error) {
	return boundedEach(ctx, paths, a.Concurrency(), func(ctx context.Context, path string) ([]byte, bool, error) {
		data, err := a.Read(ctx, path)
		if err == nil {
			return data, true, nil
		}
		if errs.IsTransientStorage(err) {
			return nil, false, err
		}
		return nil, false, nil
	})
}

func (a *GCSAdapter) DeleteBatch(ctx context.Context, paths []string) error {
	_, err := boundedEach(ctx, paths, a.Concurrency(), func(ctx context.Context, path string) ([]byte, bool, error) {
		return nil, false, a.Delete(ctx, path)
	})
	return err
}

func (a *GCSAdapter) Concurrency() int { return a.concurrency }

// SetLifecyclePolicy is not supported by this adapter: GCS lifecycle rules
// are bucket-wide, so it configures nothing and always returns a capacity
// error.
func (a *GCSAdapter) SetLifecyclePolicy(_ context.Context, _ string, _ int, _ string) error {
	return errs.Capacityf(nil, "GCS lifecycle rules are bucket-wide; configure via the bucket console or Terraform, not per-prefix")
}

// ChangeTier updates a single object's storage class in place.
func (a *GCSAdapter) ChangeTier(ctx context.Context, path string, tier string) error {
	_, err := a.client.Bucket(a.bucket).Object(path).Update(ctx, gcs.ObjectAttrsToUpdate{StorageClass: tier})
	if err != nil {
		return errs.Storagef(true, err, "change tier for %q", path)
	}
	return nil
}
