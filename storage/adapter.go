// Package storage defines the Adapter abstraction that every backing store
// (in-memory, local filesystem, S3, GCS, Azure Blob, Cloudflare R2)
// implements, plus the concrete adapters themselves. All adapters present
// the same path semantics; callers never see adapter-specific keys (spec
// §4.1 "Storage Adapter").
package storage

import (
	"context"

	"github.com/brainydb/brainy/errs"
)

// ObjectInfo describes a stored blob without fetching its body.
type ObjectInfo struct {
	Path string
	Size int64
}

// Adapter is the minimal contract the rest of the engine needs from a
// backing store: content-addressed blob read/write/delete/list, with
// batch variants for bulk entity operations (spec §5 Backpressure).
type Adapter interface {
	// Read fetches the blob at path. Returns an errs.NotFound-kind error
	// (via errors.Is(err, errs.NotFound)) if absent.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write stores data at path, replacing any existing blob.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes the blob at path. A missing blob is not an error.
	Delete(ctx context.Context, path string) error

	// List returns every object under prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// ReadBatch fetches many paths concurrently, bounded by the adapter's
	// declared concurrency cap. The returned map omits paths that do not
	// exist; every path is still attempted after a non-NotFound error, and
	// the first such error is returned once the batch has finished.
	ReadBatch(ctx context.Context, paths []string) (map[string][]byte, error)

	// DeleteBatch removes many paths concurrently, bounded the same way.
	DeleteBatch(ctx context.Context, paths []string) error

	// Concurrency reports the adapter's declared max in-flight request
	// count for batch operations (spec §6: S3/R2=150, GCS/Azure=100).
	Concurrency() int
}

// LifecycleAdapter is implemented by adapters that support tiered storage
// policies (cold-tier transition for rarely-read shards). Optional: callers
// type-assert for it rather than requiring it on every Adapter.
type LifecycleAdapter interface {
	// SetLifecyclePolicy configures an age-based transition rule for
	// objects under prefix.
	SetLifecyclePolicy(ctx context.Context, prefix string, transitionAfterDays int, tier string) error

	// ChangeTier moves a single object to tier immediately.
	ChangeTier(ctx context.Context, path string, tier string) error
}

// boundedEach runs fn over paths with at most concurrency in flight,
// collecting results into the returned map. Shared by every adapter's
// ReadBatch so the bounded-parallelism policy lives in one place.
func boundedEach(ctx context.Context, paths []string, concurrency int, fn func(ctx context.Context, path string) ([]byte, bool, error)) (map[string][]byte, error) {
	if concurrency <= 0 {
		concurrency = len(paths)
	}
	if concurrency == 0 {
		return map[string][]byte{}, nil
	}

	type result struct {
		path string
		data []byte
		ok   bool
		err  error
	}

	sem := make(chan struct{}, concurrency)
	results := make(chan result, len(paths))

	for _, p := range paths {
		p := p
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			data, ok, err := fn(ctx, p)
			results <- result{path: p, data: data, ok: ok, err: err}
		}()
	}

	out := make(map[string][]byte, len(paths))
	var firstErr error
	for range paths {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if r.ok {
			out[r.path] = r.data
		}
	}
	if firstErr != nil {
		return out, firstErr
	}
	return out, nil
}

var errNilAdapterPath = errs.Validationf("path", "path must not be empty")
