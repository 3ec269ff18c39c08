package engine

import (
	"context"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/brainydb/brainy/types"
)

// batchConcurrency returns the configured batch chunk size, used both as
// the chunking unit for addMany and the concurrency cap for batchGet
// (spec §5 Backpressure: "concurrency cap matched to the adapter's
// declared max parallelism").
func (e *Engine) batchConcurrency() int {
	if e.cfg.Batch.AddManyChunkSize <= 0 {
		return 100
	}
	return e.cfg.Batch.AddManyChunkSize
}

// BatchGet reads many entities concurrently, capped at the configured
// batch concurrency (spec §6 batchGet(ids, {includeVectors?})).
func (e *Engine) BatchGet(ctx context.Context, ids []uuid.UUID, includeVectors bool) (map[uuid.UUID]*types.Entity, error) {
	if !includeVectors {
		return e.store.GetEntityMetadataBatch(ctx, ids)
	}

	var mu sync.Mutex
	out := make(map[uuid.UUID]*types.Entity, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency())
	for _, id := range ids {
		id := id
		g.Go(func() error {
			ent, err := e.fetchFull(gctx, id)
			if err != nil {
				if isNotFound(err) {
					return nil
				}
				return err
			}
			mu.Lock()
			out[id] = ent
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// AddItem is one entry in an addMany() call.
type AddItem struct {
	Vector   []float32
	Type     types.NounType
	Metadata types.Metadata
}

// RelateItem is one entry in a relateMany() call.
type RelateItem struct {
	From, To uuid.UUID
	Type     types.VerbType
	Spec     RelateSpec
}

// BatchResult reports one item's outcome within a Many call.
type BatchResult struct {
	Index int
	ID    uuid.UUID
	Err   error
}

// BatchReport is addMany/updateMany/deleteMany/relateMany's return value
// (spec §4.10 "returns a {successful, failed} report so partial-failure
// callers can retry").
type BatchReport struct {
	Successful []BatchResult
	Failed     []BatchResult
}

func newBatchReport(results []BatchResult) *BatchReport {
	report := &BatchReport{}
	for _, r := range results {
		if r.Err != nil {
			report.Failed = append(report.Failed, r)
		} else {
			report.Successful = append(report.Successful, r)
		}
	}
	return report
}

// runChunked partitions [0,n) into chunks of size limit and runs fn over
// each chunk's indexes concurrently, one chunk at a time: chunks do not
// overlap, the next one starts only after every item of the current one
// has returned. Items within a chunk run concurrently since each of
// add/update/delete/relate takes and releases the write lock independently;
// a per-item error is captured in that item's BatchResult, not returned,
// so one failure never aborts the rest of the batch.
func runChunked(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (uuid.UUID, error)) []BatchResult {
	results := make([]BatchResult, n)
	chunkSize := limit
	if chunkSize <= 0 {
		chunkSize = n
	}
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				id, err := fn(ctx, i)
				results[i] = BatchResult{Index: i, ID: id, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// AddMany adds every item, reporting which succeeded and which failed
// (spec §6 addMany).
func (e *Engine) AddMany(ctx context.Context, items []AddItem) *BatchReport {
	results := runChunked(ctx, len(items), e.batchConcurrency(), func(ctx context.Context, i int) (uuid.UUID, error) {
		return e.Add(ctx, items[i].Vector, items[i].Type, items[i].Metadata)
	})
	report := newBatchReport(results)
	e.log.WithFields(logrus.Fields{
		"requested":  humanize.Comma(int64(len(items))),
		"successful": humanize.Comma(int64(len(report.Successful))),
		"failed":     humanize.Comma(int64(len(report.Failed))),
	}).Info("addMany completed")
	return report
}

// UpdateItem is one entry in an updateMany() call.
type UpdateItem struct {
	ID   uuid.UUID
	Spec UpdateSpec
}

// UpdateMany applies every update, reporting which succeeded and which
// failed (spec §6 updateMany).
func (e *Engine) UpdateMany(ctx context.Context, items []UpdateItem) *BatchReport {
	results := runChunked(ctx, len(items), e.batchConcurrency(), func(ctx context.Context, i int) (uuid.UUID, error) {
		return items[i].ID, e.Update(ctx, items[i].ID, items[i].Spec)
	})
	return newBatchReport(results)
}

// DeleteMany deletes every id, reporting which succeeded and which failed
// (spec §6 deleteMany).
func (e *Engine) DeleteMany(ctx context.Context, ids []uuid.UUID) *BatchReport {
	results := runChunked(ctx, len(ids), e.batchConcurrency(), func(ctx context.Context, i int) (uuid.UUID, error) {
		return ids[i], e.Delete(ctx, ids[i])
	})
	return newBatchReport(results)
}

// RelateMany creates every relationship, reporting which succeeded and
// which failed (spec §6 relateMany).
func (e *Engine) RelateMany(ctx context.Context, items []RelateItem) *BatchReport {
	results := runChunked(ctx, len(items), e.batchConcurrency(), func(ctx context.Context, i int) (uuid.UUID, error) {
		it := items[i]
		return e.Relate(ctx, it.From, it.To, it.Type, it.Spec)
	})
	return newBatchReport(results)
}
