package branch

import (
	"bytes"
	"context"

	"github.com/brainydb/brainy/errs"
	"github.com/brainydb/brainy/storage"
)

// tombstone marks a key as deleted within a branch, shadowing whatever a
// parent branch holds at the same key (spec §4.9 tombstone semantics).
var tombstone = []byte("\x00brainy-tombstone")

func branchPath(branchName, key string) string {
	return "branches/" + branchName + "/" + key
}

// adapter is a storage.Adapter scoped to a branch chain: writes always
// land under the active branch; reads walk the chain from active to root,
// stopping at the first hit (or the first tombstone) per spec's path
// resolution algorithm.
type adapter struct {
	mgr  *Manager
	root storage.Adapter
}

func newAdapter(mgr *Manager, root storage.Adapter) *adapter {
	return &adapter{mgr: mgr, root: root}
}

func (a *adapter) Write(ctx context.Context, key string, data []byte) error {
	return a.root.Write(ctx, branchPath(a.mgr.ActiveName(), key), data)
}

// Delete records a tombstone at the active branch's path rather than
// removing the underlying blob, so parent branches remain unaffected
// (spec §4.9 "Write path... never mutates parent storage").
func (a *adapter) Delete(ctx context.Context, key string) error {
	return a.root.Write(ctx, branchPath(a.mgr.ActiveName(), key), tombstone)
}

// Read walks the branch chain from active to root, returning the first
// non-tombstoned hit, or NotFound if every branch in the chain misses (or
// the nearest hit is a tombstone).
func (a *adapter) Read(ctx context.Context, key string) ([]byte, error) {
	for _, name := range a.mgr.chain() {
		data, err := a.root.Read(ctx, branchPath(name, key))
		if err == nil {
			if bytes.Equal(data, tombstone) {
				return nil, errs.NotFoundf("key %q is tombstoned", key)
			}
			return data, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, errs.NotFoundf("key %q not found in branch %q or any ancestor", key, a.mgr.ActiveName())
}

// List returns every non-tombstoned object under prefix across the branch
// chain, with a child branch's object shadowing a parent's object at the
// same relative key.
func (a *adapter) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	seen := make(map[string]storage.ObjectInfo)
	tombstoned := make(map[string]struct{})

	for _, name := range a.mgr.chain() {
		branchPrefix := branchPath(name, prefix)
		infos, err := a.root.List(ctx, branchPrefix)
		if err != nil {
			return nil, err
		}
		skip := len(branchPrefix) - len(prefix)
		for _, info := range infos {
			rel := info.Path[skip:]
			if _, already := seen[rel]; already {
				continue
			}
			if _, dead := tombstoned[rel]; dead {
				continue
			}
			data, err := a.root.Read(ctx, info.Path)
			if err == nil && bytes.Equal(data, tombstone) {
				tombstoned[rel] = struct{}{}
				continue
			}
			seen[rel] = storage.ObjectInfo{Path: rel, Size: info.Size}
		}
	}

	out := make([]storage.ObjectInfo, 0, len(seen))
	for _, info := range seen {
		out = append(out, info)
	}
	return out, nil
}

func (a *adapter) ReadBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		data, err := a.Read(ctx, k)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		out[k] = data
	}
	return out, nil
}

func (a *adapter) DeleteBatch(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := a.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (a *adapter) Concurrency() int { return a.root.Concurrency() }
