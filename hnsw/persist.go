package hnsw

import (
	"time"

	"go.etcd.io/bbolt"

	"github.com/brainydb/brainy/errs"
)

var snapshotBucket = []byte("hnsw_snapshots")

// BoltStore persists index snapshots in a local bbolt file, keyed by
// branch name, so a restart can reload the graph without replaying every
// insert from the canonical storage adapter (spec §4.4, §6 local caching).
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (creating if absent) a bbolt database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errs.Storagef(true, err, "open HNSW bolt store at %q", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		return nil, errs.Storagef(true, err, "init HNSW bolt bucket")
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Close() error { return b.db.Close() }

// Save persists idx's snapshot under branch.
func (b *BoltStore) Save(branch string, idx *Index) error {
	data, err := idx.Snapshot()
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put([]byte(branch), data)
	})
}

// Load reads branch's snapshot back into a new Index. Returns
// errs.NotFound-kind if no snapshot has been saved for branch yet.
func (b *BoltStore) Load(branch string, metric Metric) (*Index, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(snapshotBucket).Get([]byte(branch))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Storagef(true, err, "read HNSW snapshot for branch %q", branch)
	}
	if data == nil {
		return nil, errs.NotFoundf("no HNSW snapshot for branch %q", branch)
	}
	return LoadSnapshot(data, metric)
}
