package branch

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/errs"
	"github.com/brainydb/brainy/types"
)

var (
	branchBucket = []byte("branches")
	commitBucket = []byte("commits")
)

// localStore is the bbolt-backed cache of branch refs and the commit log,
// local to this process so checkout/commit don't round-trip to the
// canonical storage adapter on every call (spec §4.9, §6 local caching,
// grounded the same way as the HNSW index's bolt snapshot store).
type localStore struct {
	db *bbolt.DB
}

func openLocalStore(path string) (*localStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errs.Storagef(true, err, "open branch bolt store at %q", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(branchBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(commitBucket)
		return err
	})
	if err != nil {
		return nil, errs.Storagef(true, err, "init branch bolt buckets")
	}
	return &localStore{db: db}, nil
}

func (s *localStore) close() error { return s.db.Close() }

func (s *localStore) putBranch(b *types.Branch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return errs.Integrityf(err, "marshal branch %q", b.Name)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(branchBucket).Put([]byte(b.Name), data)
	})
}

func (s *localStore) getBranch(name string) (*types.Branch, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(branchBucket).Get([]byte(name))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Storagef(true, err, "read branch %q", name)
	}
	if data == nil {
		return nil, errs.NotFoundf("branch %q not found", name)
	}
	var b types.Branch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errs.Integrityf(err, "unmarshal branch %q", name)
	}
	return &b, nil
}

func (s *localStore) listBranches() ([]*types.Branch, error) {
	var out []*types.Branch
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(branchBucket).ForEach(func(_, v []byte) error {
			var b types.Branch
			if err := json.Unmarshal(v, &b); err != nil {
				return err
			}
			out = append(out, &b)
			return nil
		})
	})
	if err != nil {
		return nil, errs.Storagef(true, err, "list branches")
	}
	return out, nil
}

func (s *localStore) putCommit(c *types.Commit) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errs.Integrityf(err, "marshal commit %s", c.ID)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(commitBucket).Put([]byte(c.ID.String()), data)
	})
}

func (s *localStore) getCommit(id uuid.UUID) (*types.Commit, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(commitBucket).Get([]byte(id.String()))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Storagef(true, err, "read commit %s", id)
	}
	if data == nil {
		return nil, errs.NotFoundf("commit %s not found", id)
	}
	var c types.Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errs.Integrityf(err, "unmarshal commit %s", id)
	}
	return &c, nil
}
