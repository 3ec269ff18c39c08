// Package branch implements the copy-on-write branch manager: fork,
// checkout, commit, merge, and asOf over an append-only commit DAG (spec
// §4.9).
package branch

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/errs"
	"github.com/brainydb/brainy/shard"
	"github.com/brainydb/brainy/storage"
	"github.com/brainydb/brainy/types"
)

// MainBranch is the database's root branch name. It cannot be deleted
// (spec §4.9 invariant).
const MainBranch = "main"

// Manager owns the active branch pointer and the commit DAG, and vends a
// branch-scoped storage.Adapter for every read/write the rest of the
// engine performs.
type Manager struct {
	mu    sync.RWMutex
	local *localStore
	root  storage.Adapter
	active string
}

// Open bootstraps (or reopens) a branch manager. root is the canonical
// content-addressed storage adapter; localPath is the bbolt file backing
// the branch-ref/commit-log cache. Creates the main branch if this is a
// fresh database.
func Open(ctx context.Context, root storage.Adapter, localPath string) (*Manager, error) {
	local, err := openLocalStore(localPath)
	if err != nil {
		return nil, err
	}
	mgr := &Manager{local: local, root: root, active: MainBranch}

	if _, err := local.getBranch(MainBranch); err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		rootCommit := &types.Commit{ID: uuid.New(), CreatedAt: time.Now(), Message: "root"}
		main := &types.Branch{
			ID:           uuid.New(),
			Name:         MainBranch,
			HeadCommitID: rootCommit.ID,
			CreatedAt:    time.Now(),
		}
		rootCommit.BranchID = main.ID
		if err := local.putCommit(rootCommit); err != nil {
			return nil, err
		}
		if err := local.putBranch(main); err != nil {
			return nil, err
		}
		if err := mgr.publishBranchRef(ctx, main); err != nil {
			return nil, err
		}
		if err := mgr.publishCommit(ctx, rootCommit); err != nil {
			return nil, err
		}
	}
	return mgr, nil
}

func (m *Manager) Close() error { return m.local.close() }

// ActiveName returns the currently checked-out branch's name.
func (m *Manager) ActiveName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Adapter returns a storage.Adapter scoped to the active branch, resolving
// reads through the parent chain per spec's path-resolution algorithm.
func (m *Manager) Adapter() storage.Adapter { return newAdapter(m, m.root) }

// Fork creates a new branch whose parent is the current branch at its
// current head commit. O(1): metadata only, no data copy (spec §4.9).
func (m *Manager) Fork(ctx context.Context, name string) (*types.Branch, error) {
	if err := types.ValidateNewBranch(name); err != nil {
		return nil, err
	}
	if _, err := m.local.getBranch(name); err == nil {
		return nil, errs.Conflictf("branch %q already exists", name)
	} else if !isNotFound(err) {
		return nil, err
	}

	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()

	parent, err := m.local.getBranch(active)
	if err != nil {
		return nil, err
	}
	// Cycle guard: a fresh branch name can never already appear as an
	// ancestor of parent, but fork is the DAG's only mutation point so the
	// invariant is checked here rather than trusted implicitly.
	if err := m.assertNoCycle(name, parent); err != nil {
		return nil, err
	}

	parentID := parent.ID
	headID := parent.HeadCommitID
	b := &types.Branch{
		ID:             uuid.New(),
		Name:           name,
		ParentBranchID: &parentID,
		ForkCommitID:   &headID,
		HeadCommitID:   headID,
		CreatedAt:      time.Now(),
	}
	if err := m.local.putBranch(b); err != nil {
		return nil, err
	}
	return b, m.publishBranchRef(ctx, b)
}

func (m *Manager) assertNoCycle(candidateName string, start *types.Branch) error {
	cur := start
	for {
		if cur.Name == candidateName {
			return errs.Conflictf("forking %q would create a cycle in the branch DAG", candidateName)
		}
		if cur.ParentBranchID == nil {
			return nil
		}
		parent, err := m.branchByID(*cur.ParentBranchID)
		if err != nil {
			return nil
		}
		cur = parent
	}
}

func (m *Manager) branchByID(id uuid.UUID) (*types.Branch, error) {
	all, err := m.local.listBranches()
	if err != nil {
		return nil, err
	}
	for _, b := range all {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, errs.NotFoundf("branch id %s not found", id)
}

// ListBranches returns every known branch, in no particular order.
func (m *Manager) ListBranches() ([]*types.Branch, error) {
	return m.local.listBranches()
}

// Checkout switches the active branch.
func (m *Manager) Checkout(name string) error {
	if _, err := m.local.getBranch(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = name
	return nil
}

// Commit seals entityIDs/relationshipIDs/tombstonedIDs as a new immutable
// commit node on the active branch and advances its head (spec §4.9).
func (m *Manager) Commit(ctx context.Context, msg string, entityIDs, relationshipIDs, tombstonedIDs []uuid.UUID) (*types.Commit, error) {
	b, err := m.local.getBranch(m.ActiveName())
	if err != nil {
		return nil, err
	}
	parentID := b.HeadCommitID
	c := &types.Commit{
		ID:              uuid.New(),
		BranchID:        b.ID,
		ParentCommitID:  &parentID,
		CreatedAt:       time.Now(),
		Message:         msg,
		EntityIDs:       entityIDs,
		RelationshipIDs: relationshipIDs,
		TombstonedIDs:   tombstonedIDs,
	}
	if err := m.local.putCommit(c); err != nil {
		return nil, err
	}
	b.HeadCommitID = c.ID
	if err := m.local.putBranch(b); err != nil {
		return nil, err
	}
	if err := m.publishCommit(ctx, c); err != nil {
		return nil, err
	}
	return c, m.publishBranchRef(ctx, b)
}

// Delete removes a branch ref. main can never be deleted, nor can the
// currently active branch.
func (m *Manager) Delete(name string) error {
	if name == MainBranch {
		return errs.Validationf("name", "the main branch cannot be deleted")
	}
	if name == m.ActiveName() {
		return errs.Conflictf("branch %q is checked out and cannot be deleted", name)
	}
	return m.local.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(branchBucket).Delete([]byte(name))
	})
}

// chain returns the branch name ancestry from the active branch up to
// (and including) the root, used by Adapter's read fallback.
func (m *Manager) chain() []string {
	var names []string
	cur, err := m.local.getBranch(m.ActiveName())
	for err == nil {
		names = append(names, cur.Name)
		if cur.ParentBranchID == nil {
			break
		}
		cur, err = m.branchByID(*cur.ParentBranchID)
	}
	return names
}

func (m *Manager) publishBranchRef(ctx context.Context, b *types.Branch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return errs.Integrityf(err, "marshal branch ref %q", b.Name)
	}
	return m.root.Write(ctx, shard.BranchRefPath(b.Name), data)
}

func (m *Manager) publishCommit(ctx context.Context, c *types.Commit) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errs.Integrityf(err, "marshal commit %s", c.ID)
	}
	return m.root.Write(ctx, shard.CommitPath(c.ID), data)
}

func isNotFound(err error) bool {
	return errors.Is(err, errs.NotFound)
}

// MergeResult reports what Merge decided: Applied lists the ids changed on
// src that win over dst, and, under manual strategy, Conflicts lists the
// ids left for the caller to resolve. Neither list has been written to dst.
type MergeResult struct {
	Applied   []uuid.UUID
	Conflicts []uuid.UUID
}

// Merge computes the set of ids touched in src since its fork point and
// decides, per strategy, which of them win over dst. Conflicting ids
// (touched on both sides since the fork point) go to Applied under
// last-write-wins when src's latest touch is not older than dst's (and to
// neither list otherwise), and to Conflicts under manual. Merge copies no
// entity or relationship data into dst and records no commit; it only
// returns the decision.
func (m *Manager) Merge(ctx context.Context, src, dst string, strategy types.MergeStrategy) (*MergeResult, error) {
	srcBranch, err := m.local.getBranch(src)
	if err != nil {
		return nil, err
	}
	dstBranch, err := m.local.getBranch(dst)
	if err != nil {
		return nil, err
	}
	if srcBranch.ForkCommitID == nil {
		return nil, errs.Validationf("src", "branch %q has no fork point to merge from", src)
	}
	ancestor := *srcBranch.ForkCommitID

	srcTouched, srcByID, err := m.commitsSince(srcBranch.HeadCommitID, ancestor)
	if err != nil {
		return nil, err
	}
	dstTouched, dstByID, err := m.commitsSince(dstBranch.HeadCommitID, ancestor)
	if err != nil {
		return nil, err
	}

	result := &MergeResult{}
	for id := range srcTouched {
		if !dstTouched[id] {
			result.Applied = append(result.Applied, id)
			continue
		}
		if strategy == types.MergeManual {
			result.Conflicts = append(result.Conflicts, id)
			continue
		}
		// last-write-wins: compare the commit that most recently touched id
		// on each side.
		srcWhen := srcByID[id]
		dstWhen := dstByID[id]
		if srcWhen.After(dstWhen) || srcWhen.Equal(dstWhen) {
			result.Applied = append(result.Applied, id)
		}
	}
	sort.Slice(result.Applied, func(i, j int) bool { return result.Applied[i].String() < result.Applied[j].String() })
	sort.Slice(result.Conflicts, func(i, j int) bool { return result.Conflicts[i].String() < result.Conflicts[j].String() })
	return result, nil
}

// commitsSince walks the commit chain from head back to (excluding)
// ancestor, returning every touched id and the CreatedAt of the most
// recent commit that touched it.
func (m *Manager) commitsSince(head, ancestor uuid.UUID) (map[uuid.UUID]bool, map[uuid.UUID]time.Time, error) {
	touched := make(map[uuid.UUID]bool)
	lastTouch := make(map[uuid.UUID]time.Time)

	cur := head
	for cur != ancestor {
		c, err := m.local.getCommit(cur)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range allTouched(c) {
			touched[id] = true
			if t, ok := lastTouch[id]; !ok || c.CreatedAt.After(t) {
				lastTouch[id] = c.CreatedAt
			}
		}
		if c.ParentCommitID == nil {
			break
		}
		cur = *c.ParentCommitID
	}
	return touched, lastTouch, nil
}

func allTouched(c *types.Commit) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(c.EntityIDs)+len(c.RelationshipIDs)+len(c.TombstonedIDs))
	out = append(out, c.EntityIDs...)
	out = append(out, c.RelationshipIDs...)
	out = append(out, c.TombstonedIDs...)
	return out
}

// ReadHandle is returned by AsOf. It records the commit id and the name of
// the branch that commit belongs to. Reads through its Adapter see that
// branch's current contents, not the contents as of the commit, and
// writes through it are not refused.
type ReadHandle struct {
	mgr      *Manager
	branch   string
	commitID uuid.UUID
}

// Adapter returns a storage.Adapter scoped to the handle's branch chain.
// It resolves keys against the branch as it is now and accepts writes.
func (h *ReadHandle) Adapter() storage.Adapter {
	return newAdapter(&Manager{local: h.mgr.local, root: h.mgr.root, active: h.branch}, h.mgr.root)
}

// AsOf looks up commitID and returns a handle on the branch that commit
// belongs to, without mutating the manager's active branch. The handle
// does not restore the state as of commitID (see ReadHandle).
func (m *Manager) AsOf(commitID uuid.UUID) (*ReadHandle, error) {
	c, err := m.local.getCommit(commitID)
	if err != nil {
		return nil, err
	}
	b, err := m.branchByID(c.BranchID)
	if err != nil {
		return nil, err
	}
	return &ReadHandle{mgr: m, branch: b.Name, commitID: commitID}, nil
}
