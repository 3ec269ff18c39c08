package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/branch"
	"github.com/brainydb/brainy/types"
)

// Fork creates a new branch from the current branch's head (spec §6 fork(name)).
func (e *Engine) Fork(ctx context.Context, name string) (*types.Branch, error) {
	return e.branches.Fork(ctx, name)
}

// Checkout switches the active branch (spec §6 checkout(name)).
func (e *Engine) Checkout(name string) error {
	return e.branches.Checkout(name)
}

// CommitBranch records a checkpoint commit on the active branch under msg
// (spec §6 commit({message, author})). Branch commits are distinct from the
// per-write commits the engine already issues after every mutation; this
// is the caller-facing checkpoint a user explicitly requests, and it lists
// no entity or relationship ids of its own.
func (e *Engine) CommitBranch(ctx context.Context, message, author string) (*types.Commit, error) {
	// author is accepted for API-surface parity with spec §6 but has no
	// home on types.Commit yet; folded into the message until a dedicated
	// field exists.
	msg := message
	if author != "" {
		msg = message + " (" + author + ")"
	}
	return e.branches.Commit(ctx, msg, nil, nil, nil)
}

// Merge reports which of src's changes since its fork point win over dst
// under strategy (spec §6 merge(src, dst, {strategy})). No data is copied
// into dst; see branch.Manager.Merge.
func (e *Engine) Merge(ctx context.Context, src, dst string, strategy types.MergeStrategy) (*branch.MergeResult, error) {
	return e.branches.Merge(ctx, src, dst, strategy)
}

// ListBranches returns every known branch (spec §6 listBranches()).
func (e *Engine) ListBranches() ([]*types.Branch, error) {
	return e.branches.ListBranches()
}

// AsOf returns a handle on the branch a commit belongs to (spec §6
// asOf(commit)). Reads through it see that branch's current contents; see
// branch.Manager.AsOf.
func (e *Engine) AsOf(commitID uuid.UUID) (*branch.ReadHandle, error) {
	return e.branches.AsOf(commitID)
}
