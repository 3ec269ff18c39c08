package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/errs"
)

// MergeStrategy selects how conflicting writes on two branches are resolved
// at merge time (spec §4.9, Open Question: resolved as last-write-wins by
// default, with a manual strategy for caller-supplied resolutions).
type MergeStrategy string

const (
	MergeLastWriteWins MergeStrategy = "last_write_wins"
	MergeManual        MergeStrategy = "manual"
)

// Branch is a named, append-only line of commits forking off a parent
// branch at a specific commit (copy-on-write per spec §4.9).
type Branch struct {
	ID             uuid.UUID
	Name           string
	ParentBranchID *uuid.UUID // nil for the root branch
	ForkCommitID   *uuid.UUID // commit this branch diverged from; nil for root
	HeadCommitID   uuid.UUID
	CreatedAt      time.Time
}

// IsRoot reports whether this is the database's initial branch (no parent).
func (b *Branch) IsRoot() bool { return b.ParentBranchID == nil }

// ValidateNewBranch checks a branch name before fork() creates it.
func ValidateNewBranch(name string) error {
	if name == "" {
		return errs.Validationf("name", "branch name must not be empty")
	}
	return nil
}

// Commit is a single node in a branch's append-only commit DAG. Each commit
// captures the transaction's linearization point and the ids it touched;
// it holds no entity or relationship contents.
type Commit struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	ParentCommitID *uuid.UUID // nil only for a branch's fork point commit
	CreatedAt      time.Time
	Message        string

	// EntityIDs / RelationshipIDs touched by this commit's transaction,
	// walked back to a fork point by branch.Manager.Merge.
	EntityIDs       []uuid.UUID
	RelationshipIDs []uuid.UUID
	TombstonedIDs   []uuid.UUID
}

// Touches reports whether this commit wrote or tombstoned id.
func (c *Commit) Touches(id uuid.UUID) bool {
	for _, e := range c.EntityIDs {
		if e == id {
			return true
		}
	}
	for _, r := range c.RelationshipIDs {
		if r == id {
			return true
		}
	}
	for _, t := range c.TombstonedIDs {
		if t == id {
			return true
		}
	}
	return false
}

// IsTombstone reports whether this commit deleted id, shadowing any
// ancestor write for the same id (spec §4.9 tombstone semantics).
func (c *Commit) IsTombstone(id uuid.UUID) bool {
	for _, t := range c.TombstonedIDs {
		if t == id {
			return true
		}
	}
	return false
}
