// Package txn groups writes into atomic units with reverse-order undo
// (spec §4.7).
package txn

import (
	"fmt"

	"github.com/google/uuid"
)

// Op is a single typed operation enqueued onto a Txn. apply performs the
// mutation; undo reverts it using whatever pre-image apply captured at
// enqueue time. Both run against the caller-supplied state value, which in
// practice is the engine's bundle of storage/index handles.
type Op struct {
	Kind  Kind
	apply func(state interface{}) error
	undo  func(state interface{}) error
}

// Kind names the operation types a Txn can carry (spec §4.7).
type Kind string

const (
	KindPutEntityMeta      Kind = "PutEntityMeta"
	KindPutEntityVector    Kind = "PutEntityVector"
	KindDeleteEntity       Kind = "DeleteEntity"
	KindPutRelationship    Kind = "PutRelationship"
	KindDeleteRelationship Kind = "DeleteRelationship"
	KindUpdateGraphIndex   Kind = "UpdateGraphIndex"
	KindUpdateMetadataIndex Kind = "UpdateMetadataIndex"
	KindUpdateHNSW         Kind = "UpdateHNSW"
)

// NewOp builds an Op from its apply/undo closures. Callers construct the
// closures with whatever pre-image undo needs already captured.
func NewOp(kind Kind, apply, undo func(state interface{}) error) Op {
	return Op{Kind: kind, apply: apply, undo: undo}
}

// Txn is an ordered, single-writer list of operations (spec §4.7).
type Txn struct {
	id       uuid.UUID
	ops      []Op
	state    interface{}
	applied  int // count of ops successfully applied, for undo on failure
	finished bool
}

// Begin opens a new transaction against state, the mutable handle bundle
// every op's apply/undo closures operate on.
func Begin(state interface{}) *Txn {
	return &Txn{id: uuid.New(), state: state}
}

// ID returns the transaction's identifier, reused as its CommitId on
// success.
func (t *Txn) ID() uuid.UUID { return t.id }

// Enqueue appends op to the transaction. Must be called before Commit or
// Abort.
func (t *Txn) Enqueue(op Op) error {
	if t.finished {
		return fmt.Errorf("txn %s: already committed or aborted", t.id)
	}
	t.ops = append(t.ops, op)
	return nil
}

// Abort discards the op list without applying anything.
func (t *Txn) Abort() {
	t.finished = true
	t.ops = nil
}

// Commit applies every enqueued op in order. On the first failure, it
// invokes undo on every already-applied op in reverse order and returns
// the triggering error; no further ops after the failing one are applied.
// On success it returns the commit id (the txn's own id) per spec's
// publish-to-branch-manager linearization point — callers publish the
// commit to the branch manager only after Commit returns nil.
func (t *Txn) Commit() (uuid.UUID, error) {
	if t.finished {
		return uuid.Nil, fmt.Errorf("txn %s: already committed or aborted", t.id)
	}
	t.finished = true

	for i, op := range t.ops {
		if err := op.apply(t.state); err != nil {
			t.rollback(i)
			return uuid.Nil, fmt.Errorf("txn %s: op %d (%s) failed: %w", t.id, i, op.Kind, err)
		}
		t.applied = i + 1
	}
	return t.id, nil
}

// rollback undoes ops [0, upTo) in reverse order. Called after a failed
// apply at index upTo; ops before it already succeeded and must be
// reverted, the failing op itself never applied so it is excluded.
func (t *Txn) rollback(upTo int) {
	for i := upTo - 1; i >= 0; i-- {
		// undo is expected to succeed given a correctly captured pre-image.
		_ = t.ops[i].undo(t.state)
	}
}
