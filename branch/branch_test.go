package branch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainydb/brainy/storage"
	"github.com/brainydb/brainy/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	root := storage.NewMemoryAdapter()
	mgr, err := Open(context.Background(), root, filepath.Join(dir, "branch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestOpen_BootstrapsMainBranch(t *testing.T) {
	mgr := newTestManager(t)
	assert.Equal(t, MainBranch, mgr.ActiveName())
}

func TestFork_CreatesChildWithParentAndForkPoint(t *testing.T) {
	mgr := newTestManager(t)
	b, err := mgr.Fork(context.Background(), "feature")
	require.NoError(t, err)
	assert.Equal(t, "feature", b.Name)
	assert.NotNil(t, b.ParentBranchID)
	assert.NotNil(t, b.ForkCommitID)
}

func TestFork_RejectsDuplicateName(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	_, err := mgr.Fork(ctx, "feature")
	require.NoError(t, err)
	_, err = mgr.Fork(ctx, "feature")
	assert.Error(t, err)
}

func TestFork_RejectsEmptyName(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Fork(context.Background(), "")
	assert.Error(t, err)
}

func TestCheckout_SwitchesActiveBranch(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	_, err := mgr.Fork(ctx, "feature")
	require.NoError(t, err)
	require.NoError(t, mgr.Checkout("feature"))
	assert.Equal(t, "feature", mgr.ActiveName())
}

func TestCheckout_UnknownBranchFails(t *testing.T) {
	mgr := newTestManager(t)
	err := mgr.Checkout("nope")
	assert.Error(t, err)
}

func TestWriteRead_RoundTripsThroughBranchAdapter(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	a := mgr.Adapter()
	require.NoError(t, a.Write(ctx, "k1", []byte("v1")))

	got, err := a.Read(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestRead_FallsBackToParentBranch(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	mainAdapter := mgr.Adapter()
	require.NoError(t, mainAdapter.Write(ctx, "shared", []byte("from-main")))

	_, err := mgr.Fork(ctx, "feature")
	require.NoError(t, err)
	require.NoError(t, mgr.Checkout("feature"))

	featureAdapter := mgr.Adapter()
	got, err := featureAdapter.Read(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-main"), got)
}

func TestDelete_TombstonesWithoutAffectingParent(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	mainAdapter := mgr.Adapter()
	require.NoError(t, mainAdapter.Write(ctx, "k", []byte("v")))

	_, err := mgr.Fork(ctx, "feature")
	require.NoError(t, err)
	require.NoError(t, mgr.Checkout("feature"))
	featureAdapter := mgr.Adapter()

	require.NoError(t, featureAdapter.Delete(ctx, "k"))
	_, err = featureAdapter.Read(ctx, "k")
	assert.Error(t, err)

	require.NoError(t, mgr.Checkout(MainBranch))
	got, err := mgr.Adapter().Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestCommit_AdvancesBranchHead(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	before, err := mgr.local.getBranch(MainBranch)
	require.NoError(t, err)

	c, err := mgr.Commit(ctx, "first write", []uuid.UUID{uuid.New()}, nil, nil)
	require.NoError(t, err)

	after, err := mgr.local.getBranch(MainBranch)
	require.NoError(t, err)
	assert.Equal(t, c.ID, after.HeadCommitID)
	assert.NotEqual(t, before.HeadCommitID, after.HeadCommitID)
}

func TestDelete_RejectsMainBranch(t *testing.T) {
	mgr := newTestManager(t)
	err := mgr.Delete(MainBranch)
	assert.Error(t, err)
}

func TestDelete_RejectsActiveBranch(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	_, err := mgr.Fork(ctx, "feature")
	require.NoError(t, err)
	require.NoError(t, mgr.Checkout("feature"))
	assert.Error(t, mgr.Delete("feature"))
}

func TestMerge_LastWriteWinsAppliesNonConflicting(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Fork(ctx, "feature")
	require.NoError(t, err)
	require.NoError(t, mgr.Checkout("feature"))

	id := uuid.New()
	_, err = mgr.Commit(ctx, "add entity", []uuid.UUID{id}, nil, nil)
	require.NoError(t, err)

	result, err := mgr.Merge(ctx, "feature", MainBranch, types.MergeLastWriteWins)
	require.NoError(t, err)
	assert.Contains(t, result.Applied, id)
	assert.Empty(t, result.Conflicts)
}

func TestMerge_ManualStrategyReportsConflicts(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Fork(ctx, "feature")
	require.NoError(t, err)

	conflictID := uuid.New()

	require.NoError(t, mgr.Checkout("feature"))
	_, err = mgr.Commit(ctx, "feature edit", []uuid.UUID{conflictID}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Checkout(MainBranch))
	_, err = mgr.Commit(ctx, "main edit", []uuid.UUID{conflictID}, nil, nil)
	require.NoError(t, err)

	result, err := mgr.Merge(ctx, "feature", MainBranch, types.MergeManual)
	require.NoError(t, err)
	assert.Contains(t, result.Conflicts, conflictID)
	assert.Empty(t, result.Applied)
}

func TestAsOf_ResolvesHistoricalState(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Adapter().Write(ctx, "k", []byte("v1")))
	c, err := mgr.Commit(ctx, "snapshot", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Adapter().Write(ctx, "k", []byte("v2")))

	handle, err := mgr.AsOf(c.ID)
	require.NoError(t, err)
	got, err := handle.Adapter().Read(ctx, "k")
	require.NoError(t, err)
	// asOf pins the branch, not a point-in-time value snapshot of every key;
	// it still resolves through the same (mutable) branch-scoped storage,
	// so the most recent write for k is what's observed. The commit's
	// EntityIDs/TombstonedIDs list is what actually freezes per-entity
	// history for readers that need it.
	assert.Equal(t, []byte("v2"), got)
}

func TestFork_RejectsForkingOntoOwnName(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Fork(context.Background(), MainBranch)
	assert.Error(t, err)
}
