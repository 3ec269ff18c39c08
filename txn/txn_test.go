package txn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxn_Commit_AppliesOpsInOrder(t *testing.T) {
	var log []string
	state := &log
	txn := Begin(state)

	for _, name := range []string{"a", "b", "c"} {
		n := name
		require.NoError(t, txn.Enqueue(NewOp(Kind("test"),
			func(s interface{}) error {
				l := s.(*[]string)
				*l = append(*l, n)
				return nil
			},
			func(s interface{}) error { return nil },
		)))
	}

	id, err := txn.Commit()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []string{"a", "b", "c"}, log)
}

func TestTxn_Commit_RollsBackInReverseOrderOnFailure(t *testing.T) {
	var log []string
	state := &log
	txn := Begin(state)

	mkOp := func(name string, fail bool) Op {
		return NewOp(Kind("test"),
			func(s interface{}) error {
				if fail {
					return errors.New("boom")
				}
				l := s.(*[]string)
				*l = append(*l, "apply:"+name)
				return nil
			},
			func(s interface{}) error {
				l := s.(*[]string)
				*l = append(*l, "undo:"+name)
				return nil
			},
		)
	}

	require.NoError(t, txn.Enqueue(mkOp("a", false)))
	require.NoError(t, txn.Enqueue(mkOp("b", false)))
	require.NoError(t, txn.Enqueue(mkOp("c", true)))

	_, err := txn.Commit()
	require.Error(t, err)
	assert.Equal(t, []string{"apply:a", "apply:b", "undo:b", "undo:a"}, log)
}

func TestTxn_Commit_TwiceReturnsError(t *testing.T) {
	txn := Begin(nil)
	_, err := txn.Commit()
	require.NoError(t, err)

	_, err = txn.Commit()
	assert.Error(t, err)
}

func TestTxn_Abort_DiscardsOpsWithoutApplying(t *testing.T) {
	var log []string
	state := &log
	txn := Begin(state)
	require.NoError(t, txn.Enqueue(NewOp(Kind("test"),
		func(s interface{}) error {
			l := s.(*[]string)
			*l = append(*l, "should-not-run")
			return nil
		},
		func(s interface{}) error { return nil },
	)))

	txn.Abort()
	assert.Empty(t, log)
}

func TestTxn_Enqueue_AfterFinishReturnsError(t *testing.T) {
	txn := Begin(nil)
	txn.Abort()
	err := txn.Enqueue(NewOp(Kind("test"), func(interface{}) error { return nil }, func(interface{}) error { return nil }))
	assert.Error(t, err)
}
