package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records commit/rollback; every other pgx.Tx method is unused.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx     *fakeTx
	err    error
	begins int
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	b.begins++
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestTxFromContext_Empty(t *testing.T) {
	assert.Nil(t, TxFromContext(context.Background()))
}

func TestConn_PrefersContextTx(t *testing.T) {
	tx := &fakeTx{}
	ctx := ContextWithTx(context.Background(), tx)
	assert.Same(t, tx, Conn(ctx, nil))
	assert.Nil(t, Conn(context.Background(), nil))
}

func TestPoolTxRunner_Commit(t *testing.T) {
	tx := &fakeTx{}
	r := &PoolTxRunner{pool: &fakeBeginner{tx: tx}}

	var seen pgx.Tx
	err := r.WithTx(context.Background(), func(ctx context.Context) error {
		seen = TxFromContext(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, tx, seen)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestPoolTxRunner_RollbackOnError(t *testing.T) {
	tx := &fakeTx{}
	r := &PoolTxRunner{pool: &fakeBeginner{tx: tx}}
	boom := errors.New("boom")

	err := r.WithTx(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestPoolTxRunner_BeginError(t *testing.T) {
	r := &PoolTxRunner{pool: &fakeBeginner{err: errors.New("pool closed")}}
	called := false
	err := r.WithTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestPoolTxRunner_JoinsOuterTx(t *testing.T) {
	outer := &fakeTx{}
	b := &fakeBeginner{tx: &fakeTx{}}
	r := &PoolTxRunner{pool: b}

	ctx := ContextWithTx(context.Background(), outer)
	err := r.WithTx(ctx, func(ctx context.Context) error {
		assert.Same(t, outer, TxFromContext(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, b.begins)
	assert.False(t, outer.committed)
}

func TestTxFunc(t *testing.T) {
	calls := 0
	var runner TxRunner = TxFunc(func(ctx context.Context, fn func(context.Context) error) error {
		calls++
		return fn(ctx)
	})
	require.NoError(t, runner.WithTx(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, 1, calls)
}
