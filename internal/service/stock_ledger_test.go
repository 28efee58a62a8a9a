package service

import (
	"context"
	"testing"

	"go-apotek-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockLedger(t *testing.T) {
	store := newMemoryStore()
	cat := store.addCategory("Obat Bebas")
	a := store.addProduct("A", 5, 1000, cat.ID)
	ctx := context.Background()

	err := memorySaleRepo{store}.WithTx(ctx, func(tx repository.SaleTx) error {
		ledger, err := openLedger(ctx, tx, []uuid.UUID{a.ID}, "tester")
		require.NoError(t, err)

		assert.NoError(t, ledger.CheckAvailable(a.ID, 5))
		assert.ErrorIs(t, ledger.CheckAvailable(a.ID, 6), ErrInsufficientStock)
		assert.ErrorIs(t, ledger.CheckAvailable(uuid.New(), 1), ErrProductNotFound)

		assert.ErrorIs(t, ledger.Decrement(ctx, a.ID, 0), ErrInvalidQuantity)
		require.NoError(t, ledger.Decrement(ctx, a.ID, 4))
		assert.ErrorIs(t, ledger.Decrement(ctx, a.ID, 2), ErrInsufficientStock)

		p, ok := ledger.Product(a.ID)
		require.True(t, ok)
		assert.Equal(t, 1, p.Stock)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.product(a.ID).Stock)
}

func TestStockLedgerSurfacesStoreConflict(t *testing.T) {
	store := newMemoryStore()
	cat := store.addCategory("Obat Bebas")
	a := store.addProduct("A", 5, 1000, cat.ID)
	store.conflictOn[a.ID] = true
	ctx := context.Background()

	err := memorySaleRepo{store}.WithTx(ctx, func(tx repository.SaleTx) error {
		ledger, err := openLedger(ctx, tx, []uuid.UUID{a.ID}, "tester")
		if err != nil {
			return err
		}
		return ledger.Decrement(ctx, a.ID, 1)
	})
	require.ErrorIs(t, err, repository.ErrStockConflict)
	assert.Equal(t, 5, store.product(a.ID).Stock)
}
