package service

import (
	"context"
	"fmt"

	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"

	"github.com/google/uuid"
)

// StockLedger owns on-hand quantities for the products of one sale. It only
// exists inside a SaleRepository.WithTx callback, so every check and
// decrement sees the same row-locked snapshot.
type StockLedger struct {
	tx       repository.SaleTx
	actor    string
	products map[uuid.UUID]model.Product
}

// openLedger locks ids for the rest of the transaction.
func openLedger(ctx context.Context, tx repository.SaleTx, ids []uuid.UUID, actor string) (*StockLedger, error) {
	products, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &StockLedger{tx: tx, actor: actor, products: products}, nil
}

// CheckAvailable fails when the product is missing or holds fewer than quantity units.
func (l *StockLedger) CheckAvailable(productID uuid.UUID, quantity int) error {
	p, ok := l.products[productID]
	if !ok {
		return &ProductNotFoundError{ProductID: productID}
	}
	if quantity > p.Stock {
		return &InsufficientStockError{
			ProductID:   productID,
			ProductName: p.Name,
			Available:   p.Stock,
			Requested:   quantity,
		}
	}
	return nil
}

// Product returns the locked snapshot of productID.
func (l *StockLedger) Product(productID uuid.UUID) (model.Product, bool) {
	p, ok := l.products[productID]
	return p, ok
}

// Decrement takes quantity units off productID. The store applies it
// conditionally, so a row that lost stock since the lock fails with
// repository.ErrStockConflict instead of going negative.
func (l *StockLedger) Decrement(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := l.CheckAvailable(productID, quantity); err != nil {
		return err
	}
	if err := l.tx.DecrementStock(ctx, productID, quantity, l.actor); err != nil {
		return fmt.Errorf("decrement %s: %w", productID, err)
	}
	p := l.products[productID]
	p.Stock -= quantity
	l.products[productID] = p
	return nil
}
