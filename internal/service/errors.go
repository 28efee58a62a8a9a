package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Domain rule violations. Handlers surface these verbatim.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCommitConflict    = errors.New("sale could not be committed, please retry")
	ErrDuplicateName     = errors.New("name already exists")
	ErrCategoryRequired  = errors.New("category is required")
	ErrHasDependents     = errors.New("cannot delete: products still reference it")
	ErrProductReferenced = errors.New("cannot delete: product appears in sale history")
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidPayment    = errors.New("payment method must be CASH or QRIS")
	ErrValidation        = errors.New("validation failed")
)

// ProductNotFoundError names the missing cart product.
type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with ID %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

// InsufficientStockError carries what the cashier needs to fix the cart.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ValidationError wraps the first failed struct rule.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: field '%s' failed on tag '%s'", e.Field, e.Tag)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
