package handler

import (
	"errors"
	"log/slog"

	"go-apotek-pos/internal/service"
	"go-apotek-pos/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// respondError maps domain errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a 500.
func respondError(c *fiber.Ctx, err error) error {
	var (
		stockErr    *service.InsufficientStockError
		notFoundErr *service.ProductNotFoundError
		validErr    *service.ValidationError
	)

	switch {
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":        stockErr.Error(),
			"code":         "INSUFFICIENT_STOCK",
			"product_id":   stockErr.ProductID,
			"product_name": stockErr.ProductName,
			"available":    stockErr.Available,
			"requested":    stockErr.Requested,
		})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":      notFoundErr.Error(),
			"code":       "PRODUCT_NOT_FOUND",
			"product_id": notFoundErr.ProductID,
		})
	case errors.As(err, &validErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validErr.Error(),
			"code":  "VALIDATION_FAILED",
			"field": validErr.Field,
		})
	case errors.Is(err, service.ErrCommitConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     service.ErrCommitConflict.Error(),
			"code":      "COMMIT_CONFLICT",
			"retriable": true,
		})
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateName),
		errors.Is(err, service.ErrHasDependents),
		errors.Is(err, service.ErrProductReferenced):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrCategoryRequired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error(), "code": "CATEGORY_REQUIRED"})
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPayment),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrWrongPassword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	slog.Default().Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
}
