package handler

import (
	"encoding/json"
	"strconv"

	"go-apotek-pos/internal/importer"
	"go-apotek-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	catalog service.CatalogService
	imports service.ImportService
	reports service.ReportService
}

func NewProductHandler(catalog service.CatalogService, imports service.ImportService, reports service.ReportService) *ProductHandler {
	return &ProductHandler{catalog: catalog, imports: imports, reports: reports}
}

// decodeRow keeps the body loosely typed so single creates go through the
// same normalizer as imports.
func decodeRow(c *fiber.Ctx) (importer.Row, error) {
	var row importer.Row
	if err := json.Unmarshal(c.Body(), &row); err != nil {
		return nil, err
	}
	if row == nil {
		row = importer.Row{}
	}
	return row, nil
}

// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	row, err := decodeRow(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.catalog.CreateProduct(c.UserContext(), row, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	row, err := decodeRow(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.catalog.UpdateProduct(c.UserContext(), id, row, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	if err := h.catalog.DeleteProduct(c.UserContext(), id, actorOf(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product deleted"})
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.catalog.GetAllProducts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	product, err := h.catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// BulkImport accepts either a bare JSON array of rows or {"rows": [...]}.
// POST /api/v1/products/bulk-import
func (h *ProductHandler) BulkImport(c *fiber.Ctx) error {
	var rows []importer.Row
	if err := json.Unmarshal(c.Body(), &rows); err != nil {
		var wrapped struct {
			Rows []importer.Row `json:"rows"`
		}
		if err := json.Unmarshal(c.Body(), &wrapped); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
		}
		rows = wrapped.Rows
	}

	return h.runImport(c, rows)
}

// ImportCSV reads the multipart "file" field.
// POST /api/v1/products/import/csv
func (h *ProductHandler) ImportCSV(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "CSV file is required in field 'file'"})
	}
	f, err := header.Open()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Cannot open uploaded file"})
	}
	defer f.Close()

	rows, err := importer.ReadCSV(f)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	return h.runImport(c, rows)
}

func (h *ProductHandler) runImport(c *fiber.Ctx, rows []importer.Row) error {
	if len(rows) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "No rows to import"})
	}

	result, err := h.imports.BulkImport(c.UserContext(), rows, actorOf(c))
	if err != nil && result == nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Import finished",
		"data":    result,
		"summary": fiber.Map{"success": len(result.Success), "failed": len(result.Failed)},
	})
}

// GET /api/v1/products/low-stock?threshold=10
func (h *ProductHandler) GetLowStock(c *fiber.Ctx) error {
	threshold, err := strconv.Atoi(c.Query("threshold", strconv.Itoa(service.DefaultLowStockThreshold)))
	if err != nil || threshold < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "threshold must be a non-negative integer"})
	}

	products, err := h.reports.LowStock(c.UserContext(), threshold)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// GET /api/v1/products/expiring?months=3
func (h *ProductHandler) GetExpiring(c *fiber.Ctx) error {
	months, err := strconv.Atoi(c.Query("months", strconv.Itoa(service.DefaultExpiryMonths)))
	if err != nil || months < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "months must be a non-negative integer"})
	}

	products, err := h.reports.Expiring(c.UserContext(), months)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// GET /api/v1/products/statistics
func (h *ProductHandler) GetStatistics(c *fiber.Ctx) error {
	stats, err := h.reports.CatalogStatistics(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
