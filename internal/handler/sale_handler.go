package handler

import (
	"time"

	"go-apotek-pos/internal/repository"
	"go-apotek-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SaleHandler struct {
	sales   service.SaleService
	reports service.ReportService
	now     func() time.Time
}

func NewSaleHandler(sales service.SaleService, reports service.ReportService) *SaleHandler {
	return &SaleHandler{sales: sales, reports: reports, now: time.Now}
}

// CreateSale records a checkout for the authenticated cashier.
// POST /api/v1/transactions
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.CreateSaleRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	cashierID, err := uuid.Parse(getUserID(c))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}
	req.CashierID = cashierID

	sale, err := h.sales.CreateSale(c.UserContext(), req, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Transaction recorded", "data": sale})
}

// GET /api/v1/transactions?start=2026-01-01&end=2026-01-31
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	filter, err := dateFilter(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	sales, err := h.sales.GetAllSales(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sales)
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	sale, err := h.sales.GetSale(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}

// GetStatistics accepts start/end like GetSales, or a range shortcut.
// GET /api/v1/transactions/statistics?range=7d
func (h *SaleHandler) GetStatistics(c *fiber.Ctx) error {
	filter, err := dateFilter(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if rangeParam := c.Query("range"); rangeParam != "" && filter.Start == nil {
		now := h.now()
		var startDate time.Time
		switch rangeParam {
		case "1m":
			startDate = now.AddDate(0, -1, 0)
		case "3m":
			startDate = now.AddDate(0, -3, 0)
		case "6m":
			startDate = now.AddDate(0, -6, 0)
		case "12m":
			startDate = now.AddDate(0, -12, 0)
		default:
			startDate = now.AddDate(0, 0, -7)
		}
		filter.Start, filter.End = &startDate, &now
	}

	stats, err := h.reports.SalesStatistics(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// dateFilter reads start/end as RFC3339 or YYYY-MM-DD. A bare end date
// covers that whole day.
func dateFilter(c *fiber.Ctx) (repository.SaleFilter, error) {
	var filter repository.SaleFilter
	if s := c.Query("start"); s != "" {
		t, _, err := parseDate(s)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "invalid start date")
		}
		filter.Start = &t
	}
	if s := c.Query("end"); s != "" {
		t, dateOnly, err := parseDate(s)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "invalid end date")
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.End = &t
	}
	return filter, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t, true, err
}
