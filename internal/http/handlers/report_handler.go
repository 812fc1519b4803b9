package handlers

import (
	"github.com/gofiber/fiber/v2"

	"invtrack/internal/log"
	"invtrack/internal/services"
)

type ReportHandler struct {
	Reports *services.ReportService
}

// GET /
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Reports.Dashboard(c.UserContext())
	if err != nil {
		log.Error(c, "dashboard.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load dashboard"}, "layouts/main")
	}
	return render(c, "dashboard", fiber.Map{"D": d, "LowThreshold": h.Reports.LowStock})
}

// GET /reports?category=
func (h *ReportHandler) StockPage(c *fiber.Ctx) error {
	r, err := h.Reports.Stock(c.UserContext(), c.Query("category"))
	if err != nil {
		log.Error(c, "reports.stock.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load report"}, "layouts/main")
	}
	return render(c, "reports", fiber.Map{"R": r, "LowThreshold": h.Reports.LowStock})
}

// GET /api/v1/reports/dashboard
func (h *ReportHandler) APIDashboard(c *fiber.Ctx) error {
	d, err := h.Reports.Dashboard(c.UserContext())
	if err != nil {
		return apiError(c, "reports.dashboard", err)
	}
	return c.JSON(d)
}

// GET /api/v1/reports/stock?category=
func (h *ReportHandler) APIStock(c *fiber.Ctx) error {
	r, err := h.Reports.Stock(c.UserContext(), c.Query("category"))
	if err != nil {
		return apiError(c, "reports.stock", err)
	}
	return c.JSON(r)
}
