package handlers

import (
	"github.com/gofiber/fiber/v2"

	"invtrack/internal/log"
	"invtrack/internal/services"
	"invtrack/internal/validate"
)

type StockHandler struct {
	Stock   *services.StockService
	Catalog *services.CatalogService
}

// stockPage fills the product picker and the movement list.
func (h *StockHandler) stockPage(c *fiber.Ctx, data fiber.Map) error {
	prods, err := h.Catalog.ListProducts(c.UserContext(), services.ProductFilter{})
	if err != nil {
		return err
	}
	moves, err := h.Stock.List(c.UserContext())
	if err != nil {
		return err
	}
	data["Products"] = prods
	data["Moves"] = moves
	return nil
}

// GET /stock
func (h *StockHandler) Page(c *fiber.Ctx) error {
	data := fiber.Map{}
	if err := h.stockPage(c, data); err != nil {
		log.Error(c, "stock.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load stock movements"}, "layouts/main")
	}
	return render(c, "stock", data)
}

// POST /stock/movements
func (h *StockHandler) Record(c *fiber.Ctx) error {
	qty, _ := validate.Qty(c.FormValue("quantity"))
	mv, err := h.Stock.Record(c.UserContext(), services.StockMovementRequest{
		ProductID: c.FormValue("productId"), Type: c.FormValue("type"), Quantity: qty, UserID: currentUser(c).ID,
	})
	if err != nil {
		data := fiber.Map{}
		_ = h.stockPage(c, data)
		return pageError(c, "stock.record", "stock", err, data)
	}
	log.Audit(c, "stock.record", map[string]any{"product_id": mv.ProductID, "type": mv.Type, "qty": mv.Quantity})
	return c.Redirect("/stock")
}

type stockBody struct {
	ProductID string `json:"productId"`
	Type      string `json:"type"`
	Quantity  int    `json:"quantity"`
}

// GET /api/v1/stock/movements
func (h *StockHandler) APIList(c *fiber.Ctx) error {
	out, err := h.Stock.List(c.UserContext())
	if err != nil {
		return apiError(c, "stock.list", err)
	}
	return c.JSON(out)
}

// POST /api/v1/stock/movements
func (h *StockHandler) APIRecord(c *fiber.Ctx) error {
	var b stockBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	mv, err := h.Stock.Record(c.UserContext(), services.StockMovementRequest{
		ProductID: b.ProductID, Type: b.Type, Quantity: b.Quantity, UserID: currentUser(c).ID,
	})
	if err != nil {
		return apiError(c, "stock.record", err)
	}
	log.Audit(c, "stock.record", map[string]any{"product_id": mv.ProductID, "type": mv.Type, "qty": mv.Quantity})
	return c.Status(fiber.StatusCreated).JSON(mv)
}
