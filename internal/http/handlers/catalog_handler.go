package handlers

import (
	"github.com/gofiber/fiber/v2"

	"invtrack/internal/log"
	"invtrack/internal/services"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

// GET /products?q=&category=
func (h *CatalogHandler) Products(c *fiber.Ctx) error {
	f := services.ProductFilter{Query: c.Query("q"), Category: c.Query("category")}
	products, err := h.Catalog.ListProducts(c.UserContext(), f)
	if err != nil {
		log.Error(c, "products.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load products"}, "layouts/main")
	}
	cats, _ := h.Catalog.ListCategories(c.UserContext())
	if f.Query != "" {
		log.Info(c, "products.search", map[string]any{"q": f.Query, "results": len(products)})
	}
	return render(c, "products", fiber.Map{"Products": products, "Categories": cats, "Q": f.Query, "Category": f.Category})
}

type productBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	ImageURL    string `json:"imageUrl"`
}

func (b productBody) input() services.ProductInput {
	return services.ProductInput{
		Name: b.Name, Description: b.Description, Quantity: b.Quantity, Category: b.Category,
		Brand: b.Brand, Model: b.Model, ImageURL: b.ImageURL,
	}
}

// GET /api/v1/products
func (h *CatalogHandler) APIProducts(c *fiber.Ctx) error {
	out, err := h.Catalog.ListProducts(c.UserContext(), services.ProductFilter{Query: c.Query("q"), Category: c.Query("category")})
	if err != nil {
		return apiError(c, "products.list", err)
	}
	return c.JSON(out)
}

// GET /api/v1/products/:id
func (h *CatalogHandler) APIProduct(c *fiber.Ctx) error {
	p, err := h.Catalog.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "products.get", err)
	}
	return c.JSON(p)
}

// POST /api/v1/products
func (h *CatalogHandler) APICreateProduct(c *fiber.Ctx) error {
	var b productBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), b.input())
	if err != nil {
		return apiError(c, "products.create", err)
	}
	log.Audit(c, "products.create", map[string]any{"product_id": p.ID})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /api/v1/products/:id
func (h *CatalogHandler) APIUpdateProduct(c *fiber.Ctx) error {
	var b productBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	p, err := h.Catalog.UpdateProduct(c.UserContext(), c.Params("id"), b.input())
	if err != nil {
		return apiError(c, "products.update", err)
	}
	log.Audit(c, "products.update", map[string]any{"product_id": p.ID})
	return c.JSON(p)
}

// DELETE /api/v1/products/:id
func (h *CatalogHandler) APIDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return apiError(c, "products.delete", err)
	}
	log.Audit(c, "products.delete", map[string]any{"product_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

type categoryBody struct {
	Name string `json:"name"`
}

// GET /api/v1/categories
func (h *CatalogHandler) APICategories(c *fiber.Ctx) error {
	out, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return apiError(c, "categories.list", err)
	}
	return c.JSON(out)
}

// POST /api/v1/categories
func (h *CatalogHandler) APICreateCategory(c *fiber.Ctx) error {
	var b categoryBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	cat, err := h.Catalog.CreateCategory(c.UserContext(), b.Name)
	if err != nil {
		return apiError(c, "categories.create", err)
	}
	log.Audit(c, "categories.create", map[string]any{"category_id": cat.ID, "name": cat.Name})
	return c.Status(fiber.StatusCreated).JSON(cat)
}

// PUT /api/v1/categories/:id
func (h *CatalogHandler) APIRenameCategory(c *fiber.Ctx) error {
	var b categoryBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	id := c.Params("id")
	if err := h.Catalog.RenameCategory(c.UserContext(), id, b.Name); err != nil {
		return apiError(c, "categories.rename", err)
	}
	log.Audit(c, "categories.rename", map[string]any{"category_id": id, "name": b.Name})
	return c.SendStatus(fiber.StatusNoContent)
}

// DELETE /api/v1/categories/:id
func (h *CatalogHandler) APIDeleteCategory(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Catalog.DeleteCategory(c.UserContext(), id); err != nil {
		return apiError(c, "categories.delete", err)
	}
	log.Audit(c, "categories.delete", map[string]any{"category_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
