package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"invtrack/internal/domain"
	"invtrack/internal/log"
	"invtrack/internal/services"
	"invtrack/internal/validate"
)

type EquipmentHandler struct {
	Equipment *services.EquipmentService
	Ledger    *services.LedgerService
	Lifecycle *services.LifecycleService
	Catalog   *services.CatalogService
}

func formInput(c *fiber.Ctx) services.EquipmentInput {
	return services.EquipmentInput{
		ProductID:   c.FormValue("productId"),
		MACAddress:  c.FormValue("macAddress"),
		GponSN:      c.FormValue("gponSn"),
		Customer:    c.FormValue("customer"),
		Description: c.FormValue("description"),
	}
}

func listFilter(c *fiber.Ctx) services.EquipmentFilter {
	return services.EquipmentFilter{Query: c.Query("q"), Status: c.Query("status")}
}

func (h *EquipmentHandler) listPage(c *fiber.Ctx, data fiber.Map) error {
	f := listFilter(c)
	data["Q"] = f.Query
	data["Status"] = f.Status
	items, err := h.Equipment.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	products, err := h.Catalog.ListProducts(c.UserContext(), services.ProductFilter{})
	if err != nil {
		return err
	}
	data["Items"] = items
	data["Products"] = products
	return nil
}

// GET /equipment?q=&status=
func (h *EquipmentHandler) List(c *fiber.Ctx) error {
	data := fiber.Map{}
	if err := h.listPage(c, data); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return pageError(c, "equipment.list", "equipment", err, data)
		}
		log.Error(c, "equipment.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load equipment"}, "layouts/main")
	}
	return render(c, "equipment", data)
}

// POST /equipment
func (h *EquipmentHandler) Create(c *fiber.Ctx) error {
	in := formInput(c)
	e, err := h.Equipment.Create(c.UserContext(), in)
	if err != nil {
		data := fiber.Map{"Form": in}
		_ = h.listPage(c, data)
		return pageError(c, "equipment.create", "equipment", err, data)
	}
	log.Audit(c, "equipment.create", map[string]any{"equipment_id": e.ID, "product_id": e.ProductID})
	return c.Redirect("/equipment")
}

// GET /equipment/:id/edit
func (h *EquipmentHandler) EditForm(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFoundPage(c, "Equipment not found")
	}
	e, err := h.Equipment.Get(c.UserContext(), id)
	if err != nil {
		return notFoundPage(c, "Equipment not found")
	}
	products, _ := h.Catalog.ListProducts(c.UserContext(), services.ProductFilter{})
	return render(c, "equipment_edit", fiber.Map{"E": e, "Products": products})
}

// POST /equipment/:id
func (h *EquipmentHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	in := formInput(c)
	patch := services.EquipmentPatch{
		ProductID: &in.ProductID, MACAddress: &in.MACAddress, GponSN: &in.GponSN,
		Customer: &in.Customer, Description: &in.Description,
	}
	if _, err := h.Equipment.Update(c.UserContext(), id, patch); err != nil {
		products, _ := h.Catalog.ListProducts(c.UserContext(), services.ProductFilter{})
		cur, _ := h.Equipment.Get(c.UserContext(), id)
		cur.ProductID, cur.MACAddress, cur.GponSN, cur.Customer, cur.Description =
			in.ProductID, in.MACAddress, in.GponSN, in.Customer, in.Description
		return pageError(c, "equipment.update", "equipment_edit", err, fiber.Map{"E": cur, "Products": products})
	}
	log.Audit(c, "equipment.update", map[string]any{"equipment_id": id})
	return c.Redirect("/equipment")
}

// POST /equipment/:id/delete
func (h *EquipmentHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Equipment.Delete(c.UserContext(), id); err != nil {
		data := fiber.Map{}
		_ = h.listPage(c, data)
		return pageError(c, "equipment.delete", "equipment", err, data)
	}
	log.Audit(c, "equipment.delete", map[string]any{"equipment_id": id})
	return c.Redirect("/equipment")
}

func movementType(c *fiber.Ctx) string {
	if t, ok := validate.MovementType(c.Query("type", c.FormValue("type"))); ok {
		return t
	}
	return domain.MovementOut
}

func (h *EquipmentHandler) movementsPage(c *fiber.Ctx, t string, data fiber.Map) error {
	candidates, err := h.Equipment.Candidates(c.UserContext(), t)
	if err != nil {
		return err
	}
	ledger, err := h.Ledger.List(c.UserContext())
	if err != nil {
		return err
	}
	data["Type"] = t
	data["Candidates"] = candidates
	data["Ledger"] = ledger
	return nil
}

// GET /equipment/movements?type=OUT
func (h *EquipmentHandler) Movements(c *fiber.Ctx) error {
	data := fiber.Map{}
	if err := h.movementsPage(c, movementType(c), data); err != nil {
		log.Error(c, "equipment.movements.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load movements"}, "layouts/main")
	}
	return render(c, "equipment_movements", data)
}

// POST /equipment/movements
func (h *EquipmentHandler) Move(c *fiber.Ctx) error {
	req := services.MovementRequest{
		EquipmentID: c.FormValue("equipmentId"),
		Type:        c.FormValue("type"),
		UserID:      currentUser(c).ID,
		Notes:       c.FormValue("notes"),
	}
	mv, err := h.Lifecycle.RequestMovement(c.UserContext(), req)
	if err != nil {
		data := fiber.Map{"Notes": req.Notes}
		_ = h.movementsPage(c, movementType(c), data)
		return pageError(c, "equipment.move", "equipment_movements", err, data)
	}
	log.Audit(c, "equipment.move", map[string]any{"equipment_id": mv.EquipmentID, "type": mv.Type, "movement_id": mv.ID})
	return c.Redirect("/equipment/movements?type=" + mv.Type)
}

// ---------- JSON API ----------

type equipmentBody struct {
	ProductID   *string `json:"productId"`
	MACAddress  *string `json:"macAddress"`
	GponSN      *string `json:"gponSn"`
	Customer    *string `json:"customer"`
	Description *string `json:"description"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(problem{Error: "invalid_request", Message: "invalid request body"})
}

// GET /api/v1/equipment?q=&status= or ?candidatesFor=IN|OUT
func (h *EquipmentHandler) APIList(c *fiber.Ctx) error {
	var (
		items []domain.EquipmentView
		err   error
	)
	if t := c.Query("candidatesFor"); t != "" {
		items, err = h.Equipment.Candidates(c.UserContext(), t)
	} else {
		items, err = h.Equipment.List(c.UserContext(), listFilter(c))
	}
	if err != nil {
		return apiError(c, "equipment.list", err)
	}
	return c.JSON(items)
}

// GET /api/v1/equipment/:id
func (h *EquipmentHandler) APIGet(c *fiber.Ctx) error {
	e, err := h.Equipment.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "equipment.get", err)
	}
	return c.JSON(e)
}

// POST /api/v1/equipment
func (h *EquipmentHandler) APICreate(c *fiber.Ctx) error {
	var b equipmentBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	e, err := h.Equipment.Create(c.UserContext(), services.EquipmentInput{
		ProductID: deref(b.ProductID), MACAddress: deref(b.MACAddress), GponSN: deref(b.GponSN),
		Customer: deref(b.Customer), Description: deref(b.Description),
	})
	if err != nil {
		return apiError(c, "equipment.create", err)
	}
	log.Audit(c, "equipment.create", map[string]any{"equipment_id": e.ID, "product_id": e.ProductID})
	return c.Status(fiber.StatusCreated).JSON(e)
}

// PATCH /api/v1/equipment/:id
func (h *EquipmentHandler) APIUpdate(c *fiber.Ctx) error {
	var b equipmentBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	id := c.Params("id")
	e, err := h.Equipment.Update(c.UserContext(), id, services.EquipmentPatch{
		ProductID: b.ProductID, MACAddress: b.MACAddress, GponSN: b.GponSN,
		Customer: b.Customer, Description: b.Description,
	})
	if err != nil {
		return apiError(c, "equipment.update", err)
	}
	log.Audit(c, "equipment.update", map[string]any{"equipment_id": id})
	return c.JSON(e)
}

// DELETE /api/v1/equipment/:id
func (h *EquipmentHandler) APIDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Equipment.Delete(c.UserContext(), id); err != nil {
		return apiError(c, "equipment.delete", err)
	}
	log.Audit(c, "equipment.delete", map[string]any{"equipment_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

type movementBody struct {
	EquipmentID string `json:"equipmentId"`
	Type        string `json:"type"`
	Notes       string `json:"notes"`
}

// POST /api/v1/equipment/movements
func (h *EquipmentHandler) APIMove(c *fiber.Ctx) error {
	var b movementBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	mv, err := h.Lifecycle.RequestMovement(c.UserContext(), services.MovementRequest{
		EquipmentID: b.EquipmentID, Type: b.Type, UserID: currentUser(c).ID, Notes: b.Notes,
	})
	if err != nil {
		return apiError(c, "equipment.move", err)
	}
	log.Audit(c, "equipment.move", map[string]any{"equipment_id": mv.EquipmentID, "type": mv.Type, "movement_id": mv.ID})
	return c.Status(fiber.StatusCreated).JSON(mv)
}

// GET /api/v1/equipment/movements
func (h *EquipmentHandler) APIMovements(c *fiber.Ctx) error {
	out, err := h.Ledger.List(c.UserContext())
	if err != nil {
		return apiError(c, "equipment.movements.list", err)
	}
	return c.JSON(out)
}

// GET /api/v1/equipment/:id/movements
func (h *EquipmentHandler) APIHistory(c *fiber.Ctx) error {
	out, err := h.Ledger.ListFor(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "equipment.history", err)
	}
	return c.JSON(out)
}

// GET /api/v1/equipment/:id/replay
func (h *EquipmentHandler) APIReplay(c *fiber.Ctx) error {
	id := c.Params("id")
	status, err := h.Ledger.Replay(c.UserContext(), id)
	if err != nil {
		return apiError(c, "equipment.replay", err)
	}
	body := fiber.Map{"equipmentId": id, "replayedStatus": status}
	if cur, err := h.Equipment.Get(c.UserContext(), id); err == nil {
		body["currentStatus"] = cur.Status
		body["consistent"] = cur.Status == status
	}
	return c.JSON(body)
}
