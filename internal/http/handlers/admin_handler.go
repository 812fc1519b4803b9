package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "invtrack/internal/log"
	"invtrack/internal/services"
)

type AdminHandler struct {
	Users *services.UserService
}

func (h *AdminHandler) usersPage(c *fiber.Ctx, data fiber.Map) error {
	users, err := h.Users.FetchUsers(c.UserContext())
	if err != nil {
		return err
	}
	data["Users"] = users
	return nil
}

// GET /admin/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	data := fiber.Map{}
	if err := h.usersPage(c, data); err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load users"}, "layouts/main")
	}
	return render(c, "admin_users", data)
}

// POST /admin/users
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	in := services.UserInput{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		Name:     c.FormValue("name"),
		Role:     c.FormValue("role"),
	}
	u, err := h.Users.CreateUser(c.UserContext(), currentUser(c), in)
	if err != nil {
		data := fiber.Map{"Form": in}
		_ = h.usersPage(c, data)
		return pageError(c, "admin.users.create", "admin_users", err, data)
	}
	applog.Audit(c, "admin.users.create", map[string]any{"target_id": u.ID, "username": u.Username, "role": u.Role})
	return c.Redirect("/admin/users")
}

// POST /admin/users/:id
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id := c.Params("id")
	var p services.UserPatch
	if v := c.FormValue("name"); v != "" {
		p.Name = &v
	}
	if v := c.FormValue("role"); v != "" {
		p.Role = &v
	}
	if _, err := h.Users.UpdateUser(c.UserContext(), currentUser(c), id, p); err != nil {
		data := fiber.Map{}
		_ = h.usersPage(c, data)
		return pageError(c, "admin.users.update", "admin_users", err, data)
	}
	applog.Audit(c, "admin.users.update", map[string]any{"target_id": id})
	return c.Redirect("/admin/users")
}

// POST /admin/users/:id/delete
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Users.DeleteUser(c.UserContext(), currentUser(c), id); err != nil {
		data := fiber.Map{}
		_ = h.usersPage(c, data)
		return pageError(c, "admin.users.delete", "admin_users", err, data)
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"target_id": id})
	return c.Redirect("/admin/users")
}

type userBody struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
}

// GET /api/v1/admin/users
func (h *AdminHandler) APIUsers(c *fiber.Ctx) error {
	out, err := h.Users.FetchUsers(c.UserContext())
	if err != nil {
		return apiError(c, "admin.users.list", err)
	}
	return c.JSON(out)
}

// POST /api/v1/admin/users
func (h *AdminHandler) APICreateUser(c *fiber.Ctx) error {
	var b userBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	u, err := h.Users.CreateUser(c.UserContext(), currentUser(c), services.UserInput{
		Username: b.Username, Password: b.Password, Name: deref(b.Name), Role: deref(b.Role),
	})
	if err != nil {
		return apiError(c, "admin.users.create", err)
	}
	applog.Audit(c, "admin.users.create", map[string]any{"target_id": u.ID, "username": u.Username, "role": u.Role})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// PATCH /api/v1/admin/users/:id
func (h *AdminHandler) APIUpdateUser(c *fiber.Ctx) error {
	var b userBody
	if err := c.BodyParser(&b); err != nil {
		return badBody(c)
	}
	id := c.Params("id")
	u, err := h.Users.UpdateUser(c.UserContext(), currentUser(c), id, services.UserPatch{Name: b.Name, Role: b.Role})
	if err != nil {
		return apiError(c, "admin.users.update", err)
	}
	applog.Audit(c, "admin.users.update", map[string]any{"target_id": id})
	return c.JSON(u)
}

// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) APIDeleteUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Users.DeleteUser(c.UserContext(), currentUser(c), id); err != nil {
		return apiError(c, "admin.users.delete", err)
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"target_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
