package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"invtrack/internal/log"
	"invtrack/internal/services"
	"invtrack/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sessionCookie)
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sessionCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false,
		})
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	username := c.FormValue("username")
	pass := c.FormValue("password")
	if _, ok := validate.Username(username); !ok || !validate.Password(pass) {
		log.Security(c, "auth.login.fail", map[string]any{"username": username, "reason": "bad_format"})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "login", fiber.Map{"Err": "Invalid username or password", "Username": username})
	}

	u, err := h.Auth.Login(c.UserContext(), sid, username, pass)
	if err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			log.Security(c, "auth.login.fail", map[string]any{"username": username})
		} else {
			log.Error(c, "auth.login.error", err, map[string]any{"username": username})
		}
		c.Status(fiber.StatusUnauthorized)
		return render(c, "login", fiber.Map{"Err": "Invalid username or password", "Username": username})
	}

	c.Locals("user", u)
	log.Audit(c, "auth.login.success", map[string]any{"username": u.Username})
	return c.Redirect("/")
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{})
}

// Register creates an OPERATOR account and signs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	sid := ensureSID(c)
	in := services.RegisterInput{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		Name:     c.FormValue("name"),
	}
	u, err := h.Auth.Register(c.UserContext(), sid, in)
	if err != nil {
		return pageError(c, "auth.register", "register", err, fiber.Map{"Username": in.Username, "Name": in.Name})
	}
	c.Locals("user", u)
	log.Audit(c, "auth.register", map[string]any{"username": u.Username, "role": u.Role})
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	_ = h.Auth.Logout(c.UserContext(), sid)
	// Expire cookie
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/login")
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token exchanges credentials for a bearer token. POST /api/v1/auth/token
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(problem{Error: "invalid_request", Message: "invalid request body"})
	}
	tok, u, err := h.Auth.IssueToken(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			log.Security(c, "auth.token.fail", map[string]any{"username": req.Username})
			return c.Status(fiber.StatusUnauthorized).JSON(problem{Error: "unauthorized", Message: "invalid username or password"})
		}
		return apiError(c, "auth.token", err)
	}
	c.Locals("user", u)
	log.Audit(c, "auth.token.issued", map[string]any{"username": u.Username})
	return c.JSON(fiber.Map{
		"accessToken": tok,
		"tokenType":   "Bearer",
		"expiresIn":   int64(h.Auth.Tokens.TTL().Seconds()),
		"user":        u,
	})
}

// Me returns the authenticated user. GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}
