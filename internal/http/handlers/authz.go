package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "invtrack/internal/log"
	"invtrack/internal/services"
)

const sessionCookie = "sid"

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/ws/")
}

// bearer returns the token from an "Authorization: Bearer" header, if any.
func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// AttachUser puts the session user, when there is one, into Locals("user")
// for templates and log lines.
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies(sessionCookie); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(sessionCookie)
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(c.UserContext(), sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		if !u.IsAdmin() {
			c.Locals("user", u)
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied", "User": u}, "layouts/main")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(sessionCookie)
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(c.UserContext(), sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireAPIUser accepts a bearer token or a session cookie and answers 401
// JSON otherwise.
func RequireAPIUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := bearer(c); tok != "" {
			u, err := auth.TokenUser(c.UserContext(), tok)
			if err != nil {
				applog.Security(c, "auth.token.reject", map[string]any{"reason": err.Error()})
				return c.Status(fiber.StatusUnauthorized).JSON(problem{Error: "unauthorized", Message: "invalid or expired token"})
			}
			c.Locals("user", u)
			return c.Next()
		}
		if sid := c.Cookies(sessionCookie); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals("user", u)
				return c.Next()
			}
		}
		return c.Status(fiber.StatusUnauthorized).JSON(problem{Error: "unauthorized", Message: "authentication required"})
	}
}

// RequireAPIAdmin must run after RequireAPIUser.
func RequireAPIAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !currentUser(c).IsAdmin() {
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusForbidden).JSON(problem{Error: "forbidden", Message: "admin role required"})
		}
		return c.Next()
	}
}
