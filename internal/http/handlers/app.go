package handlers

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	applog "invtrack/internal/log"
	"invtrack/web"
)

const csrfCookie = "csrf_"

var errMissingCSRF = errors.New("csrf token not found")

type Options struct {
	// Storage backs the rate limiters; nil keeps counters in memory.
	Storage fiber.Storage
	// AccessLog receives the access log lines; nil means stdout.
	AccessLog io.Writer

	RequestsPerMinute int // global, per IP
	LoginAttempts     int // per IP per 10 minutes on /login, /register and token issue
}

func (o *Options) defaults() {
	if o.RequestsPerMinute <= 0 {
		o.RequestsPerMinute = 120
	}
	if o.LoginAttempts <= 0 {
		o.LoginAttempts = 5
	}
}

// NewApp builds the fiber app with every middleware and route.
func NewApp(d *Deps, opt Options) *fiber.App {
	opt.defaults()

	app := fiber.New(fiber.Config{
		Views:        web.Engine(),
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 << 20, // 1 MiB
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	if opt.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: opt.AccessLog}))
	} else {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(AttachUser(d.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        opt.RequestsPerMinute,
		Expiration: time.Minute,
		Storage:    opt.Storage,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/healthz" || strings.HasPrefix(p, "/ws/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(problem{Error: "rate_limited", Message: "rate limit exceeded, retry soon"})
		},
	}))
	app.Use(csrf.New(csrf.Config{
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ContextKey:     "csrf",
		// API calls without a session cookie carry no ambient credentials
		Next: func(c *fiber.Ctx) bool {
			return bearer(c) != "" || (isAPI(c) && c.Cookies(sessionCookie) == "")
		},
		Extractor: func(c *fiber.Ctx) (string, error) {
			if tok := c.Get("X-CSRF-Token"); tok != "" {
				return tok, nil
			}
			if tok := c.FormValue("csrf"); tok != "" {
				return tok, nil
			}
			return "", errMissingCSRF
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
			if isAPI(c) {
				return c.Status(fiber.StatusForbidden).JSON(problem{Error: "forbidden", Message: "missing or invalid csrf token"})
			}
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."}, "layouts/main")
		},
	}))

	Routes(app, d, opt)

	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(problem{Error: "not_found", Message: "no such endpoint"})
		}
		return notFoundPage(c, "Page not found")
	})
	return app
}

// Routes registers every page, API and websocket route.
func Routes(app *fiber.App, d *Deps, opt Options) {
	loginLimiter := limiter.New(limiter.Config{
		Max:        opt.LoginAttempts,
		Expiration: 10 * time.Minute,
		Storage:    opt.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			if isAPI(c) {
				return c.Status(fiber.StatusTooManyRequests).JSON(problem{Error: "rate_limited", Message: "too many attempts"})
			}
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	})
	user := RequireUser(d.Auth)
	eq := d.EquipmentHandler

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "subscribers": d.Hub.Subscribers()})
	})

	// Auth
	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", loginLimiter, d.AuthHandler.Login)
	app.Get("/register", d.AuthHandler.RegisterForm)
	app.Post("/register", loginLimiter, d.AuthHandler.Register)
	app.Post("/logout", d.AuthHandler.Logout)

	// Pages
	app.Get("/", user, d.ReportHandler.Dashboard)
	app.Get("/products", user, d.CatalogHandler.Products)
	app.Get("/equipment", user, eq.List)
	app.Post("/equipment", user, eq.Create)
	app.Get("/equipment/movements", user, eq.Movements)
	app.Post("/equipment/movements", user, eq.Move)
	app.Get("/equipment/:id/edit", user, eq.EditForm)
	app.Post("/equipment/:id/delete", user, eq.Delete)
	app.Post("/equipment/:id", user, eq.Update)
	app.Get("/stock", user, d.StockHandler.Page)
	app.Post("/stock/movements", user, d.StockHandler.Record)
	app.Get("/reports", user, d.ReportHandler.StockPage)

	admin := app.Group("/admin", RequireAdmin(d.Auth))
	admin.Get("/users", d.AdminHandler.UsersPage)
	admin.Post("/users", d.AdminHandler.CreateUser)
	admin.Post("/users/:id/delete", d.AdminHandler.DeleteUser)
	admin.Post("/users/:id", d.AdminHandler.UpdateUser)

	// API
	apiUser := RequireAPIUser(d.Auth)
	apiAdmin := RequireAPIAdmin()
	api := app.Group("/api/v1")
	api.Post("/auth/token", loginLimiter, d.AuthHandler.Token)
	api.Get("/auth/me", apiUser, d.AuthHandler.Me)

	api.Get("/products", apiUser, d.CatalogHandler.APIProducts)
	api.Get("/products/:id", apiUser, d.CatalogHandler.APIProduct)
	api.Post("/products", apiUser, apiAdmin, d.CatalogHandler.APICreateProduct)
	api.Put("/products/:id", apiUser, apiAdmin, d.CatalogHandler.APIUpdateProduct)
	api.Delete("/products/:id", apiUser, apiAdmin, d.CatalogHandler.APIDeleteProduct)
	api.Get("/categories", apiUser, d.CatalogHandler.APICategories)
	api.Post("/categories", apiUser, apiAdmin, d.CatalogHandler.APICreateCategory)
	api.Put("/categories/:id", apiUser, apiAdmin, d.CatalogHandler.APIRenameCategory)
	api.Delete("/categories/:id", apiUser, apiAdmin, d.CatalogHandler.APIDeleteCategory)

	api.Get("/stock/movements", apiUser, d.StockHandler.APIList)
	api.Post("/stock/movements", apiUser, d.StockHandler.APIRecord)

	api.Get("/equipment/movements", apiUser, eq.APIMovements)
	api.Post("/equipment/movements", apiUser, eq.APIMove)
	api.Get("/equipment", apiUser, eq.APIList)
	api.Post("/equipment", apiUser, eq.APICreate)
	api.Get("/equipment/:id", apiUser, eq.APIGet)
	api.Patch("/equipment/:id", apiUser, eq.APIUpdate)
	api.Delete("/equipment/:id", apiUser, eq.APIDelete)
	api.Get("/equipment/:id/movements", apiUser, eq.APIHistory)
	api.Get("/equipment/:id/replay", apiUser, eq.APIReplay)

	api.Get("/reports/dashboard", apiUser, d.ReportHandler.APIDashboard)
	api.Get("/reports/stock", apiUser, d.ReportHandler.APIStock)

	api.Get("/admin/users", apiUser, apiAdmin, d.AdminHandler.APIUsers)
	api.Post("/admin/users", apiUser, apiAdmin, d.AdminHandler.APICreateUser)
	api.Patch("/admin/users/:id", apiUser, apiAdmin, d.AdminHandler.APIUpdateUser)
	api.Delete("/admin/users/:id", apiUser, apiAdmin, d.AdminHandler.APIDeleteUser)

	// Live updates
	app.Get("/ws/equipment", apiUser, d.LiveHandler.Upgrade, d.LiveHandler.Stream())
}
