package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "invtrack/internal/log"
	"invtrack/internal/services"
	"invtrack/internal/validate"
)

const genericError = "Something went wrong. Please try again."

// problem is the JSON body of every API error.
type problem struct {
	Error   string                `json:"error"`
	Message string                `json:"message"`
	Fields  []validate.FieldError `json:"fields,omitempty"`
}

// classify maps a service error to an HTTP status and a message that is safe
// to show. Backend details never leave the server.
func classify(err error) (int, problem) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, problem{Error: "validation_error", Message: "Please correct the highlighted fields.", Fields: verr.Fields}
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, problem{Error: "not_found", Message: err.Error()}
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, problem{Error: "conflict", Message: services.Reason(err)}
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, problem{Error: "forbidden", Message: services.Reason(err)}
	default:
		return fiber.StatusInternalServerError, problem{Error: "internal", Message: genericError}
	}
}

// apiError writes err as JSON. Server-side failures are logged under action.
func apiError(c *fiber.Ctx, action string, err error) error {
	status, body := classify(err)
	switch {
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, action+".fail", err, nil)
	case status == fiber.StatusForbidden:
		applog.Security(c, action+".denied", map[string]any{"reason": body.Message})
	default:
		applog.Info(c, action+".rejected", map[string]any{"reason": body.Message})
	}
	return c.Status(status).JSON(body)
}

// pageError renders tmpl again with the error placed next to the form.
func pageError(c *fiber.Ctx, action, tmpl string, err error, data fiber.Map) error {
	status, body := classify(err)
	if status >= fiber.StatusInternalServerError {
		applog.Error(c, action+".fail", err, nil)
	} else {
		applog.Info(c, action+".rejected", map[string]any{"reason": body.Message})
	}
	if data == nil {
		data = fiber.Map{}
	}
	data["Err"] = body.Message
	data["Errors"] = body.Fields
	c.Status(status)
	return render(c, tmpl, data)
}

// ErrorHandler is the app-wide fallback for errors returned by handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := genericError
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code, msg = fe.Code, fe.Message
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.Status(code).JSON(problem{Error: "error", Message: msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}, "layouts/main"); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}
