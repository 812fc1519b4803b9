package log

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"invtrack/internal/domain"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	SetOutput(os.Stdout)
}

// SetOutput redirects every subsequent entry to w.
func SetOutput(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Logger()
	logger.Store(&l)
}

// Logger returns the current base logger for code that runs outside a request.
func Logger() *zerolog.Logger { return logger.Load() }

func write(ev *zerolog.Event, c *fiber.Ctx, action string, err error, fields map[string]any) {
	ev = ev.Str("action", action)
	if c != nil {
		ev = ev.Str("ip", c.IP()).
			Str("method", c.Method()).
			Str("path", c.Path())
		if st := c.Response().StatusCode(); st != 0 {
			ev = ev.Int("status", st)
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ev = ev.Str("req_id", rid)
		}
		if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
			ev = ev.Str("user_id", u.ID)
		}
	}
	if err != nil {
		ev = ev.Str("err", err.Error())
	}
	if len(fields) > 0 {
		ev = ev.Interface("fields", fields)
	}
	ev.Send()
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(Logger().Info(), c, action, nil, fields)
}
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(Logger().Log().Str("level", "audit"), c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(Logger().Warn(), c, action, nil, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(Logger().Error(), c, action, err, fields)
}
