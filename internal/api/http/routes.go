package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-audit/internal/query"
	"github.com/i474232898/weather-audit/internal/storage"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc *query.Service) {
	api := app.Group("/api")

	api.Get("/logs", func(c *fiber.Ctx) error {
		var req logsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid arguments format.")
		}

		entries, err := svc.ListLogs(c.Context(), req.From, req.To)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch logs")
		}

		return c.JSON(entries)
	})

	api.Get("/logs/:id/payload", func(c *fiber.Ctx) error {
		id := c.Params("id")

		data, err := svc.GetPayload(c.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, query.ErrInvalidInput):
				return fiber.NewError(fiber.StatusBadRequest, "Invalid id: "+id)
			case errors.Is(err, storage.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound)
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch payload")
			}
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})
}

// logsQuery holds the parsed time range of the logs endpoint.
type logsQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *logsQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return validate.Struct(q)
}

// parseTime accepts RFC3339 as well as the common date-time shapes
// clients tend to send.
func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
