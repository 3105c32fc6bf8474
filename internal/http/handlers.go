package http

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthzResponse struct {
	Status string `json:"status"`
}
type ReadyzResponse struct {
	Status string `json:"status"`
}

// Healthz liveness.
// @Summary     Liveness probe
// @Tags        meta
// @Produce     json
// @Success     200 {object} HealthzResponse
// @Router      /healthz [get]
func Healthz(c echo.Context) error {
	return writeJSON(c, http.StatusOK, HealthzResponse{Status: "ok"})
}

// Pinger — внешнее хранилище, доступность которого проверяет readyz
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyCheck — именованная зависимость готовности (пул pgx, redis лимитера)
type ReadyCheck struct {
	Name   string
	Pinger Pinger
}

// Readyz пингует зависимости по порядку в общем таймауте. Пустой список
// (хранилище и лимитер в памяти) означает готовность сразу; 503 называет
// первую недоступную зависимость.
// @Summary     Readiness probe
// @Tags        meta
// @Produce     json
// @Success     200 {object} ReadyzResponse
// @Failure     503 {object} APIError
// @Router      /readyz [get]
func Readyz(checks []ReadyCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
		defer cancel()
		for _, rc := range checks {
			if err := rc.Pinger.Ping(ctx); err != nil {
				return writeJSON(c, http.StatusServiceUnavailable, APIError{
					Code:    "not_ready",
					Message: rc.Name + " not ready",
					Details: map[string]string{"dependency": rc.Name},
				})
			}
		}
		return writeJSON(c, http.StatusOK, ReadyzResponse{Status: "ready"})
	}
}

// StrictJSONBinder запрещает неизвестные поля
type StrictJSONBinder struct{}

func (StrictJSONBinder) Bind(i interface{}, c echo.Context) error {
	if ct := c.Request().Header.Get(echo.HeaderContentType); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != echo.MIMEApplicationJSON {
			return echo.ErrUnsupportedMediaType
		}
	}
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(i); err != nil {
		return err
	}
	return nil
}
