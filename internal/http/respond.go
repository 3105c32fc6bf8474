package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/pass-service/internal/bundle"
	issvc "github.com/vbncursed/vkr/pass-service/internal/service"
)

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(c echo.Context, status int, v any) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(status, v)
}

// writePass отдаёт бандл с валидаторами для условных запросов
func writePass(c echo.Context, b issvc.PassBundle) error {
	h := c.Response().Header()
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set("ETag", b.CacheValidator)
	if !b.LastModified.IsZero() {
		h.Set(echo.HeaderLastModified, b.LastModified.UTC().Format(http.TimeFormat))
	}
	h.Set(echo.HeaderContentDisposition, `attachment; filename="`+b.SerialNumber+`.pkpass"`)
	h.Set("X-Pass-Serial", b.SerialNumber)
	h.Set(echo.HeaderContentLength, strconv.Itoa(len(b.Data)))
	return c.Blob(http.StatusOK, bundle.ContentType, b.Data)
}

func writeNotModified(c echo.Context, b issvc.PassBundle) error {
	h := c.Response().Header()
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set("ETag", b.CacheValidator)
	if !b.LastModified.IsZero() {
		h.Set(echo.HeaderLastModified, b.LastModified.UTC().Format(http.TimeFormat))
	}
	return c.NoContent(http.StatusNotModified)
}

// ErrorHandler — echo.HTTPErrorHandler: ошибки use case'ов через MapError,
// 5xx пишутся в лог вместе с причиной.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = writeJSON(c, he.Code, map[string]any{
				"code":    http.StatusText(he.Code),
				"message": he.Message,
			})
			return
		}
		status, body := MapError(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "status", status, "err", err)
		}
		_ = writeJSON(c, status, body)
	}
}
