package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vbncursed/vkr/pass-service/internal/ratelimit"
)

// RequestLogger пишет одну строку slog на запрос
func RequestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			log.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	})
}

// RateLimit ограничивает запросы на IP клиента в окне window. При
// недоступном лимитере запрос пропускается.
func RateLimit(l ratelimit.Limiter, scope string, limit int, window time.Duration, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil || limit <= 0 {
				return next(c)
			}
			d, err := l.Allow(c.Request().Context(), scope+":ip:"+c.RealIP(), limit, window)
			if err != nil {
				log.Warn("rate limiter unavailable", "scope", scope, "err", err)
				return next(c)
			}
			writeRateLimitHeaders(c, d)
			if !d.Allowed {
				return writeJSON(c, http.StatusTooManyRequests, APIError{Code: "rate_limited", Message: "rate limit exceeded"})
			}
			return next(c)
		}
	}
}

func writeRateLimitHeaders(c echo.Context, d ratelimit.Decision) {
	h := c.Response().Header()
	if d.Limit > 0 {
		h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
	}
	if d.Remaining >= 0 {
		h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	}
	if !d.ResetAt.IsZero() {
		h.Set("RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		if !d.Allowed {
			h.Set(echo.HeaderRetryAfter, strconv.FormatInt(max(int64(time.Until(d.ResetAt).Seconds()), 0), 10))
		}
	}
}
