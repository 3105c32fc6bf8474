package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/pass-service/internal/http/dto"
	issvc "github.com/vbncursed/vkr/pass-service/internal/service"
)

const applePassScheme = "ApplePass "

// WalletGetPass — обновление пропуска по запросу кошелька. Совпавший
// If-None-Match даёт 304 без сборки бандла.
// @Summary     Wallet: актуальный пропуск
// @Tags        wallet
// @Produce     application/vnd.apple.pkpass
// @Param       passTypeIdentifier path string true "Pass type identifier"
// @Param       serialNumber       path string true "Serial number"
// @Param       Authorization      header string true "ApplePass <token>"
// @Param       If-None-Match      header string false "ETag"
// @Success     200 {file} binary
// @Success     304
// @Failure     401 {object} APIError
// @Failure     404 {object} APIError
// @Failure     429 {object} APIError
// @Router      /v1/passes/{passTypeIdentifier}/{serialNumber} [get]
func WalletGetPass(svc Passes) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, applePassScheme)
		if !ok || strings.TrimSpace(token) == "" {
			return writeJSON(c, http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "ApplePass authorization required"})
		}
		res, err := svc.FetchBySerial(c.Request().Context(), issvc.FetchCommand{
			PassTypeIdentifier:  c.Param("passTypeIdentifier"),
			SerialNumber:        c.Param("serialNumber"),
			AuthenticationToken: strings.TrimSpace(token),
			IfNoneMatch:         c.Request().Header.Get("If-None-Match"),
		})
		if err != nil {
			return err
		}
		if res.NotModified {
			return writeNotModified(c, res.Bundle)
		}
		return writePass(c, res.Bundle)
	}
}

// WalletLog — сообщения об ошибках, которые присылает кошелёк
// @Summary     Wallet: журнал ошибок устройства
// @Tags        wallet
// @Accept      json
// @Param       request body dto.WalletLogRequest true "Logs"
// @Success     200
// @Router      /v1/log [post]
func WalletLog(log *slog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.WalletLogRequest
		if err := c.Bind(&req); err != nil {
			return writeJSON(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "malformed"})
		}
		for _, m := range req.Logs {
			log.Warn("wallet log", "message", m, "ip", c.RealIP())
		}
		return c.NoContent(http.StatusOK)
	}
}
