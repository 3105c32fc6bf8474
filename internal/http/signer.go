package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/pass-service/internal/http/dto"
)

// Signer — сертификаты, которыми подписываются бандлы
// @Summary     Сведения о подписанте
// @Tags        keys
// @Produce     json
// @Success     200 {object} dto.SignerResponse
// @Router      /signer [get]
func Signer(svc Passes) echo.HandlerFunc {
	return func(c echo.Context) error {
		return writeJSON(c, http.StatusOK, dto.FromSignerInfo(svc.SignerInfo()))
	}
}
