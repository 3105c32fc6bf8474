package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/pass-service/internal/http/dto"
	im "github.com/vbncursed/vkr/pass-service/internal/models"
	issvc "github.com/vbncursed/vkr/pass-service/internal/service"
)

// Passes — use case'ы, которые обслуживает HTTP слой
type Passes interface {
	Issue(ctx context.Context, cmd issvc.IssueCommand) (issvc.PassBundle, error)
	FetchBySerial(ctx context.Context, cmd issvc.FetchCommand) (issvc.FetchResult, error)
	FetchByTriple(ctx context.Context, cmd issvc.FetchByTripleCommand) (issvc.FetchResult, error)
	ChangeStatus(ctx context.Context, cmd issvc.ChangeStatusCommand) (im.IdentityRecord, error)
	RequestPush(ctx context.Context, serial string) (issvc.PushResult, error)
	SignerInfo() issvc.SignerInfo
}

// CreatePass — выпуск или перевыпуск пропуска
// @Summary     Выпуск пропуска
// @Tags        passes
// @Accept      json
// @Produce     application/vnd.apple.pkpass
// @Param       request body dto.CreatePassRequest true "Create pass"
// @Success     200 {file} binary
// @Failure     400 {object} APIError
// @Failure     404 {object} APIError
// @Failure     503 {object} APIError
// @Router      /passes [post]
func CreatePass(svc Passes) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.CreatePassRequest
		if err := c.Bind(&req); err != nil {
			return writeJSON(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "malformed"})
		}
		if err := req.Validate(); err != nil {
			return err
		}
		b, err := svc.Issue(c.Request().Context(), req.ToCommand())
		if err != nil {
			return err
		}
		return writePass(c, b)
	}
}

// GetPass — текущий бандл уже выпущенной тройки с поддержкой If-None-Match.
// Не выпускает: для новой тройки отвечает 404.
// @Summary     Получить пропуск
// @Tags        passes
// @Produce     application/vnd.apple.pkpass
// @Param       wallet_type  path string true "apple | google"
// @Param       customer_id  path string true "Customer ID"
// @Param       offer_id     path string true "Offer ID"
// @Param       If-None-Match header string false "ETag"
// @Success     200 {file} binary
// @Success     304
// @Failure     400 {object} APIError
// @Failure     404 {object} APIError
// @Router      /passes/{wallet_type}/{customer_id}/{offer_id} [get]
func GetPass(svc Passes) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := dto.CreatePassRequest{
			CustomerID: c.Param("customer_id"),
			OfferID:    c.Param("offer_id"),
			WalletType: c.Param("wallet_type"),
		}
		if err := req.Validate(); err != nil {
			return err
		}
		res, err := svc.FetchByTriple(c.Request().Context(), req.ToFetchCommand(c.Request().Header.Get("If-None-Match")))
		if err != nil {
			return err
		}
		if res.NotModified {
			return writeNotModified(c, res.Bundle)
		}
		return writePass(c, res.Bundle)
	}
}

// ChangeStatus — смена статуса жизненного цикла
// @Summary     Сменить статус пропуска
// @Tags        passes
// @Accept      json
// @Produce     json
// @Param       serial  path string true "Serial number"
// @Param       request body dto.ChangeStatusRequest true "Status"
// @Success     200 {object} dto.ChangeStatusResponse
// @Failure     400 {object} APIError
// @Failure     404 {object} APIError
// @Failure     409 {object} APIError
// @Router      /passes/{serial}/status [post]
func ChangeStatus(svc Passes) echo.HandlerFunc {
	return func(c echo.Context) error {
		serial := strings.TrimSpace(c.Param("serial"))
		if serial == "" {
			return dto.ErrSerialRequired
		}
		var req dto.ChangeStatusRequest
		if err := c.Bind(&req); err != nil {
			return writeJSON(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "malformed"})
		}
		if err := req.Validate(time.Now()); err != nil {
			return err
		}
		rec, err := svc.ChangeStatus(c.Request().Context(), req.ToCommand(serial))
		if err != nil {
			return err
		}
		return writeJSON(c, http.StatusOK, dto.FromIdentityRecord(rec))
	}
}

// RequestPush — пересборка и уведомление устройств
// @Summary     Запросить обновление на устройствах
// @Tags        passes
// @Produce     json
// @Param       serial  path string true "Serial number"
// @Success     202 {object} dto.PushResponse
// @Failure     404 {object} APIError
// @Failure     429 {object} APIError
// @Router      /passes/{serial}/push [post]
func RequestPush(svc Passes) echo.HandlerFunc {
	return func(c echo.Context) error {
		serial := strings.TrimSpace(c.Param("serial"))
		if serial == "" {
			return dto.ErrSerialRequired
		}
		res, err := svc.RequestPush(c.Request().Context(), serial)
		if err != nil {
			return err
		}
		return writeJSON(c, http.StatusAccepted, dto.FromPushResult(res))
	}
}
