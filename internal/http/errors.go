package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/http/dto"
)

// MapError переводит доменные/DTO ошибки в HTTP статус и тело APIError
func MapError(err error) (int, APIError) {
	switch {
	// DTO validation
	case errors.Is(err, dto.ErrIDsRequired):
		return http.StatusBadRequest, APIError{Code: "invalid_request", Message: "customer_id and offer_id required"}
	case errors.Is(err, dto.ErrWalletTypeInvalid):
		return http.StatusBadRequest, APIError{Code: "invalid_request", Message: "wallet_type must be apple or google"}
	case errors.Is(err, dto.ErrStatusInvalid):
		return http.StatusBadRequest, APIError{Code: "invalid_request", Message: "unknown status"}
	case errors.Is(err, dto.ErrExpirationPast):
		return http.StatusBadRequest, APIError{Code: "invalid_request", Message: "scheduled_expiration_at must be in the future"}
	case errors.Is(err, dto.ErrSerialRequired):
		return http.StatusBadRequest, APIError{Code: "invalid_request", Message: "serial required"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, APIError{Code: "timeout", Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, APIError{Code: "request_canceled", Message: "request canceled"}
	}

	// Service errors
	if ae, ok := apperr.As(err); ok {
		return statusFor(ae.Category), APIError{
			Code:    ae.Code,
			Message: ae.Message,
			Details: map[string]string{"stage": string(ae.Stage)},
		}
	}
	return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
}

func statusFor(c apperr.Category) int {
	switch c {
	case apperr.CategoryInvalidInput:
		return http.StatusBadRequest
	case apperr.CategoryNotFound:
		return http.StatusNotFound
	case apperr.CategoryUnauthorized:
		return http.StatusUnauthorized
	case apperr.CategoryConflict:
		return http.StatusConflict
	case apperr.CategoryRateLimited:
		return http.StatusTooManyRequests
	case apperr.CategoryInfrastructure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
