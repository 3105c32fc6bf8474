package dto

import (
	"errors"
	"strings"
	"time"

	im "github.com/vbncursed/vkr/pass-service/internal/models"
)

var (
	ErrIDsRequired       = errors.New("customer_id and offer_id required")
	ErrWalletTypeInvalid = errors.New("wallet_type must be apple or google")
	ErrStatusInvalid     = errors.New("unknown status")
	ErrExpirationPast    = errors.New("scheduled_expiration_at must be in the future")
	ErrSerialRequired    = errors.New("serial required")
)

// Validate проверяет инварианты CreatePassRequest
func (r CreatePassRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" || strings.TrimSpace(r.OfferID) == "" {
		return ErrIDsRequired
	}
	if _, ok := im.ParseWalletType(r.WalletType); !ok {
		return ErrWalletTypeInvalid
	}
	return nil
}

// Validate проверяет ChangeStatusRequest; срок в прошлом допустим только
// для перевода в expired.
func (r ChangeStatusRequest) Validate(now time.Time) error {
	st, ok := im.ParsePassStatus(r.Status)
	if !ok {
		return ErrStatusInvalid
	}
	if r.ScheduledExpirationAt != nil && st != im.StatusExpired && !r.ScheduledExpirationAt.After(now) {
		return ErrExpirationPast
	}
	return nil
}
