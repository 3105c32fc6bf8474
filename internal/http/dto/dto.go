package dto

import "time"

type CreatePassRequest struct {
	CustomerID string `json:"customer_id"`
	OfferID    string `json:"offer_id"`
	WalletType string `json:"wallet_type"`
}

type ChangeStatusRequest struct {
	Status                string     `json:"status"`
	ScheduledExpirationAt *time.Time `json:"scheduled_expiration_at,omitempty"`
}

type ChangeStatusResponse struct {
	SerialNumber          string `json:"serial_number"`
	Status                string `json:"status"`
	ScheduledExpirationAt string `json:"scheduled_expiration_at,omitempty"`
	UpdatedAt             string `json:"updated_at"`
}

type PushResponse struct {
	SerialNumber   string `json:"serial_number"`
	CacheValidator string `json:"etag"`
	Changed        bool   `json:"changed"`
}

// WalletLogRequest — тело POST /v1/log от кошелька
type WalletLogRequest struct {
	Logs []string `json:"logs"`
}
