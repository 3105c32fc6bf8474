package models

import "time"

// WalletType — целевой кошелёк
type WalletType string

const (
	WalletApple  WalletType = "apple"
	WalletGoogle WalletType = "google"
)

func ParseWalletType(s string) (WalletType, bool) {
	switch wt := WalletType(s); wt {
	case WalletApple, WalletGoogle:
		return wt, true
	}
	return "", false
}

// PassKey — тройка, к которой привязан один логический пропуск
type PassKey struct {
	CustomerID string
	OfferID    string
	WalletType WalletType
}

// IdentityRecord — персистентная identity выпущенного пропуска
type IdentityRecord struct {
	CustomerID            string
	OfferID               string
	WalletType            WalletType
	SerialNumber          string
	AuthenticationToken   string
	CacheValidator        string
	Status                PassStatus
	ScheduledExpirationAt *time.Time
	IssuedAt              time.Time
	UpdatedAt             time.Time
	// счётчик push-уведомлений в текущем окне
	PushWindowStart *time.Time
	PushCount       int
}

func (r IdentityRecord) Key() PassKey {
	return PassKey{CustomerID: r.CustomerID, OfferID: r.OfferID, WalletType: r.WalletType}
}

// Live — запись может переиспользоваться при перегенерации
func (r IdentityRecord) Live() bool { return !r.Status.Terminal() }
