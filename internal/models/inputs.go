package models

import "time"

type Customer struct {
	ID        string
	FirstName string
	LastName  string
}

type Business struct {
	ID   string
	Name string
}

type Offer struct {
	ID             string
	BusinessID     string
	Title          string
	Description    string
	StampsRequired int
	RewardText     string
	Terms          string
}

type Progress struct {
	StampsEarned    int
	RewardsRedeemed int
	UpdatedAt       time.Time
}

// Design — необязательная конфигурация внешнего вида. Пустое поле значит
// "взять значение по умолчанию"; nil-дизайн даёт палитру по умолчанию целиком.
type Design struct {
	BackgroundColor string
	ForegroundColor string
	LabelColor      string
	LogoText        string
	IconURL         string
	LogoURL         string
	StampImageURL   string
	StampIcon       string
	ProgressLayout  string
}
