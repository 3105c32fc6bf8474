package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vbncursed/vkr/pass-service/internal/models"
)

type BusinessModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BusinessModel) TableName() string { return "businesses" }

type CustomerModel struct {
	ID        string `gorm:"primaryKey"`
	FirstName string `gorm:"not null"`
	LastName  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CustomerModel) TableName() string { return "customers" }

type OfferModel struct {
	ID             string `gorm:"primaryKey"`
	BusinessID     string `gorm:"index;not null"`
	Title          string `gorm:"not null"`
	Description    string `gorm:"not null"`
	StampsRequired int    `gorm:"not null"`
	RewardText     string `gorm:"not null"`
	Terms          string `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Business BusinessModel `gorm:"foreignKey:BusinessID"`
}

func (OfferModel) TableName() string { return "offers" }

type DesignModel struct {
	OfferID         string `gorm:"primaryKey"`
	BackgroundColor string
	ForegroundColor string
	LabelColor      string
	LogoText        string
	IconURL         string `gorm:"column:icon_url"`
	LogoURL         string `gorm:"column:logo_url"`
	StampImageURL   string `gorm:"column:stamp_image_url"`
	StampIcon       string
	ProgressLayout  string
}

func (DesignModel) TableName() string { return "offer_designs" }

type ProgressModel struct {
	CustomerID      string `gorm:"primaryKey"`
	OfferID         string `gorm:"primaryKey"`
	StampsEarned    int    `gorm:"not null"`
	RewardsRedeemed int    `gorm:"not null"`
	UpdatedAt       time.Time
}

func (ProgressModel) TableName() string { return "customer_progress" }

// Gorm — каталог в Postgres через gorm. Использует тот же пул pgx, что и
// реестр, чтобы не держать второй набор соединений.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm wraps pool in database/sql for gorm.
func OpenGorm(pool *pgxpool.Pool) (*Gorm, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return &Gorm{db: db}, nil
}

func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

var _ Reader = (*Gorm)(nil)

func (g *Gorm) Lookup(ctx context.Context, customerID, offerID string) (Entry, error) {
	db := g.db.WithContext(ctx)

	var c CustomerModel
	if err := db.First(&c, "id = ?", customerID).Error; err != nil {
		return Entry{}, notFound(err, "customer", customerID)
	}
	var o OfferModel
	if err := db.Preload("Business").First(&o, "id = ?", offerID).Error; err != nil {
		return Entry{}, notFound(err, "offer", offerID)
	}
	e := Entry{
		Customer: models.Customer{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName},
		Offer: models.Offer{
			ID: o.ID, BusinessID: o.BusinessID, Title: o.Title, Description: o.Description,
			StampsRequired: o.StampsRequired, RewardText: o.RewardText, Terms: o.Terms,
		},
		Business: models.Business{ID: o.Business.ID, Name: o.Business.Name},
	}

	var p ProgressModel
	err := db.First(&p, "customer_id = ? AND offer_id = ?", customerID, offerID).Error
	switch {
	case err == nil:
		e.Progress = models.Progress{StampsEarned: p.StampsEarned, RewardsRedeemed: p.RewardsRedeemed, UpdatedAt: p.UpdatedAt}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Entry{}, err
	}

	var d DesignModel
	err = db.First(&d, "offer_id = ?", offerID).Error
	switch {
	case err == nil:
		e.Design = &models.Design{
			BackgroundColor: d.BackgroundColor, ForegroundColor: d.ForegroundColor, LabelColor: d.LabelColor,
			LogoText: d.LogoText, IconURL: d.IconURL, LogoURL: d.LogoURL, StampImageURL: d.StampImageURL,
			StampIcon: d.StampIcon, ProgressLayout: d.ProgressLayout,
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Entry{}, err
	}
	return e, nil
}

// Apply upserts a seed batch in one transaction.
func (g *Gorm) Apply(ctx context.Context, s Seed) error {
	upsert := clause.OnConflict{UpdateAll: true}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range s.Businesses {
			if err := tx.Clauses(upsert).Create(&BusinessModel{ID: b.ID, Name: b.Name}).Error; err != nil {
				return err
			}
		}
		for _, c := range s.Customers {
			if err := tx.Clauses(upsert).Create(&CustomerModel{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName}).Error; err != nil {
				return err
			}
		}
		for _, o := range s.Offers {
			m := OfferModel{
				ID: o.ID, BusinessID: o.BusinessID, Title: o.Title, Description: o.Description,
				StampsRequired: o.StampsRequired, RewardText: o.RewardText, Terms: o.Terms,
			}
			if err := tx.Clauses(upsert).Omit("Business").Create(&m).Error; err != nil {
				return err
			}
		}
		for offerID, d := range s.Designs {
			m := DesignModel{
				OfferID: offerID, BackgroundColor: d.BackgroundColor, ForegroundColor: d.ForegroundColor,
				LabelColor: d.LabelColor, LogoText: d.LogoText, IconURL: d.IconURL, LogoURL: d.LogoURL,
				StampImageURL: d.StampImageURL, StampIcon: d.StampIcon, ProgressLayout: d.ProgressLayout,
			}
			if err := tx.Clauses(upsert).Create(&m).Error; err != nil {
				return err
			}
		}
		for _, p := range s.Progress {
			m := ProgressModel{
				CustomerID: p.CustomerID, OfferID: p.OfferID, StampsEarned: p.StampsEarned,
				RewardsRedeemed: p.RewardsRedeemed, UpdatedAt: p.UpdatedAt,
			}
			if err := tx.Clauses(upsert).Create(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return err
}
