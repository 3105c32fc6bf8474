// Package catalog reads customers, offers, businesses, progress and
// designs. The pass pipeline only reads it; seeding tools write it.
package catalog

import (
	"context"
	"errors"

	"github.com/vbncursed/vkr/pass-service/internal/models"
)

var ErrNotFound = errors.New("catalog record not found")

// Entry is everything the assembler needs about one customer and offer.
type Entry struct {
	Customer models.Customer
	Offer    models.Offer
	Business models.Business
	Progress models.Progress
	Design   *models.Design
}

// Reader — порт чтения каталога для сервиса.
type Reader interface {
	Lookup(ctx context.Context, customerID, offerID string) (Entry, error)
}

// Seed is a batch of catalog rows written by seed-catalog and tests.
type Seed struct {
	Businesses []models.Business
	Customers  []models.Customer
	Offers     []models.Offer
	Designs    map[string]models.Design
	Progress   []ProgressRow
}

type ProgressRow struct {
	CustomerID string
	OfferID    string
	models.Progress
}
