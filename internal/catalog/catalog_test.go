package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/catalog"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/repo/testdb"
)

type writer interface {
	catalog.Reader
	Apply(ctx context.Context, s catalog.Seed) error
}

var seed = catalog.Seed{
	Businesses: []models.Business{{ID: "B1", Name: "Bean There"}},
	Customers:  []models.Customer{{ID: "C1", FirstName: "Ada", LastName: "Lovelace"}, {ID: "C2"}},
	Offers:     []models.Offer{{ID: "O1", BusinessID: "B1", Title: "Coffee club", StampsRequired: 8}},
	Designs:    map[string]models.Design{"O1": {BackgroundColor: "#336699", StampIcon: "cup"}},
	Progress: []catalog.ProgressRow{{
		CustomerID: "C1", OfferID: "O1",
		Progress: models.Progress{StampsEarned: 3, UpdatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
	}},
}

func catalogs(t *testing.T, fn func(t *testing.T, c writer)) {
	t.Run("memory", func(t *testing.T) { fn(t, catalog.NewMemory()) })
	t.Run("gorm", func(t *testing.T) {
		g, err := catalog.OpenGorm(testdb.NewDatabase(t))
		if err != nil {
			t.Fatalf("OpenGorm: %v", err)
		}
		fn(t, g)
	})
}

func TestLookup(t *testing.T) {
	catalogs(t, func(t *testing.T, c writer) {
		ctx := context.Background()
		if err := c.Apply(ctx, seed); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		e, err := c.Lookup(ctx, "C1", "O1")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if e.Business.Name != "Bean There" || e.Offer.StampsRequired != 8 || e.Progress.StampsEarned != 3 {
			t.Fatalf("entry = %+v", e)
		}
		if e.Design == nil || e.Design.StampIcon != "cup" {
			t.Fatalf("design = %+v", e.Design)
		}

		other, err := c.Lookup(ctx, "C2", "O1")
		if err != nil {
			t.Fatalf("Lookup C2: %v", err)
		}
		if other.Progress.StampsEarned != 0 {
			t.Fatalf("missing progress must be zero, got %+v", other.Progress)
		}

		if _, err := c.Lookup(ctx, "nobody", "O1"); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("unknown customer: %v", err)
		}
		if _, err := c.Lookup(ctx, "C1", "nothing"); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("unknown offer: %v", err)
		}
	})
}

func TestLoadSeed(t *testing.T) {
	doc := `
businesses:
  - {id: B1, name: Bean There}
customers:
  - {id: C1, first_name: Ada, last_name: Lovelace}
offers:
  - id: O1
    business_id: B1
    title: Coffee club
    stamps_required: 8
    design:
      background_color: "#336699"
      stamp_icon: cup
progress:
  - {customer_id: C1, offer_id: O1, stamps_earned: 3}
`
	s, err := catalog.LoadSeed(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	m := catalog.NewMemory()
	if err := m.Apply(context.Background(), s); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	e, err := m.Lookup(context.Background(), "C1", "O1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.Business.Name != "Bean There" || e.Progress.StampsEarned != 3 || e.Design == nil || e.Design.StampIcon != "cup" {
		t.Fatalf("entry = %+v", e)
	}

	if _, err := catalog.LoadSeed(strings.NewReader("offers:\n  - id: O1\n    stamps: 3\n")); err == nil {
		t.Fatalf("unknown keys must be rejected")
	}
}
