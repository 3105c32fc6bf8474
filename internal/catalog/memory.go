package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/vbncursed/vkr/pass-service/internal/models"
)

// Memory — каталог в памяти для тестов и локального запуска.
type Memory struct {
	mu         sync.RWMutex
	businesses map[string]models.Business
	customers  map[string]models.Customer
	offers     map[string]models.Offer
	designs    map[string]models.Design
	progress   map[[2]string]models.Progress
}

func NewMemory() *Memory {
	return &Memory{
		businesses: map[string]models.Business{},
		customers:  map[string]models.Customer{},
		offers:     map[string]models.Offer{},
		designs:    map[string]models.Design{},
		progress:   map[[2]string]models.Progress{},
	}
}

var _ Reader = (*Memory)(nil)

func (m *Memory) Apply(_ context.Context, s Seed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range s.Businesses {
		m.businesses[b.ID] = b
	}
	for _, c := range s.Customers {
		m.customers[c.ID] = c
	}
	for _, o := range s.Offers {
		m.offers[o.ID] = o
	}
	for id, d := range s.Designs {
		m.designs[id] = d
	}
	for _, p := range s.Progress {
		m.progress[[2]string{p.CustomerID, p.OfferID}] = p.Progress
	}
	return nil
}

// SetProgress replaces the stamp count of one customer on one offer.
func (m *Memory) SetProgress(customerID, offerID string, p models.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[[2]string{customerID, offerID}] = p
}

func (m *Memory) Lookup(_ context.Context, customerID, offerID string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[customerID]
	if !ok {
		return Entry{}, fmt.Errorf("customer %q: %w", customerID, ErrNotFound)
	}
	o, ok := m.offers[offerID]
	if !ok {
		return Entry{}, fmt.Errorf("offer %q: %w", offerID, ErrNotFound)
	}
	e := Entry{
		Customer: c,
		Offer:    o,
		Business: m.businesses[o.BusinessID],
		Progress: m.progress[[2]string{customerID, offerID}],
	}
	if d, ok := m.designs[offerID]; ok {
		e.Design = &d
	}
	return e, nil
}
