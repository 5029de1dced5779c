package api

import (
	"context"
	"sync"

	"github.com/ru-digital/product-estimator/internal/models"
)

// MemoryCatalog serves products and variations from memory for local runs without Postgres.
type MemoryCatalog struct {
	mu         sync.RWMutex
	products   map[int64]models.CatalogProduct
	variations map[int64]models.Variation
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products:   make(map[int64]models.CatalogProduct),
		variations: make(map[int64]models.Variation),
	}
}

// PutProduct adds or replaces a product.
func (m *MemoryCatalog) PutProduct(p models.CatalogProduct) {
	m.mu.Lock()
	m.products[p.ID] = p
	m.mu.Unlock()
}

// PutVariation adds or replaces a variation.
func (m *MemoryCatalog) PutVariation(v models.Variation) {
	m.mu.Lock()
	m.variations[v.ID] = v
	m.mu.Unlock()
}

func (m *MemoryCatalog) GetProduct(_ context.Context, id int64) (*models.CatalogProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryCatalog) GetVariation(_ context.Context, id int64) (*models.Variation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.variations[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}
