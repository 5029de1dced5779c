package estimates

import (
	"context"
	"sync"
	"time"

	"github.com/ru-digital/product-estimator/internal/models"
)

// MemoryRepository keeps estimates in process memory. It backs local runs without a database
// and the package tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]models.Estimate
	now    func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[int64]models.Estimate), now: time.Now}
}

func (m *MemoryRepository) InsertEstimate(_ context.Context, f models.EstimateFields, status models.EstimateStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := m.now().UTC()
	m.rows[m.nextID] = models.Estimate{
		ID:           m.nextID,
		Name:         f.Name,
		Email:        f.Email,
		PhoneNumber:  f.PhoneNumber,
		Postcode:     f.Postcode,
		TotalMin:     f.TotalMin,
		TotalMax:     f.TotalMax,
		Markup:       f.Markup,
		Status:       status,
		Notes:        f.Notes,
		EstimateData: f.EstimateData,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return m.nextID, nil
}

func (m *MemoryRepository) UpdateEstimate(_ context.Context, id int64, f models.EstimateFields) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return 0, nil
	}
	row.Name = f.Name
	row.Email = f.Email
	row.PhoneNumber = f.PhoneNumber
	row.Postcode = f.Postcode
	row.TotalMin = f.TotalMin
	row.TotalMax = f.TotalMax
	row.Markup = f.Markup
	row.Notes = f.Notes
	row.EstimateData = f.EstimateData
	row.UpdatedAt = m.now().UTC()
	m.rows[id] = row
	return 1, nil
}

// FindLatestEstimateID orders by creation time, then id, matching the SQL query.
func (m *MemoryRepository) FindLatestEstimateID(_ context.Context, name, email string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *models.Estimate
	for id := range m.rows {
		row := m.rows[id]
		if row.Name != name || row.Email != email {
			continue
		}
		if best == nil || row.CreatedAt.After(best.CreatedAt) ||
			(row.CreatedAt.Equal(best.CreatedAt) && row.ID > best.ID) {
			r := row
			best = &r
		}
	}
	if best == nil {
		return 0, false, nil
	}
	return best.ID, true, nil
}

func (m *MemoryRepository) GetEstimate(_ context.Context, id int64) (*models.Estimate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}
