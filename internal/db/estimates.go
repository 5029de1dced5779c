package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ru-digital/product-estimator/internal/models"
)

const estimateColumns = `id, name, email, phone_number, postcode, total_min, total_max, markup,
	status, notes, estimate_data, created_at, updated_at`

// InsertEstimate creates a product_estimates row and returns the generated id.
func (db *Database) InsertEstimate(ctx context.Context, f models.EstimateFields, status models.EstimateStatus) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO product_estimates
			(name, email, phone_number, postcode, total_min, total_max, markup, status, notes, estimate_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`,
		f.Name, f.Email, f.PhoneNumber, f.Postcode, f.TotalMin, f.TotalMax, f.Markup,
		string(status), f.Notes, f.EstimateData,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateEstimate rewrites every mutable column of an estimate except status.
// It returns the number of rows affected.
func (db *Database) UpdateEstimate(ctx context.Context, id int64, f models.EstimateFields) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE product_estimates SET
			name = $2, email = $3, phone_number = $4, postcode = $5,
			total_min = $6, total_max = $7, markup = $8, notes = $9,
			estimate_data = $10, updated_at = NOW()
		WHERE id = $1`,
		id, f.Name, f.Email, f.PhoneNumber, f.Postcode, f.TotalMin, f.TotalMax, f.Markup,
		f.Notes, f.EstimateData,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindLatestEstimateID returns the most recently created estimate for an exact (name, email) pair.
func (db *Database) FindLatestEstimateID(ctx context.Context, name, email string) (int64, bool, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		SELECT id FROM product_estimates
		WHERE name = $1 AND email = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		name, email,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// GetEstimate fetches one estimate. A missing row yields (nil, nil).
func (db *Database) GetEstimate(ctx context.Context, id int64) (*models.Estimate, error) {
	var e models.Estimate
	var status string
	err := db.Pool.QueryRow(ctx, `SELECT `+estimateColumns+` FROM product_estimates WHERE id = $1`, id).Scan(
		&e.ID, &e.Name, &e.Email, &e.PhoneNumber, &e.Postcode, &e.TotalMin, &e.TotalMax, &e.Markup,
		&status, &e.Notes, &e.EstimateData, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Status = models.EstimateStatus(status)
	return &e, nil
}
