package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ru-digital/product-estimator/internal/models"
)

// GetProduct returns an active-or-inactive catalog product, or (nil, nil) when absent.
func (db *Database) GetProduct(ctx context.Context, id int64) (*models.CatalogProduct, error) {
	var p models.CatalogProduct
	err := db.Pool.QueryRow(ctx,
		`SELECT product_id, title, is_active FROM products WHERE product_id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetVariation returns a product variation, or (nil, nil) when absent.
func (db *Database) GetVariation(ctx context.Context, id int64) (*models.Variation, error) {
	var v models.Variation
	err := db.Pool.QueryRow(ctx, `
		SELECT variation_id, product_id, title, COALESCE(sku, ''), COALESCE(description, ''), estimator_enabled
		FROM product_variations WHERE variation_id = $1`, id,
	).Scan(&v.ID, &v.ProductID, &v.Title, &v.SKU, &v.Description, &v.EstimatorEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
