package models

// CatalogProduct is the subset of `products` the estimator needs
type CatalogProduct struct {
	ID       int64  `json:"id" db:"product_id"`
	Title    string `json:"title" db:"title"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// Variation is a purchasable configuration of a parent product
// Backed by table `product_variations`
type Variation struct {
	ID               int64  `json:"variation_id" db:"variation_id"`
	ProductID        int64  `json:"product_id" db:"product_id"`
	Title            string `json:"title" db:"title"`
	SKU              string `json:"sku" db:"sku"`
	Description      string `json:"description" db:"description"`
	EstimatorEnabled bool   `json:"estimator_enabled" db:"estimator_enabled"`
}

// Envelope is the {success, data} response shape used by the estimator endpoints.
type Envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
}
