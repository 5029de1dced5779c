package models

import "time"

// EstimateStatus mirrors the status column of product_estimates
type EstimateStatus string

const (
	EstimateStatusSaved EstimateStatus = "saved"
)

// Estimate represents a persisted customer estimate
// Backed by table `product_estimates`
type Estimate struct {
	ID           int64          `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Email        string         `json:"email" db:"email"`
	PhoneNumber  string         `json:"phone_number" db:"phone_number"`
	Postcode     string         `json:"postcode" db:"postcode"`
	TotalMin     float64        `json:"total_min" db:"total_min"`
	TotalMax     float64        `json:"total_max" db:"total_max"`
	Markup       float64        `json:"markup" db:"markup"`
	Status       EstimateStatus `json:"status" db:"status"`
	Notes        string         `json:"notes" db:"notes"`
	EstimateData string         `json:"-" db:"estimate_data"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// EstimateFields is the set of mutable columns written by save and update.
type EstimateFields struct {
	Name         string
	Email        string
	PhoneNumber  string
	Postcode     string
	TotalMin     float64
	TotalMax     float64
	Markup       float64
	Notes        string
	EstimateData string
}

// CustomerDetails is the contact block attached to an estimate.
type CustomerDetails struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

// IsEmpty reports whether no contact field is set.
func (d CustomerDetails) IsEmpty() bool {
	return d.Name == "" && d.Email == "" && d.Phone == "" && d.Postcode == ""
}

// EstimateView is the admin read shape: the record plus its decoded payload.
type EstimateView struct {
	Estimate
	Data map[string]interface{} `json:"estimate_data"`
}

