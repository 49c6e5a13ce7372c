package models

import (
	"time"

	"github.com/google/uuid"
)

// TenancyLink is an occupancy relationship between a tenant and a property.
// At most one link per property is active at a time.
type TenancyLink struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	TenantID      uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	PropertyID    uuid.UUID  `json:"property_id" db:"property_id"`
	StartDate     time.Time  `json:"start_date" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
	Active        bool       `json:"active" db:"active"`
	RentAmount    float64    `json:"rent_amount" db:"rent_amount"`
	DepositAmount float64    `json:"deposit_amount" db:"deposit_amount"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// TenancyView is a link joined with the tenant name and property address.
type TenancyView struct {
	*TenancyLink
	TenantName      string `json:"tenant_name"`
	PropertyAddress string `json:"property_address"`
}
