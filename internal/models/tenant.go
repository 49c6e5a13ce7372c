package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant is a person who can be linked to properties through tenancies.
type Tenant struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	FirstName       string     `json:"first_name" db:"first_name"`
	LastName        string     `json:"last_name" db:"last_name"`
	Email           *string    `json:"email,omitempty" db:"email"`
	Phone           *string    `json:"phone,omitempty" db:"phone"`
	BirthDate       *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	PreviousAddress *string    `json:"previous_address,omitempty" db:"previous_address"`
	Salary          *float64   `json:"salary,omitempty" db:"salary"`
	Profession      *string    `json:"profession,omitempty" db:"profession"`
	CreatedBy       uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

func (t *Tenant) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// TenantDetail is a tenant with its tenancy history and documents.
type TenantDetail struct {
	*Tenant
	Tenancies []*TenancyView `json:"tenancies"`
	Documents []*Document    `json:"documents"`
}
