package models

import (
	"time"

	"github.com/google/uuid"
)

type PropertyType string

const (
	PropertyApartment  PropertyType = "apartment"
	PropertyHouse      PropertyType = "house"
	PropertyStudio     PropertyType = "studio"
	PropertyCommercial PropertyType = "commercial"
)

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyApartment, PropertyHouse, PropertyStudio, PropertyCommercial:
		return true
	}
	return false
}

type PropertyStatus string

const (
	PropertyVacant PropertyStatus = "vacant"
	PropertyRented PropertyStatus = "rented"
)

func (s PropertyStatus) Valid() bool {
	return s == PropertyVacant || s == PropertyRented
}

// Property is owned either by a user directly or by a structure, never both.
type Property struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Address     string         `json:"address" db:"address"`
	Type        PropertyType   `json:"type" db:"type"`
	Surface     float64        `json:"surface" db:"surface"`
	Rooms       int            `json:"rooms" db:"rooms"`
	Floor       *int           `json:"floor,omitempty" db:"floor"`
	BuildYear   *int           `json:"build_year,omitempty" db:"build_year"`
	HasElevator bool           `json:"has_elevator" db:"has_elevator"`
	HasParking  bool           `json:"has_parking" db:"has_parking"`
	HasBasement bool           `json:"has_basement" db:"has_basement"`
	HeatingType *string        `json:"heating_type,omitempty" db:"heating_type"`
	Status      PropertyStatus `json:"status" db:"status"`
	StructureID *uuid.UUID     `json:"structure_id,omitempty" db:"structure_id"`
	UserID      *uuid.UUID     `json:"user_id,omitempty" db:"user_id"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// OwnedBy reports whether the property is held directly by the given user.
func (p *Property) OwnedBy(userID uuid.UUID) bool {
	return p.UserID != nil && *p.UserID == userID
}

// PropertyFilter narrows property listings. A zero Limit means no limit.
type PropertyFilter struct {
	StructureID *uuid.UUID
	Status      *PropertyStatus
	Type        *PropertyType
	Limit       int
	Offset      int
}

// PropertyDetail is a property enriched with its tenancy history.
type PropertyDetail struct {
	*Property
	Structure     *Structure     `json:"structure,omitempty"`
	ActiveTenancy *TenancyView   `json:"active_tenancy,omitempty"`
	Tenancies     []*TenancyView `json:"tenancies"`
	DocumentCount int            `json:"document_count"`
}
