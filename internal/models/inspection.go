package models

import (
	"time"

	"github.com/google/uuid"
)

type InspectionStatus string

const (
	InspectionDraft     InspectionStatus = "draft"
	InspectionCompleted InspectionStatus = "completed"
)

func (s InspectionStatus) Valid() bool {
	return s == InspectionDraft || s == InspectionCompleted
}

// Inspection is a state-of-premises record. Completed inspections are immutable.
type Inspection struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	PropertyID  uuid.UUID        `json:"property_id" db:"property_id"`
	Type        string           `json:"type" db:"type"`
	Date        time.Time        `json:"date" db:"date"`
	Notes       string           `json:"notes" db:"notes"`
	Photos      []string         `json:"photos" db:"photos"`
	Status      InspectionStatus `json:"status" db:"status"`
	ShareToken  *string          `json:"share_token,omitempty" db:"share_token"`
	ShareExpiry *time.Time       `json:"share_expiry,omitempty" db:"share_expiry"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

func (i *Inspection) Completed() bool {
	return i.Status == InspectionCompleted
}

type InspectionFilter struct {
	PropertyID *uuid.UUID
	Type       *string
	Status     *InspectionStatus
	Limit      int
	Offset     int
}

// SharedInspection is the read-only view exposed through a share link.
type SharedInspection struct {
	ID              uuid.UUID        `json:"id"`
	Type            string           `json:"type"`
	Date            time.Time        `json:"date"`
	Notes           string           `json:"notes"`
	Photos          []string         `json:"photos"`
	Status          InspectionStatus `json:"status"`
	PropertyAddress string           `json:"property_address"`
	ExpiresAt       time.Time        `json:"expires_at"`
}
