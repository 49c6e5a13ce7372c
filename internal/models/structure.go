package models

import (
	"time"

	"github.com/google/uuid"
)

// Structure is a legal holding entity that owns properties and has a member roster.
type Structure struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Address            string    `json:"address" db:"address"`
	RegistrationNumber string    `json:"registration_number" db:"registration_number"`
	CreationDate       time.Time `json:"creation_date" db:"creation_date"`
	Capital            float64   `json:"capital" db:"capital"`
	MainContact        *string   `json:"main_contact,omitempty" db:"main_contact"`
	Email              *string   `json:"email,omitempty" db:"email"`
	Phone              *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Associate is a shareholder of a structure.
type Associate struct {
	ID          uuid.UUID `json:"id" db:"id"`
	StructureID uuid.UUID `json:"structure_id" db:"structure_id"`
	Name        string    `json:"name" db:"name"`
	Percentage  float64   `json:"percentage" db:"percentage"`
}

// StructureDetail is the read model returned to members of a structure.
type StructureDetail struct {
	*Structure
	Role          Role         `json:"role"`
	Members       []*Member    `json:"members"`
	Associates    []*Associate `json:"associates"`
	Properties    []*Property  `json:"properties"`
	DocumentCount int          `json:"document_count"`
}
