package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentCategory string

const (
	DocumentStructure DocumentCategory = "structure"
	DocumentProperty  DocumentCategory = "property"
	DocumentTenant    DocumentCategory = "tenant"
)

func (c DocumentCategory) Valid() bool {
	switch c {
	case DocumentStructure, DocumentProperty, DocumentTenant:
		return true
	}
	return false
}

// Document references a stored file attached to exactly one structure, property or tenant.
type Document struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Type        string           `json:"type" db:"type"`
	Category    DocumentCategory `json:"category" db:"category"`
	URL         string           `json:"url" db:"url"`
	StorageKey  *string          `json:"-" db:"storage_key"`
	ExpiryDate  *time.Time       `json:"expiry_date,omitempty" db:"expiry_date"`
	StructureID *uuid.UUID       `json:"structure_id,omitempty" db:"structure_id"`
	PropertyID  *uuid.UUID       `json:"property_id,omitempty" db:"property_id"`
	TenantID    *uuid.UUID       `json:"tenant_id,omitempty" db:"tenant_id"`
	UploadedBy  uuid.UUID        `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// TargetID returns the foreign key matching the document's category.
func (d *Document) TargetID() (uuid.UUID, bool) {
	var id *uuid.UUID
	switch d.Category {
	case DocumentStructure:
		id = d.StructureID
	case DocumentProperty:
		id = d.PropertyID
	case DocumentTenant:
		id = d.TenantID
	}
	if id == nil {
		return uuid.Nil, false
	}
	return *id, true
}

type DocumentFilter struct {
	Category *DocumentCategory
	Type     *string
	EntityID *uuid.UUID
	Limit    int
	Offset   int
}
