// Package testhelpers seeds fixtures for service, handler and analytics tests.
package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Fixture writes seed data straight into an in-memory store, bypassing access checks.
type Fixture struct {
	t     *testing.T
	Store *memstore.Store
	Ctx   context.Context
	seq   int
}

func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	return &Fixture{t: t, Store: memstore.New(), Ctx: context.Background()}
}

func (f *Fixture) next() int {
	f.seq++
	return f.seq
}

func StringPtr(s string) *string { return &s }

func TimePtr(t time.Time) *time.Time { return &t }

// User creates a user with a unique subject and email.
func (f *Fixture) User(name string) *models.User {
	f.t.Helper()
	n := f.next()
	email := fmt.Sprintf("user%d@example.com", n)
	u, err := f.Store.Users().UpsertBySubject(f.Ctx, &models.User{
		ID:      uuid.New(),
		Subject: fmt.Sprintf("subject-%d", n),
		Email:   &email,
		Name:    &name,
	})
	require.NoError(f.t, err)
	return u
}

// Structure creates a structure owned by owner.
func (f *Fixture) Structure(owner uuid.UUID) *models.Structure {
	f.t.Helper()
	n := f.next()
	s := &models.Structure{
		ID:                 uuid.New(),
		Name:               fmt.Sprintf("SCI %d", n),
		Address:            fmt.Sprintf("%d rue de la Paix", n),
		RegistrationNumber: fmt.Sprintf("RCS-%06d", n),
		CreationDate:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Capital:            1000,
	}
	require.NoError(f.t, f.Store.Structures().Create(f.Ctx, s))
	f.Member(s.ID, owner, models.RoleOwner)
	return s
}

func (f *Fixture) Member(structureID, userID uuid.UUID, role models.Role) {
	f.t.Helper()
	require.NoError(f.t, f.Store.Memberships().Create(f.Ctx, &models.Membership{
		ID:          uuid.New(),
		UserID:      userID,
		StructureID: structureID,
		Role:        role,
	}))
}

// StructureProperty creates a vacant apartment held by a structure.
func (f *Fixture) StructureProperty(structureID uuid.UUID) *models.Property {
	return f.property(&structureID, nil)
}

// OwnedProperty creates a vacant apartment held directly by a user.
func (f *Fixture) OwnedProperty(userID uuid.UUID) *models.Property {
	return f.property(nil, &userID)
}

func (f *Fixture) property(structureID, userID *uuid.UUID) *models.Property {
	f.t.Helper()
	p := &models.Property{
		ID:          uuid.New(),
		Address:     fmt.Sprintf("%d avenue Foch", f.next()),
		Type:        models.PropertyApartment,
		Surface:     45,
		Rooms:       2,
		Status:      models.PropertyVacant,
		StructureID: structureID,
		UserID:      userID,
	}
	require.NoError(f.t, f.Store.Properties().Create(f.Ctx, p))
	return p
}

func (f *Fixture) Tenant(createdBy uuid.UUID, first, last string) *models.Tenant {
	f.t.Helper()
	tenant := &models.Tenant{
		ID:        uuid.New(),
		FirstName: first,
		LastName:  last,
		CreatedBy: createdBy,
	}
	require.NoError(f.t, f.Store.Tenants().Create(f.Ctx, tenant))
	return tenant
}

// Lease links a tenant to a property. Active links also mark the property rented.
func (f *Fixture) Lease(tenantID, propertyID uuid.UUID, rent float64, active bool) *models.TenancyLink {
	f.t.Helper()
	link := &models.TenancyLink{
		ID:            uuid.New(),
		TenantID:      tenantID,
		PropertyID:    propertyID,
		StartDate:     time.Now().UTC().AddDate(0, -6, 0),
		Active:        active,
		RentAmount:    rent,
		DepositAmount: rent * 2,
	}
	if !active {
		link.EndDate = TimePtr(time.Now().UTC().AddDate(0, -1, 0))
	}
	require.NoError(f.t, f.Store.Tenancies().Create(f.Ctx, link))
	if active {
		require.NoError(f.t, f.Store.Properties().UpdateStatus(f.Ctx, propertyID, models.PropertyRented))
	}
	return link
}

// Document attaches an external document to the target matching category.
func (f *Fixture) Document(uploader uuid.UUID, category models.DocumentCategory, targetID uuid.UUID, expiry *time.Time) *models.Document {
	f.t.Helper()
	d := &models.Document{
		ID:         uuid.New(),
		Name:       fmt.Sprintf("document-%d.pdf", f.next()),
		Type:       "insurance",
		Category:   category,
		URL:        "https://files.example.com/doc.pdf",
		ExpiryDate: expiry,
		UploadedBy: uploader,
	}
	switch category {
	case models.DocumentStructure:
		d.StructureID = &targetID
	case models.DocumentProperty:
		d.PropertyID = &targetID
	case models.DocumentTenant:
		d.TenantID = &targetID
	}
	require.NoError(f.t, f.Store.Documents().Create(f.Ctx, d))
	return d
}

func (f *Fixture) Inspection(propertyID uuid.UUID, status models.InspectionStatus) *models.Inspection {
	f.t.Helper()
	i := &models.Inspection{
		ID:         uuid.New(),
		PropertyID: propertyID,
		Type:       "entry",
		Date:       time.Now().UTC().Truncate(time.Second),
		Notes:      "walls repainted",
		Photos:     []string{"photos/hall.jpg"},
		Status:     status,
	}
	require.NoError(f.t, f.Store.Inspections().Create(f.Ctx, i))
	return i
}
