package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
)

// PropertyRequest is used for both create and partial update; nil fields are left untouched on update.
type PropertyRequest struct {
	Address     *string                `json:"address"`
	Type        *models.PropertyType   `json:"type"`
	Surface     *float64               `json:"surface"`
	Rooms       *int                   `json:"rooms"`
	Floor       *int                   `json:"floor"`
	BuildYear   *int                   `json:"build_year"`
	HasElevator *bool                  `json:"has_elevator"`
	HasParking  *bool                  `json:"has_parking"`
	HasBasement *bool                  `json:"has_basement"`
	HeatingType *string                `json:"heating_type"`
	Status      *models.PropertyStatus `json:"status"`
	StructureID *uuid.UUID             `json:"structure_id"`
	// DetachStructure moves a structure-held property back to the caller's direct ownership.
	DetachStructure bool `json:"detach_structure"`
}

type AssignTenantRequest struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	RentAmount    *float64  `json:"rent_amount"`
	DepositAmount *float64  `json:"deposit_amount"`
	StartDate     string    `json:"start_date"`
}

type PropertyService interface {
	Create(ctx context.Context, userID uuid.UUID, req *PropertyRequest) (*models.Property, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.PropertyDetail, error)
	List(ctx context.Context, userID uuid.UUID, filter models.PropertyFilter) ([]*models.PropertyDetail, error)
	Update(ctx context.Context, userID, id uuid.UUID, req *PropertyRequest) (*models.Property, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// AssignTenant replaces the property's active tenancy with a new one and marks it rented.
	AssignTenant(ctx context.Context, userID, propertyID uuid.UUID, req *AssignTenantRequest) (*models.TenancyLink, error)
	// EndTenancy closes the active tenancy and marks the property vacant.
	EndTenancy(ctx context.Context, userID, propertyID uuid.UUID) error
}

type propertyService struct {
	store repositories.Store
	now   func() time.Time
}

func NewPropertyService(store repositories.Store) PropertyService {
	return &propertyService{store: store, now: time.Now}
}

func (r *PropertyRequest) apply(p *models.Property, creating bool) error {
	verr := &common.ValidationError{}
	if r.Address != nil {
		p.Address = strings.TrimSpace(*r.Address)
	}
	if p.Address == "" {
		verr.Add("address", "is required")
	}
	if r.Type != nil {
		p.Type = *r.Type
	}
	if creating && r.Type == nil {
		verr.Add("type", "is required")
	} else if !p.Type.Valid() {
		verr.Add("type", "must be one of apartment, house, studio, commercial")
	}
	if r.Surface != nil {
		if *r.Surface < 0 {
			verr.Add("surface", "cannot be negative")
		}
		p.Surface = *r.Surface
	}
	if r.Rooms != nil {
		if *r.Rooms < 0 {
			verr.Add("rooms", "cannot be negative")
		}
		p.Rooms = *r.Rooms
	}
	if r.Floor != nil {
		p.Floor = r.Floor
	}
	if r.BuildYear != nil {
		if *r.BuildYear < 1000 || *r.BuildYear > 9999 {
			verr.Add("build_year", "must be a four digit year")
		}
		p.BuildYear = r.BuildYear
	}
	if r.HasElevator != nil {
		p.HasElevator = *r.HasElevator
	}
	if r.HasParking != nil {
		p.HasParking = *r.HasParking
	}
	if r.HasBasement != nil {
		p.HasBasement = *r.HasBasement
	}
	if r.HeatingType != nil {
		p.HeatingType = common.TrimmedOrNil(r.HeatingType)
	}
	if r.Status != nil {
		if !r.Status.Valid() {
			verr.Add("status", "must be vacant or rented")
		}
		p.Status = *r.Status
	}
	if r.StructureID != nil && r.DetachStructure {
		verr.Add("structure_id", "cannot be combined with detach_structure")
	}
	return verr.OrNil()
}

// checkOccupancy rejects a requested status that disagrees with whether the
// property has an active tenancy. Occupancy otherwise moves only through
// AssignTenant and EndTenancy.
func checkOccupancy(status *models.PropertyStatus, leased bool) error {
	if status == nil || !status.Valid() {
		return nil
	}
	if (*status == models.PropertyRented) != leased {
		return common.NewValidationError("status", "must match the property's active tenancy")
	}
	return nil
}

func (s *propertyService) Create(ctx context.Context, userID uuid.UUID, req *PropertyRequest) (*models.Property, error) {
	property := &models.Property{
		ID:     uuid.New(),
		Status: models.PropertyVacant,
	}
	if err := req.apply(property, true); err != nil {
		return nil, err
	}
	// Ownership is exclusive: a structure id clears direct ownership.
	if req.StructureID != nil {
		property.StructureID = req.StructureID
	} else {
		property.UserID = &userID
	}

	if err := checkOccupancy(req.Status, false); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		if property.StructureID != nil {
			if err := require(NewAccessResolver(tx).CheckStructure(ctx, userID, *property.StructureID, ActionEdit)); err != nil {
				return err
			}
		}
		return tx.Properties().Create(ctx, property)
	})
	if err != nil {
		return nil, err
	}
	return property, nil
}

func (s *propertyService) Get(ctx context.Context, userID, id uuid.UUID) (*models.PropertyDetail, error) {
	property, err := s.store.Properties().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := require(NewAccessResolver(s.store).PropertyAccess(ctx, userID, property, ActionView)); err != nil {
		return nil, err
	}
	detail, err := s.detail(ctx, property, true)
	if err != nil {
		return nil, err
	}
	if property.StructureID != nil {
		detail.Structure, err = s.store.Structures().GetByID(ctx, *property.StructureID)
		if err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func (s *propertyService) List(ctx context.Context, userID uuid.UUID, filter models.PropertyFilter) ([]*models.PropertyDetail, error) {
	properties, err := s.store.Properties().ListAccessible(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	details := make([]*models.PropertyDetail, 0, len(properties))
	for _, p := range properties {
		detail, err := s.detail(ctx, p, false)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// detail attaches tenancy views; history is included only when requested.
func (s *propertyService) detail(ctx context.Context, p *models.Property, history bool) (*models.PropertyDetail, error) {
	links, err := s.store.Tenancies().ListByProperty(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.Documents().CountByTarget(ctx, models.DocumentProperty, p.ID)
	if err != nil {
		return nil, err
	}
	views, err := tenancyViews(ctx, s.store, links, map[uuid.UUID]string{p.ID: p.Address})
	if err != nil {
		return nil, err
	}
	detail := &models.PropertyDetail{Property: p, Tenancies: []*models.TenancyView{}, DocumentCount: count}
	for _, v := range views {
		if v.Active {
			detail.ActiveTenancy = v
		}
		if history {
			detail.Tenancies = append(detail.Tenancies, v)
		}
	}
	return detail, nil
}

func (s *propertyService) Update(ctx context.Context, userID, id uuid.UUID, req *PropertyRequest) (*models.Property, error) {
	var updated *models.Property
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		access := NewAccessResolver(tx)
		property, err := tx.Properties().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := require(access.PropertyAccess(ctx, userID, property, ActionEdit)); err != nil {
			return err
		}
		if err := req.apply(property, false); err != nil {
			return err
		}
		if req.Status != nil {
			_, err := tx.Tenancies().GetActiveByProperty(ctx, id)
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				return err
			}
			if err := checkOccupancy(req.Status, err == nil); err != nil {
				return err
			}
		}

		switch {
		case req.StructureID != nil && (property.StructureID == nil || *property.StructureID != *req.StructureID):
			// Moving into a structure requires write rights on the destination.
			if err := require(access.CheckStructure(ctx, userID, *req.StructureID, ActionEdit)); err != nil {
				return err
			}
			property.StructureID = req.StructureID
			property.UserID = nil
		case req.DetachStructure && property.StructureID != nil:
			property.StructureID = nil
			property.UserID = &userID
		}

		if err := tx.Properties().Update(ctx, property); err != nil {
			return err
		}
		updated = property
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *propertyService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repositories.Store) error {
		property, err := tx.Properties().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := require(NewAccessResolver(tx).PropertyAccess(ctx, userID, property, ActionEdit)); err != nil {
			return err
		}
		return tx.Properties().Delete(ctx, id)
	})
}

func (r *AssignTenantRequest) validate() (time.Time, error) {
	verr := &common.ValidationError{}
	if r.TenantID == uuid.Nil {
		verr.Add("tenant_id", "is required")
	}
	if r.RentAmount == nil {
		verr.Add("rent_amount", "is required")
	} else if *r.RentAmount < 0 {
		verr.Add("rent_amount", "cannot be negative")
	}
	if r.DepositAmount != nil && *r.DepositAmount < 0 {
		verr.Add("deposit_amount", "cannot be negative")
	}
	var start time.Time
	if r.StartDate != "" {
		var err error
		start, err = common.ParseDate(r.StartDate, "start_date")
		if err != nil {
			verr.Add("start_date", "must be in YYYY-MM-DD or RFC3339 format")
		}
	}
	return start, verr.OrNil()
}

// AssignTenant runs deactivate, insert and status flip in one transaction with
// the property row locked, so no intermediate state is visible.
func (s *propertyService) AssignTenant(ctx context.Context, userID, propertyID uuid.UUID, req *AssignTenantRequest) (*models.TenancyLink, error) {
	start, err := req.validate()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if start.IsZero() {
		start = now
	}

	var link *models.TenancyLink
	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		access := NewAccessResolver(tx)
		property, err := tx.Properties().GetForUpdate(ctx, propertyID)
		if err != nil {
			return err
		}
		if err := require(access.PropertyAccess(ctx, userID, property, ActionEdit)); err != nil {
			return err
		}
		tenant, err := tx.Tenants().GetByID(ctx, req.TenantID)
		if errors.Is(err, common.ErrNotFound) {
			return common.NewValidationError("tenant_id", "tenant does not exist")
		}
		if err != nil {
			return err
		}
		if err := require(access.TenantAccess(ctx, userID, tenant, ActionView)); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.NewValidationError("tenant_id", "tenant does not exist")
			}
			return err
		}

		if _, err := tx.Tenancies().DeactivateActive(ctx, propertyID, now); err != nil {
			return err
		}
		link = &models.TenancyLink{
			ID:         uuid.New(),
			TenantID:   tenant.ID,
			PropertyID: propertyID,
			StartDate:  start,
			Active:     true,
			RentAmount: *req.RentAmount,
		}
		if req.DepositAmount != nil {
			link.DepositAmount = *req.DepositAmount
		}
		if err := tx.Tenancies().Create(ctx, link); err != nil {
			return err
		}
		return tx.Properties().UpdateStatus(ctx, propertyID, models.PropertyRented)
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *propertyService) EndTenancy(ctx context.Context, userID, propertyID uuid.UUID) error {
	now := s.now().UTC()
	return s.store.InTx(ctx, func(tx repositories.Store) error {
		property, err := tx.Properties().GetForUpdate(ctx, propertyID)
		if err != nil {
			return err
		}
		if err := require(NewAccessResolver(tx).PropertyAccess(ctx, userID, property, ActionEdit)); err != nil {
			return err
		}
		ended, err := tx.Tenancies().DeactivateActive(ctx, propertyID, now)
		if err != nil {
			return err
		}
		if ended == 0 {
			return common.ErrNotFound
		}
		return tx.Properties().UpdateStatus(ctx, propertyID, models.PropertyVacant)
	})
}

// tenancyViews joins links with tenant names and property addresses. Addresses
// missing from the map are loaded from the store.
func tenancyViews(ctx context.Context, store repositories.Store, links []*models.TenancyLink, addresses map[uuid.UUID]string) ([]*models.TenancyView, error) {
	if len(links) == 0 {
		return nil, nil
	}
	tenantIDs := make([]uuid.UUID, 0, len(links))
	seen := make(map[uuid.UUID]bool)
	for _, l := range links {
		if !seen[l.TenantID] {
			seen[l.TenantID] = true
			tenantIDs = append(tenantIDs, l.TenantID)
		}
	}
	tenants, err := store.Tenants().GetByIDs(ctx, tenantIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(tenants))
	for _, t := range tenants {
		names[t.ID] = t.FullName()
	}

	views := make([]*models.TenancyView, 0, len(links))
	for _, l := range links {
		address, ok := addresses[l.PropertyID]
		if !ok {
			p, err := store.Properties().GetByID(ctx, l.PropertyID)
			if err != nil {
				return nil, err
			}
			address = p.Address
			addresses[l.PropertyID] = address
		}
		views = append(views, &models.TenancyView{TenancyLink: l, TenantName: names[l.TenantID], PropertyAddress: address})
	}
	return views, nil
}
