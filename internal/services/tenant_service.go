package services

import (
	"context"
	"strings"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
)

type TenantRequest struct {
	FirstName       *string  `json:"first_name"`
	LastName        *string  `json:"last_name"`
	Email           *string  `json:"email"`
	Phone           *string  `json:"phone"`
	BirthDate       *string  `json:"birth_date"`
	PreviousAddress *string  `json:"previous_address"`
	Salary          *float64 `json:"salary"`
	Profession      *string  `json:"profession"`
}

type TenantService interface {
	Create(ctx context.Context, userID uuid.UUID, req *TenantRequest) (*models.Tenant, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.TenantDetail, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Tenant, error)
	Update(ctx context.Context, userID, id uuid.UUID, req *TenantRequest) (*models.Tenant, error)
	// Delete refuses tenants with an active tenancy regardless of the caller's role.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type tenantService struct {
	store repositories.Store
}

func NewTenantService(store repositories.Store) TenantService {
	return &tenantService{store: store}
}

func (r *TenantRequest) apply(t *models.Tenant) error {
	verr := &common.ValidationError{}
	if r.FirstName != nil {
		t.FirstName = strings.TrimSpace(*r.FirstName)
	}
	if r.LastName != nil {
		t.LastName = strings.TrimSpace(*r.LastName)
	}
	if t.FirstName == "" {
		verr.Add("first_name", "is required")
	}
	if t.LastName == "" {
		verr.Add("last_name", "is required")
	}
	if r.Email != nil {
		t.Email = common.TrimmedOrNil(r.Email)
		if t.Email != nil && !strings.Contains(*t.Email, "@") {
			verr.Add("email", "must be a valid email address")
		}
	}
	if r.Phone != nil {
		t.Phone = common.TrimmedOrNil(r.Phone)
	}
	if r.BirthDate != nil {
		birthDate, err := common.ParseOptionalDate(r.BirthDate, "birth_date")
		if err != nil {
			verr.Add("birth_date", "must be in YYYY-MM-DD or RFC3339 format")
		}
		t.BirthDate = birthDate
	}
	if r.PreviousAddress != nil {
		t.PreviousAddress = common.TrimmedOrNil(r.PreviousAddress)
	}
	if r.Salary != nil {
		if *r.Salary < 0 {
			verr.Add("salary", "cannot be negative")
		}
		t.Salary = r.Salary
	}
	if r.Profession != nil {
		t.Profession = common.TrimmedOrNil(r.Profession)
	}
	return verr.OrNil()
}

func (s *tenantService) Create(ctx context.Context, userID uuid.UUID, req *TenantRequest) (*models.Tenant, error) {
	tenant := &models.Tenant{
		ID:        uuid.New(),
		CreatedBy: userID,
	}
	if err := req.apply(tenant); err != nil {
		return nil, err
	}
	if err := s.store.Tenants().Create(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) Get(ctx context.Context, userID, id uuid.UUID) (*models.TenantDetail, error) {
	tenant, err := s.store.Tenants().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := require(NewAccessResolver(s.store).TenantAccess(ctx, userID, tenant, ActionView)); err != nil {
		return nil, err
	}
	links, err := s.store.Tenancies().ListByTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := tenancyViews(ctx, s.store, links, map[uuid.UUID]string{})
	if err != nil {
		return nil, err
	}
	documents, err := s.store.Documents().ListByTarget(ctx, models.DocumentTenant, id)
	if err != nil {
		return nil, err
	}
	return &models.TenantDetail{
		Tenant:    tenant,
		Tenancies: emptyIfNil(views),
		Documents: emptyIfNil(documents),
	}, nil
}

func (s *tenantService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Tenant, error) {
	tenants, err := s.store.Tenants().ListAccessible(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(tenants), nil
}

func (s *tenantService) Update(ctx context.Context, userID, id uuid.UUID, req *TenantRequest) (*models.Tenant, error) {
	var updated *models.Tenant
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		tenant, err := tx.Tenants().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := require(NewAccessResolver(tx).TenantAccess(ctx, userID, tenant, ActionEdit)); err != nil {
			return err
		}
		if err := req.apply(tenant); err != nil {
			return err
		}
		if err := tx.Tenants().Update(ctx, tenant); err != nil {
			return err
		}
		updated = tenant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *tenantService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repositories.Store) error {
		tenant, err := tx.Tenants().GetByID(ctx, id)
		if err != nil {
			return err
		}
		access := NewAccessResolver(tx)
		if err := require(access.TenantAccess(ctx, userID, tenant, ActionView)); err != nil {
			return err
		}
		active, err := tx.Tenancies().HasActiveForTenant(ctx, id)
		if err != nil {
			return err
		}
		if active {
			return common.Conflictf("tenant has an active tenancy")
		}
		if err := require(access.TenantAccess(ctx, userID, tenant, ActionDestroy)); err != nil {
			return err
		}
		return tx.Tenants().Delete(ctx, id)
	})
}
