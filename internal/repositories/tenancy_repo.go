package repositories

import (
	"context"
	"time"

	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type TenancyRepository interface {
	Create(ctx context.Context, link *models.TenancyLink) error
	// DeactivateActive ends every active link on the property and reports how many were ended.
	DeactivateActive(ctx context.Context, propertyID uuid.UUID, endDate time.Time) (int64, error)
	GetActiveByProperty(ctx context.Context, propertyID uuid.UUID) (*models.TenancyLink, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.TenancyLink, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.TenancyLink, error)
	ListByProperties(ctx context.Context, propertyIDs []uuid.UUID) ([]*models.TenancyLink, error)
	HasActiveForTenant(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

type tenancyRepo struct {
	db DBTX
}

func NewTenancyRepository(db DBTX) TenancyRepository {
	return &tenancyRepo{db: db}
}

const tenancyColumns = `id, tenant_id, property_id, start_date, end_date, active, rent_amount, deposit_amount, created_at`

func scanTenancy(row interface{ Scan(...any) error }) (*models.TenancyLink, error) {
	l := &models.TenancyLink{}
	err := row.Scan(&l.ID, &l.TenantID, &l.PropertyID, &l.StartDate, &l.EndDate, &l.Active,
		&l.RentAmount, &l.DepositAmount, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *tenancyRepo) Create(ctx context.Context, link *models.TenancyLink) error {
	query := `
		INSERT INTO tenancy_links (id, tenant_id, property_id, start_date, end_date, active, rent_amount, deposit_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, link.ID, link.TenantID, link.PropertyID, link.StartDate, link.EndDate,
		link.Active, link.RentAmount, link.DepositAmount).Scan(&link.CreatedAt)
	return mapError("create tenancy", err)
}

func (r *tenancyRepo) DeactivateActive(ctx context.Context, propertyID uuid.UUID, endDate time.Time) (int64, error) {
	query := `UPDATE tenancy_links SET active = FALSE, end_date = $1 WHERE property_id = $2 AND active`
	tag, err := r.db.Exec(ctx, query, endDate, propertyID)
	if err != nil {
		return 0, mapError("deactivate tenancies", err)
	}
	return tag.RowsAffected(), nil
}

func (r *tenancyRepo) GetActiveByProperty(ctx context.Context, propertyID uuid.UUID) (*models.TenancyLink, error) {
	query := `SELECT ` + tenancyColumns + ` FROM tenancy_links WHERE property_id = $1 AND active`
	l, err := scanTenancy(r.db.QueryRow(ctx, query, propertyID))
	if err != nil {
		return nil, mapError("get active tenancy", err)
	}
	return l, nil
}

func (r *tenancyRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.TenancyLink, error) {
	query := `SELECT ` + tenancyColumns + ` FROM tenancy_links WHERE property_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, propertyID)
}

func (r *tenancyRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.TenancyLink, error) {
	query := `SELECT ` + tenancyColumns + ` FROM tenancy_links WHERE tenant_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, tenantID)
}

func (r *tenancyRepo) ListByProperties(ctx context.Context, propertyIDs []uuid.UUID) ([]*models.TenancyLink, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + tenancyColumns + ` FROM tenancy_links WHERE property_id = ANY($1) ORDER BY created_at DESC`
	return r.list(ctx, query, propertyIDs)
}

func (r *tenancyRepo) HasActiveForTenant(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tenancy_links WHERE tenant_id = $1 AND active)`
	if err := r.db.QueryRow(ctx, query, tenantID).Scan(&exists); err != nil {
		return false, mapError("check active tenancy", err)
	}
	return exists, nil
}

func (r *tenancyRepo) list(ctx context.Context, query string, args ...any) ([]*models.TenancyLink, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list tenancies", err)
	}
	defer rows.Close()

	var links []*models.TenancyLink
	for rows.Next() {
		l, err := scanTenancy(rows)
		if err != nil {
			return nil, mapError("scan tenancy", err)
		}
		links = append(links, l)
	}
	return links, mapError("list tenancies", rows.Err())
}
