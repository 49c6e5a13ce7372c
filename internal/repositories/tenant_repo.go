package repositories

import (
	"context"

	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListAccessible returns tenants the user created or that are linked to a property the user can reach.
	ListAccessible(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Tenant, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db DBTX
}

func NewTenantRepository(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `t.id, t.first_name, t.last_name, t.email, t.phone, t.birth_date, t.previous_address,
		t.salary, t.profession, t.created_by, t.created_at, t.updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email, &t.Phone, &t.BirthDate, &t.PreviousAddress,
		&t.Salary, &t.Profession, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, first_name, last_name, email, phone, birth_date, previous_address, salary, profession, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, tenant.ID, tenant.FirstName, tenant.LastName, tenant.Email, tenant.Phone,
		tenant.BirthDate, tenant.PreviousAddress, tenant.Salary, tenant.Profession, tenant.CreatedBy).
		Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	return mapError("create tenant", err)
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants t WHERE t.id = $1`
	t, err := scanTenant(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("get tenant", err)
	}
	return t, nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	query := `
		UPDATE tenants
		SET first_name = $1, last_name = $2, email = $3, phone = $4, birth_date = $5, previous_address = $6,
			salary = $7, profession = $8, updated_at = NOW()
		WHERE id = $9
	`
	tag, err := r.db.Exec(ctx, query, tenant.FirstName, tenant.LastName, tenant.Email, tenant.Phone,
		tenant.BirthDate, tenant.PreviousAddress, tenant.Salary, tenant.Profession, tenant.ID)
	if err != nil {
		return mapError("update tenant", err)
	}
	return notFoundIfNone(tag)
}

func (r *tenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return mapError("delete tenant", err)
	}
	return notFoundIfNone(tag)
}

func (r *tenantRepo) ListAccessible(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants t
		WHERE t.created_by = $1 OR EXISTS (
			SELECT 1 FROM tenancy_links l
			JOIN properties p ON p.id = l.property_id
			WHERE l.tenant_id = t.id AND ` + propertyReachable + `)
		ORDER BY t.last_name ASC, t.first_name ASC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, userID, limitClause(limit), offset)
}

func (r *tenantRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Tenant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + tenantColumns + ` FROM tenants t WHERE t.id = ANY($1)`
	return r.list(ctx, query, ids)
}

func (r *tenantRepo) list(ctx context.Context, query string, args ...any) ([]*models.Tenant, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list tenants", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, mapError("scan tenant", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, mapError("list tenants", rows.Err())
}
