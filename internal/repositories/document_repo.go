package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListAccessible returns documents whose structure, property or tenant the user can reach.
	ListAccessible(ctx context.Context, userID uuid.UUID, filter models.DocumentFilter) ([]*models.Document, error)
	ListByTarget(ctx context.Context, category models.DocumentCategory, targetID uuid.UUID) ([]*models.Document, error)
	CountByTarget(ctx context.Context, category models.DocumentCategory, targetID uuid.UUID) (int, error)
	// ListExpiring returns every document with an expiry date on or before the cutoff.
	ListExpiring(ctx context.Context, cutoff time.Time) ([]*models.Document, error)
}

type documentRepo struct {
	db DBTX
}

func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

const documentColumns = `d.id, d.name, d.type, d.category, d.url, d.storage_key, d.expiry_date,
		d.structure_id, d.property_id, d.tenant_id, d.uploaded_by, d.created_at`

// documentReachable matches rows of alias d reachable by the user bound to $1.
const documentReachable = `(
		EXISTS (SELECT 1 FROM memberships dm WHERE dm.structure_id = d.structure_id AND dm.user_id = $1)
		OR EXISTS (SELECT 1 FROM properties p WHERE p.id = d.property_id AND ` + propertyReachable + `)
		OR EXISTS (SELECT 1 FROM tenants t WHERE t.id = d.tenant_id AND (t.created_by = $1 OR EXISTS (
			SELECT 1 FROM tenancy_links l JOIN properties p ON p.id = l.property_id
			WHERE l.tenant_id = t.id AND ` + propertyReachable + `))))`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(&d.ID, &d.Name, &d.Type, &d.Category, &d.URL, &d.StorageKey, &d.ExpiryDate,
		&d.StructureID, &d.PropertyID, &d.TenantID, &d.UploadedBy, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *documentRepo) Create(ctx context.Context, document *models.Document) error {
	query := `
		INSERT INTO documents (id, name, type, category, url, storage_key, expiry_date, structure_id, property_id, tenant_id, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, document.ID, document.Name, document.Type, document.Category, document.URL,
		document.StorageKey, document.ExpiryDate, document.StructureID, document.PropertyID, document.TenantID,
		document.UploadedBy).Scan(&document.CreatedAt)
	return mapError("create document", err)
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents d WHERE d.id = $1`
	d, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("get document", err)
	}
	return d, nil
}

func (r *documentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return mapError("delete document", err)
	}
	return notFoundIfNone(tag)
}

func (r *documentRepo) ListAccessible(ctx context.Context, userID uuid.UUID, filter models.DocumentFilter) ([]*models.Document, error) {
	conditions := []string{documentReachable}
	args := []any{userID}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		conditions = append(conditions, fmt.Sprintf("d.category = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, fmt.Sprintf("d.type = $%d", len(args)))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(d.structure_id = $%d OR d.property_id = $%d OR d.tenant_id = $%d)", n, n, n))
	}
	args = append(args, limitClause(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM documents d
		WHERE %s
		ORDER BY d.created_at DESC
		LIMIT $%d OFFSET $%d
	`, documentColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	return r.list(ctx, query, args...)
}

func (r *documentRepo) ListByTarget(ctx context.Context, category models.DocumentCategory, targetID uuid.UUID) ([]*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents d WHERE d.%s = $1 ORDER BY d.created_at DESC`, documentColumns, targetColumn(category))
	return r.list(ctx, query, targetID)
}

func (r *documentRepo) CountByTarget(ctx context.Context, category models.DocumentCategory, targetID uuid.UUID) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM documents WHERE %s = $1`, targetColumn(category))
	if err := r.db.QueryRow(ctx, query, targetID).Scan(&count); err != nil {
		return 0, mapError("count documents", err)
	}
	return count, nil
}

func (r *documentRepo) ListExpiring(ctx context.Context, cutoff time.Time) ([]*models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents d
		WHERE d.expiry_date IS NOT NULL AND d.expiry_date <= $1
		ORDER BY d.expiry_date ASC
	`
	return r.list(ctx, query, cutoff)
}

func (r *documentRepo) list(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list documents", err)
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, mapError("scan document", err)
		}
		documents = append(documents, d)
	}
	return documents, mapError("list documents", rows.Err())
}

func targetColumn(category models.DocumentCategory) string {
	switch category {
	case models.DocumentStructure:
		return "structure_id"
	case models.DocumentTenant:
		return "tenant_id"
	default:
		return "property_id"
	}
}
