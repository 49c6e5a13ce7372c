package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type InspectionRepository interface {
	Create(ctx context.Context, inspection *models.Inspection) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inspection, error)
	GetByShareToken(ctx context.Context, token string) (*models.Inspection, error)
	Update(ctx context.Context, inspection *models.Inspection) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListAccessible returns inspections of properties held by structures the user is a member of.
	ListAccessible(ctx context.Context, userID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, error)
	// ClearExpiredShares removes share tokens whose expiry is before now.
	ClearExpiredShares(ctx context.Context, now time.Time) (int64, error)
}

type inspectionRepo struct {
	db DBTX
}

func NewInspectionRepository(db DBTX) InspectionRepository {
	return &inspectionRepo{db: db}
}

const inspectionColumns = `i.id, i.property_id, i.type, i.date, i.notes, i.photos, i.status,
		i.share_token, i.share_expiry, i.created_at, i.updated_at`

func scanInspection(row interface{ Scan(...any) error }) (*models.Inspection, error) {
	i := &models.Inspection{}
	err := row.Scan(&i.ID, &i.PropertyID, &i.Type, &i.Date, &i.Notes, &i.Photos, &i.Status,
		&i.ShareToken, &i.ShareExpiry, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if i.Photos == nil {
		i.Photos = []string{}
	}
	return i, nil
}

func (r *inspectionRepo) Create(ctx context.Context, inspection *models.Inspection) error {
	query := `
		INSERT INTO inspections (id, property_id, type, date, notes, photos, status, share_token, share_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, inspection.ID, inspection.PropertyID, inspection.Type, inspection.Date,
		inspection.Notes, inspection.Photos, inspection.Status, inspection.ShareToken, inspection.ShareExpiry).
		Scan(&inspection.CreatedAt, &inspection.UpdatedAt)
	return mapError("create inspection", err)
}

func (r *inspectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections i WHERE i.id = $1`
	i, err := scanInspection(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("get inspection", err)
	}
	return i, nil
}

func (r *inspectionRepo) GetByShareToken(ctx context.Context, token string) (*models.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections i WHERE i.share_token = $1`
	i, err := scanInspection(r.db.QueryRow(ctx, query, token))
	if err != nil {
		return nil, mapError("get inspection by share token", err)
	}
	return i, nil
}

// Update refuses to touch a completed row so a concurrent completion cannot be overwritten.
func (r *inspectionRepo) Update(ctx context.Context, inspection *models.Inspection) error {
	query := `
		UPDATE inspections
		SET type = $1, date = $2, notes = $3, photos = $4, status = $5, share_token = $6, share_expiry = $7, updated_at = NOW()
		WHERE id = $8 AND status <> 'completed'
	`
	tag, err := r.db.Exec(ctx, query, inspection.Type, inspection.Date, inspection.Notes, inspection.Photos,
		inspection.Status, inspection.ShareToken, inspection.ShareExpiry, inspection.ID)
	if err != nil {
		return mapError("update inspection", err)
	}
	if tag.RowsAffected() == 0 {
		return r.guardRejected(ctx, inspection.ID, "modified")
	}
	return nil
}

func (r *inspectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM inspections WHERE id = $1 AND status <> 'completed'`, id)
	if err != nil {
		return mapError("delete inspection", err)
	}
	if tag.RowsAffected() == 0 {
		return r.guardRejected(ctx, id, "deleted")
	}
	return nil
}

// guardRejected tells a missing row apart from one completed under a guarded write.
func (r *inspectionRepo) guardRejected(ctx context.Context, id uuid.UUID, verb string) error {
	var status models.InspectionStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM inspections WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return mapError("get inspection status", err)
	}
	if status == models.InspectionCompleted {
		return common.Conflictf("completed inspections cannot be %s", verb)
	}
	return common.ErrNotFound
}

func (r *inspectionRepo) ListAccessible(ctx context.Context, userID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, error) {
	conditions := []string{`EXISTS (
			SELECT 1 FROM properties p JOIN memberships m ON m.structure_id = p.structure_id
			WHERE p.id = i.property_id AND m.user_id = $1)`}
	args := []any{userID}
	if filter.PropertyID != nil {
		args = append(args, *filter.PropertyID)
		conditions = append(conditions, fmt.Sprintf("i.property_id = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, fmt.Sprintf("i.type = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", len(args)))
	}
	args = append(args, limitClause(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM inspections i
		WHERE %s
		ORDER BY i.date DESC
		LIMIT $%d OFFSET $%d
	`, inspectionColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list inspections", err)
	}
	defer rows.Close()

	var inspections []*models.Inspection
	for rows.Next() {
		i, err := scanInspection(rows)
		if err != nil {
			return nil, mapError("scan inspection", err)
		}
		inspections = append(inspections, i)
	}
	return inspections, mapError("list inspections", rows.Err())
}

func (r *inspectionRepo) ClearExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE inspections
		SET share_token = NULL, share_expiry = NULL
		WHERE share_expiry IS NOT NULL AND share_expiry < $1
	`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, mapError("clear expired shares", err)
	}
	return tag.RowsAffected(), nil
}
