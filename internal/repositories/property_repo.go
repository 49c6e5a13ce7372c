package repositories

import (
	"context"
	"fmt"
	"strings"

	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	// GetForUpdate loads the property and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Property, error)
	Update(ctx context.Context, property *models.Property) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PropertyStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListAccessible returns properties the user owns directly or through a structure membership.
	ListAccessible(ctx context.Context, userID uuid.UUID, filter models.PropertyFilter) ([]*models.Property, error)
	ListByStructure(ctx context.Context, structureID uuid.UUID) ([]*models.Property, error)
}

type propertyRepo struct {
	db DBTX
}

func NewPropertyRepository(db DBTX) PropertyRepository {
	return &propertyRepo{db: db}
}

const propertyColumns = `p.id, p.address, p.type, p.surface, p.rooms, p.floor, p.build_year,
		p.has_elevator, p.has_parking, p.has_basement, p.heating_type, p.status,
		p.structure_id, p.user_id, p.created_at, p.updated_at`

// propertyReachable matches rows of alias p reachable by the user bound to $1.
const propertyReachable = `(p.user_id = $1 OR EXISTS (
			SELECT 1 FROM memberships pm WHERE pm.structure_id = p.structure_id AND pm.user_id = $1))`

func scanProperty(row interface{ Scan(...any) error }) (*models.Property, error) {
	p := &models.Property{}
	err := row.Scan(&p.ID, &p.Address, &p.Type, &p.Surface, &p.Rooms, &p.Floor, &p.BuildYear,
		&p.HasElevator, &p.HasParking, &p.HasBasement, &p.HeatingType, &p.Status,
		&p.StructureID, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *propertyRepo) Create(ctx context.Context, property *models.Property) error {
	query := `
		INSERT INTO properties (id, address, type, surface, rooms, floor, build_year, has_elevator, has_parking,
			has_basement, heating_type, status, structure_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, property.ID, property.Address, property.Type, property.Surface, property.Rooms,
		property.Floor, property.BuildYear, property.HasElevator, property.HasParking, property.HasBasement,
		property.HeatingType, property.Status, property.StructureID, property.UserID).
		Scan(&property.CreatedAt, &property.UpdatedAt)
	return mapError("create property", err)
}

func (r *propertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties p WHERE p.id = $1`
	p, err := scanProperty(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("get property", err)
	}
	return p, nil
}

func (r *propertyRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties p WHERE p.id = $1 FOR UPDATE`
	p, err := scanProperty(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("lock property", err)
	}
	return p, nil
}

func (r *propertyRepo) Update(ctx context.Context, property *models.Property) error {
	query := `
		UPDATE properties
		SET address = $1, type = $2, surface = $3, rooms = $4, floor = $5, build_year = $6, has_elevator = $7,
			has_parking = $8, has_basement = $9, heating_type = $10, status = $11, structure_id = $12,
			user_id = $13, updated_at = NOW()
		WHERE id = $14
	`
	tag, err := r.db.Exec(ctx, query, property.Address, property.Type, property.Surface, property.Rooms,
		property.Floor, property.BuildYear, property.HasElevator, property.HasParking, property.HasBasement,
		property.HeatingType, property.Status, property.StructureID, property.UserID, property.ID)
	if err != nil {
		return mapError("update property", err)
	}
	return notFoundIfNone(tag)
}

func (r *propertyRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PropertyStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE properties SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return mapError("update property status", err)
	}
	return notFoundIfNone(tag)
}

func (r *propertyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return mapError("delete property", err)
	}
	return notFoundIfNone(tag)
}

func (r *propertyRepo) ListAccessible(ctx context.Context, userID uuid.UUID, filter models.PropertyFilter) ([]*models.Property, error) {
	conditions := []string{propertyReachable}
	args := []any{userID}
	if filter.StructureID != nil {
		args = append(args, *filter.StructureID)
		conditions = append(conditions, fmt.Sprintf("p.structure_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, fmt.Sprintf("p.type = $%d", len(args)))
	}
	args = append(args, limitClause(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM properties p
		WHERE %s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d
	`, propertyColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	return r.list(ctx, query, args...)
}

func (r *propertyRepo) ListByStructure(ctx context.Context, structureID uuid.UUID) ([]*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties p WHERE p.structure_id = $1 ORDER BY p.address ASC`
	return r.list(ctx, query, structureID)
}

func (r *propertyRepo) list(ctx context.Context, query string, args ...any) ([]*models.Property, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list properties", err)
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, mapError("scan property", err)
		}
		properties = append(properties, p)
	}
	return properties, mapError("list properties", rows.Err())
}
