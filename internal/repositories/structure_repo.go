package repositories

import (
	"context"

	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type StructureRepository interface {
	Create(ctx context.Context, structure *models.Structure) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Structure, error)
	GetByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Structure, error)
	Update(ctx context.Context, structure *models.Structure) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListForUser returns structures on which the user holds any membership.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Structure, error)
	// Lock takes a row lock on the structure for the rest of the transaction.
	Lock(ctx context.Context, id uuid.UUID) error
	AddAssociates(ctx context.Context, associates []*models.Associate) error
	ListAssociates(ctx context.Context, structureID uuid.UUID) ([]*models.Associate, error)
}

type structureRepo struct {
	db DBTX
}

func NewStructureRepository(db DBTX) StructureRepository {
	return &structureRepo{db: db}
}

const structureColumns = `s.id, s.name, s.address, s.registration_number, s.creation_date, s.capital,
		s.main_contact, s.email, s.phone, s.created_at, s.updated_at`

func scanStructure(row interface{ Scan(...any) error }) (*models.Structure, error) {
	s := &models.Structure{}
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.RegistrationNumber, &s.CreationDate, &s.Capital,
		&s.MainContact, &s.Email, &s.Phone, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *structureRepo) Create(ctx context.Context, structure *models.Structure) error {
	query := `
		INSERT INTO structures (id, name, address, registration_number, creation_date, capital, main_contact, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, structure.ID, structure.Name, structure.Address, structure.RegistrationNumber,
		structure.CreationDate, structure.Capital, structure.MainContact, structure.Email, structure.Phone).
		Scan(&structure.CreatedAt, &structure.UpdatedAt)
	return mapError("create structure", err)
}

func (r *structureRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Structure, error) {
	query := `SELECT ` + structureColumns + ` FROM structures s WHERE s.id = $1`
	s, err := scanStructure(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("get structure", err)
	}
	return s, nil
}

func (r *structureRepo) GetByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Structure, error) {
	query := `SELECT ` + structureColumns + ` FROM structures s WHERE s.registration_number = $1`
	s, err := scanStructure(r.db.QueryRow(ctx, query, registrationNumber))
	if err != nil {
		return nil, mapError("get structure by registration number", err)
	}
	return s, nil
}

func (r *structureRepo) Update(ctx context.Context, structure *models.Structure) error {
	query := `
		UPDATE structures
		SET name = $1, address = $2, capital = $3, main_contact = $4, email = $5, phone = $6, updated_at = NOW()
		WHERE id = $7
	`
	tag, err := r.db.Exec(ctx, query, structure.Name, structure.Address, structure.Capital,
		structure.MainContact, structure.Email, structure.Phone, structure.ID)
	if err != nil {
		return mapError("update structure", err)
	}
	return notFoundIfNone(tag)
}

// Delete removes the structure; properties, memberships, associates and documents cascade.
func (r *structureRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM structures WHERE id = $1`, id)
	if err != nil {
		return mapError("delete structure", err)
	}
	return notFoundIfNone(tag)
}

func (r *structureRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Structure, error) {
	query := `
		SELECT ` + structureColumns + `
		FROM structures s
		JOIN memberships m ON m.structure_id = s.id
		WHERE m.user_id = $1
		ORDER BY s.name ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, mapError("list structures", err)
	}
	defer rows.Close()

	var structures []*models.Structure
	for rows.Next() {
		s, err := scanStructure(rows)
		if err != nil {
			return nil, mapError("scan structure", err)
		}
		structures = append(structures, s)
	}
	return structures, mapError("list structures", rows.Err())
}

func (r *structureRepo) Lock(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM structures WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	return mapError("lock structure", err)
}

func (r *structureRepo) AddAssociates(ctx context.Context, associates []*models.Associate) error {
	query := `INSERT INTO associates (id, structure_id, name, percentage) VALUES ($1, $2, $3, $4)`
	for _, a := range associates {
		if _, err := r.db.Exec(ctx, query, a.ID, a.StructureID, a.Name, a.Percentage); err != nil {
			return mapError("create associate", err)
		}
	}
	return nil
}

func (r *structureRepo) ListAssociates(ctx context.Context, structureID uuid.UUID) ([]*models.Associate, error) {
	query := `SELECT id, structure_id, name, percentage FROM associates WHERE structure_id = $1 ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query, structureID)
	if err != nil {
		return nil, mapError("list associates", err)
	}
	defer rows.Close()

	var associates []*models.Associate
	for rows.Next() {
		a := &models.Associate{}
		if err := rows.Scan(&a.ID, &a.StructureID, &a.Name, &a.Percentage); err != nil {
			return nil, mapError("scan associate", err)
		}
		associates = append(associates, a)
	}
	return associates, mapError("list associates", rows.Err())
}
