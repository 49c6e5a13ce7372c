package repositories

import (
	"context"

	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	Get(ctx context.Context, structureID, userID uuid.UUID) (*models.Membership, error)
	ListMembers(ctx context.Context, structureID uuid.UUID) ([]*models.Member, error)
	UpdateRole(ctx context.Context, structureID, userID uuid.UUID, role models.Role) error
	Delete(ctx context.Context, structureID, userID uuid.UUID) error
	CountOwners(ctx context.Context, structureID uuid.UUID) (int, error)
}

type membershipRepo struct {
	db DBTX
}

func NewMembershipRepository(db DBTX) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (id, user_id, structure_id, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, membership.ID, membership.UserID, membership.StructureID, membership.Role).
		Scan(&membership.CreatedAt)
	return mapError("create membership", err)
}

func (r *membershipRepo) Get(ctx context.Context, structureID, userID uuid.UUID) (*models.Membership, error) {
	m := &models.Membership{}
	query := `
		SELECT id, user_id, structure_id, role, created_at
		FROM memberships
		WHERE structure_id = $1 AND user_id = $2
	`
	err := r.db.QueryRow(ctx, query, structureID, userID).Scan(&m.ID, &m.UserID, &m.StructureID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, mapError("get membership", err)
	}
	return m, nil
}

func (r *membershipRepo) ListMembers(ctx context.Context, structureID uuid.UUID) ([]*models.Member, error) {
	query := `
		SELECT m.user_id, u.name, u.email, m.role, m.created_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.structure_id = $1
		ORDER BY m.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, structureID)
	if err != nil {
		return nil, mapError("list members", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m := &models.Member{}
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.Role, &m.CreatedAt); err != nil {
			return nil, mapError("scan member", err)
		}
		members = append(members, m)
	}
	return members, mapError("list members", rows.Err())
}

func (r *membershipRepo) UpdateRole(ctx context.Context, structureID, userID uuid.UUID, role models.Role) error {
	query := `UPDATE memberships SET role = $1 WHERE structure_id = $2 AND user_id = $3`
	tag, err := r.db.Exec(ctx, query, role, structureID, userID)
	if err != nil {
		return mapError("update membership role", err)
	}
	return notFoundIfNone(tag)
}

func (r *membershipRepo) Delete(ctx context.Context, structureID, userID uuid.UUID) error {
	query := `DELETE FROM memberships WHERE structure_id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, query, structureID, userID)
	if err != nil {
		return mapError("delete membership", err)
	}
	return notFoundIfNone(tag)
}

func (r *membershipRepo) CountOwners(ctx context.Context, structureID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM memberships WHERE structure_id = $1 AND role = 'owner'`
	if err := r.db.QueryRow(ctx, query, structureID).Scan(&count); err != nil {
		return 0, mapError("count owners", err)
	}
	return count, nil
}
