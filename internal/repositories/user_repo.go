package repositories

import (
	"context"

	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	UpsertBySubject(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type userRepo struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

// UpsertBySubject creates the user on first sign-in and refreshes profile claims afterwards.
func (r *userRepo) UpsertBySubject(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, subject, email, name, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (subject) DO UPDATE
		SET email = COALESCE(EXCLUDED.email, users.email),
			name = COALESCE(EXCLUDED.name, users.name)
		RETURNING id, subject, email, name, created_at
	`
	out := &models.User{}
	err := r.db.QueryRow(ctx, query, user.ID, user.Subject, user.Email, user.Name).
		Scan(&out.ID, &out.Subject, &out.Email, &out.Name, &out.CreatedAt)
	if err != nil {
		return nil, mapError("upsert user", err)
	}
	return out, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, subject, email, name, created_at FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Subject, &user.Email, &user.Name, &user.CreatedAt)
	if err != nil {
		return nil, mapError("get user", err)
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, subject, email, name, created_at FROM users WHERE lower(email) = lower($1)`
	err := r.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.Subject, &user.Email, &user.Name, &user.CreatedAt)
	if err != nil {
		return nil, mapError("get user by email", err)
	}
	return user, nil
}
