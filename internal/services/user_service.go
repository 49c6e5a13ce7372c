package services

import (
	"context"
	"strings"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
)

type UserService interface {
	// Provision returns the user behind an identity, creating it on first sign-in.
	Provision(ctx context.Context, identity models.Identity) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userService struct {
	store repositories.Store
}

func NewUserService(store repositories.Store) UserService {
	return &userService{store: store}
}

func (s *userService) Provision(ctx context.Context, identity models.Identity) (*models.User, error) {
	subject := strings.TrimSpace(identity.Subject)
	if subject == "" {
		return nil, common.ErrUnauthenticated
	}
	user := &models.User{
		ID:      uuid.New(),
		Subject: subject,
		Email:   common.TrimmedOrNil(&identity.Email),
		Name:    common.TrimmedOrNil(&identity.Name),
	}
	return s.store.Users().UpsertBySubject(ctx, user)
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.Users().GetByID(ctx, id)
}
