package services

import (
	"context"
	"errors"
	"strings"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
)

type AddMemberRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

type ChangeRoleRequest struct {
	Role models.Role `json:"role"`
}

// MembershipService manages a structure's roster. Every change locks the
// structure row so concurrent changes cannot both remove the last owner.
type MembershipService interface {
	List(ctx context.Context, userID, structureID uuid.UUID) ([]*models.Member, error)
	Add(ctx context.Context, userID, structureID uuid.UUID, req *AddMemberRequest) (*models.Membership, error)
	ChangeRole(ctx context.Context, userID, structureID, memberID uuid.UUID, req *ChangeRoleRequest) (*models.Membership, error)
	Remove(ctx context.Context, userID, structureID, memberID uuid.UUID) error
}

type membershipService struct {
	store repositories.Store
}

func NewMembershipService(store repositories.Store) MembershipService {
	return &membershipService{store: store}
}

func (s *membershipService) List(ctx context.Context, userID, structureID uuid.UUID) ([]*models.Member, error) {
	if err := require(NewAccessResolver(s.store).CheckStructure(ctx, userID, structureID, ActionView)); err != nil {
		return nil, err
	}
	members, err := s.store.Memberships().ListMembers(ctx, structureID)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(members), nil
}

func (s *membershipService) Add(ctx context.Context, userID, structureID uuid.UUID, req *AddMemberRequest) (*models.Membership, error) {
	email := strings.TrimSpace(req.Email)
	verr := &common.ValidationError{}
	if email == "" {
		verr.Add("email", "is required")
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if !req.Role.Valid() {
		verr.Add("role", "must be one of owner, admin, member")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var membership *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.Structures().Lock(ctx, structureID); err != nil {
			return err
		}
		access := NewAccessResolver(tx)
		if err := require(access.CheckStructure(ctx, userID, structureID, ActionAddMember)); err != nil {
			return err
		}
		if req.Role == models.RoleOwner {
			if err := require(access.CheckStructure(ctx, userID, structureID, ActionChangeRole)); err != nil {
				return err
			}
		}
		user, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if _, err := tx.Memberships().Get(ctx, structureID, user.ID); err == nil {
			return common.Conflictf("user is already a member of this structure")
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		membership = &models.Membership{
			ID:          uuid.New(),
			UserID:      user.ID,
			StructureID: structureID,
			Role:        req.Role,
		}
		return tx.Memberships().Create(ctx, membership)
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

func (s *membershipService) ChangeRole(ctx context.Context, userID, structureID, memberID uuid.UUID, req *ChangeRoleRequest) (*models.Membership, error) {
	if !req.Role.Valid() {
		return nil, common.NewValidationError("role", "must be one of owner, admin, member")
	}

	var membership *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.Structures().Lock(ctx, structureID); err != nil {
			return err
		}
		if err := require(NewAccessResolver(tx).CheckStructure(ctx, userID, structureID, ActionChangeRole)); err != nil {
			return err
		}
		current, err := tx.Memberships().Get(ctx, structureID, memberID)
		if err != nil {
			return err
		}
		if current.Role == models.RoleOwner && req.Role != models.RoleOwner {
			if err := ensureAnotherOwner(ctx, tx, structureID); err != nil {
				return err
			}
		}
		if err := tx.Memberships().UpdateRole(ctx, structureID, memberID, req.Role); err != nil {
			return err
		}
		current.Role = req.Role
		membership = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// Remove lets an owner remove anyone and any member remove themselves.
func (s *membershipService) Remove(ctx context.Context, userID, structureID, memberID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.Structures().Lock(ctx, structureID); err != nil {
			return err
		}
		action := ActionRemoveMember
		if userID == memberID {
			action = ActionView
		}
		if err := require(NewAccessResolver(tx).CheckStructure(ctx, userID, structureID, action)); err != nil {
			return err
		}
		current, err := tx.Memberships().Get(ctx, structureID, memberID)
		if err != nil {
			return err
		}
		if current.Role == models.RoleOwner {
			if err := ensureAnotherOwner(ctx, tx, structureID); err != nil {
				return err
			}
		}
		return tx.Memberships().Delete(ctx, structureID, memberID)
	})
}

func ensureAnotherOwner(ctx context.Context, tx repositories.Store, structureID uuid.UUID) error {
	owners, err := tx.Memberships().CountOwners(ctx, structureID)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return common.Conflictf("a structure must keep at least one owner")
	}
	return nil
}
