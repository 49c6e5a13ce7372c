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

type AssociateRequest struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

type CreateStructureRequest struct {
	Name               string             `json:"name"`
	Address            string             `json:"address"`
	RegistrationNumber string             `json:"registration_number"`
	CreationDate       string             `json:"creation_date"`
	Capital            *float64           `json:"capital"`
	MainContact        *string            `json:"main_contact"`
	Email              *string            `json:"email"`
	Phone              *string            `json:"phone"`
	Associates         []AssociateRequest `json:"associates"`
}

type UpdateStructureRequest struct {
	Name        *string  `json:"name"`
	Address     *string  `json:"address"`
	Capital     *float64 `json:"capital"`
	MainContact *string  `json:"main_contact"`
	Email       *string  `json:"email"`
	Phone       *string  `json:"phone"`
}

type StructureService interface {
	Create(ctx context.Context, userID uuid.UUID, req *CreateStructureRequest) (*models.StructureDetail, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.StructureDetail, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.StructureDetail, error)
	Update(ctx context.Context, userID, id uuid.UUID, req *UpdateStructureRequest) (*models.Structure, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type structureService struct {
	store repositories.Store
}

func NewStructureService(store repositories.Store) StructureService {
	return &structureService{store: store}
}

func (r *CreateStructureRequest) validate() (*models.Structure, error) {
	verr := &common.ValidationError{}
	if strings.TrimSpace(r.Name) == "" {
		verr.Add("name", "is required")
	}
	if strings.TrimSpace(r.Address) == "" {
		verr.Add("address", "is required")
	}
	if strings.TrimSpace(r.RegistrationNumber) == "" {
		verr.Add("registration_number", "is required")
	}
	if r.Capital == nil {
		verr.Add("capital", "is required")
	} else if *r.Capital <= 0 {
		verr.Add("capital", "must be positive")
	}
	creationDate, err := common.ParseDate(r.CreationDate, "creation_date")
	if err != nil {
		var fieldErr *common.ValidationError
		if errors.As(err, &fieldErr) {
			verr.Add("creation_date", fieldErr.Fields["creation_date"])
		}
	}
	for _, a := range r.Associates {
		if strings.TrimSpace(a.Name) == "" {
			verr.Add("associates", "every associate needs a name")
		}
		if a.Percentage <= 0 || a.Percentage > 100 {
			verr.Add("associates", "percentage must be within (0, 100]")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return &models.Structure{
		ID:                 uuid.New(),
		Name:               strings.TrimSpace(r.Name),
		Address:            strings.TrimSpace(r.Address),
		RegistrationNumber: strings.TrimSpace(r.RegistrationNumber),
		CreationDate:       creationDate,
		Capital:            *r.Capital,
		MainContact:        common.TrimmedOrNil(r.MainContact),
		Email:              common.TrimmedOrNil(r.Email),
		Phone:              common.TrimmedOrNil(r.Phone),
	}, nil
}

// Create inserts the structure, the caller's owner membership and any associates
// in one transaction.
func (s *structureService) Create(ctx context.Context, userID uuid.UUID, req *CreateStructureRequest) (*models.StructureDetail, error) {
	structure, err := req.validate()
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		existing, err := tx.Structures().GetByRegistrationNumber(ctx, structure.RegistrationNumber)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if existing != nil {
			return common.Conflictf("a structure with registration number %s already exists", structure.RegistrationNumber)
		}
		if err := tx.Structures().Create(ctx, structure); err != nil {
			return err
		}
		owner := &models.Membership{
			ID:          uuid.New(),
			UserID:      userID,
			StructureID: structure.ID,
			Role:        models.RoleOwner,
		}
		if err := tx.Memberships().Create(ctx, owner); err != nil {
			return err
		}
		if len(req.Associates) == 0 {
			return nil
		}
		associates := make([]*models.Associate, 0, len(req.Associates))
		for _, a := range req.Associates {
			associates = append(associates, &models.Associate{
				ID:          uuid.New(),
				StructureID: structure.ID,
				Name:        strings.TrimSpace(a.Name),
				Percentage:  a.Percentage,
			})
		}
		return tx.Structures().AddAssociates(ctx, associates)
	})
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, structure, models.RoleOwner)
}

func (s *structureService) Get(ctx context.Context, userID, id uuid.UUID) (*models.StructureDetail, error) {
	role, member, err := NewAccessResolver(s.store).StructureRole(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, common.ErrNotFound
	}
	structure, err := s.store.Structures().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, structure, role)
}

func (s *structureService) List(ctx context.Context, userID uuid.UUID) ([]*models.StructureDetail, error) {
	structures, err := s.store.Structures().ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	access := NewAccessResolver(s.store)
	details := make([]*models.StructureDetail, 0, len(structures))
	for _, structure := range structures {
		role, member, err := access.StructureRole(ctx, userID, structure.ID)
		if err != nil {
			return nil, err
		}
		if !member {
			continue
		}
		detail, err := s.detail(ctx, structure, role)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *structureService) detail(ctx context.Context, structure *models.Structure, role models.Role) (*models.StructureDetail, error) {
	members, err := s.store.Memberships().ListMembers(ctx, structure.ID)
	if err != nil {
		return nil, err
	}
	associates, err := s.store.Structures().ListAssociates(ctx, structure.ID)
	if err != nil {
		return nil, err
	}
	properties, err := s.store.Properties().ListByStructure(ctx, structure.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.Documents().CountByTarget(ctx, models.DocumentStructure, structure.ID)
	if err != nil {
		return nil, err
	}
	return &models.StructureDetail{
		Structure:     structure,
		Role:          role,
		Members:       emptyIfNil(members),
		Associates:    emptyIfNil(associates),
		Properties:    emptyIfNil(properties),
		DocumentCount: count,
	}, nil
}

func (s *structureService) Update(ctx context.Context, userID, id uuid.UUID, req *UpdateStructureRequest) (*models.Structure, error) {
	var updated *models.Structure
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.Structures().Lock(ctx, id); err != nil {
			return err
		}
		if err := require(NewAccessResolver(tx).CheckStructure(ctx, userID, id, ActionEdit)); err != nil {
			return err
		}
		structure, err := tx.Structures().GetByID(ctx, id)
		if err != nil {
			return err
		}

		verr := &common.ValidationError{}
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				verr.Add("name", "cannot be empty")
			}
			structure.Name = strings.TrimSpace(*req.Name)
		}
		if req.Address != nil {
			if strings.TrimSpace(*req.Address) == "" {
				verr.Add("address", "cannot be empty")
			}
			structure.Address = strings.TrimSpace(*req.Address)
		}
		if req.Capital != nil {
			if *req.Capital <= 0 {
				verr.Add("capital", "must be positive")
			}
			structure.Capital = *req.Capital
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		if req.MainContact != nil {
			structure.MainContact = common.TrimmedOrNil(req.MainContact)
		}
		if req.Email != nil {
			structure.Email = common.TrimmedOrNil(req.Email)
		}
		if req.Phone != nil {
			structure.Phone = common.TrimmedOrNil(req.Phone)
		}
		if err := tx.Structures().Update(ctx, structure); err != nil {
			return err
		}
		updated = structure
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the structure together with its properties, memberships and documents.
func (s *structureService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.Structures().Lock(ctx, id); err != nil {
			return err
		}
		if err := require(NewAccessResolver(tx).CheckStructure(ctx, userID, id, ActionDestroy)); err != nil {
			return err
		}
		return tx.Structures().Delete(ctx, id)
	})
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
