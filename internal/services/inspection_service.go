package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShareLinkValidity is how long a minted share link stays usable.
const ShareLinkValidity = 7 * 24 * time.Hour

// ShareLinkCache indexes live share tokens by inspection id.
type ShareLinkCache interface {
	SetShareLink(ctx context.Context, token string, inspectionID uuid.UUID, ttl time.Duration) error
	// GetShareLink returns common.ErrNotFound on a miss.
	GetShareLink(ctx context.Context, token string) (uuid.UUID, error)
	DeleteShareLink(ctx context.Context, token string) error
}

type CreateInspectionRequest struct {
	PropertyID   uuid.UUID `json:"property_id"`
	Type         string    `json:"type"`
	Date         string    `json:"date"`
	Notes        string    `json:"notes"`
	Photos       []string  `json:"photos"`
	GenerateLink bool      `json:"generate_link"`
}

type UpdateInspectionRequest struct {
	Type         *string                  `json:"type"`
	Date         *string                  `json:"date"`
	Notes        *string                  `json:"notes"`
	Photos       *[]string                `json:"photos"`
	Status       *models.InspectionStatus `json:"status"`
	GenerateLink bool                     `json:"generate_link"`
}

type InspectionService interface {
	Create(ctx context.Context, userID uuid.UUID, req *CreateInspectionRequest) (*models.Inspection, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Inspection, error)
	List(ctx context.Context, userID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, error)
	// Update and Delete reject completed inspections with a conflict, whatever the caller's role.
	Update(ctx context.Context, userID, id uuid.UUID, req *UpdateInspectionRequest) (*models.Inspection, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// ResolveShare returns the read-only view behind an unexpired share token.
	ResolveShare(ctx context.Context, token string) (*models.SharedInspection, error)
}

type inspectionService struct {
	store  repositories.Store
	cache  ShareLinkCache
	logger *zap.Logger
	now    func() time.Time
}

func NewInspectionService(store repositories.Store, cache ShareLinkCache, logger *zap.Logger) InspectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inspectionService{store: store, cache: cache, logger: logger, now: time.Now}
}

// generateShareToken returns 32 random bytes hex encoded.
func generateShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *inspectionService) mintShareLink(i *models.Inspection) error {
	token, err := generateShareToken()
	if err != nil {
		return err
	}
	expiry := s.now().UTC().Add(ShareLinkValidity)
	i.ShareToken = &token
	i.ShareExpiry = &expiry
	return nil
}

func (s *inspectionService) Create(ctx context.Context, userID uuid.UUID, req *CreateInspectionRequest) (*models.Inspection, error) {
	verr := &common.ValidationError{}
	if req.PropertyID == uuid.Nil {
		verr.Add("property_id", "is required")
	}
	if strings.TrimSpace(req.Type) == "" {
		verr.Add("type", "is required")
	}
	date, err := common.ParseDate(req.Date, "date")
	if err != nil {
		verr.Add("date", "is required in YYYY-MM-DD or RFC3339 format")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	inspection := &models.Inspection{
		ID:         uuid.New(),
		PropertyID: req.PropertyID,
		Type:       strings.TrimSpace(req.Type),
		Date:       date,
		Notes:      req.Notes,
		Photos:     emptyIfNil(req.Photos),
		Status:     models.InspectionDraft,
	}
	if req.GenerateLink {
		if err := s.mintShareLink(inspection); err != nil {
			return nil, err
		}
	}

	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		property, err := tx.Properties().GetByID(ctx, req.PropertyID)
		if err != nil {
			return err
		}
		if err := require(NewAccessResolver(tx).InspectionPropertyAccess(ctx, userID, property, ActionEdit)); err != nil {
			return err
		}
		return tx.Inspections().Create(ctx, inspection)
	})
	if err != nil {
		return nil, err
	}
	s.registerShareLink(ctx, inspection)
	return inspection, nil
}

func (s *inspectionService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Inspection, error) {
	inspection, err := s.store.Inspections().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, s.store, userID, inspection, ActionView); err != nil {
		return nil, err
	}
	return inspection, nil
}

func (s *inspectionService) check(ctx context.Context, store repositories.Store, userID uuid.UUID, i *models.Inspection, action Action) error {
	property, err := store.Properties().GetByID(ctx, i.PropertyID)
	if err != nil {
		return err
	}
	return require(NewAccessResolver(store).InspectionPropertyAccess(ctx, userID, property, action))
}

func (s *inspectionService) List(ctx context.Context, userID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, common.NewValidationError("status", "must be draft or completed")
	}
	inspections, err := s.store.Inspections().ListAccessible(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(inspections), nil
}

func (s *inspectionService) Update(ctx context.Context, userID, id uuid.UUID, req *UpdateInspectionRequest) (*models.Inspection, error) {
	var (
		updated  *models.Inspection
		oldToken *string
	)
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		inspection, err := tx.Inspections().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.check(ctx, tx, userID, inspection, ActionView); err != nil {
			return err
		}
		if inspection.Completed() {
			return common.Conflictf("completed inspections cannot be modified")
		}
		if err := s.check(ctx, tx, userID, inspection, ActionEdit); err != nil {
			return err
		}

		verr := &common.ValidationError{}
		if req.Type != nil {
			if strings.TrimSpace(*req.Type) == "" {
				verr.Add("type", "cannot be empty")
			}
			inspection.Type = strings.TrimSpace(*req.Type)
		}
		if req.Date != nil {
			date, err := common.ParseDate(*req.Date, "date")
			if err != nil {
				verr.Add("date", "must be in YYYY-MM-DD or RFC3339 format")
			}
			inspection.Date = date
		}
		if req.Notes != nil {
			inspection.Notes = *req.Notes
		}
		if req.Photos != nil {
			inspection.Photos = emptyIfNil(*req.Photos)
		}
		if req.Status != nil {
			if !req.Status.Valid() {
				verr.Add("status", "must be draft or completed")
			}
			inspection.Status = *req.Status
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		if req.GenerateLink {
			oldToken = inspection.ShareToken
			if err := s.mintShareLink(inspection); err != nil {
				return err
			}
		}
		if err := tx.Inspections().Update(ctx, inspection); err != nil {
			return err
		}
		updated = inspection
		return nil
	})
	if err != nil {
		return nil, err
	}
	if oldToken != nil {
		s.forgetShareLink(ctx, *oldToken)
	}
	if req.GenerateLink {
		s.registerShareLink(ctx, updated)
	}
	return updated, nil
}

func (s *inspectionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	var token *string
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		inspection, err := tx.Inspections().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.check(ctx, tx, userID, inspection, ActionView); err != nil {
			return err
		}
		if inspection.Completed() {
			return common.Conflictf("completed inspections cannot be deleted")
		}
		if err := s.check(ctx, tx, userID, inspection, ActionDestroy); err != nil {
			return err
		}
		token = inspection.ShareToken
		return tx.Inspections().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if token != nil {
		s.forgetShareLink(ctx, *token)
	}
	return nil
}

func (s *inspectionService) ResolveShare(ctx context.Context, token string) (*models.SharedInspection, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, common.ErrNotFound
	}

	var inspection *models.Inspection
	if s.cache != nil {
		id, err := s.cache.GetShareLink(ctx, token)
		switch {
		case err == nil:
			inspection, err = s.store.Inspections().GetByID(ctx, id)
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				return nil, err
			}
		case !errors.Is(err, common.ErrNotFound):
			s.logger.Warn("share link cache lookup failed", zap.Error(err))
		}
	}
	if inspection == nil {
		var err error
		inspection, err = s.store.Inspections().GetByShareToken(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	if inspection.ShareToken == nil || *inspection.ShareToken != token ||
		inspection.ShareExpiry == nil || !inspection.ShareExpiry.After(s.now()) {
		return nil, common.ErrNotFound
	}
	property, err := s.store.Properties().GetByID(ctx, inspection.PropertyID)
	if err != nil {
		return nil, err
	}
	return &models.SharedInspection{
		ID:              inspection.ID,
		Type:            inspection.Type,
		Date:            inspection.Date,
		Notes:           inspection.Notes,
		Photos:          inspection.Photos,
		Status:          inspection.Status,
		PropertyAddress: property.Address,
		ExpiresAt:       *inspection.ShareExpiry,
	}, nil
}

func (s *inspectionService) registerShareLink(ctx context.Context, i *models.Inspection) {
	if s.cache == nil || i.ShareToken == nil || i.ShareExpiry == nil {
		return
	}
	ttl := i.ShareExpiry.Sub(s.now())
	if ttl <= 0 {
		return
	}
	if err := s.cache.SetShareLink(ctx, *i.ShareToken, i.ID, ttl); err != nil {
		s.logger.Warn("failed to cache share link", zap.String("inspection_id", i.ID.String()), zap.Error(err))
	}
}

func (s *inspectionService) forgetShareLink(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteShareLink(ctx, token); err != nil {
		s.logger.Warn("failed to drop cached share link", zap.Error(err))
	}
}
