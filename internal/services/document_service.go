package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const downloadURLExpiry = 15 * time.Minute

type DocumentRequest struct {
	Name        string                  `json:"name"`
	Type        string                  `json:"type"`
	Category    models.DocumentCategory `json:"category"`
	URL         string                  `json:"url"`
	ExpiryDate  *string                 `json:"expiry_date"`
	StructureID *uuid.UUID              `json:"structure_id"`
	PropertyID  *uuid.UUID              `json:"property_id"`
	TenantID    *uuid.UUID              `json:"tenant_id"`
}

// UploadRequest describes a file to store alongside the document metadata.
type UploadRequest struct {
	DocumentRequest
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type DocumentService interface {
	Create(ctx context.Context, userID uuid.UUID, req *DocumentRequest) (*models.Document, error)
	Upload(ctx context.Context, userID uuid.UUID, req *UploadRequest) (*models.Document, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Document, error)
	List(ctx context.Context, userID uuid.UUID, filter models.DocumentFilter) ([]*models.Document, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DownloadURL(ctx context.Context, userID, id uuid.UUID) (string, error)
}

type documentService struct {
	store   repositories.Store
	storage ObjectStorage
	logger  *zap.Logger
}

func NewDocumentService(store repositories.Store, storage ObjectStorage, logger *zap.Logger) DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &documentService{store: store, storage: storage, logger: logger}
}

// build validates the request and derives the access target from the category
// and the single foreign key that matches it.
func (r *DocumentRequest) build(userID uuid.UUID, requireURL bool) (*models.Document, uuid.UUID, error) {
	verr := &common.ValidationError{}
	if strings.TrimSpace(r.Name) == "" {
		verr.Add("name", "is required")
	}
	if strings.TrimSpace(r.Type) == "" {
		verr.Add("type", "is required")
	}
	if requireURL && strings.TrimSpace(r.URL) == "" {
		verr.Add("url", "is required")
	}
	if !r.Category.Valid() {
		verr.Add("category", "must be one of structure, property, tenant")
	}
	expiry, err := common.ParseOptionalDate(r.ExpiryDate, "expiry_date")
	if err != nil {
		verr.Add("expiry_date", "must be in YYYY-MM-DD or RFC3339 format")
	}
	if err := verr.OrNil(); err != nil {
		return nil, uuid.Nil, err
	}

	doc := &models.Document{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(r.Name),
		Type:        strings.TrimSpace(r.Type),
		Category:    r.Category,
		URL:         strings.TrimSpace(r.URL),
		ExpiryDate:  expiry,
		StructureID: r.StructureID,
		PropertyID:  r.PropertyID,
		TenantID:    r.TenantID,
		UploadedBy:  userID,
	}
	set := 0
	for _, ref := range []*uuid.UUID{r.StructureID, r.PropertyID, r.TenantID} {
		if ref != nil {
			set++
		}
	}
	targetID, ok := doc.TargetID()
	if set != 1 || !ok {
		return nil, uuid.Nil, common.Invalidf("a %s document must reference exactly one %s", r.Category, r.Category)
	}
	return doc, targetID, nil
}

func (s *documentService) Create(ctx context.Context, userID uuid.UUID, req *DocumentRequest) (*models.Document, error) {
	doc, targetID, err := req.build(userID, true)
	if err != nil {
		return nil, err
	}
	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := require(NewAccessResolver(tx).CheckDocumentTarget(ctx, userID, doc.Category, targetID, ActionEdit)); err != nil {
			return err
		}
		return tx.Documents().Create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Upload stores the file then records the document. The stored object is
// removed again if the record cannot be written.
func (s *documentService) Upload(ctx context.Context, userID uuid.UUID, req *UploadRequest) (*models.Document, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("document storage is not configured")
	}
	if req.Body == nil || req.Size <= 0 {
		return nil, common.NewValidationError("file", "is required")
	}
	doc, targetID, err := req.build(userID, false)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s/%s/%s%s", doc.Category, targetID, doc.ID, path.Ext(req.Filename))
	doc.StorageKey = &key
	doc.URL = fmt.Sprintf("s3://%s/%s", s.storage.Bucket(), key)

	uploaded := false
	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := require(NewAccessResolver(tx).CheckDocumentTarget(ctx, userID, doc.Category, targetID, ActionEdit)); err != nil {
			return err
		}
		if err := s.storage.Upload(ctx, key, req.Body, req.Size, req.ContentType); err != nil {
			return fmt.Errorf("upload document: %w", err)
		}
		uploaded = true
		return tx.Documents().Create(ctx, doc)
	})
	if err != nil {
		if uploaded {
			s.removeObject(ctx, key)
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Document, error) {
	doc, err := s.store.Documents().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := require(NewAccessResolver(s.store).DocumentAccess(ctx, userID, doc, ActionView)); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, userID uuid.UUID, filter models.DocumentFilter) ([]*models.Document, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, common.NewValidationError("category", "must be one of structure, property, tenant")
	}
	docs, err := s.store.Documents().ListAccessible(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(docs), nil
}

func (s *documentService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	var storageKey *string
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		doc, err := tx.Documents().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := require(NewAccessResolver(tx).DocumentAccess(ctx, userID, doc, ActionEdit)); err != nil {
			return err
		}
		storageKey = doc.StorageKey
		return tx.Documents().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if storageKey != nil {
		s.removeObject(ctx, *storageKey)
	}
	return nil
}

func (s *documentService) DownloadURL(ctx context.Context, userID, id uuid.UUID) (string, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if doc.StorageKey == nil || s.storage == nil {
		return doc.URL, nil
	}
	return s.storage.PresignedURL(ctx, *doc.StorageKey, downloadURLExpiry)
}

func (s *documentService) removeObject(ctx context.Context, key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Remove(ctx, key); err != nil {
		s.logger.Warn("failed to remove stored document", zap.String("key", key), zap.Error(err))
	}
}
