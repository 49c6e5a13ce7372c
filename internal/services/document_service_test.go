package services

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStorage) EnsureBucket(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockObjectStorage) Bucket() string {
	return "documents"
}

type DocumentServiceTestSuite struct {
	suite.Suite
	fx        *testhelpers.Fixture
	storage   *MockObjectStorage
	service   DocumentService
	owner     *models.User
	admin     *models.User
	member    *models.User
	structure *models.Structure
	property  *models.Property
}

func (suite *DocumentServiceTestSuite) SetupTest() {
	suite.fx = testhelpers.NewFixture(suite.T())
	suite.storage = new(MockObjectStorage)
	suite.service = NewDocumentService(suite.fx.Store, suite.storage, nil)

	suite.owner = suite.fx.User("Olivia Owner")
	suite.admin = suite.fx.User("Adam Admin")
	suite.member = suite.fx.User("Mia Member")
	suite.structure = suite.fx.Structure(suite.owner.ID)
	suite.fx.Member(suite.structure.ID, suite.admin.ID, models.RoleAdmin)
	suite.fx.Member(suite.structure.ID, suite.member.ID, models.RoleMember)
	suite.property = suite.fx.StructureProperty(suite.structure.ID)
}

func (suite *DocumentServiceTestSuite) TearDownTest() {
	suite.storage.AssertExpectations(suite.T())
}

func TestDocumentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceTestSuite))
}

func (suite *DocumentServiceTestSuite) request(category models.DocumentCategory) *DocumentRequest {
	return &DocumentRequest{
		Name:       "Home insurance",
		Type:       "insurance",
		Category:   category,
		URL:        "https://files.example.com/insurance.pdf",
		ExpiryDate: testhelpers.StringPtr("2026-01-31"),
	}
}

func (suite *DocumentServiceTestSuite) TestCreate() {
	req := suite.request(models.DocumentProperty)
	req.PropertyID = &suite.property.ID

	doc, err := suite.service.Create(suite.fx.Ctx, suite.admin.ID, req)
	suite.Require().NoError(err)
	suite.Equal(suite.admin.ID, doc.UploadedBy)
	suite.Require().NotNil(doc.ExpiryDate)
	suite.Equal(time.January, doc.ExpiryDate.Month())

	_, err = suite.service.Create(suite.fx.Ctx, suite.member.ID, req)
	suite.ErrorIs(err, common.ErrForbidden)
}

func (suite *DocumentServiceTestSuite) TestCreate_CategoryMismatch() {
	req := suite.request(models.DocumentStructure)
	req.PropertyID = &suite.property.ID
	_, err := suite.service.Create(suite.fx.Ctx, suite.owner.ID, req)
	suite.ErrorIs(err, common.ErrInvalidInput)

	req = suite.request(models.DocumentProperty)
	req.PropertyID = &suite.property.ID
	req.StructureID = &suite.structure.ID
	_, err = suite.service.Create(suite.fx.Ctx, suite.owner.ID, req)
	suite.ErrorIs(err, common.ErrInvalidInput, "two foreign keys are rejected")

	req = suite.request("invoice")
	req.PropertyID = &suite.property.ID
	_, err = suite.service.Create(suite.fx.Ctx, suite.owner.ID, req)
	suite.ErrorIs(err, common.ErrInvalidInput)
}

func (suite *DocumentServiceTestSuite) TestCreate_UnreachableTarget() {
	outsider := suite.fx.User("Otto Outsider")
	req := suite.request(models.DocumentStructure)
	req.StructureID = &suite.structure.ID

	_, err := suite.service.Create(suite.fx.Ctx, outsider.ID, req)
	suite.ErrorIs(err, common.ErrNotFound)
}

func (suite *DocumentServiceTestSuite) TestUpload() {
	suite.storage.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "structure/"+suite.structure.ID.String()+"/") && strings.HasSuffix(key, ".pdf")
	}), mock.Anything, int64(7), "application/pdf").Return(nil).Once()

	req := &UploadRequest{
		DocumentRequest: DocumentRequest{
			Name:        "Statuts",
			Type:        "statutes",
			Category:    models.DocumentStructure,
			StructureID: &suite.structure.ID,
		},
		Filename:    "statuts.pdf",
		ContentType: "application/pdf",
		Size:        7,
		Body:        strings.NewReader("content"),
	}
	doc, err := suite.service.Upload(suite.fx.Ctx, suite.admin.ID, req)
	suite.Require().NoError(err)
	suite.Require().NotNil(doc.StorageKey)
	suite.Equal("s3://documents/"+*doc.StorageKey, doc.URL)
}

func (suite *DocumentServiceTestSuite) TestUpload_RemovesObjectWhenRecordFails() {
	suite.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, int64(7), "").Return(nil).Once()
	suite.storage.On("Remove", mock.Anything, mock.Anything).Return(nil).Once()
	suite.fx.Store.FailNext("documents.Create", assert.AnError)

	req := &UploadRequest{
		DocumentRequest: DocumentRequest{
			Name:       "Lease",
			Type:       "lease",
			Category:   models.DocumentProperty,
			PropertyID: &suite.property.ID,
		},
		Filename: "lease.pdf",
		Size:     7,
		Body:     strings.NewReader("content"),
	}
	_, err := suite.service.Upload(suite.fx.Ctx, suite.admin.ID, req)
	suite.ErrorIs(err, assert.AnError)
}

func (suite *DocumentServiceTestSuite) TestUpload_RequiresFile() {
	_, err := suite.service.Upload(suite.fx.Ctx, suite.admin.ID, &UploadRequest{})
	suite.ErrorIs(err, common.ErrInvalidInput)
}

func (suite *DocumentServiceTestSuite) TestDownloadURL() {
	external := suite.fx.Document(suite.owner.ID, models.DocumentProperty, suite.property.ID, nil)
	url, err := suite.service.DownloadURL(suite.fx.Ctx, suite.member.ID, external.ID)
	suite.Require().NoError(err)
	suite.Equal(external.URL, url)

	key := "property/" + suite.property.ID.String() + "/scan.pdf"
	stored := &models.Document{
		ID:         uuid.New(),
		Name:       "scan.pdf",
		Type:       "scan",
		Category:   models.DocumentProperty,
		URL:        "s3://documents/" + key,
		StorageKey: &key,
		PropertyID: &suite.property.ID,
		UploadedBy: suite.owner.ID,
	}
	suite.Require().NoError(suite.fx.Store.Documents().Create(suite.fx.Ctx, stored))
	suite.storage.On("PresignedURL", mock.Anything, key, 15*time.Minute).Return("https://minio.local/signed", nil).Once()

	url, err = suite.service.DownloadURL(suite.fx.Ctx, suite.member.ID, stored.ID)
	suite.Require().NoError(err)
	suite.Equal("https://minio.local/signed", url)
}

func (suite *DocumentServiceTestSuite) TestDelete() {
	key := "structure/" + suite.structure.ID.String() + "/kbis.pdf"
	doc := &models.Document{
		ID:          uuid.New(),
		Name:        "kbis.pdf",
		Type:        "kbis",
		Category:    models.DocumentStructure,
		URL:         "s3://documents/" + key,
		StorageKey:  &key,
		StructureID: &suite.structure.ID,
		UploadedBy:  suite.owner.ID,
	}
	suite.Require().NoError(suite.fx.Store.Documents().Create(suite.fx.Ctx, doc))

	err := suite.service.Delete(suite.fx.Ctx, suite.member.ID, doc.ID)
	suite.ErrorIs(err, common.ErrForbidden)

	suite.storage.On("Remove", mock.Anything, key).Return(assert.AnError).Once()
	suite.NoError(suite.service.Delete(suite.fx.Ctx, suite.admin.ID, doc.ID), "storage cleanup failures are not fatal")

	_, err = suite.fx.Store.Documents().GetByID(suite.fx.Ctx, doc.ID)
	suite.ErrorIs(err, common.ErrNotFound)
}

func (suite *DocumentServiceTestSuite) TestList_OnlyReachable() {
	suite.fx.Document(suite.owner.ID, models.DocumentStructure, suite.structure.ID, nil)
	outsider := suite.fx.User("Otto Outsider")
	foreign := suite.fx.OwnedProperty(outsider.ID)
	suite.fx.Document(outsider.ID, models.DocumentProperty, foreign.ID, nil)

	docs, err := suite.service.List(suite.fx.Ctx, suite.member.ID, models.DocumentFilter{})
	suite.Require().NoError(err)
	suite.Len(docs, 1)

	bad := models.DocumentCategory("invoice")
	_, err = suite.service.List(suite.fx.Ctx, suite.member.ID, models.DocumentFilter{Category: &bad})
	suite.ErrorIs(err, common.ErrInvalidInput)
}
