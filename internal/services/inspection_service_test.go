package services

import (
	"context"
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

type MockShareLinkCache struct {
	mock.Mock
}

func (m *MockShareLinkCache) SetShareLink(ctx context.Context, token string, inspectionID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, token, inspectionID, ttl)
	return args.Error(0)
}

func (m *MockShareLinkCache) GetShareLink(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockShareLinkCache) DeleteShareLink(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type InspectionServiceTestSuite struct {
	suite.Suite
	fx        *testhelpers.Fixture
	cache     *MockShareLinkCache
	service   *inspectionService
	now       time.Time
	owner     *models.User
	admin     *models.User
	member    *models.User
	structure *models.Structure
	property  *models.Property
}

func (suite *InspectionServiceTestSuite) SetupTest() {
	suite.fx = testhelpers.NewFixture(suite.T())
	suite.cache = new(MockShareLinkCache)
	suite.now = time.Now().UTC()
	suite.service = NewInspectionService(suite.fx.Store, suite.cache, nil).(*inspectionService)
	suite.service.now = func() time.Time { return suite.now }

	suite.owner = suite.fx.User("Olivia Owner")
	suite.admin = suite.fx.User("Adam Admin")
	suite.member = suite.fx.User("Mia Member")
	suite.structure = suite.fx.Structure(suite.owner.ID)
	suite.fx.Member(suite.structure.ID, suite.admin.ID, models.RoleAdmin)
	suite.fx.Member(suite.structure.ID, suite.member.ID, models.RoleMember)
	suite.property = suite.fx.StructureProperty(suite.structure.ID)
}

func (suite *InspectionServiceTestSuite) TearDownTest() {
	suite.cache.AssertExpectations(suite.T())
}

func TestInspectionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InspectionServiceTestSuite))
}

func (suite *InspectionServiceTestSuite) TestCreate_WithShareLink() {
	suite.cache.On("SetShareLink", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("uuid.UUID"), ShareLinkValidity).
		Return(nil).Once()

	inspection, err := suite.service.Create(suite.fx.Ctx, suite.admin.ID, &CreateInspectionRequest{
		PropertyID:   suite.property.ID,
		Type:         "entry",
		Date:         "2025-02-10",
		Photos:       []string{"a.jpg", "b.jpg"},
		GenerateLink: true,
	})
	suite.Require().NoError(err)
	suite.Equal(models.InspectionDraft, inspection.Status)
	suite.Require().NotNil(inspection.ShareToken)
	suite.Len(*inspection.ShareToken, 64)
	suite.Require().NotNil(inspection.ShareExpiry)
	suite.True(inspection.ShareExpiry.Equal(suite.now.Add(7 * 24 * time.Hour)))
}

func (suite *InspectionServiceTestSuite) TestCreate_Rejections() {
	req := &CreateInspectionRequest{PropertyID: suite.property.ID, Type: "entry", Date: "2025-02-10"}

	_, err := suite.service.Create(suite.fx.Ctx, suite.member.ID, req)
	suite.ErrorIs(err, common.ErrForbidden)

	owned := suite.fx.OwnedProperty(suite.owner.ID)
	_, err = suite.service.Create(suite.fx.Ctx, suite.owner.ID, &CreateInspectionRequest{PropertyID: owned.ID, Type: "entry", Date: "2025-02-10"})
	suite.ErrorIs(err, common.ErrForbidden, "inspections live under a structure")

	_, err = suite.service.Create(suite.fx.Ctx, suite.admin.ID, &CreateInspectionRequest{PropertyID: suite.property.ID})
	var verr *common.ValidationError
	suite.Require().ErrorAs(err, &verr)
	suite.Contains(verr.Fields, "type")
	suite.Contains(verr.Fields, "date")
}

func (suite *InspectionServiceTestSuite) TestUpdate_CompletesThenLocks() {
	inspection := suite.fx.Inspection(suite.property.ID, models.InspectionDraft)

	notes := "keys handed over"
	completed := models.InspectionCompleted
	updated, err := suite.service.Update(suite.fx.Ctx, suite.admin.ID, inspection.ID, &UpdateInspectionRequest{
		Notes:  &notes,
		Status: &completed,
	})
	suite.Require().NoError(err)
	suite.Equal(models.InspectionCompleted, updated.Status)
	suite.Equal(notes, updated.Notes)

	_, err = suite.service.Update(suite.fx.Ctx, suite.owner.ID, inspection.ID, &UpdateInspectionRequest{Notes: &notes})
	suite.ErrorIs(err, common.ErrConflict)

	err = suite.service.Delete(suite.fx.Ctx, suite.owner.ID, inspection.ID)
	suite.ErrorIs(err, common.ErrConflict)
}

func (suite *InspectionServiceTestSuite) TestUpdate_RoleChecks() {
	inspection := suite.fx.Inspection(suite.property.ID, models.InspectionDraft)
	notes := "n"

	_, err := suite.service.Update(suite.fx.Ctx, suite.member.ID, inspection.ID, &UpdateInspectionRequest{Notes: &notes})
	suite.ErrorIs(err, common.ErrForbidden)

	outsider := suite.fx.User("Otto Outsider")
	_, err = suite.service.Update(suite.fx.Ctx, outsider.ID, inspection.ID, &UpdateInspectionRequest{Notes: &notes})
	suite.ErrorIs(err, common.ErrNotFound)

	bad := models.InspectionStatus("archived")
	_, err = suite.service.Update(suite.fx.Ctx, suite.admin.ID, inspection.ID, &UpdateInspectionRequest{Status: &bad})
	suite.ErrorIs(err, common.ErrInvalidInput)
}

func (suite *InspectionServiceTestSuite) TestUpdate_RotatesShareLink() {
	inspection := suite.fx.Inspection(suite.property.ID, models.InspectionDraft)
	oldToken := "old-token"
	oldExpiry := suite.now.Add(time.Hour)
	inspection.ShareToken, inspection.ShareExpiry = &oldToken, &oldExpiry
	suite.Require().NoError(suite.fx.Store.Inspections().Update(suite.fx.Ctx, inspection))

	suite.cache.On("DeleteShareLink", mock.Anything, oldToken).Return(nil).Once()
	suite.cache.On("SetShareLink", mock.Anything, mock.MatchedBy(func(token string) bool { return token != oldToken }), inspection.ID, ShareLinkValidity).
		Return(assert.AnError).Once()

	updated, err := suite.service.Update(suite.fx.Ctx, suite.admin.ID, inspection.ID, &UpdateInspectionRequest{GenerateLink: true})
	suite.Require().NoError(err, "cache failures are not fatal")
	suite.NotEqual(oldToken, *updated.ShareToken)
}

func (suite *InspectionServiceTestSuite) TestDelete() {
	inspection := suite.fx.Inspection(suite.property.ID, models.InspectionDraft)

	err := suite.service.Delete(suite.fx.Ctx, suite.admin.ID, inspection.ID)
	suite.ErrorIs(err, common.ErrForbidden)

	suite.Require().NoError(suite.service.Delete(suite.fx.Ctx, suite.owner.ID, inspection.ID))
	_, err = suite.fx.Store.Inspections().GetByID(suite.fx.Ctx, inspection.ID)
	suite.ErrorIs(err, common.ErrNotFound)
}

func (suite *InspectionServiceTestSuite) TestList() {
	suite.fx.Inspection(suite.property.ID, models.InspectionDraft)
	suite.fx.Inspection(suite.property.ID, models.InspectionCompleted)

	all, err := suite.service.List(suite.fx.Ctx, suite.member.ID, models.InspectionFilter{})
	suite.Require().NoError(err)
	suite.Len(all, 2)

	completed := models.InspectionCompleted
	done, err := suite.service.List(suite.fx.Ctx, suite.member.ID, models.InspectionFilter{Status: &completed})
	suite.Require().NoError(err)
	suite.Len(done, 1)

	outsider := suite.fx.User("Otto Outsider")
	none, err := suite.service.List(suite.fx.Ctx, outsider.ID, models.InspectionFilter{})
	suite.Require().NoError(err)
	suite.Empty(none)
}

func (suite *InspectionServiceTestSuite) sharedInspection(expiry time.Time) (*models.Inspection, string) {
	inspection := suite.fx.Inspection(suite.property.ID, models.InspectionDraft)
	token := "tok-" + inspection.ID.String()
	inspection.ShareToken, inspection.ShareExpiry = &token, &expiry
	suite.Require().NoError(suite.fx.Store.Inspections().Update(suite.fx.Ctx, inspection))
	return inspection, token
}

func (suite *InspectionServiceTestSuite) TestResolveShare_CacheHit() {
	inspection, token := suite.sharedInspection(suite.now.Add(24 * time.Hour))
	suite.cache.On("GetShareLink", mock.Anything, token).Return(inspection.ID, nil).Once()

	shared, err := suite.service.ResolveShare(suite.fx.Ctx, token)
	suite.Require().NoError(err)
	suite.Equal(inspection.ID, shared.ID)
	suite.Equal(suite.property.Address, shared.PropertyAddress)
}

func (suite *InspectionServiceTestSuite) TestResolveShare_FallsBackToDatabase() {
	inspection, token := suite.sharedInspection(suite.now.Add(24 * time.Hour))
	suite.cache.On("GetShareLink", mock.Anything, token).Return(uuid.Nil, common.ErrNotFound).Once()

	shared, err := suite.service.ResolveShare(suite.fx.Ctx, token)
	suite.Require().NoError(err)
	suite.Equal(inspection.ID, shared.ID)
}

func (suite *InspectionServiceTestSuite) TestResolveShare_CacheOutage() {
	inspection, token := suite.sharedInspection(suite.now.Add(24 * time.Hour))
	suite.cache.On("GetShareLink", mock.Anything, token).Return(uuid.Nil, assert.AnError).Once()

	shared, err := suite.service.ResolveShare(suite.fx.Ctx, token)
	suite.Require().NoError(err)
	suite.Equal(inspection.ID, shared.ID)
}

func (suite *InspectionServiceTestSuite) TestResolveShare_Expired() {
	_, token := suite.sharedInspection(suite.now.Add(-time.Minute))
	suite.cache.On("GetShareLink", mock.Anything, token).Return(uuid.Nil, common.ErrNotFound).Once()

	_, err := suite.service.ResolveShare(suite.fx.Ctx, token)
	suite.ErrorIs(err, common.ErrNotFound)
}

func (suite *InspectionServiceTestSuite) TestResolveShare_UnknownOrBlank() {
	suite.cache.On("GetShareLink", mock.Anything, "missing").Return(uuid.Nil, common.ErrNotFound).Once()

	_, err := suite.service.ResolveShare(suite.fx.Ctx, "missing")
	suite.ErrorIs(err, common.ErrNotFound)

	_, err = suite.service.ResolveShare(suite.fx.Ctx, "  ")
	suite.ErrorIs(err, common.ErrNotFound)
}

func TestGenerateShareToken(t *testing.T) {
	a, err := generateShareToken()
	assert.NoError(t, err)
	b, err := generateShareToken()
	assert.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
