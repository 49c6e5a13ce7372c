package services

import (
	"testing"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type StructureServiceTestSuite struct {
	suite.Suite
	fx      *testhelpers.Fixture
	service StructureService
	owner   *models.User
}

func (suite *StructureServiceTestSuite) SetupTest() {
	suite.fx = testhelpers.NewFixture(suite.T())
	suite.service = NewStructureService(suite.fx.Store)
	suite.owner = suite.fx.User("Olivia Owner")
}

func TestStructureServiceTestSuite(t *testing.T) {
	suite.Run(t, new(StructureServiceTestSuite))
}

func floatPtr(f float64) *float64 { return &f }

func (suite *StructureServiceTestSuite) validRequest(registration string) *CreateStructureRequest {
	return &CreateStructureRequest{
		Name:               "SCI Les Tilleuls",
		Address:            "12 rue des Lilas, Lyon",
		RegistrationNumber: registration,
		CreationDate:       "2019-05-14",
		Capital:            floatPtr(1500),
		Email:              testhelpers.StringPtr("  contact@tilleuls.fr "),
		Associates: []AssociateRequest{
			{Name: "Olivia", Percentage: 60},
			{Name: "Paul", Percentage: 40},
		},
	}
}

func (suite *StructureServiceTestSuite) TestCreate_Success() {
	detail, err := suite.service.Create(suite.fx.Ctx, suite.owner.ID, suite.validRequest("RCS-100"))
	suite.Require().NoError(err)

	suite.Equal(models.RoleOwner, detail.Role)
	suite.Equal("contact@tilleuls.fr", *detail.Email)
	suite.Len(detail.Associates, 2)
	suite.Require().Len(detail.Members, 1)
	suite.Equal(suite.owner.ID, detail.Members[0].UserID)
	suite.Equal(models.RoleOwner, detail.Members[0].Role)
	suite.Empty(detail.Properties)
	suite.NotNil(detail.Properties)
}

func (suite *StructureServiceTestSuite) TestCreate_MissingFields() {
	_, err := suite.service.Create(suite.fx.Ctx, suite.owner.ID, &CreateStructureRequest{})

	var verr *common.ValidationError
	suite.Require().ErrorAs(err, &verr)
	suite.ErrorIs(err, common.ErrInvalidInput)
	for _, field := range []string{"name", "address", "registration_number", "creation_date", "capital"} {
		suite.Contains(verr.Fields, field)
	}

	structures, err := suite.fx.Store.Structures().ListForUser(suite.fx.Ctx, suite.owner.ID)
	suite.NoError(err)
	suite.Empty(structures)
}

func (suite *StructureServiceTestSuite) TestCreate_InvalidAssociatePercentage() {
	req := suite.validRequest("RCS-101")
	req.Associates = []AssociateRequest{{Name: "Paul", Percentage: 120}}

	_, err := suite.service.Create(suite.fx.Ctx, suite.owner.ID, req)
	suite.ErrorIs(err, common.ErrInvalidInput)
}

func (suite *StructureServiceTestSuite) TestCreate_DuplicateRegistrationNumber() {
	_, err := suite.service.Create(suite.fx.Ctx, suite.owner.ID, suite.validRequest("RCS-200"))
	suite.Require().NoError(err)

	other := suite.fx.User("Otto Other")
	_, err = suite.service.Create(suite.fx.Ctx, other.ID, suite.validRequest("RCS-200"))
	suite.ErrorIs(err, common.ErrConflict)

	structures, err := suite.fx.Store.Structures().ListForUser(suite.fx.Ctx, other.ID)
	suite.NoError(err)
	suite.Empty(structures, "a rejected create leaves no membership behind")
}

func (suite *StructureServiceTestSuite) TestCreate_RollsBackOnMembershipFailure() {
	suite.fx.Store.FailNext("memberships.Create", assert.AnError)

	_, err := suite.service.Create(suite.fx.Ctx, suite.owner.ID, suite.validRequest("RCS-300"))
	suite.ErrorIs(err, assert.AnError)

	_, err = suite.fx.Store.Structures().GetByRegistrationNumber(suite.fx.Ctx, "RCS-300")
	suite.ErrorIs(err, common.ErrNotFound)
}

func (suite *StructureServiceTestSuite) TestGetAndList_OnlyForMembers() {
	mine := suite.fx.Structure(suite.owner.ID)
	other := suite.fx.User("Otto Other")
	suite.fx.Structure(other.ID)
	suite.fx.StructureProperty(mine.ID)
	suite.fx.Document(suite.owner.ID, models.DocumentStructure, mine.ID, nil)

	detail, err := suite.service.Get(suite.fx.Ctx, suite.owner.ID, mine.ID)
	suite.Require().NoError(err)
	suite.Len(detail.Properties, 1)
	suite.Equal(1, detail.DocumentCount)

	_, err = suite.service.Get(suite.fx.Ctx, other.ID, mine.ID)
	suite.ErrorIs(err, common.ErrNotFound)

	list, err := suite.service.List(suite.fx.Ctx, suite.owner.ID)
	suite.Require().NoError(err)
	suite.Require().Len(list, 1)
	suite.Equal(mine.ID, list[0].ID)
}

func (suite *StructureServiceTestSuite) TestUpdate() {
	structure := suite.fx.Structure(suite.owner.ID)
	admin := suite.fx.User("Adam Admin")
	member := suite.fx.User("Mia Member")
	suite.fx.Member(structure.ID, admin.ID, models.RoleAdmin)
	suite.fx.Member(structure.ID, member.ID, models.RoleMember)

	name := "SCI Renamed"
	_, err := suite.service.Update(suite.fx.Ctx, member.ID, structure.ID, &UpdateStructureRequest{Name: &name})
	suite.ErrorIs(err, common.ErrForbidden)

	updated, err := suite.service.Update(suite.fx.Ctx, admin.ID, structure.ID, &UpdateStructureRequest{Name: &name, Capital: floatPtr(5000)})
	suite.Require().NoError(err)
	suite.Equal(name, updated.Name)
	suite.Equal(5000.0, updated.Capital)
	suite.Equal(structure.RegistrationNumber, updated.RegistrationNumber)

	blank := "  "
	_, err = suite.service.Update(suite.fx.Ctx, admin.ID, structure.ID, &UpdateStructureRequest{Name: &blank})
	suite.ErrorIs(err, common.ErrInvalidInput)

	_, err = suite.service.Update(suite.fx.Ctx, admin.ID, uuid.New(), &UpdateStructureRequest{Name: &name})
	suite.ErrorIs(err, common.ErrNotFound)
}

func (suite *StructureServiceTestSuite) TestDelete_CascadesAndRequiresOwner() {
	structure := suite.fx.Structure(suite.owner.ID)
	admin := suite.fx.User("Adam Admin")
	suite.fx.Member(structure.ID, admin.ID, models.RoleAdmin)
	property := suite.fx.StructureProperty(structure.ID)

	err := suite.service.Delete(suite.fx.Ctx, admin.ID, structure.ID)
	suite.ErrorIs(err, common.ErrForbidden)

	suite.Require().NoError(suite.service.Delete(suite.fx.Ctx, suite.owner.ID, structure.ID))

	_, err = suite.fx.Store.Properties().GetByID(suite.fx.Ctx, property.ID)
	suite.ErrorIs(err, common.ErrNotFound)
	_, err = suite.fx.Store.Memberships().Get(suite.fx.Ctx, structure.ID, admin.ID)
	suite.ErrorIs(err, common.ErrNotFound)
}
