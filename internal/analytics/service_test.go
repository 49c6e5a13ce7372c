package analytics

import (
	"testing"
	"time"

	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories/memstore"
	"sciportfolio/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DashboardTestSuite struct {
	suite.Suite
	fx      *testhelpers.Fixture
	now     time.Time
	service *AnalyticsService
}

func (suite *DashboardTestSuite) SetupTest() {
	suite.fx = testhelpers.NewFixture(suite.T())
	suite.now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	suite.service = NewAnalyticsService(suite.fx.Store, nil).WithClock(func() time.Time { return suite.now })
}

func TestDashboardTestSuite(t *testing.T) {
	suite.Run(t, new(DashboardTestSuite))
}

func (suite *DashboardTestSuite) days(n int) *time.Time {
	return testhelpers.TimePtr(suite.now.Add(time.Duration(n) * 24 * time.Hour))
}

func (suite *DashboardTestSuite) TestEmptyPortfolio() {
	user := suite.fx.User("Nina Nobody")

	dashboard, err := suite.service.Dashboard(suite.fx.Ctx, user.ID)
	suite.Require().NoError(err)
	suite.Equal(Counts{}, dashboard.Counts)
	suite.Zero(dashboard.OccupancyRate)
	suite.Zero(dashboard.MonthlyIncome)
	suite.NotNil(dashboard.Alerts)
	suite.Empty(dashboard.Alerts)
	suite.NotNil(dashboard.RecentActivity)
	suite.Empty(dashboard.RecentActivity)
	suite.Equal(suite.now, dashboard.GeneratedAt)
}

func (suite *DashboardTestSuite) TestPortfolioMetrics() {
	owner := suite.fx.User("Olivia Owner")
	structure := suite.fx.Structure(owner.ID)
	rented := suite.fx.StructureProperty(structure.ID)
	vacant := suite.fx.StructureProperty(structure.ID)
	direct := suite.fx.OwnedProperty(owner.ID)
	second := suite.fx.StructureProperty(structure.ID)

	alice := suite.fx.Tenant(owner.ID, "Alice", "Durand")
	bruno := suite.fx.Tenant(owner.ID, "Bruno", "Petit")
	suite.fx.Lease(alice.ID, rented.ID, 850, true)
	suite.fx.Lease(bruno.ID, direct.ID, 1200.5, true)
	suite.fx.Lease(bruno.ID, second.ID, 700, false)

	within := suite.fx.Document(owner.ID, models.DocumentProperty, rented.ID, suite.days(29))
	beyond := suite.fx.Document(owner.ID, models.DocumentProperty, vacant.ID, suite.days(31))
	expired := suite.fx.Document(owner.ID, models.DocumentStructure, structure.ID, suite.days(-3))
	tenantDoc := suite.fx.Document(owner.ID, models.DocumentTenant, alice.ID, suite.days(10))
	suite.fx.Document(owner.ID, models.DocumentStructure, structure.ID, nil)

	dashboard, err := suite.service.Dashboard(suite.fx.Ctx, owner.ID)
	suite.Require().NoError(err)

	suite.Equal(Counts{Structures: 1, Properties: 4, ActiveTenancies: 2, Documents: 5}, dashboard.Counts)
	suite.InDelta(2050.5, dashboard.MonthlyIncome, 0.001)
	suite.InDelta(50.0, dashboard.OccupancyRate, 0.001)

	suite.Require().Len(dashboard.Alerts, 3)
	suite.Equal(expired.ID, dashboard.Alerts[0].DocumentID, "alerts are ordered by expiry, already expired first")
	suite.Equal(NoAddressLabel, dashboard.Alerts[0].PropertyAddress)
	suite.Equal(tenantDoc.ID, dashboard.Alerts[1].DocumentID)
	suite.Equal(rented.Address, dashboard.Alerts[1].PropertyAddress, "tenant documents use the active lease address")
	suite.Equal(within.ID, dashboard.Alerts[2].DocumentID)
	suite.Equal(rented.Address, dashboard.Alerts[2].PropertyAddress)
	for _, alert := range dashboard.Alerts {
		suite.NotEqual(beyond.ID, alert.DocumentID)
	}

	suite.Require().Len(dashboard.RecentActivity, 3)
	suite.Equal("Bruno Petit", dashboard.RecentActivity[0].TenantName)
	suite.Equal(second.Address, dashboard.RecentActivity[0].PropertyAddress)
	suite.Equal("Alice Durand", dashboard.RecentActivity[2].TenantName)
}

func (suite *DashboardTestSuite) TestRecentActivityIsCapped() {
	owner := suite.fx.User("Olivia Owner")
	structure := suite.fx.Structure(owner.ID)
	tenant := suite.fx.Tenant(owner.ID, "Alice", "Durand")
	for i := 0; i < RecentActivityLimit+2; i++ {
		property := suite.fx.StructureProperty(structure.ID)
		suite.fx.Lease(tenant.ID, property.ID, 500, false)
	}

	dashboard, err := suite.service.Dashboard(suite.fx.Ctx, owner.ID)
	suite.Require().NoError(err)
	suite.Len(dashboard.RecentActivity, RecentActivityLimit)
	suite.Zero(dashboard.Counts.ActiveTenancies)
	suite.Zero(dashboard.OccupancyRate)
}

func (suite *DashboardTestSuite) TestOnlyReachableEntitiesCount() {
	owner := suite.fx.User("Olivia Owner")
	other := suite.fx.User("Otto Other")
	mine := suite.fx.Structure(owner.ID)
	theirs := suite.fx.Structure(other.ID)
	suite.fx.StructureProperty(mine.ID)
	hidden := suite.fx.StructureProperty(theirs.ID)
	suite.fx.Document(other.ID, models.DocumentProperty, hidden.ID, suite.days(1))

	dashboard, err := suite.service.Dashboard(suite.fx.Ctx, owner.ID)
	suite.Require().NoError(err)
	suite.Equal(Counts{Structures: 1, Properties: 1}, dashboard.Counts)
	suite.Empty(dashboard.Alerts)
}

func TestDashboard_StorageError(t *testing.T) {
	store := memstore.New()
	store.FailNext("structures.ListForUser", assert.AnError)

	_, err := NewAnalyticsService(store, nil).Dashboard(t.Context(), uuid.New())
	require.ErrorIs(t, err, assert.AnError)
}

func TestOccupancyRate(t *testing.T) {
	assert.Zero(t, OccupancyRate(0, 0))
	assert.InDelta(t, 100.0, OccupancyRate(3, 3), 0.001)
	assert.InDelta(t, 33.333, OccupancyRate(1, 3), 0.001)
}
