package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sciportfolio/internal/analytics"
	"sciportfolio/internal/common"
	"sciportfolio/internal/logging"
	"sciportfolio/internal/models"
	"sciportfolio/internal/services"
	"sciportfolio/testhelpers"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// asUser stands in for the auth chain by reading the caller from a header.
func asUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if raw := c.Request().Header.Get("X-Test-User"); raw != "" {
			ctx := common.WithUserID(c.Request().Context(), uuid.MustParse(raw))
			c.SetRequest(c.Request().WithContext(ctx))
		}
		return next(c)
	}
}

type HandlersTestSuite struct {
	suite.Suite
	fx   *testhelpers.Fixture
	e    *echo.Echo
	user *models.User
}

func (suite *HandlersTestSuite) SetupTest() {
	suite.fx = testhelpers.NewFixture(suite.T())
	store := suite.fx.Store
	api := &API{
		Users:       NewUserHandlers(services.NewUserService(store), nil),
		Structures:  NewStructureHandlers(services.NewStructureService(store), services.NewMembershipService(store), nil),
		Properties:  NewPropertyHandlers(services.NewPropertyService(store), nil),
		Tenants:     NewTenantHandlers(services.NewTenantService(store), nil),
		Documents:   NewDocumentHandlers(services.NewDocumentService(store, nil, nil), nil),
		Inspections: NewInspectionHandlers(services.NewInspectionService(store, nil, nil), nil),
		Dashboard:   NewDashboardHandlers(analytics.NewAnalyticsService(store, nil), nil),
	}
	suite.e = echo.New()
	api.RegisterRoutes(suite.e.Group("/api/v1", asUser))
	api.RegisterPublicRoutes(suite.e.Group("/public"))
	suite.user = suite.fx.User("Olivia Owner")
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) do(method, path, body string, user *models.User) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != nil {
		req.Header.Set("X-Test-User", user.ID.String())
	}
	rec := httptest.NewRecorder()
	suite.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (suite *HandlersTestSuite) TestUnauthenticated() {
	rec := suite.do(http.MethodGet, "/api/v1/structures", "", nil)
	suite.Equal(http.StatusUnauthorized, rec.Code)
	suite.Equal("UNAUTHORIZED", decodeError(suite.T(), rec).Error.Code)
}

func (suite *HandlersTestSuite) TestMe() {
	rec := suite.do(http.MethodGet, "/api/v1/me", "", suite.user)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var got models.User
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	suite.Equal(suite.user.ID, got.ID)
}

func (suite *HandlersTestSuite) TestCreateAndFetchStructure() {
	body := `{"name":"SCI Les Tilleuls","address":"4 rue Haute","registration_number":"RCS-123","creation_date":"2019-05-02","capital":1500}`
	rec := suite.do(http.MethodPost, "/api/v1/structures", body, suite.user)
	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID   uuid.UUID   `json:"id"`
		Name string      `json:"name"`
		Role models.Role `json:"role"`
	}
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	suite.Equal("SCI Les Tilleuls", created.Name)
	suite.Equal(models.RoleOwner, created.Role)

	rec = suite.do(http.MethodGet, "/api/v1/structures/"+created.ID.String(), "", suite.user)
	suite.Equal(http.StatusOK, rec.Code)

	stranger := suite.fx.User("Sam Stranger")
	rec = suite.do(http.MethodGet, "/api/v1/structures/"+created.ID.String(), "", stranger)
	suite.Equal(http.StatusNotFound, rec.Code)

	rec = suite.do(http.MethodPost, "/api/v1/structures", body, suite.user)
	suite.Equal(http.StatusConflict, rec.Code)
	suite.Equal("CONFLICT", decodeError(suite.T(), rec).Error.Code)
}

func (suite *HandlersTestSuite) TestValidationErrors() {
	rec := suite.do(http.MethodPost, "/api/v1/structures", `{"name":""}`, suite.user)
	suite.Require().Equal(http.StatusBadRequest, rec.Code)
	resp := decodeError(suite.T(), rec)
	suite.Equal("VALIDATION_ERROR", resp.Error.Code)
	suite.Contains(resp.Error.Details, "name")

	rec = suite.do(http.MethodPost, "/api/v1/structures", `{not json`, suite.user)
	suite.Equal(http.StatusBadRequest, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/properties/not-a-uuid", "", suite.user)
	suite.Equal(http.StatusBadRequest, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/properties?status=sold", "", suite.user)
	suite.Equal(http.StatusBadRequest, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/documents?limit=0", "", suite.user)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *HandlersTestSuite) TestMemberForbidden() {
	structure := suite.fx.Structure(suite.user.ID)
	member := suite.fx.User("Mia Member")
	suite.fx.Member(structure.ID, member.ID, models.RoleMember)

	rec := suite.do(http.MethodPatch, "/api/v1/structures/"+structure.ID.String(), `{"name":"Renamed"}`, member)
	suite.Equal(http.StatusForbidden, rec.Code)
	suite.Equal("FORBIDDEN", decodeError(suite.T(), rec).Error.Code)
}

func (suite *HandlersTestSuite) TestAssignTenant() {
	property := suite.fx.OwnedProperty(suite.user.ID)
	tenant := suite.fx.Tenant(suite.user.ID, "Alice", "Durand")

	body := `{"tenant_id":"` + tenant.ID.String() + `","rent_amount":900,"start_date":"2025-01-01"}`
	rec := suite.do(http.MethodPost, "/api/v1/properties/"+property.ID.String()+"/tenants", body, suite.user)
	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = suite.do(http.MethodDelete, "/api/v1/tenants/"+tenant.ID.String(), "", suite.user)
	suite.Equal(http.StatusConflict, rec.Code, "tenants with an active lease cannot be deleted")
}

func (suite *HandlersTestSuite) TestDashboard() {
	rec := suite.do(http.MethodGet, "/api/v1/dashboard", "", suite.user)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var dashboard analytics.Dashboard
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &dashboard))
	suite.Zero(dashboard.Counts.Properties)
}

func (suite *HandlersTestSuite) TestSharedInspection() {
	structure := suite.fx.Structure(suite.user.ID)
	property := suite.fx.StructureProperty(structure.ID)
	inspection := suite.fx.Inspection(property.ID, models.InspectionDraft)
	token := "public-token"
	expiry := time.Now().Add(time.Hour)
	inspection.ShareToken, inspection.ShareExpiry = &token, &expiry
	suite.Require().NoError(suite.fx.Store.Inspections().Update(suite.fx.Ctx, inspection))

	rec := suite.do(http.MethodGet, "/public/inspections/"+token, "", nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var shared models.SharedInspection
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &shared))
	suite.Equal(property.Address, shared.PropertyAddress)

	rec = suite.do(http.MethodGet, "/public/inspections/unknown", "", nil)
	suite.Equal(http.StatusNotFound, rec.Code)
}

type fakeDashboard struct{ err error }

func (f fakeDashboard) Dashboard(context.Context, uuid.UUID) (*analytics.Dashboard, error) {
	return nil, f.err
}

func TestSendServiceError_InternalErrorsAreHidden(t *testing.T) {
	e := echo.New()
	h := NewDashboardHandlers(fakeDashboard{err: errors.New("pq: connection reset")}, nil)
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(common.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()

	require.NoError(t, h.GetDashboard(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestSendServiceError_UsesRequestLogger(t *testing.T) {
	core, scoped := observer.New(zap.InfoLevel)
	fallbackCore, fallback := observer.New(zap.InfoLevel)

	e := echo.New()
	h := NewDashboardHandlers(fakeDashboard{err: errors.New("pq: connection reset")}, zap.New(fallbackCore))
	e.GET("/dashboard", h.GetDashboard, logging.RequestLogger(zap.New(core)), asUser)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("X-Test-User", uuid.NewString())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	failures := scoped.FilterMessage("request failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "/dashboard", failures[0].ContextMap()["path"])
	assert.Equal(t, 0, fallback.Len(), "the handler logger is only a fallback")
}

func TestHealthCheck(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("down") })

	tests := []struct {
		name     string
		db       Pinger
		redis    Pinger
		storage  Pinger
		code     int
		status   string
		services map[string]string
	}{
		{"all healthy", ok, ok, ok, http.StatusOK, "healthy",
			map[string]string{"database": "healthy", "redis": "healthy", "storage": "healthy"}},
		{"redis down", ok, down, ok, http.StatusOK, "degraded",
			map[string]string{"database": "healthy", "redis": "unhealthy", "storage": "healthy"}},
		{"optional deps disabled", ok, nil, nil, http.StatusOK, "healthy",
			map[string]string{"database": "healthy", "redis": "disabled", "storage": "disabled"}},
		{"database down", down, ok, ok, http.StatusServiceUnavailable, "unhealthy",
			map[string]string{"database": "unhealthy", "redis": "healthy", "storage": "healthy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandlers(tt.db, tt.redis, tt.storage, nil, "test")
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

			require.NoError(t, h.HealthCheck(c))
			assert.Equal(t, tt.code, rec.Code)
			var got HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.services, got.Services)
			assert.Equal(t, "test", got.Version)
		})
	}
}
