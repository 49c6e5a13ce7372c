package handlers

import (
	"strings"

	"sciportfolio/internal/common"
	"sciportfolio/internal/logging"
	"sciportfolio/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// sendError renders err, logging server failures with the request-scoped logger.
func sendError(c echo.Context, fallback *zap.Logger, err error) error {
	return common.SendServiceError(c, logging.FromContext(c.Request().Context(), fallback), err)
}

// currentUser returns the provisioned caller set by the auth chain.
func currentUser(c echo.Context) (uuid.UUID, error) {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, common.ErrUnauthenticated
	}
	return userID, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	return common.ValidateUUID(c.Param(name), name)
}

func bindBody(c echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return common.NewValidationError("body", "malformed request body")
	}
	return nil
}

func optionalQuery(c echo.Context, name string) *string {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil
	}
	return &v
}

func propertyFilter(c echo.Context) (models.PropertyFilter, error) {
	var filter models.PropertyFilter
	limit, offset, err := common.Pagination(c)
	if err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = limit, offset

	if filter.StructureID, err = common.ValidateOptionalUUID(c.QueryParam("structure_id"), "structure_id"); err != nil {
		return filter, err
	}
	if v := optionalQuery(c, "status"); v != nil {
		status := models.PropertyStatus(*v)
		if !status.Valid() {
			return filter, common.NewValidationError("status", "must be vacant or rented")
		}
		filter.Status = &status
	}
	if v := optionalQuery(c, "type"); v != nil {
		t := models.PropertyType(*v)
		if !t.Valid() {
			return filter, common.NewValidationError("type", "must be one of apartment, house, studio, commercial")
		}
		filter.Type = &t
	}
	return filter, nil
}

func documentFilter(c echo.Context) (models.DocumentFilter, error) {
	var filter models.DocumentFilter
	limit, offset, err := common.Pagination(c)
	if err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = limit, offset

	if v := optionalQuery(c, "category"); v != nil {
		category := models.DocumentCategory(*v)
		if !category.Valid() {
			return filter, common.NewValidationError("category", "must be one of structure, property, tenant")
		}
		filter.Category = &category
	}
	filter.Type = optionalQuery(c, "type")
	if filter.EntityID, err = common.ValidateOptionalUUID(c.QueryParam("entity_id"), "entity_id"); err != nil {
		return filter, err
	}
	return filter, nil
}

func inspectionFilter(c echo.Context) (models.InspectionFilter, error) {
	var filter models.InspectionFilter
	limit, offset, err := common.Pagination(c)
	if err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = limit, offset

	if filter.PropertyID, err = common.ValidateOptionalUUID(c.QueryParam("property_id"), "property_id"); err != nil {
		return filter, err
	}
	filter.Type = optionalQuery(c, "type")
	if v := optionalQuery(c, "status"); v != nil {
		status := models.InspectionStatus(*v)
		if !status.Valid() {
			return filter, common.NewValidationError("status", "must be draft or completed")
		}
		filter.Status = &status
	}
	return filter, nil
}
