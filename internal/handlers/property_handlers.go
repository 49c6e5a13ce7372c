package handlers

import (
	"net/http"

	"sciportfolio/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PropertyHandlers handles property and tenancy assignment requests
type PropertyHandlers struct {
	properties services.PropertyService
	logger     *zap.Logger
}

func NewPropertyHandlers(properties services.PropertyService, logger *zap.Logger) *PropertyHandlers {
	return &PropertyHandlers{properties: properties, logger: logger}
}

// ListProperties handles GET /properties with structure_id, status, type filters
func (h *PropertyHandlers) ListProperties(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	filter, err := propertyFilter(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	properties, err := h.properties.List(c.Request().Context(), userID, filter)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"properties": properties,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

func (h *PropertyHandlers) CreateProperty(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.PropertyRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	property, err := h.properties.Create(c.Request().Context(), userID, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, property)
}

func (h *PropertyHandlers) GetProperty(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	property, err := h.properties.Get(c.Request().Context(), userID, id)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, property)
}

func (h *PropertyHandlers) UpdateProperty(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.PropertyRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	property, err := h.properties.Update(c.Request().Context(), userID, id, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, property)
}

func (h *PropertyHandlers) DeleteProperty(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	if err := h.properties.Delete(c.Request().Context(), userID, id); err != nil {
		return sendError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignTenant handles POST /properties/:id/tenants
func (h *PropertyHandlers) AssignTenant(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.AssignTenantRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	link, err := h.properties.AssignTenant(c.Request().Context(), userID, id, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, link)
}

// EndTenancy handles DELETE /properties/:id/tenants
func (h *PropertyHandlers) EndTenancy(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	if err := h.properties.EndTenancy(c.Request().Context(), userID, id); err != nil {
		return sendError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
