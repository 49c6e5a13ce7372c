package handlers

import (
	"net/http"

	"sciportfolio/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// InspectionHandlers handles inspection requests and public share links
type InspectionHandlers struct {
	inspections services.InspectionService
	logger      *zap.Logger
}

func NewInspectionHandlers(inspections services.InspectionService, logger *zap.Logger) *InspectionHandlers {
	return &InspectionHandlers{inspections: inspections, logger: logger}
}

func (h *InspectionHandlers) ListInspections(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	filter, err := inspectionFilter(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	inspections, err := h.inspections.List(c.Request().Context(), userID, filter)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"inspections": inspections,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})
}

func (h *InspectionHandlers) CreateInspection(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.CreateInspectionRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	inspection, err := h.inspections.Create(c.Request().Context(), userID, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, inspection)
}

func (h *InspectionHandlers) GetInspection(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	inspection, err := h.inspections.Get(c.Request().Context(), userID, id)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, inspection)
}

// UpdateInspection fails with 409 once the inspection is completed
func (h *InspectionHandlers) UpdateInspection(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.UpdateInspectionRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	inspection, err := h.inspections.Update(c.Request().Context(), userID, id, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, inspection)
}

func (h *InspectionHandlers) DeleteInspection(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	if err := h.inspections.Delete(c.Request().Context(), userID, id); err != nil {
		return sendError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetSharedInspection serves the read-only view behind a share token. No auth.
func (h *InspectionHandlers) GetSharedInspection(c echo.Context) error {
	shared, err := h.inspections.ResolveShare(c.Request().Context(), c.Param("token"))
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, shared)
}
